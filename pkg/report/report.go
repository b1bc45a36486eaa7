// Package report renders fetch results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/cookiescope/pkg/cookies"
	"github.com/entrhq/cookiescope/pkg/fetch"
)

// maxCell caps the width of value cells in the cookie table.
const maxCell = 40

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Render formats res as a summary followed by a cookie table.
func Render(res fetch.Result) string {
	var b strings.Builder

	if !res.OK {
		b.WriteString(errorStyle.Render("✗ " + res.Error))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(okStyle.Render("✓ ") + headerStyle.Render(res.URL))
	b.WriteString("\n")
	b.WriteString(field("mode", string(res.Mode)))
	if res.Mode == fetch.ModeHTTP {
		b.WriteString(field("status", fmt.Sprint(res.Status)))
		b.WriteString(field("set-cookie headers", fmt.Sprint(len(res.SetCookieHeader))))
	} else {
		b.WriteString(field("document.cookie", quoteEmpty(res.DocumentCookie)))
	}

	list := normalized(res)
	if len(list) == 0 {
		b.WriteString(labelStyle.Render("no cookies"))
		b.WriteString("\n")
	} else {
		b.WriteString(cookieTable(list))
		b.WriteString("\n")
	}

	for _, w := range res.Warnings {
		b.WriteString(warningStyle.Render("! " + w))
		b.WriteString("\n")
	}
	return b.String()
}

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + value + "\n"
}

func quoteEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return s
}

func cookieTable(list []cookies.Normalized) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			truncate(deref(c.Name)),
			truncate(deref(c.Value)),
			deref(c.Domain),
			deref(c.Path),
			deref(c.Expires),
			flags(c),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers("NAME", "VALUE", "DOMAIN", "PATH", "EXPIRES", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		})
	return t.String()
}

func flags(c cookies.Normalized) string {
	var parts []string
	if c.HTTPOnly {
		parts = append(parts, "httpOnly")
	}
	if c.Secure {
		parts = append(parts, "secure")
	}
	if c.SameSite != nil {
		parts = append(parts, "sameSite="+*c.SameSite)
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}

// normalized returns the result's cookies in canonical form. Browser results
// carry raw records, which are normalized here for display only.
func normalized(res fetch.Result) []cookies.Normalized {
	if res.Mode != fetch.ModeBrowser {
		return cookies.NormalizeAll(res.Cookies)
	}
	out := make([]cookies.Normalized, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		if raw, ok := c.(cookies.Raw); ok {
			c = browserDisplay(raw)
		}
		out = append(out, cookies.Normalize(c))
	}
	return out
}

// browserDisplay rescales browser expiry (epoch seconds, -1 for session
// cookies) to the milliseconds the normalizer reads numbers as.
func browserDisplay(raw cookies.Raw) cookies.Raw {
	secs, ok := raw[cookies.FieldExpires].(float64)
	if !ok {
		return raw
	}
	out := make(cookies.Raw, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	if secs <= 0 {
		delete(out, cookies.FieldExpires)
	} else {
		out[cookies.FieldExpires] = secs * 1000
	}
	return out
}

// WriteJSON writes res as indented JSON, highlighted for the terminal when
// color is set.
func WriteJSON(w io.Writer, res fetch.Result, color bool) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if !color {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if err := quick.Highlight(w, string(data)+"\n", "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("failed to highlight result: %w", err)
	}
	return nil
}

// CookieHeader builds a Cookie request header value from the result's cookies.
// Cookies without a name are skipped.
func CookieHeader(res fetch.Result) string {
	var parts []string
	for _, c := range normalized(res) {
		if c.Name == nil || *c.Name == "" {
			continue
		}
		parts = append(parts, *c.Name+"="+valueOf(c.Value))
	}
	return strings.Join(parts, "; ")
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CopyCookieHeader puts CookieHeader(res) on the system clipboard.
func CopyCookieHeader(res fetch.Result) (string, error) {
	header := CookieHeader(res)
	if header == "" {
		return "", fmt.Errorf("no cookies to copy")
	}
	if err := writeClipboard(header); err != nil {
		return "", fmt.Errorf("failed to write clipboard: %w", err)
	}
	return header, nil
}
