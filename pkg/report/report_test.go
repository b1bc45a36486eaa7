package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/cookiescope/pkg/cookies"
	"github.com/entrhq/cookiescope/pkg/fetch"
)

func ptr(s string) *string { return &s }

func httpResult() fetch.Result {
	return fetch.Result{
		OK:              true,
		URL:             "https://example.com/",
		Mode:            fetch.ModeHTTP,
		Status:          200,
		SetCookieHeader: []string{"sid=abc; Path=/; HttpOnly", "theme=dark"},
		Cookies: []any{
			cookies.Normalized{Name: ptr("sid"), Value: ptr("abc"), Domain: ptr("example.com"), Path: ptr("/"), HTTPOnly: true, Raw: "sid=abc"},
			cookies.Normalized{Name: ptr("theme"), Value: ptr("dark"), Path: ptr("/"), Secure: true, SameSite: ptr("lax"), Raw: "theme=dark"},
		},
	}
}

func TestRender_HTTP(t *testing.T) {
	out := Render(httpResult())

	assert.Contains(t, out, "https://example.com/")
	assert.Contains(t, out, "status: 200")
	assert.Contains(t, out, "set-cookie headers: 2")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "sid")
	assert.Contains(t, out, "httpOnly")
	assert.Contains(t, out, "secure sameSite=lax")
}

func TestRender_Failure(t *testing.T) {
	out := Render(fetch.Failure(fetch.ErrInvalidURL))
	assert.Contains(t, out, "Provide a valid url")
	assert.NotContains(t, out, "NAME")
}

func TestRender_NoCookiesWithWarning(t *testing.T) {
	out := Render(fetch.Result{OK: true, URL: "https://a.test", Mode: fetch.ModeHTTP, Status: 204, Warnings: []string{"cookie store could not be read"}})
	assert.Contains(t, out, "no cookies")
	assert.Contains(t, out, "cookie store could not be read")
}

func TestRender_Browser(t *testing.T) {
	res := fetch.Result{
		OK:             true,
		URL:            "https://a.test",
		Mode:           fetch.ModeBrowser,
		DocumentCookie: "js=1",
		Cookies: []any{
			cookies.Raw{"name": "js", "value": "1", "expires": -1.0},
			cookies.Raw{"name": "persist", "value": "2", "expires": 1893456000.0},
		},
	}

	out := Render(res)
	assert.Contains(t, out, "document.cookie: js=1")
	assert.Contains(t, out, "2030-01-01T00:00:00.000Z")
	assert.NotContains(t, out, "1969")
}

func TestBrowserDisplay_DoesNotMutate(t *testing.T) {
	raw := cookies.Raw{"name": "a", "expires": 10.0}
	shown := browserDisplay(raw)

	assert.Equal(t, 10.0, raw["expires"])
	assert.Equal(t, 10000.0, shown["expires"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))

	long := strings.Repeat("x", 100)
	got := truncate(long)
	assert.Equal(t, maxCell, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestWriteJSON(t *testing.T) {
	var plain bytes.Buffer
	require.NoError(t, WriteJSON(&plain, httpResult(), false))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(plain.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, "http", decoded["mode"])

	var colored bytes.Buffer
	require.NoError(t, WriteJSON(&colored, httpResult(), true))
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "sid")
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "sid=abc; theme=dark", CookieHeader(httpResult()))

	res := fetch.Result{OK: true, Mode: fetch.ModeHTTP, Cookies: []any{
		cookies.Normalized{Value: ptr("orphan")},
		cookies.Normalized{Name: ptr("empty")},
	}}
	assert.Equal(t, "empty=", CookieHeader(res))
}

func TestCopyCookieHeader(t *testing.T) {
	orig := writeClipboard
	defer func() { writeClipboard = orig }()

	var copied string
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}

	header, err := CopyCookieHeader(httpResult())
	require.NoError(t, err)
	assert.Equal(t, "sid=abc; theme=dark", header)
	assert.Equal(t, header, copied)

	_, err = CopyCookieHeader(fetch.Result{OK: true})
	assert.Error(t, err)

	writeClipboard = func(string) error { return errors.New("no display") }
	_, err = CopyCookieHeader(httpResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}
