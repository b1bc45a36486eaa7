package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/cookiescope/pkg/cookies"
)

// ErrNavigationTimeout is returned by Navigate when the page did not settle in time.
var ErrNavigationTimeout = errors.New("navigation timeout")

// playwrightSession holds the Playwright resources of one launch.
type playwrightSession struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	onClose   func()
	closeOnce sync.Once
	closeErr  error
}

// Navigate loads url, waiting for network idle. The remaining time on ctx
// becomes the Playwright navigation timeout.
func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return navigationError(err)
	}

	state := playwright.WaitUntilState(waitUntil)
	opts := playwright.PageGotoOptions{WaitUntil: &state}
	if deadline, ok := ctx.Deadline(); ok {
		ms := float64(time.Until(deadline).Milliseconds())
		if ms <= 0 {
			return ErrNavigationTimeout
		}
		opts.Timeout = &ms
	}

	if _, err := s.page.Goto(url, opts); err != nil {
		return navigationError(err)
	}
	return nil
}

func navigationError(err error) error {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	return fmt.Errorf("navigation failed: %w", err)
}

// Cookies returns every cookie in the browser context, including those set
// by third-party frames and subresources during the load.
func (s *playwrightSession) Cookies(ctx context.Context) ([]cookies.Raw, error) {
	return readCookies(s.context)
}

// cookieSource is the part of playwright.BrowserContext that readCookies uses.
type cookieSource interface {
	Cookies(urls ...string) ([]playwright.Cookie, error)
}

// readCookies lists the whole context. Passing no URLs disables Playwright's
// URL filter.
func readCookies(src cookieSource) ([]cookies.Raw, error) {
	list, err := src.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read context cookies: %w", err)
	}

	out := make([]cookies.Raw, 0, len(list))
	for _, c := range list {
		out = append(out, fromPlaywright(c))
	}
	return out, nil
}

// DocumentCookie returns document.cookie as page script sees it.
func (s *playwrightSession) DocumentCookie(ctx context.Context) (string, error) {
	v, err := s.page.Evaluate("() => document.cookie")
	if err != nil {
		return "", fmt.Errorf("failed to evaluate document.cookie: %w", err)
	}
	str, _ := v.(string)
	return str, nil
}

// Close releases page, context and browser in that order. Every step runs
// even if an earlier one fails.
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.closeErr
}

// fromPlaywright keeps the browser's own field names and values. Expires is
// seconds since the epoch, or -1 for a session cookie.
func fromPlaywright(c playwright.Cookie) cookies.Raw {
	raw := cookies.Raw{
		cookies.FieldName:     c.Name,
		cookies.FieldValue:    c.Value,
		cookies.FieldDomain:   c.Domain,
		cookies.FieldPath:     c.Path,
		cookies.FieldExpires:  c.Expires,
		cookies.FieldHTTPOnly: c.HttpOnly,
		cookies.FieldSecure:   c.Secure,
	}
	if c.SameSite != nil {
		raw[cookies.FieldSameSite] = string(*c.SameSite)
	}
	return raw
}
