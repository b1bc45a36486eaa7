package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/entrhq/cookiescope/pkg/cookies"
	"github.com/entrhq/cookiescope/pkg/fetch"
	"github.com/entrhq/cookiescope/pkg/logging"
)

// Fetcher performs one browser fetch per call, each in its own session.
type Fetcher struct {
	launcher Launcher
	opts     Options
	logger   *logging.Logger
}

// NewFetcher creates a browser fetcher, filling in defaults.
func NewFetcher(launcher Launcher, opts Options, logger *logging.Logger) *Fetcher {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Fetcher{launcher: launcher, opts: opts, logger: logger}
}

// Fetch launches a session, navigates to u and reads its cookies. The session
// is closed before Fetch returns, whatever the outcome.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) (*fetch.BrowserOutput, error) {
	launchCtx, cancelLaunch := context.WithTimeout(ctx, f.opts.LaunchTimeout)
	session, err := f.launcher.Launch(launchCtx, LaunchOptions{
		Headless:  f.opts.Headless,
		UserAgent: f.opts.UserAgent,
	})
	cancelLaunch()
	if err != nil {
		return nil, fetch.NewError(fetch.KindBrowserLaunch, fetch.ErrBrowserLaunch.Message, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			f.logger.Warnf("failed to close browser session for %s: %v", u.Redacted(), cerr)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, f.opts.NavigationTimeout)
	defer cancel()

	if err := session.Navigate(navCtx, u.String()); err != nil {
		if errors.Is(err, ErrNavigationTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fetch.NewError(fetch.KindNavigationTimeout,
				fmt.Sprintf("navigation timed out after %s", f.opts.NavigationTimeout), err)
		}
		return nil, fetch.NewError(fetch.KindNetwork, "navigation failed", err)
	}
	f.logger.Verbosef("browser loaded %s", u.Redacted())

	out := &fetch.BrowserOutput{Cookies: []cookies.Raw{}}

	list, err := session.Cookies(ctx)
	if err != nil {
		f.logger.Warnf("cookie read for %s failed: %v", u.Redacted(), err)
		out.Warnings = append(out.Warnings, fetch.ErrCookieExtraction.Message)
	} else if list != nil {
		out.Cookies = list
	}

	doc, err := session.DocumentCookie(ctx)
	if err != nil {
		f.logger.Warnf("document.cookie for %s failed: %v", u.Redacted(), err)
		out.Warnings = append(out.Warnings, "document.cookie could not be read")
	} else {
		out.DocumentCookie = doc
	}

	return out, nil
}

var _ fetch.BrowserFetcher = (*Fetcher)(nil)
