package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/cookiescope/pkg/logging"
)

// PlaywrightLauncher launches Chromium sessions through the Playwright driver.
// The driver is installed and started on the first Launch, not at construction.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	sessions    map[*playwrightSession]struct{}
	initialized bool
	skipInstall bool
	logger      *logging.Logger
}

// NewPlaywrightLauncher creates a launcher. Nothing is started until Launch.
func NewPlaywrightLauncher(logger *logging.Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PlaywrightLauncher{
		sessions: make(map[*playwrightSession]struct{}),
		logger:   logger,
	}
}

// SkipInstall disables the driver and browser download on first use, for
// hosts where Playwright is provisioned ahead of time.
func (l *PlaywrightLauncher) SkipInstall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skipInstall = true
}

// initialize starts the Playwright driver once. A failed start is retried on
// the next call.
func (l *PlaywrightLauncher) initialize() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return l.playwright, nil
	}

	// Driver output would interleave with server logs
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.skipInstall {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	l.logger.Infof("playwright driver started")
	l.playwright = pw
	l.initialized = true
	return pw, nil
}

// Launch starts a browser with a fresh context and a single page. The
// Playwright calls cannot be interrupted, so Launch returns as soon as ctx is
// done and the session, if one still arrives, is closed in the background.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	return launchWithContext(ctx, l.logger, func() (Session, error) {
		return l.launch(opts)
	})
}

func (l *PlaywrightLauncher) launch(opts LaunchOptions) (Session, error) {
	pw, err := l.initialize()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = &opts.UserAgent
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	session := &playwrightSession{
		browser: browser,
		context: bctx,
		page:    page,
	}
	session.onClose = func() { l.forget(session) }

	l.mu.Lock()
	l.sessions[session] = struct{}{}
	l.mu.Unlock()

	return session, nil
}

type launchResult struct {
	session Session
	err     error
}

// launchWithContext runs fn and waits for it or for ctx, whichever comes
// first. A session produced after ctx is done is closed.
func launchWithContext(ctx context.Context, logger *logging.Logger, fn func() (Session, error)) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	done := make(chan launchResult, 1)
	go func() {
		s, err := fn()
		done <- launchResult{session: s, err: err}
	}()

	select {
	case res := <-done:
		return res.session, res.err
	case <-ctx.Done():
		go func() {
			res := <-done
			if res.session == nil {
				return
			}
			if err := res.session.Close(); err != nil {
				logger.Warnf("failed to close late browser session: %v", err)
			}
		}()
		return nil, fmt.Errorf("browser launch abandoned: %w", ctx.Err())
	}
}

func (l *PlaywrightLauncher) forget(s *playwrightSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, s)
}

// Active returns the number of sessions launched and not yet closed.
func (l *PlaywrightLauncher) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Shutdown closes any open sessions and stops the Playwright driver.
func (l *PlaywrightLauncher) Shutdown() error {
	l.mu.Lock()
	open := make([]*playwrightSession, 0, len(l.sessions))
	for s := range l.sessions {
		open = append(open, s)
	}
	l.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		l.playwright = nil
		l.initialized = false
	}

	return errors.Join(errs...)
}
