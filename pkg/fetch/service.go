package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/entrhq/cookiescope/pkg/cookies"
	"github.com/entrhq/cookiescope/pkg/logging"
	"github.com/entrhq/cookiescope/pkg/target"
)

// BrowserOutput is what one browser fetch observed.
type BrowserOutput struct {
	// Cookies are the browser cookie-store entries, unnormalized
	Cookies []cookies.Raw

	// DocumentCookie is document.cookie as page script sees it
	DocumentCookie string

	// Warnings lists non-fatal read failures
	Warnings []string
}

// BrowserFetcher fetches a URL through a browser engine.
type BrowserFetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*BrowserOutput, error)
}

// BrowserFactory builds the browser fetcher. It is only called once a
// browser-mode request arrives, so HTTP-only use never pays for it.
type BrowserFactory func() (BrowserFetcher, error)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Policy restricts target hosts (nil allows all)
	Policy *target.Policy

	// HTTP configures the HTTP fetcher
	HTTP HTTPOptions

	// NewBrowser builds the browser fetcher; nil disables browser mode
	NewBrowser BrowserFactory

	Logger *logging.Logger
}

// Service validates requests, dispatches them to a fetcher by mode, and
// builds the result envelope.
type Service struct {
	policy     *target.Policy
	http       *HTTPFetcher
	newBrowser BrowserFactory
	logger     *logging.Logger

	browserMu sync.Mutex
	browser   BrowserFetcher
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		policy:     opts.Policy,
		http:       NewHTTPFetcher(opts.HTTP, logger.Named("http")),
		newBrowser: opts.NewBrowser,
		logger:     logger,
	}
}

// Fetch runs one request to completion. It never returns an error: failures
// are reported through the Result.
func (s *Service) Fetch(ctx context.Context, req Request) Result {
	u, err := s.policy.Check(req.URL)
	if err != nil {
		s.logger.Verbosef("rejected %q: %v", req.URL, err)
		return Failure(ErrInvalidURL)
	}

	switch req.Mode {
	case ModeBrowser:
		return s.fetchBrowser(ctx, u)
	default:
		return s.fetchHTTP(ctx, u)
	}
}

func (s *Service) fetchHTTP(ctx context.Context, u *url.URL) Result {
	out, err := s.http.Fetch(ctx, u)
	if err != nil {
		s.logger.Errorf("http fetch %s: %v", u.Redacted(), err)
		return Failure(err)
	}

	list := make([]any, 0, len(out.Cookies))
	for _, raw := range out.Cookies {
		list = append(list, cookies.Normalize(raw))
	}

	res := Result{
		OK:              true,
		URL:             u.String(),
		Mode:            ModeHTTP,
		Status:          out.Status,
		SetCookieHeader: out.SetCookie,
		Cookies:         list,
	}
	if out.Warning != nil {
		res.Warnings = []string{publicMessage(out.Warning)}
	}
	return res
}

func (s *Service) fetchBrowser(ctx context.Context, u *url.URL) Result {
	browser, err := s.browserFetcher()
	if err != nil {
		s.logger.Errorf("browser unavailable: %v", err)
		return Failure(err)
	}

	out, err := browser.Fetch(ctx, u)
	if err != nil {
		s.logger.Errorf("browser fetch %s: %v", u.Redacted(), err)
		return Failure(err)
	}

	list := make([]any, 0, len(out.Cookies))
	for _, raw := range out.Cookies {
		list = append(list, raw)
	}

	return Result{
		OK:             true,
		URL:            u.String(),
		Mode:           ModeBrowser,
		Cookies:        list,
		DocumentCookie: out.DocumentCookie,
		Warnings:       out.Warnings,
	}
}

// browserFetcher builds the browser fetcher on first use. A failed build is
// not cached, so a later request can try again.
func (s *Service) browserFetcher() (BrowserFetcher, error) {
	if s.newBrowser == nil {
		return nil, ErrUnsupportedMode
	}

	s.browserMu.Lock()
	defer s.browserMu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}
	b, err := s.newBrowser()
	if err != nil {
		return nil, NewError(KindBrowserLaunch, ErrBrowserLaunch.Message, fmt.Errorf("browser setup: %w", err))
	}
	s.browser = b
	return b, nil
}

func publicMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "fetch failed"
}
