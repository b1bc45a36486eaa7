package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/entrhq/cookiescope/pkg/cookies"
	"github.com/entrhq/cookiescope/pkg/logging"
)

// Defaults for the HTTP fetcher.
const (
	DefaultHTTPTimeout  = 15 * time.Second
	DefaultMaxRedirects = 10

	// maxDrain caps how much of a response body is read before closing it.
	maxDrain = 1 << 20
)

var errTooManyRedirects = errors.New("redirect limit reached")

// HTTPOptions configures an HTTPFetcher.
type HTTPOptions struct {
	// Timeout bounds the whole exchange, redirects included (0 means DefaultHTTPTimeout)
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed before failing (0 means DefaultMaxRedirects)
	MaxRedirects int

	// UserAgent is sent when non-empty
	UserAgent string

	// NewJar builds the per-request cookie store (nil means NewCookieJar)
	NewJar func() (http.CookieJar, error)

	// Transport overrides the round tripper (nil means http.DefaultTransport)
	Transport http.RoundTripper
}

// HTTPOutput is what one HTTP fetch observed.
type HTTPOutput struct {
	// Status is the final response status
	Status int

	// SetCookie holds the final response's Set-Cookie header values as received
	SetCookie []string

	// Cookies is the cookie store content after the exchange
	Cookies []cookies.Raw

	// Warning is set when the cookie store could not be read; Cookies is then empty
	Warning error
}

// HTTPFetcher performs single GET requests with a fresh cookie store each time.
type HTTPFetcher struct {
	opts   HTTPOptions
	logger *logging.Logger
}

// NewHTTPFetcher creates an HTTP fetcher, filling in defaults.
func NewHTTPFetcher(opts HTTPOptions, logger *logging.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultHTTPTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.NewJar == nil {
		opts.NewJar = NewCookieJar
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &HTTPFetcher{opts: opts, logger: logger}
}

// Fetch issues one GET to u. Any response status is a completed fetch; only
// transport failures, the timeout, and the redirect limit are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*HTTPOutput, error) {
	base, err := f.opts.NewJar()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jar := newRecordingJar(base)

	// The jar replays cookies on every hop, cross-origin redirects included.
	client := &http.Client{
		Transport: f.opts.Transport,
		Jar:       jar,
		Timeout:   f.opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > f.opts.MaxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, NewError(KindNetwork, "failed to build request", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, f.classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	f.logger.Verbosef("GET %s -> %d in %s", u.Redacted(), resp.StatusCode, time.Since(start).Round(time.Millisecond))

	out := &HTTPOutput{
		Status:    resp.StatusCode,
		SetCookie: resp.Header.Values("Set-Cookie"),
	}
	out.Cookies, out.Warning = extractCookies(jar)
	if out.Warning != nil {
		f.logger.Warnf("cookie extraction for %s failed: %v", u.Redacted(), out.Warning)
	}
	return out, nil
}

// extractCookies reads the store; a store that failed at any point of the
// exchange yields no cookies and a warning.
func extractCookies(jar *recordingJar) (list []cookies.Raw, warning error) {
	defer func() {
		if r := recover(); r != nil {
			list = []cookies.Raw{}
			warning = NewError(KindCookieExtraction, ErrCookieExtraction.Message, fmt.Errorf("%v", r))
		}
	}()

	if err := jar.err(); err != nil {
		return []cookies.Raw{}, NewError(KindCookieExtraction, ErrCookieExtraction.Message, err)
	}

	stored := jar.snapshot()
	list = make([]cookies.Raw, 0, len(stored))
	for _, c := range stored {
		list = append(list, cookies.FromHTTP(c))
	}
	return list, nil
}

func (f *HTTPFetcher) classify(err error) error {
	if errors.Is(err, errTooManyRedirects) {
		return NewError(KindRedirectLimit,
			fmt.Sprintf("stopped after %d redirects", f.opts.MaxRedirects), err)
	}
	if isTimeout(err) {
		return NewError(KindTimeout,
			fmt.Sprintf("request timed out after %s", f.opts.Timeout), err)
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return NewError(KindNetwork, "network error: "+describeNetError(ue.Err), err)
	}
	return NewError(KindNetwork, ErrNetwork.Message, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// describeNetError gives a short cause without addresses or internals.
func describeNetError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return "host not found"
		}
		return "dns lookup failed"
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return "tls certificate verification failed"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "connection failed"
		}
		return opErr.Op + " failed"
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "connection closed"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return "request failed"
}
