package fetch

import "fmt"

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindInvalidURL        ErrorKind = "invalid_url"
	KindUnsupportedMode   ErrorKind = "unsupported_mode"
	KindNetwork           ErrorKind = "network_error"
	KindTimeout           ErrorKind = "timeout"
	KindRedirectLimit     ErrorKind = "redirect_limit_exceeded"
	KindCookieExtraction  ErrorKind = "cookie_extraction_failure"
	KindBrowserLaunch     ErrorKind = "browser_launch_failure"
	KindNavigationTimeout ErrorKind = "navigation_timeout"
)

// Error is a classified fetch failure. Message is safe to show to callers;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidURL        = &Error{Kind: KindInvalidURL, Message: "Provide a valid url"}
	ErrUnsupportedMode   = &Error{Kind: KindUnsupportedMode, Message: "browser mode is disabled"}
	ErrNetwork           = &Error{Kind: KindNetwork, Message: "network error"}
	ErrTimeout           = &Error{Kind: KindTimeout, Message: "request timed out"}
	ErrRedirectLimit     = &Error{Kind: KindRedirectLimit, Message: "too many redirects"}
	ErrCookieExtraction  = &Error{Kind: KindCookieExtraction, Message: "cookie store could not be read"}
	ErrBrowserLaunch     = &Error{Kind: KindBrowserLaunch, Message: "failed to launch browser"}
	ErrNavigationTimeout = &Error{Kind: KindNavigationTimeout, Message: "navigation timed out"}
)
