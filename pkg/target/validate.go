// Package target decides which URLs may be fetched.
//
// Validate is a purely syntactic check: an absolute http or https URL with a
// host. Policy layers configured host allow/deny patterns on top. Neither
// touches the network.
package target

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidURL is returned for any URL that must not be fetched.
var ErrInvalidURL = errors.New("invalid url")

// Validate parses raw and returns it if it is an absolute http(s) URL.
func Validate(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return nil, fmt.Errorf("%w: contains whitespace", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if u.Opaque != "" || u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if err := validHost(u.Hostname()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
	}

	return u, nil
}

// IsValid reports whether raw passes Validate.
func IsValid(raw string) bool {
	_, err := Validate(raw)
	return err == nil
}

func validHost(host string) error {
	if host == "" {
		return errors.New("missing host")
	}
	if net.ParseIP(host) != nil {
		return nil
	}

	host = strings.TrimSuffix(host, ".")
	if len(host) > 253 {
		return errors.New("host too long")
	}
	for _, label := range strings.Split(host, ".") {
		if err := validLabel(label); err != nil {
			return fmt.Errorf("host %q: %w", host, err)
		}
	}
	return nil
}

func validLabel(label string) error {
	if label == "" {
		return errors.New("empty label")
	}
	if len(label) > 63 {
		return errors.New("label too long")
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return errors.New("label starts or ends with a hyphen")
	}
	for _, r := range label {
		if r != '-' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("invalid character %q", r)
		}
	}
	return nil
}
