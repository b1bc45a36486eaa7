package target

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ErrHostDenied is returned when a host is rejected by policy.
// It wraps ErrInvalidURL so callers can treat both the same way.
var ErrHostDenied = fmt.Errorf("%w: host not allowed", ErrInvalidURL)

// Policy matches hosts against allowed and denied glob patterns.
// Patterns use '.' as separator, so "*.example.com" matches one label
// and "**.example.com" matches any depth.
type Policy struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewPolicy compiles the given host patterns.
func NewPolicy(allowed, denied []string) (*Policy, error) {
	p := &Policy{}

	for _, pattern := range allowed {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		p.allowed = append(p.allowed, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		p.denied = append(p.denied, g)
	}

	return p, nil
}

// Allows reports whether host may be fetched. A nil Policy allows everything.
func (p *Policy) Allows(host string) bool {
	if p == nil {
		return true
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	// Denied patterns take precedence
	for _, g := range p.denied {
		if g.Match(host) {
			return false
		}
	}

	if len(p.allowed) == 0 {
		return true
	}
	for _, g := range p.allowed {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Check validates raw and applies the host policy.
func (p *Policy) Check(raw string) (*url.URL, error) {
	u, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	if !p.Allows(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrHostDenied, u.Hostname())
	}
	return u, nil
}
