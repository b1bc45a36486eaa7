package fetch

import "strings"

// Mode selects the acquisition strategy.
type Mode string

const (
	// ModeHTTP fetches with a plain HTTP client (default)
	ModeHTTP Mode = "http"
	// ModeBrowser drives a headless browser
	ModeBrowser Mode = "browser"
)

// ModeFromFlag maps the browser request flag to a Mode. Only "true" selects
// the browser; every other value, including absence, selects HTTP.
func ModeFromFlag(browser string) Mode {
	if strings.TrimSpace(browser) == "true" {
		return ModeBrowser
	}
	return ModeHTTP
}

// Request is one cookie lookup.
type Request struct {
	URL  string
	Mode Mode
}
