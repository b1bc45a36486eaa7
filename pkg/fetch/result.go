package fetch

import (
	"encoding/json"
	"errors"
)

// Result is the envelope returned for every request.
//
// Cookies holds cookies.Normalized values in HTTP mode and cookies.Raw
// records in browser mode.
type Result struct {
	OK              bool
	URL             string
	Mode            Mode
	Status          int
	SetCookieHeader []string
	Cookies         []any
	DocumentCookie  string
	Warnings        []string
	Error           string

	// Kind is set on failures; it is not serialized.
	Kind ErrorKind
}

// Failure builds a failed Result from err, exposing only its public message.
func Failure(err error) Result {
	var fe *Error
	if errors.As(err, &fe) {
		return Result{Error: fe.Message, Kind: fe.Kind}
	}
	return Result{Error: "fetch failed", Kind: KindNetwork}
}

type httpEnvelope struct {
	OK              bool     `json:"ok"`
	URL             string   `json:"url"`
	Mode            Mode     `json:"mode"`
	Status          int      `json:"status"`
	SetCookieHeader []string `json:"setCookieHeader"`
	Cookies         []any    `json:"cookies"`
	Warnings        []string `json:"warnings,omitempty"`
}

type browserEnvelope struct {
	OK             bool     `json:"ok"`
	URL            string   `json:"url"`
	Mode           Mode     `json:"mode"`
	Cookies        []any    `json:"cookies"`
	DocumentCookie string   `json:"documentCookie"`
	Warnings       []string `json:"warnings,omitempty"`
}

type failureEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MarshalJSON writes the mode-specific wire shape.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(failureEnvelope{Error: r.Error})
	}

	cookies := r.Cookies
	if cookies == nil {
		cookies = []any{}
	}

	if r.Mode == ModeBrowser {
		return json.Marshal(browserEnvelope{
			OK:             true,
			URL:            r.URL,
			Mode:           r.Mode,
			Cookies:        cookies,
			DocumentCookie: r.DocumentCookie,
			Warnings:       r.Warnings,
		})
	}

	header := r.SetCookieHeader
	if header == nil {
		header = []string{}
	}
	return json.Marshal(httpEnvelope{
		OK:              true,
		URL:             r.URL,
		Mode:            ModeHTTP,
		Status:          r.Status,
		SetCookieHeader: header,
		Cookies:         cookies,
		Warnings:        r.Warnings,
	})
}
