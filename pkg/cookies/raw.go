package cookies

import (
	"net/http"
	"strings"
)

// Raw is a source-specific cookie record keyed by field name.
// Fields present vary by source and any of them may be nil.
type Raw map[string]any

// Field names used when building Raw records.
const (
	FieldKey      = "key"
	FieldName     = "name"
	FieldValue    = "value"
	FieldDomain   = "domain"
	FieldPath     = "path"
	FieldExpires  = "expires"
	FieldExpiry   = "expiry"
	FieldMaxAge   = "maxAge"
	FieldHTTPOnly = "httpOnly"
	FieldSecure   = "secure"
	FieldSameSite = "sameSite"
	FieldRaw      = "raw"
)

// FromHTTP converts a jar cookie into a Raw record.
//
// An Expires attribute the standard library could not parse is kept as its
// original string so that Expiry gets a chance to read it.
func FromHTTP(c *http.Cookie) Raw {
	if c == nil {
		return Raw{}
	}

	r := Raw{
		FieldName:     c.Name,
		FieldValue:    c.Value,
		FieldHTTPOnly: c.HttpOnly,
		FieldSecure:   c.Secure,
	}
	if c.Domain != "" {
		r[FieldDomain] = c.Domain
	}
	if c.Path != "" {
		r[FieldPath] = c.Path
	}

	switch {
	case !c.Expires.IsZero():
		r[FieldExpires] = c.Expires
	case c.RawExpires != "":
		r[FieldExpires] = c.RawExpires
	}

	if c.MaxAge != 0 {
		r[FieldMaxAge] = c.MaxAge
	}
	if s := sameSiteString(c.SameSite); s != "" {
		r[FieldSameSite] = s
	}

	if c.Raw != "" {
		r[FieldRaw] = c.Raw
	} else {
		r[FieldRaw] = c.String()
	}
	return r
}

func sameSiteString(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return ""
	}
}

// lookup returns the first non-nil value among keys.
func (r Raw) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// firstString returns the first non-empty string among keys.
func (r Raw) firstString(keys ...string) *string {
	for _, k := range keys {
		if s, ok := asString(r[k]); ok && s != "" {
			return &s
		}
	}
	return nil
}

// firstBool returns the first boolean-like value among keys.
func (r Raw) firstBool(keys ...string) bool {
	v, ok := r.lookup(keys...)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	default:
		return "", false
	}
}
