package cookies

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Normalized is the canonical cookie record reported to callers.
type Normalized struct {
	Name     *string `json:"name"`
	Value    *string `json:"value"`
	Domain   *string `json:"domain"`
	Path     *string `json:"path"`
	Expires  *string `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite *string `json:"sameSite"`
	Raw      string  `json:"raw"`
}

// Lookup precedence per field.
var (
	nameKeys     = []string{FieldKey, FieldName}
	valueKeys    = []string{FieldValue}
	domainKeys   = []string{FieldDomain}
	pathKeys     = []string{FieldPath}
	expiresKeys  = []string{FieldExpires, FieldExpiry}
	httpOnlyKeys = []string{FieldHTTPOnly, "HttpOnly"}
	secureKeys   = []string{FieldSecure}
	sameSiteKeys = []string{FieldSameSite, "samesite"}
)

// Normalize maps one cookie of any supported shape to a Normalized record.
//
// Supported inputs are Raw, map[string]any, *http.Cookie, http.Cookie, a bare
// Set-Cookie string, and Normalized itself (returned unchanged). Anything else
// is reported through its string form only.
func Normalize(src any) Normalized {
	switch v := src.(type) {
	case Normalized:
		return v
	case *Normalized:
		if v == nil {
			return Normalized{}
		}
		return *v
	case Raw:
		return fromRaw(v)
	case map[string]any:
		return fromRaw(Raw(v))
	case *http.Cookie:
		return fromRaw(FromHTTP(v))
	case http.Cookie:
		return fromRaw(FromHTTP(&v))
	case string:
		return fromString(v)
	case nil:
		return Normalized{}
	default:
		return Normalized{Raw: fmt.Sprint(v)}
	}
}

// NormalizeAll normalizes each element of src.
func NormalizeAll[T any](src []T) []Normalized {
	out := make([]Normalized, 0, len(src))
	for _, c := range src {
		out = append(out, Normalize(c))
	}
	return out
}

func fromRaw(r Raw) Normalized {
	n := Normalized{
		Name:     r.firstString(nameKeys...),
		Domain:   r.firstString(domainKeys...),
		Path:     r.firstString(pathKeys...),
		HTTPOnly: r.firstBool(httpOnlyKeys...),
		Secure:   r.firstBool(secureKeys...),
		SameSite: r.firstString(sameSiteKeys...),
	}

	// An empty value is a real cookie value, so only absence maps to null.
	if v, ok := r.lookup(valueKeys...); ok {
		if s, ok := asString(v); ok {
			n.Value = &s
		}
	}
	if v, ok := r.lookup(expiresKeys...); ok {
		n.Expires = ExpiryISO(v)
	}

	if raw := r.firstString(FieldRaw); raw != nil {
		n.Raw = *raw
	} else {
		n.Raw = serialize(n)
	}
	return n
}

func fromString(s string) Normalized {
	n := Normalized{Raw: s}
	before, _, _ := strings.Cut(s, "=")
	if name := strings.TrimSpace(before); name != "" {
		n.Name = &name
	}
	return n
}

// serialize renders n in Set-Cookie form.
func serialize(n Normalized) string {
	var b strings.Builder
	b.WriteString(deref(n.Name))
	b.WriteByte('=')
	b.WriteString(deref(n.Value))

	if n.Expires != nil {
		if t, err := time.Parse(ISOLayout, *n.Expires); err == nil {
			b.WriteString("; Expires=")
			b.WriteString(t.Format(http.TimeFormat))
		}
	}
	if n.Domain != nil {
		b.WriteString("; Domain=")
		b.WriteString(*n.Domain)
	}
	if n.Path != nil {
		b.WriteString("; Path=")
		b.WriteString(*n.Path)
	}
	if n.Secure {
		b.WriteString("; Secure")
	}
	if n.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if n.SameSite != nil {
		b.WriteString("; SameSite=")
		b.WriteString(*n.SameSite)
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
