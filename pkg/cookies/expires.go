package cookies

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// ISOLayout is the ISO-8601 form used for expiry output (UTC, milliseconds).
const ISOLayout = "2006-01-02T15:04:05.000Z"

// maxMillis is the largest magnitude a Unix millisecond timestamp may have.
const maxMillis = 8.64e15

// Layouts tried, in order, when an expiry arrives as a string.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC850,
	time.ANSIC,
	"2006-01-02",
}

// Expiry interprets a cookie expiry of unknown shape.
//
// Absent and falsy values yield false. A time.Time is accepted when it is a
// representable instant. Numbers are Unix milliseconds. Strings are parsed
// against the usual timestamp and HTTP date layouts. Every other case,
// including "Infinity" style sentinels, yields false. Expiry never panics.
func Expiry(v any) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case bool:
		return time.Time{}, false
	case time.Time:
		return validInstant(x)
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return validInstant(*x)
	case int:
		return fromMillis(float64(x))
	case int32:
		return fromMillis(float64(x))
	case int64:
		return fromMillis(float64(x))
	case uint:
		return fromMillis(float64(x))
	case uint32:
		return fromMillis(float64(x))
	case uint64:
		return fromMillis(float64(x))
	case float32:
		return fromMillis(float64(x))
	case float64:
		return fromMillis(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(f)
	case string:
		return parseExpiry(x)
	case fmt.Stringer:
		return parseExpiry(x.String())
	default:
		return parseExpiry(fmt.Sprint(x))
	}
}

// ExpiryISO returns the ISO-8601 form of v, or nil when v is not a usable instant.
func ExpiryISO(v any) *string {
	t, ok := Expiry(v)
	if !ok {
		return nil
	}
	s := FormatISO(t)
	return &s
}

// FormatISO formats t as a UTC ISO-8601 timestamp with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func validInstant(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	// Years outside 1..9999 have no four-digit ISO-8601 form.
	if y := t.UTC().Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func fromMillis(ms float64) (time.Time, bool) {
	if ms == 0 || math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxMillis {
		return time.Time{}, false
	}
	return validInstant(time.UnixMilli(int64(ms)).UTC())
}

func parseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := http.ParseTime(s); err == nil {
		return validInstant(t)
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return validInstant(t)
		}
	}
	return time.Time{}, false
}
