package fetch

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// NewCookieJar returns the default request-scoped store: a standard jar that
// uses the public suffix list to reject supercookies.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

type jarKey struct {
	domain string
	path   string
	name   string
}

type jarEntry struct {
	scheme string
	cookie *http.Cookie
}

// recordingJar keeps the full attributes of every cookie handed to the
// underlying jar. The standard jar only gives back name and value.
type recordingJar struct {
	jar http.CookieJar

	mu      sync.Mutex
	order   []jarKey
	entries map[jarKey]jarEntry
	now     func() time.Time

	// failure is the first panic raised by the underlying jar
	failure error
}

func newRecordingJar(jar http.CookieJar) *recordingJar {
	return &recordingJar{
		jar:     jar,
		entries: make(map[jarKey]jarEntry),
		now:     time.Now,
	}
}

// SetCookies hands cookies to the underlying jar and records them. The client
// calls it on every hop, so a panicking jar is contained here and reported
// through err rather than aborting the request.
func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if !j.guard(func() { j.jar.SetCookies(u, cookies) }) {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		rec := *c
		if rec.Domain == "" {
			rec.Domain = u.Hostname()
		} else {
			rec.Domain = strings.TrimPrefix(rec.Domain, ".")
		}
		rec.Domain = strings.ToLower(rec.Domain)
		if rec.Path == "" || !strings.HasPrefix(rec.Path, "/") {
			rec.Path = defaultCookiePath(u.Path)
		}

		key := jarKey{domain: rec.Domain, path: rec.Path, name: rec.Name}
		if rec.MaxAge < 0 || (!rec.Expires.IsZero() && !rec.Expires.After(j.now())) {
			delete(j.entries, key)
			continue
		}
		if _, seen := j.entries[key]; !seen {
			j.order = append(j.order, key)
		}
		j.entries[key] = jarEntry{scheme: u.Scheme, cookie: &rec}
	}
}

// Cookies returns the cookies to send to u. A failing jar sends none.
func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	var out []*http.Cookie
	j.guard(func() { out = j.jar.Cookies(u) })
	return out
}

// guard runs fn, converting a panic into a recorded failure. It reports
// whether fn completed.
func (j *recordingJar) guard(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			j.mu.Lock()
			if j.failure == nil {
				j.failure = fmt.Errorf("cookie jar panicked: %v", r)
			}
			j.mu.Unlock()
			ok = false
		}
	}()
	fn()
	return true
}

// err returns the first failure raised by the underlying jar, if any.
func (j *recordingJar) err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failure
}

// snapshot returns the recorded cookies the underlying jar actually kept,
// in the order they were first set.
func (j *recordingJar) snapshot() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*http.Cookie, 0, len(j.entries))
	for _, key := range j.order {
		entry, ok := j.entries[key]
		if !ok {
			continue
		}
		if j.stored(entry) {
			out = append(out, entry.cookie)
		}
	}
	return out
}

func (j *recordingJar) stored(e jarEntry) bool {
	scheme := e.scheme
	if e.cookie.Secure {
		scheme = "https"
	}
	probe := &url.URL{Scheme: scheme, Host: hostForProbe(e.cookie.Domain), Path: e.cookie.Path}
	for _, c := range j.jar.Cookies(probe) {
		if c.Name == e.cookie.Name && c.Value == e.cookie.Value {
			return true
		}
	}
	return false
}

func hostForProbe(domain string) string {
	if strings.Contains(domain, ":") && !strings.HasPrefix(domain, "[") {
		return "[" + domain + "]"
	}
	return domain
}

// defaultCookiePath implements the RFC 6265 section 5.1.4 default-path.
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return path.Clean(p[:i])
}
