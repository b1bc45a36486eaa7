package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/cookiescope/pkg/cookies"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func names(list []cookies.Raw) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c[cookies.FieldName].(string))
	}
	return out
}

func TestHTTPFetcher_SetCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sid=abc; Path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{}, nil)
	out, err := f.Fetch(context.Background(), mustParse(t, srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, []string{"sid=abc; Path=/; HttpOnly"}, out.SetCookie)
	assert.Nil(t, out.Warning)
	require.Len(t, out.Cookies, 1)

	c := out.Cookies[0]
	assert.Equal(t, "sid", c[cookies.FieldName])
	assert.Equal(t, "abc", c[cookies.FieldValue])
	assert.Equal(t, "127.0.0.1", c[cookies.FieldDomain])
	assert.Equal(t, "/", c[cookies.FieldPath])
	assert.Equal(t, true, c[cookies.FieldHTTPOnly])
	assert.NotContains(t, c, cookies.FieldExpires)
}

func TestHTTPFetcher_NonSuccessStatusIsCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "trace=1")
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := NewHTTPFetcher(HTTPOptions{}, nil).Fetch(context.Background(), mustParse(t, srv.URL+"/x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Equal(t, []string{"trace"}, names(out.Cookies))
}

func TestHTTPFetcher_CookiesAcrossRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "gone", Value: "x", Path: "/"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("first"); err != nil {
			http.Error(w, "cookie not replayed", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "gone", Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := NewHTTPFetcher(HTTPOptions{}, nil).Fetch(context.Background(), mustParse(t, srv.URL+"/start"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Len(t, out.SetCookie, 2, "only the final response headers are reported")
	assert.Equal(t, []string{"first", "second"}, names(out.Cookies))
}

func TestHTTPFetcher_RejectedDomainNotReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "foreign=1; Domain=example.com")
		w.Header().Add("Set-Cookie", "local=1")
	}))
	defer srv.Close()

	out, err := NewHTTPFetcher(HTTPOptions{}, nil).Fetch(context.Background(), mustParse(t, srv.URL))
	require.NoError(t, err)
	assert.Len(t, out.SetCookie, 2)
	assert.Equal(t, []string{"local"}, names(out.Cookies))
}

func TestHTTPFetcher_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(HTTPOptions{MaxRedirects: 3}, nil).Fetch(context.Background(), mustParse(t, srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRedirectLimit))

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "stopped after 3 redirects", fe.Message)
}

func TestHTTPFetcher_RedirectsWithinLimit(t *testing.T) {
	hops := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if hops < 3 {
			hops++
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := NewHTTPFetcher(HTTPOptions{MaxRedirects: 3}, nil).Fetch(context.Background(), mustParse(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, out.Status)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(HTTPOptions{Timeout: 50 * time.Millisecond}, nil)
	_, err := f.Fetch(context.Background(), mustParse(t, srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "timed out")
}

func TestHTTPFetcher_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(HTTPOptions{}, nil).Fetch(context.Background(), mustParse(t, addr))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestHTTPFetcher_UserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(HTTPOptions{UserAgent: "cookiescope-test"}, nil).Fetch(context.Background(), mustParse(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "cookiescope-test", got)
}

func TestHTTPFetcher_IsolatedStorePerCall(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Cookie"))
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "visit", Value: "1"})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{}, nil)
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), mustParse(t, srv.URL))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"", ""}, seen)
}

// panickingJar fails on every read once a cookie has been stored.
type panickingJar struct {
	http.CookieJar
	armed bool
}

func (j *panickingJar) SetCookies(u *url.URL, cs []*http.Cookie) {
	j.CookieJar.SetCookies(u, cs)
	j.armed = true
}

func (j *panickingJar) Cookies(u *url.URL) []*http.Cookie {
	if j.armed {
		panic("corrupt cookie store")
	}
	return j.CookieJar.Cookies(u)
}

func newPanickingJar() (http.CookieJar, error) {
	base, err := NewCookieJar()
	if err != nil {
		return nil, err
	}
	return &panickingJar{CookieJar: base}, nil
}

func TestHTTPFetcher_ExtractionFailureIsWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sid=abc; Path=/")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{NewJar: newPanickingJar}, nil)
	out, err := f.Fetch(context.Background(), mustParse(t, srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.NotNil(t, out.Cookies)
	assert.Empty(t, out.Cookies)
	assert.True(t, errors.Is(out.Warning, ErrCookieExtraction))
	assert.Equal(t, []string{"sid=abc; Path=/"}, out.SetCookie)
}

func TestHTTPFetcher_JarConstructionError(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{NewJar: func() (http.CookieJar, error) {
		return nil, errors.New("no jar")
	}}, nil)

	_, err := f.Fetch(context.Background(), mustParse(t, "http://127.0.0.1:1/"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jar")
}

func redirectingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1", Path: "/"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_JarFailureDuringRedirectIsWarning(t *testing.T) {
	srv := redirectingServer(t)

	f := NewHTTPFetcher(HTTPOptions{NewJar: newPanickingJar}, nil)
	var out *HTTPOutput
	var err error
	require.NotPanics(t, func() {
		out, err = f.Fetch(context.Background(), mustParse(t, srv.URL+"/start"))
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.NotNil(t, out.Cookies)
	assert.Empty(t, out.Cookies)
	assert.True(t, errors.Is(out.Warning, ErrCookieExtraction))
}

// failingStoreJar panics whenever cookies are stored.
type failingStoreJar struct {
	http.CookieJar
}

func (j *failingStoreJar) SetCookies(*url.URL, []*http.Cookie) {
	panic("store is read-only")
}

func TestHTTPFetcher_JarStoreFailureIsWarning(t *testing.T) {
	srv := redirectingServer(t)

	f := NewHTTPFetcher(HTTPOptions{NewJar: func() (http.CookieJar, error) {
		base, err := NewCookieJar()
		if err != nil {
			return nil, err
		}
		return &failingStoreJar{CookieJar: base}, nil
	}}, nil)

	var out *HTTPOutput
	var err error
	require.NotPanics(t, func() {
		out, err = f.Fetch(context.Background(), mustParse(t, srv.URL+"/start"))
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Empty(t, out.Cookies)
	assert.True(t, errors.Is(out.Warning, ErrCookieExtraction))
	assert.Equal(t, []string{"second=2; Path=/"}, out.SetCookie)
}
