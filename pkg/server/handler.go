// Package server exposes cookie retrieval over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/cookiescope/pkg/fetch"
	"github.com/entrhq/cookiescope/pkg/logging"
)

// Fetcher runs one cookie retrieval. *fetch.Service implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) fetch.Result
}

// HandlerOptions configures the HTTP handler.
type HandlerOptions struct {
	// AllowedOrigins lists CORS origins; "*" or an empty list allows any
	AllowedOrigins []string

	Logger *logging.Logger
}

// RequestIDHeader carries the per-request ID on responses.
const RequestIDHeader = "X-Request-Id"

type handler struct {
	fetcher   Fetcher
	origins   []string
	anyOrigin bool
	logger    *logging.Logger
}

// NewHandler returns the routes for the cookie endpoint and health check.
func NewHandler(f Fetcher, opts HandlerOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	h := &handler{
		fetcher:   f,
		origins:   opts.AllowedOrigins,
		anyOrigin: len(opts.AllowedOrigins) == 0 || slices.Contains(opts.AllowedOrigins, "*"),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", h.serveCookies)
	mux.HandleFunc("/cookies", h.serveCookies)
	mux.HandleFunc("/healthz", h.serveHealth)
	mux.HandleFunc("/", h.serveNotFound)
	return h.withCommon(mux)
}

// withCommon sets CORS and request ID headers on every response and answers
// preflight requests.
func (h *handler) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		h.setCORSHeaders(w.Header(), r.Header.Get("Origin"))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) setCORSHeaders(dst http.Header, origin string) {
	switch {
	case h.anyOrigin:
		dst.Set("Access-Control-Allow-Origin", "*")
	case origin != "" && slices.Contains(h.origins, origin):
		dst.Set("Access-Control-Allow-Origin", origin)
		dst.Add("Vary", "Origin")
	default:
		return
	}
	dst.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	dst.Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+RequestIDHeader)
	dst.Set("Access-Control-Expose-Headers", RequestIDHeader)
}

func (h *handler) serveCookies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, fetch.Result{Error: "method not allowed"})
		return
	}

	q := r.URL.Query()
	req := fetch.Request{
		URL:  strings.TrimSpace(q.Get("url")),
		Mode: fetch.ModeFromFlag(q.Get("browser")),
	}

	// The fetch runs to completion even if the caller goes away
	ctx := context.WithoutCancel(r.Context())

	start := time.Now()
	res := h.fetcher.Fetch(ctx, req)
	status := StatusFor(res)

	id := w.Header().Get(RequestIDHeader)
	if res.OK {
		h.logger.Infof("[%s] %s mode=%s -> %d cookies=%d in %s", id, req.URL, req.Mode, status, len(res.Cookies), time.Since(start).Round(time.Millisecond))
	} else {
		h.logger.Warnf("[%s] %s mode=%s -> %d (%s) in %s", id, req.URL, req.Mode, status, res.Kind, time.Since(start).Round(time.Millisecond))
	}

	writeJSON(w, status, res)
}

func (h *handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, fetch.Result{Error: "not found"})
}

// StatusFor maps a result to the HTTP status the endpoint answers with.
func StatusFor(res fetch.Result) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Kind {
	case fetch.KindInvalidURL, fetch.KindUnsupportedMode:
		return http.StatusBadRequest
	case fetch.KindTimeout, fetch.KindNavigationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
