package edge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/api/handlers"
	"github.com/vingest/vingest/pkg/bufpool"
)

// HeaderRequestID tags every proxied request so a client call can be
// correlated across router and replica logs. An inbound value is
// preserved; absent, one is minted.
const HeaderRequestID = "X-Request-Id"

type contextKey string

const backendContextKey contextKey = "backend"

// Proxy forwards requests over the backend pool: one backend decision per
// request, round-robin over the healthy subset.
type Proxy struct {
	pool    *Pool
	proxy   *httputil.ReverseProxy
	metrics EdgeMetrics
}

// NewProxy creates a proxy over the pool. requestTimeout bounds how long
// a backend may take to start answering; em may be nil.
func NewProxy(pool *Pool, requestTimeout time.Duration, em EdgeMetrics) *Proxy {
	p := &Proxy{pool: pool, metrics: em}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: requestTimeout,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		Transport:    transport,
		BufferPool:   bufpool.NewSized(bufpool.DefaultMediumSize),
		ErrorHandler: p.handleError,
	}
	return p
}

// ServeHTTP picks a backend and forwards the request to it.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	backend, err := p.pool.Next()
	if err != nil {
		logger.Warn("Request dropped: no healthy backends",
			"method", r.Method,
			"path", r.URL.Path,
			logger.ClientIP(r.RemoteAddr),
		)
		if p.metrics != nil {
			p.metrics.RecordNoHealthyBackends()
		}
		handlers.WriteError(w, http.StatusServiceUnavailable, "No healthy backends available")
		return
	}

	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	ctx := context.WithValue(r.Context(), backendContextKey, backend)
	p.proxy.ServeHTTP(ww, r.WithContext(ctx))

	logger.Debug("Request proxied",
		logger.Backend(backend.Name()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", ww.Status(),
		logger.DurationMs(logger.Duration(start)),
	)
	if p.metrics != nil {
		p.metrics.ObserveProxy(backend.Name(), ww.Status(), time.Since(start))
	}
}

// rewrite routes the outbound request to the backend chosen in ServeHTTP.
// The Host header follows the backend so replicas behind name-based
// virtual hosting answer correctly.
func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	backend := pr.In.Context().Value(backendContextKey).(*Backend)

	pr.SetURL(backend.URL())
	pr.SetXForwarded()

	if pr.Out.Header.Get(HeaderRequestID) == "" {
		pr.Out.Header.Set(HeaderRequestID, uuid.NewString())
	}
}

// handleError answers 502 when the chosen backend could not be reached or
// failed before sending headers.
func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("Proxy request cancelled by client",
			"method", r.Method,
			"path", r.URL.Path,
		)
		return
	}

	logger.Error("Proxy request failed",
		"method", r.Method,
		"path", r.URL.Path,
		logger.Err(err),
	)
	handlers.WriteError(w, http.StatusBadGateway, "Bad gateway")
}
