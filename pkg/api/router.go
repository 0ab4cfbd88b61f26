package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/api/handlers"
	apiMiddleware "github.com/vingest/vingest/pkg/api/middleware"
	"github.com/vingest/vingest/pkg/media"
	"github.com/vingest/vingest/pkg/metrics"
	"github.com/vingest/vingest/pkg/upload"
)

// serviceName identifies this server in health responses.
const serviceName = "vingest"

// Deps carries the collaborators the router wires into handlers.
type Deps struct {
	// Coordinator handles upload sessions. Required.
	Coordinator *upload.Coordinator

	// Media runs trim and join operations. May be nil, in which case the
	// video endpoints answer 503.
	Media *media.Processor

	// Tokens is the bearer token allowlist for the /api routes.
	Tokens []string

	// Checks are probed by GET /health/stores.
	Checks []handlers.Check

	// ChunkSize caps chunk request bodies. Zero means the protocol default.
	ChunkSize int64

	// Version is reported by GET /.
	Version string
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - CORS handling, including preflight requests
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET / - Service info (also the edge router health probe target)
//   - GET /health - Liveness probe
//   - GET /health/stores - Detailed dependency health
//   - GET /metrics - Prometheus metrics (when metrics are enabled)
//   - POST /api/upload/initialize - Create an upload session
//   - POST /api/upload/chunk - Receive one chunk
//   - GET /api/upload/status - Report session progress
//   - POST /api/video/trim - Trim a published video
//   - POST /api/video/join - Join published videos
//
// Everything under /api requires a bearer token from the allowlist.
func NewRouter(cfg Config, deps Deps) http.Handler {
	if deps.Coordinator == nil {
		// This is a programming error - the upload coordinator is the
		// whole point of the server
		panic("api: upload coordinator is required")
	}

	cfg.applyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters. CORS sits before the timeout and
	// the authenticated group so preflight requests short-circuit and
	// error responses still carry CORS headers.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-File-Id", "X-Chunk-Index", "Accept", "Authorization"},
		ExposedHeaders: []string{"Authorization"},
	}).Handler)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// Health check handlers
	healthHandler := handlers.NewHealthHandler(serviceName, deps.Version, deps.Checks...)

	// Health routes - unauthenticated
	r.Get("/", healthHandler.Root)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/stores", healthHandler.Stores)
	})

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	uploadHandler := handlers.NewUploadHandler(deps.Coordinator, deps.ChunkSize)
	mediaHandler := handlers.NewMediaHandler(deps.Media)

	// Ingest routes - bearer token required
	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.BearerAuth(deps.Tokens))

		r.Route("/upload", func(r chi.Router) {
			r.Post("/initialize", uploadHandler.Initialize)
			r.Post("/chunk", uploadHandler.Chunk)
			r.Get("/status", uploadHandler.Status)
		})

		r.Route("/video", func(r chi.Router) {
			r.Post("/trim", mediaHandler.Trim)
			r.Post("/join", mediaHandler.Join)
		})
	})

	return r
}

// isQuietPath returns true if the request path is a probe or metrics endpoint.
func isQuietPath(path string) bool {
	return path == "/" || path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Probe and metrics requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			logger.ClientIP(r.RemoteAddr),
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(logger.Duration(start)),
		}

		// Log probe requests at DEBUG to avoid polluting logs behind the
		// edge router's health checker
		if isQuietPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
