package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/observability"
	"github.com/sorasolar/site-api/internal/pipeline"
)

//go:embed openapi.yaml
var openapiYAML []byte

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// MapService serves the datasets and the classified groups.
type MapService interface {
	Groups(ctx context.Context, strategy domain.Strategy) ([]domain.GeoGroup, error)
	Rooftops(ctx context.Context) ([]domain.Rooftop, error)
	Rooftop(ctx context.Context, id string) (pipeline.RooftopDetail, error)
	Partners(ctx context.Context, query string) ([]domain.Partner, error)
	DefaultStrategy() domain.Strategy
}

// ContactService accepts contact-form submissions.
type ContactService interface {
	Submit(ctx context.Context, sub domain.ContactSubmission) (domain.Lead, error)
	RecordRateLimited()
}

// Options holds the listener and policy settings of the server.
type Options struct {
	Addr             string
	AllowedOrigins   []string
	ContactRateLimit float64
	ContactRateBurst int
	// TrustedProxies lists the reverse proxies allowed to set
	// X-Forwarded-For. Empty means the header is ignored.
	TrustedProxies []netip.Prefix
}

// Server exposes the site API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	maps       MapService
	contacts   ContactService
	limiter    *ipLimiter
	clientIPs  clientIPs
	logger     *slog.Logger
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(opts Options, maps MapService, contacts ContactService, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		maps:      maps,
		contacts:  contacts,
		limiter:   newIPLimiter(opts.ContactRateLimit, opts.ContactRateBurst),
		clientIPs: clientIPs{trusted: opts.TrustedProxies},
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(
		withRequestID,
		withLogger(logger),
		instrument(logger, metrics, s.clientIPs),
		recoverer(logger),
		cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}),
	)
	r.MethodNotAllowed(handleMethodNotAllowed)
	r.NotFound(handleNotFound)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/openapi.yaml", handleOpenAPI)
	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Get("/rooftops", s.handleRooftops)
		api.Get("/partners", s.handlePartners)
		api.Post("/contact", s.handleContact)

		api.Route("/map", func(mr chi.Router) {
			mr.Get("/groups", s.handleGroups)
			mr.Get("/groups.geojson", s.handleGroupsGeoJSON)
			mr.Get("/rooftops.geojson", s.handleRooftopsGeoJSON)
			mr.Get("/rooftops/{id}", s.handleRooftop)
		})
	})

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write(openapiYAML) //nolint:errcheck // static document
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// errorBody is the envelope for every non-2xx API response.
type errorBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Issues  []domain.FieldError `json:"issues,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
