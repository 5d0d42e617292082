package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"poolScope/internal/observability"
)

// NewRouter wires the query API. requestTimeout bounds every request's context.
func NewRouter(querier Querier, metrics *observability.Metrics, requestTimeout time.Duration, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	handlers := NewHandlers(querier, logger)

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(metrics))
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/healthz", handlers.HealthCheck)
	r.Get("/api/pools", handlers.GetPools)
	r.Get("/api/metrics/price", handlers.GetPriceMetrics)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.writeJSON(w, http.StatusNotFound, NewErrorResponse(errors.New("endpoint not found"), "not_found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.writeJSON(w, http.StatusMethodNotAllowed, NewErrorResponse(errors.New("method not allowed"), "method_not_allowed"))
	})

	return r
}

func instrument(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RecordHTTPRequest(route, status, started)
		})
	}
}

type Server struct {
	server *http.Server
}

// NewServer creates an HTTP server whose write timeout exceeds requestTimeout.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: requestTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.server.Addr
}
