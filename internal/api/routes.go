package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwkoo/keytier/internal/middleware"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Tiering *TieringHandlers
	Config  *ConfigHandlers
	Health  *HealthHandlers

	// HTTPMetrics is optional; when set the metrics middleware is applied
	// and /metrics serves the registry.
	HTTPMetrics *middleware.Metrics
	Registry    *prometheus.Registry

	// TracingEnabled applies the otelhttp middleware.
	TracingEnabled bool
	ServiceName    string

	Logger *slog.Logger
}

// NewRouter assembles the route table and the middleware chain:
// RequestID -> Tracing -> HTTPMetrics -> Logging -> mux.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/tiering/run", cfg.Tiering.Run)
	mux.HandleFunc("/v1/algo-config", cfg.Config.GetOrPut)
	mux.HandleFunc("/v1/algo-config/invalidate", cfg.Config.Invalidate)
	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"keytier-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	var handler http.Handler = mux
	handler = middleware.Logging(cfg.Logger)(handler)
	if cfg.HTTPMetrics != nil {
		handler = middleware.HTTPMetrics(cfg.HTTPMetrics)(handler)
	}
	if cfg.TracingEnabled {
		handler = middleware.Tracing(cfg.ServiceName)(handler)
	}
	handler = middleware.RequestID(handler)

	return handler
}
