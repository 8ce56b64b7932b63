package stubbackend

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatehouse/pkg/platform/middleware/metadata"
	"gatehouse/pkg/platform/middleware/request"
	"gatehouse/pkg/platform/middleware/requesttime"
)

// RouterConfig collects what NewRouter needs besides the handler.
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	// Timeout bounds each request; zero means 30s.
	Timeout time.Duration
}

// NewRouter assembles the stub backend: shared middleware, the handler
// routes, /healthz and /metrics.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	requests := promauto.With(cfg.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_stub_requests_total",
		Help: "Stub backend requests by route and status",
	}, []string{"route", "status"})

	log := cfg.Logger
	if log == nil {
		log = h.logger
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(cfg.Timeout))
	r.Use(countRequests(requests))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	h.Register(r)
	return r
}

func countRequests(c *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			c.WithLabelValues(route, strconv.Itoa(status)).Inc()
		})
	}
}
