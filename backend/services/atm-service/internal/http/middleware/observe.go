package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "atm",
	Name:      "http_request_duration_seconds",
	Help:      "Ops/admin HTTP request latencies in seconds",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "path", "status"})

// Observe logs each request and records its latency by route pattern.
func Observe(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			elapsed := time.Since(start)
			httpRequestDuration.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Observe(elapsed.Seconds())
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", chimw.GetReqID(r.Context())))
		})
	}
}
