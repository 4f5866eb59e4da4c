package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/metrics"
)

// SlowRequest is the duration above which requests are logged at warn level.
const SlowRequest = 2 * time.Second

// RequestLogger logs one structured line per request and records it in m.
func RequestLogger(logger *logrus.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			m.ObserveRequest(route, r.Method, status, duration)

			entry := logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"route":      route,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   duration.String(),
				"remote_ip":  r.RemoteAddr,
				"request_id": chimw.GetReqID(r.Context()),
			})
			switch {
			case duration > SlowRequest:
				entry.Warn("slow request")
			case status >= 500:
				entry.Error("request failed")
			default:
				entry.Info("request completed")
			}
		})
	}
}

// routePattern returns the matched chi pattern, e.g. /api/meals/{id}.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
