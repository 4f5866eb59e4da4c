package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/httpx"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler reports database reachability. The body always carries
// "status" and "database"; a failed ping answers 503.
func healthHandler(db pinger, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.WithError(err).Error("health check: database ping")
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "database": "error"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
	}
}
