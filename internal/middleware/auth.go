package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/auth"
	"github.com/ayush/nutrilog/internal/httpx"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// RequireAuth is middleware that validates the bearer token and injects its
// claims into the request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			claims, err := tokens.Verify(r.Context(), raw)
			switch {
			case errors.Is(err, auth.ErrRevokedToken):
				httpx.WriteError(w, http.StatusUnauthorized, "token revoked")
				return
			case errors.Is(err, auth.ErrInvalidToken):
				httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			case err != nil:
				logrus.WithError(err).Error("verify token")
				httpx.WriteError(w, http.StatusUnauthorized, "could not verify token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
