package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AlfilAlex/taller-upy/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// requireAuth validates the bearer token and stores the caller identity
// in the request context. Identity comes from the token subject only;
// anything identity-shaped in a request body is ignored downstream.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		claims, err := auth.ValidateToken(s.jwtSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// callerIdentity returns the authenticated caller identity, or "" when
// the request did not pass requireAuth.
func callerIdentity(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs every request and records it in the metrics registry.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.metrics.Observe(r.Method, r.URL.Path, rec.status, elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}
