package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"foldershare/internal/auth"
	"foldershare/internal/httputil"
)

// publicPath reports whether a request is served without authentication
func publicPath(r *http.Request) bool {
	switch {
	case r.Method == http.MethodOptions:
		return true
	case r.URL.Path == "/health", r.URL.Path == "/metrics":
		return true
	case strings.HasPrefix(r.URL.Path, "/public/"):
		return true
	}
	return false
}

// AuthMiddleware validates the bearer token and stores the caller's claims
// and user ID in the request context. Public link routes pass through anonymously.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithClaims(r, claims))
		})
	}
}
