package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"foldershare/internal/domain"
	"foldershare/internal/domain/services"
	"foldershare/internal/httputil"
)

// ProvisionUser creates the caller's account on its first authenticated
// request. Runs inside AuthMiddleware; anonymous requests pass through.
func ProvisionUser(provisioner services.UserProvisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := httputil.GetClaims(r)
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			err := provisioner.EnsureUser(r.Context(), claims)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, domain.ErrConflict):
				httputil.RespondError(w, http.StatusConflict, "email is already registered to another account")
			case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnauthorized):
				httputil.RespondError(w, http.StatusUnauthorized, err.Error())
			default:
				logger.Error("user provisioning failed", "user_id", claims.GetUserID(), "error", err)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}
		})
	}
}
