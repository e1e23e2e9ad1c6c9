package middleware

import (
	"net/http"

	"resale-api/internal/services"
)

// AdminTokenMiddleware guards maintenance endpoints. External schedulers
// invoke them with the rotating token in the x-admin-token header.
func AdminTokenMiddleware(tokenService *services.AdminTokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("x-admin-token")
			if !tokenService.ValidateToken(token) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
