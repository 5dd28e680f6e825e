package middleware

import (
	"net/http"
	"time"

	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
)

func IsAdminMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			claims := auth.GetUserClaims(r.Context())

			if claims == nil || !claims.IsAdmin() {
				common.RespondError(w, time.Now(), nil, "Forbidden. Admin role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
