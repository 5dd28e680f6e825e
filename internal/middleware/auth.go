package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/db/repositories"
	"savings-circle/rosca/internal/logging"
)

// AuthMiddleware accepts a bearer JWT whose subject is an existing user. The
// stored role wins over the token's, so demoting a user takes effect at once.
func AuthMiddleware(tokens *auth.TokenService, userRepo *repositories.UserRepositoryGORM) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				common.RespondError(w, start, nil, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				common.RespondError(w, start, nil, "Unauthorized. Invalid token", http.StatusUnauthorized)
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID())
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					common.RespondError(w, start, nil, "Unauthorized. Unknown user", http.StatusUnauthorized)
					return
				}
				logging.WithRequest(auth.GetRequestID(r.Context()), claims.UserID(), r.URL.Path).
					Errorw("Failed to load user for token", "error", err.Error())
				common.RespondError(w, start, err, "Failed to load user")
				return
			}
			claims.RoleValue = user.Role

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
