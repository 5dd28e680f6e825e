package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
)

// ReserveTurnHandler handles POST /api/v1/turns/{turn_id}/reserve
//
// Reserves the turn for the authenticated user and charges its reservation fee.
func ReserveTurnHandler(svc TurnReserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		turnID := chi.URLParam(r, "turn_id")
		result, err := svc.Reserve(r.Context(), claims.UserID(), turnID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to reserve turn")
			return
		}

		common.RespondSuccess(w, initTime, "Turn reserved", result)
	}
}
