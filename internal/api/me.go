package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/db/repositories"
	"savings-circle/rosca/internal/models/dtos"
	"savings-circle/rosca/internal/models/entities"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

const recentPaymentsLimit = 20

// ProfileReader loads a user together with their memberships.
type ProfileReader interface {
	GetWithMemberships(ctx context.Context, id string) (*gormModels.User, error)
}

// UserPayments reads one user's side of the audit trail.
type UserPayments interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]entities.PaymentRecord, error)
}

// GetMeHandler handles GET /api/v1/me
func GetMeHandler(users ProfileReader, payments UserPayments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		user, err := users.GetWithMemberships(r.Context(), claims.UserID())
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				common.RespondError(w, initTime, err, "User not found", http.StatusNotFound)
				return
			}
			common.RespondError(w, initTime, err, "Failed to load profile")
			return
		}

		recent, err := payments.ListByUser(r.Context(), user.ID, recentPaymentsLimit)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load payments")
			return
		}

		view := dtos.ProfileView{
			UserID:         user.ID,
			Name:           user.Name,
			Role:           user.Role.String(),
			WalletBalance:  user.WalletBalance,
			Memberships:    make([]dtos.MembershipView, 0, len(user.Memberships)),
			RecentPayments: recent,
		}
		for _, m := range user.Memberships {
			view.Memberships = append(view.Memberships, dtos.MembershipView{
				AssociationID:   m.AssociationID,
				AssociationName: m.Association.Name,
				TurnNumber:      m.TurnNumber,
				HasReceived:     m.HasReceived,
				RemainingAmount: m.RemainingAmount,
				Status:          string(m.Status),
			})
		}

		common.RespondSuccess(w, initTime, "Profile fetched", view)
	}
}
