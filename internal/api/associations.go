package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/models/dtos"
)

// PayInstallmentHandler handles POST /api/v1/associations/{association_id}/contributions
//
// Applies one installment of the caller's remaining amount.
func PayInstallmentHandler(svc InstallmentPayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		result, err := svc.Pay(r.Context(), claims.UserID(), chi.URLParam(r, "association_id"))
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to apply installment")
			return
		}

		common.RespondSuccess(w, initTime, "Installment applied", result)
	}
}

// GetAssociationHandler handles GET /api/v1/associations/{association_id}
func GetAssociationHandler(svc AssociationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		summary, err := svc.Summary(r.Context(), chi.URLParam(r, "association_id"))
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load association")
			return
		}

		common.RespondSuccess(w, initTime, "Association fetched successfully", summary)
	}
}

// ListPaymentsHandler handles GET /api/v1/associations/{association_id}/payments?limit=N
func ListPaymentsHandler(repo PaymentHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		associationID := chi.URLParam(r, "association_id")

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				common.RespondError(w, initTime, errors.New("limit must be a positive integer"), "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		payments, err := repo.ListByAssociation(r.Context(), associationID, limit)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load payments")
			return
		}
		totals, err := repo.Totals(r.Context(), associationID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load payment totals")
			return
		}

		common.RespondSuccess(w, initTime, "Payments fetched successfully", dtos.PaymentHistoryView{
			AssociationID: associationID,
			Payments:      payments,
			Totals:        totals,
		})
	}
}

// CreateAssociationHandler handles POST /api/v1/admin/associations
func CreateAssociationHandler(svc AssociationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		var req dtos.CreateAssociationReq

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			if err == nil {
				err = errors.New("name is required")
			}
			common.RespondError(w, initTime, err, "Invalid association payload", http.StatusBadRequest)
			return
		}

		assoc, err := svc.Create(r.Context(), req)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to create association")
			return
		}

		summary, err := svc.Summary(r.Context(), assoc.ID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load association")
			return
		}

		common.RespondSuccess(w, initTime, "Association created", summary, http.StatusCreated)
	}
}

// TriggerCycleHandler handles POST /api/v1/admin/associations/{association_id}/cycle
//
// Runs the next payout cycle. Completed associations answer 200 with
// status "completed" and no money movement.
func TriggerCycleHandler(svc CycleTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		result, err := svc.TriggerCycle(r.Context(), chi.URLParam(r, "association_id"))
		if err != nil {
			common.RespondError(w, initTime, err, "Cycle failed")
			return
		}

		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// TopUpWalletHandler handles POST /api/v1/admin/wallets/{user_id}/topup
func TopUpWalletHandler(svc AssociationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		var req dtos.TopUpReq

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, "Invalid top-up payload", http.StatusBadRequest)
			return
		}

		wallet, err := svc.TopUp(r.Context(), chi.URLParam(r, "user_id"), req.Amount)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to top up wallet")
			return
		}

		common.RespondSuccess(w, initTime, "Wallet topped up", wallet)
	}
}
