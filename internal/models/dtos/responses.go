package dtos

import (
	"time"

	"github.com/shopspring/decimal"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/models/entities"
)

type APIResponse struct {
	Status       string       `json:"status"`
	Message      string       `json:"message"`
	ResponseTime string       `json:"response_time"`
	Data         any          `json:"data,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the structured {status, error} payload for failed operations.
type ErrorDetail struct {
	Kind           string                `json:"kind"`
	Code           string                `json:"code"`
	RequiredAmount *decimal.Decimal      `json:"required_amount,omitempty"`
	CurrentBalance *decimal.Decimal      `json:"current_balance,omitempty"`
	Members        []apperrors.Shortfall `json:"members,omitempty"`
}

// ---- CYCLE ----
type CycleLogEntry struct {
	Action string          `json:"action"`
	UserID string          `json:"user_id,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type CycleResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Status        string          `json:"status"`
	AssociationID string          `json:"association_id"`
	TurnNumber    int             `json:"turn_number,omitempty"`
	RecipientID   string          `json:"recipient_id,omitempty"`
	TotalPot      decimal.Decimal `json:"total_pot"`
	FeePercent    decimal.Decimal `json:"fee_percent"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	PayoutAmount  decimal.Decimal `json:"payout_amount"`
	Logs          []CycleLogEntry `json:"logs"`
}

// ---- TURNS ----
type TurnView struct {
	ID            string          `json:"id"`
	AssociationID string          `json:"association_id"`
	TurnNumber    int             `json:"turn_number"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	PickedAt      time.Time       `json:"picked_at"`
}

type ReservationResult struct {
	Success bool     `json:"success"`
	Turn    TurnView `json:"turn"`
}

// ---- INSTALLMENTS ----
type PaymentView struct {
	Amount          decimal.Decimal `json:"amount"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	FeePercent      decimal.Decimal `json:"fee_percent"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

type ContributionResult struct {
	Success bool        `json:"success"`
	Payment PaymentView `json:"payment"`
}

// ---- ASSOCIATIONS ----
type MemberSummary struct {
	UserID          string          `json:"user_id"`
	TurnNumber      *int            `json:"turn_number,omitempty"`
	HasReceived     bool            `json:"has_received"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
}

type AssociationSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	Duration      int             `json:"duration"`
	MaxMembers    int             `json:"max_members"`
	CurrentTurn   int             `json:"current_turn"`
	PoolBalance   decimal.Decimal `json:"pool_balance"`
	FeeRatios     []string        `json:"fee_ratios"`
	Members       []MemberSummary `json:"members"`
}

type WalletView struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// CycleEvent is published after a cycle commits.
type CycleEvent struct {
	Type          string          `json:"type"`
	AssociationID string          `json:"association_id"`
	TurnNumber    int             `json:"turn_number"`
	RecipientID   string          `json:"recipient_id"`
	PayoutAmount  decimal.Decimal `json:"payout_amount"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ---- FEES ----
type FeeRatioView struct {
	TurnNumber int             `json:"turn_number"`
	Ratio      decimal.Decimal `json:"ratio"`
}

type FeeSchedule struct {
	Duration int            `json:"duration"`
	Turns    []FeeRatioView `json:"turns"`
}

// ---- PAYMENTS ----
type PaymentHistoryView struct {
	AssociationID string                   `json:"association_id"`
	Payments      []entities.PaymentRecord `json:"payments"`
	Totals        []entities.PaymentTotal  `json:"totals"`
}

// ---- PROFILE ----
type MembershipView struct {
	AssociationID   string          `json:"association_id"`
	AssociationName string          `json:"association_name"`
	TurnNumber      *int            `json:"turn_number,omitempty"`
	HasReceived     bool            `json:"has_received"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
}

type ProfileView struct {
	UserID         string                   `json:"user_id"`
	Name           string                   `json:"name"`
	Role           string                   `json:"role"`
	WalletBalance  decimal.Decimal          `json:"wallet_balance"`
	Memberships    []MembershipView         `json:"memberships"`
	RecentPayments []entities.PaymentRecord `json:"recent_payments"`
}
