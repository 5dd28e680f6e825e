package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/models/entities"
)

const defaultPaymentLimit = 100

// PaymentHistoryRepo reads the payment audit trail with plain SQL. Writes
// happen through the ledger inside GORM transactions.
type PaymentHistoryRepo struct {
	db *sqlx.DB
}

func NewPaymentHistoryRepo(db *sqlx.DB) *PaymentHistoryRepo {
	return &PaymentHistoryRepo{db}
}

func (r *PaymentHistoryRepo) ListByAssociation(ctx context.Context, associationID string, limit int) ([]entities.PaymentRecord, error) {
	records := []entities.PaymentRecord{}
	query := r.db.Rebind(constants.ListPaymentsByAssociation)

	if err := r.db.SelectContext(ctx, &records, query, associationID, clampLimit(limit)); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *PaymentHistoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]entities.PaymentRecord, error) {
	records := []entities.PaymentRecord{}
	query := r.db.Rebind(constants.ListPaymentsByUser)

	if err := r.db.SelectContext(ctx, &records, query, userID, clampLimit(limit)); err != nil {
		return nil, err
	}
	return records, nil
}

// Totals sums signed amounts per payment kind within an association.
func (r *PaymentHistoryRepo) Totals(ctx context.Context, associationID string) ([]entities.PaymentTotal, error) {
	totals := []entities.PaymentTotal{}
	query := r.db.Rebind(constants.SumPaymentsByKind)

	if err := r.db.SelectContext(ctx, &totals, query, associationID); err != nil {
		return nil, err
	}
	return totals, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultPaymentLimit {
		return defaultPaymentLimit
	}
	return limit
}
