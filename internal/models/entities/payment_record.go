package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord is the read-side projection of a payments row.
type PaymentRecord struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	AssociationID *string         `db:"association_id" json:"association_id,omitempty"`
	Kind          string          `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	FeeAmount     decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	FeePercent    decimal.Decimal `db:"fee_percent" json:"fee_percent"`
	TurnNumber    *int            `db:"turn_number" json:"turn_number,omitempty"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
}

// PaymentTotal is the sum of one payment kind within an association.
type PaymentTotal struct {
	Kind  string          `db:"kind" json:"kind"`
	Total decimal.Decimal `db:"total" json:"total"`
}
