package gorm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/constants"
)

// Payment is the append-only audit row written for every money movement.
type Payment struct {
	ID            string                `gorm:"column:id;primaryKey;type:uuid"`
	UserID        string                `gorm:"column:user_id;type:uuid;index"`
	AssociationID *string               `gorm:"column:association_id;type:uuid;index"`
	Kind          constants.PaymentKind `gorm:"column:kind;index"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(20,4);not null"`
	FeeAmount     decimal.Decimal       `gorm:"column:fee_amount;type:numeric(20,4);not null;default:0"`
	FeePercent    decimal.Decimal       `gorm:"column:fee_percent;type:numeric(8,4);not null;default:0"`
	TurnNumber    *int                  `gorm:"column:turn_number"`
	PaymentDate   time.Time             `gorm:"column:payment_date;not null"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	return nil
}

// AllModels lists every table, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Association{},
		&Membership{},
		&Turn{},
		&Payment{},
	}
}
