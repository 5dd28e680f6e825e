package gorm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Turn is one payout slot. IsTaken flips false→true once, on reservation.
// IsCompleted is set when the slot's payout has been made.
type Turn struct {
	ID            string          `gorm:"column:id;primaryKey;type:uuid"`
	AssociationID string          `gorm:"column:association_id;type:uuid;uniqueIndex:idx_turn_slot"`
	TurnNumber    int             `gorm:"column:turn_number;uniqueIndex:idx_turn_slot"`
	UserID        *string         `gorm:"column:user_id;type:uuid;index"`
	IsTaken       bool            `gorm:"column:is_taken;default:false"`
	IsCompleted   bool            `gorm:"column:is_completed;default:false"`
	FeeAmount     decimal.Decimal `gorm:"column:fee_amount;type:numeric(20,4);not null;default:0"`
	PickedAt      *time.Time      `gorm:"column:picked_at"`
	CompletedAt   *time.Time      `gorm:"column:completed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Turn) TableName() string {
	return "turns"
}

func (t *Turn) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
