package gorm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/constants"
)

type Association struct {
	ID            string                      `gorm:"column:id;primaryKey;type:uuid"`
	Name          string                      `gorm:"column:name"`
	MonthlyAmount decimal.Decimal             `gorm:"column:monthly_amount;type:numeric(20,4);not null"`
	Duration      int                         `gorm:"column:duration;not null"`
	MaxMembers    int                         `gorm:"column:max_members;not null"`
	Status        constants.AssociationStatus `gorm:"column:status;default:pending;index"`
	PoolBalance   decimal.Decimal             `gorm:"column:pool_balance;type:numeric(20,4);not null;default:0"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt   *time.Time                  `gorm:"column:completed_at"`

	// Relationships
	Memberships []Membership `gorm:"foreignKey:AssociationID"`
	Turns       []Turn       `gorm:"foreignKey:AssociationID"`
}

// TableName specifies the table name for GORM
func (Association) TableName() string {
	return "associations"
}

func (a *Association) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// TotalValue is monthly × duration, the base every payout fee is computed on.
func (a *Association) TotalValue() decimal.Decimal {
	return a.MonthlyAmount.Mul(decimal.NewFromInt(int64(a.Duration)))
}

type Membership struct {
	ID               string                     `gorm:"column:id;primaryKey;type:uuid"`
	UserID           string                     `gorm:"column:user_id;type:uuid;uniqueIndex:idx_membership_user_assoc"`
	AssociationID    string                     `gorm:"column:association_id;type:uuid;uniqueIndex:idx_membership_user_assoc;uniqueIndex:idx_membership_turn"`
	TurnNumber       *int                       `gorm:"column:turn_number;uniqueIndex:idx_membership_turn"`
	HasReceived      bool                       `gorm:"column:has_received;default:false"`
	LastReceivedDate *time.Time                 `gorm:"column:last_received_date"`
	RemainingAmount  decimal.Decimal            `gorm:"column:remaining_amount;type:numeric(20,4);not null;default:0"`
	Status           constants.MembershipStatus `gorm:"column:status;default:active"`
	JoinedAt         time.Time                  `gorm:"column:joined_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	User        User        `gorm:"foreignKey:UserID"`
	Association Association `gorm:"foreignKey:AssociationID"`
}

// TableName specifies the table name for GORM
func (Membership) TableName() string {
	return "memberships"
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
