package gorm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/constants"
)

type User struct {
	ID            string             `gorm:"column:id;primaryKey;type:uuid"`
	Name          string             `gorm:"column:name"`
	Role          constants.UserRole `gorm:"column:role;default:member"`
	WalletBalance decimal.Decimal    `gorm:"column:wallet_balance;type:numeric(20,4);not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Memberships []Membership `gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
