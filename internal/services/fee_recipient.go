package services

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/logging"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// FeeRecipientResolver names the wallet that collects (or, on the rebate
// turn, pays) service fees. A configured id wins; otherwise the
// earliest-created admin is looked up once and remembered.
type FeeRecipientResolver struct {
	db         *gorm.DB
	configured string

	mu       sync.Mutex
	resolved string
}

func NewFeeRecipientResolver(db *gorm.DB, configuredUserID string) *FeeRecipientResolver {
	return &FeeRecipientResolver{
		db:         db,
		configured: configuredUserID,
	}
}

// Resolve returns the fee recipient's user id, or "" when none exists.
// Misses are not remembered, so an admin created later is picked up.
func (r *FeeRecipientResolver) Resolve(ctx context.Context) (string, error) {
	if r.configured != "" {
		return r.configured, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != "" {
		return r.resolved, nil
	}

	var admin gormModels.User
	err := r.db.WithContext(ctx).
		Where("role = ?", constants.RoleAdmin).
		Order("created_at ASC").
		Order("id ASC").
		First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve fee recipient: %w", err)
	}

	r.resolved = admin.ID
	logging.Info("Resolved fee recipient", "user_id", admin.ID)
	return r.resolved, nil
}
