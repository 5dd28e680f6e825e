package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

type UserRepositoryGORM struct {
	db *gorm.DB
}

// NewUserRepositoryGORM creates a new GORM-based user repository
func NewUserRepositoryGORM(db *gorm.DB) *UserRepositoryGORM {
	return &UserRepositoryGORM{db: db}
}

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = fmt.Errorf("user not found")

// GetByID retrieves a user without relationships
func (r *UserRepositoryGORM) GetByID(ctx context.Context, id string) (*gormModels.User, error) {
	var user gormModels.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// GetWithMemberships retrieves a user with every membership and its association preloaded
func (r *UserRepositoryGORM) GetWithMemberships(ctx context.Context, id string) (*gormModels.User, error) {
	var user gormModels.User

	err := r.db.WithContext(ctx).
		Preload("Memberships.Association").
		Where("id = ?", id).
		First(&user).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user with memberships: %w", err)
	}

	return &user, nil
}
