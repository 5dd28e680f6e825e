// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db"
	"savings-circle/rosca/internal/logging"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// Open returns a migrated in-memory sqlite database. The pool is pinned to a
// single connection so the database survives between queries and concurrent
// transactions queue behind each other.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	logging.SetLogger(zap.NewNop())

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return gdb
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// CreateUser inserts a user with the given balance.
func CreateUser(t testing.TB, gdb *gorm.DB, name string, role constants.UserRole, balance decimal.Decimal) *gormModels.User {
	t.Helper()
	u := &gormModels.User{Name: name, Role: role, WalletBalance: balance}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return u
}

// Balance reloads a user's wallet balance.
func Balance(t testing.TB, gdb *gorm.DB, userID string) decimal.Decimal {
	t.Helper()
	var u gormModels.User
	if err := gdb.Where("id = ?", userID).First(&u).Error; err != nil {
		t.Fatalf("Failed to load user %s: %v", userID, err)
	}
	return u.WalletBalance
}

// Fixture is a seeded association with one member per turn.
type Fixture struct {
	Association *gormModels.Association
	Members     []*gormModels.User
	Memberships []*gormModels.Membership
	Turns       []*gormModels.Turn
}

// SeedAssociation creates an association of duration members, each holding the
// turn matching their position and starting with balance in their wallet.
func SeedAssociation(t testing.TB, gdb *gorm.DB, duration int, monthly, balance decimal.Decimal) *Fixture {
	t.Helper()
	assoc := &gormModels.Association{
		Name:          "circle",
		MonthlyAmount: monthly,
		Duration:      duration,
		MaxMembers:    duration,
		Status:        constants.AssociationPending,
	}
	if err := gdb.Create(assoc).Error; err != nil {
		t.Fatalf("Failed to create association: %v", err)
	}

	f := &Fixture{Association: assoc}
	for i := 1; i <= duration; i++ {
		u := CreateUser(t, gdb, fmt.Sprintf("member-%02d", i), constants.RoleMember, balance)
		turnNumber := i
		m := &gormModels.Membership{
			UserID:          u.ID,
			AssociationID:   assoc.ID,
			TurnNumber:      &turnNumber,
			RemainingAmount: assoc.TotalValue(),
			Status:          constants.MembershipActive,
		}
		if err := gdb.Create(m).Error; err != nil {
			t.Fatalf("Failed to create membership: %v", err)
		}
		userID := u.ID
		turn := &gormModels.Turn{
			AssociationID: assoc.ID,
			TurnNumber:    i,
			UserID:        &userID,
			IsTaken:       true,
		}
		if err := gdb.Create(turn).Error; err != nil {
			t.Fatalf("Failed to create turn: %v", err)
		}
		f.Members = append(f.Members, u)
		f.Memberships = append(f.Memberships, m)
		f.Turns = append(f.Turns, turn)
	}
	return f
}
