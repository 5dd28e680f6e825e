package ledger

import (
	"context"
	"testing"

	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db/dbtest"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

func TestLedger_ApplyDebitAndCredit(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	l := New()

	payer := dbtest.CreateUser(t, gdb, "payer", constants.RoleMember, dbtest.Money(t, "150"))
	payee := dbtest.CreateUser(t, gdb, "payee", constants.RoleMember, dbtest.Money(t, "0"))

	err := gdb.Transaction(func(tx *gorm.DB) error {
		users, err := l.LockUsers(ctx, tx, []string{payer.ID, payee.ID})
		if err != nil {
			return err
		}
		if err := EnsureFunds(users[payer.ID], dbtest.Money(t, "100")); err != nil {
			return err
		}
		if err := l.Apply(ctx, tx, Entry{UserID: payer.ID, Kind: constants.PaymentContribution, Delta: dbtest.Money(t, "-100")}); err != nil {
			return err
		}
		return l.Apply(ctx, tx, Entry{UserID: payee.ID, Kind: constants.PaymentPayout, Delta: dbtest.Money(t, "100")})
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := dbtest.Balance(t, gdb, payer.ID); !got.Equal(dbtest.Money(t, "50")) {
		t.Errorf("Expected payer balance 50, got %s", got)
	}
	if got := dbtest.Balance(t, gdb, payee.ID); !got.Equal(dbtest.Money(t, "100")) {
		t.Errorf("Expected payee balance 100, got %s", got)
	}

	var payments []gormModels.Payment
	if err := gdb.Order("payment_date").Find(&payments).Error; err != nil {
		t.Fatalf("Failed to load payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("Expected 2 payment rows, got %d", len(payments))
	}
}

func TestLedger_RollbackLeavesNoTrace(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	l := New()

	payer := dbtest.CreateUser(t, gdb, "payer", constants.RoleMember, dbtest.Money(t, "100"))

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if _, err := l.LockUser(ctx, tx, payer.ID); err != nil {
			return err
		}
		if err := l.Apply(ctx, tx, Entry{UserID: payer.ID, Kind: constants.PaymentContribution, Delta: dbtest.Money(t, "-40")}); err != nil {
			return err
		}
		return apperrors.Conflict(constants.ErrCodeInvalidState, "abort")
	})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("Expected conflict, got %v", err)
	}

	if got := dbtest.Balance(t, gdb, payer.ID); !got.Equal(dbtest.Money(t, "100")) {
		t.Errorf("Expected balance unchanged at 100, got %s", got)
	}
	var count int64
	gdb.Model(&gormModels.Payment{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no payment rows, got %d", count)
	}
}

func TestLedger_LockUsersMissing(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	l := New()

	known := dbtest.CreateUser(t, gdb, "known", constants.RoleMember, dbtest.Money(t, "1"))

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := l.LockUsers(ctx, tx, []string{known.ID, "00000000-0000-0000-0000-000000000000"})
		return err
	})
	if !apperrors.IsCode(err, constants.ErrCodeUserNotFound) {
		t.Errorf("Expected user not found, got %v", err)
	}
}

func TestEnsureFunds(t *testing.T) {
	user := &gormModels.User{WalletBalance: dbtest.Money(t, "20")}

	err := EnsureFunds(user, dbtest.Money(t, "84"))
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind != apperrors.KindInsufficientFunds {
		t.Fatalf("Expected InsufficientFunds, got %v", err)
	}
	if !appErr.RequiredAmount.Equal(dbtest.Money(t, "84")) || !appErr.CurrentBalance.Equal(dbtest.Money(t, "20")) {
		t.Errorf("Expected required 84 / current 20, got %s / %s", appErr.RequiredAmount, appErr.CurrentBalance)
	}

	if err := EnsureFunds(user, dbtest.Money(t, "20")); err != nil {
		t.Errorf("Expected exact balance to pass, got %v", err)
	}
}

func TestLedger_Deposit(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	l := New()

	u := dbtest.CreateUser(t, gdb, "saver", constants.RoleMember, dbtest.Money(t, "10"))

	updated, err := l.Deposit(ctx, gdb, u.ID, dbtest.Money(t, "90"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !updated.WalletBalance.Equal(dbtest.Money(t, "100")) {
		t.Errorf("Expected returned balance 100, got %s", updated.WalletBalance)
	}
	if got := dbtest.Balance(t, gdb, u.ID); !got.Equal(dbtest.Money(t, "100")) {
		t.Errorf("Expected stored balance 100, got %s", got)
	}

	if _, err := l.Deposit(ctx, gdb, u.ID, dbtest.Money(t, "0")); !apperrors.IsCode(err, constants.ErrCodeInvalidAmount) {
		t.Errorf("Expected invalid amount, got %v", err)
	}
}

func TestLedger_CreditPool(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	l := New()

	f := dbtest.SeedAssociation(t, gdb, 2, dbtest.Money(t, "100"), dbtest.Money(t, "0"))

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return l.CreditPool(ctx, tx, f.Association.ID, dbtest.Money(t, "93"))
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var assoc gormModels.Association
	gdb.First(&assoc, "id = ?", f.Association.ID)
	if !assoc.PoolBalance.Equal(dbtest.Money(t, "93")) {
		t.Errorf("Expected pool 93, got %s", assoc.PoolBalance)
	}
}
