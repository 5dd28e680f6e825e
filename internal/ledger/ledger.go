// Package ledger is the single money-movement primitive. Every balance
// change in the system is a relative increment applied inside the caller's
// transaction to a row the caller has already locked, paired with an
// append-only payments row.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// Entry is one wallet movement. Delta is signed from the wallet's point of
// view: negative debits, positive credits. The payments row stores it as is.
type Entry struct {
	UserID        string
	AssociationID string
	Kind          constants.PaymentKind
	Delta         decimal.Decimal
	FeeAmount     decimal.Decimal
	FeePercent    decimal.Decimal
	TurnNumber    int
	At            time.Time
}

// Ledger applies entries. It holds no state of its own.
type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// LockUser loads a user row under a row lock.
func (l *Ledger) LockUser(ctx context.Context, tx *gorm.DB, userID string) (*gormModels.User, error) {
	var user gormModels.User
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound(constants.ErrCodeUserNotFound, fmt.Sprintf("user %s not found", userID))
		}
		return nil, apperrors.Internal("lock user", err)
	}
	return &user, nil
}

// LockUsers locks several user rows in id order so two callers locking
// overlapping sets cannot deadlock.
func (l *Ledger) LockUsers(ctx context.Context, tx *gorm.DB, userIDs []string) (map[string]*gormModels.User, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	var users []gormModels.User
	if len(ids) > 0 {
		err := db.ForUpdate(tx.WithContext(ctx)).
			Where("id IN ?", ids).
			Order("id").
			Find(&users).Error
		if err != nil {
			return nil, apperrors.Internal("lock users", err)
		}
	}

	out := make(map[string]*gormModels.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, apperrors.NotFound(constants.ErrCodeUserNotFound, fmt.Sprintf("user %s not found", id))
		}
	}
	return out, nil
}

// EnsureFunds fails InsufficientFunds when a locked user cannot cover amount.
func EnsureFunds(user *gormModels.User, amount decimal.Decimal) error {
	if user.WalletBalance.LessThan(amount) {
		return apperrors.InsufficientFunds(amount, user.WalletBalance)
	}
	return nil
}

// Apply adjusts the wallet by e.Delta and appends the matching payments row.
// The caller must hold the user's row lock within tx.
func (l *Ledger) Apply(ctx context.Context, tx *gorm.DB, e Entry) error {
	res := tx.WithContext(ctx).
		Model(&gormModels.User{}).
		Where("id = ?", e.UserID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", e.Delta))
	if res.Error != nil {
		return apperrors.Internal("adjust wallet", res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.NotFound(constants.ErrCodeUserNotFound, fmt.Sprintf("user %s not found", e.UserID))
	}

	return l.record(ctx, tx, e)
}

// CreditPool moves the net of an installment into the association's pool.
func (l *Ledger) CreditPool(ctx context.Context, tx *gorm.DB, associationID string, amount decimal.Decimal) error {
	res := tx.WithContext(ctx).
		Model(&gormModels.Association{}).
		Where("id = ?", associationID).
		Update("pool_balance", gorm.Expr("pool_balance + ?", amount))
	if res.Error != nil {
		return apperrors.Internal("credit pool", res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.NotFound(constants.ErrCodeAssociationNotFound, "")
	}
	return nil
}

// Deposit tops up a wallet in its own transaction.
func (l *Ledger) Deposit(ctx context.Context, gdb *gorm.DB, userID string, amount decimal.Decimal) (*gormModels.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Conflict(constants.ErrCodeInvalidAmount, "")
	}

	var user *gormModels.User
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := l.LockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := l.Apply(ctx, tx, Entry{
			UserID: userID,
			Kind:   constants.PaymentDeposit,
			Delta:  amount,
		}); err != nil {
			return err
		}
		locked.WalletBalance = locked.WalletBalance.Add(amount)
		user = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (l *Ledger) record(ctx context.Context, tx *gorm.DB, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	payment := gormModels.Payment{
		UserID:      e.UserID,
		Kind:        e.Kind,
		Amount:      e.Delta,
		FeeAmount:   e.FeeAmount,
		FeePercent:  e.FeePercent,
		PaymentDate: at,
	}
	if e.AssociationID != "" {
		assocID := e.AssociationID
		payment.AssociationID = &assocID
	}
	if e.TurnNumber > 0 {
		turn := e.TurnNumber
		payment.TurnNumber = &turn
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return apperrors.Internal("append payment", err)
	}
	return nil
}
