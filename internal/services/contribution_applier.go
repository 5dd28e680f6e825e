package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db"
	"savings-circle/rosca/internal/fees"
	"savings-circle/rosca/internal/ledger"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/metrics"
	"savings-circle/rosca/internal/models/dtos"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// ContributionApplier lets a member pay down their own remaining amount one
// installment at a time. It shares the fee schedule and the ledger with the
// cycle so both paths charge the same fee for the same turn.
type ContributionApplier struct {
	db           *gorm.DB
	ledger       *ledger.Ledger
	feeRecipient *FeeRecipientResolver
	cache        common.CacheInterface
	metrics      *metrics.MetricsRegistry
}

func NewContributionApplier(
	db *gorm.DB,
	l *ledger.Ledger,
	feeRecipient *FeeRecipientResolver,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) *ContributionApplier {
	return &ContributionApplier{
		db:           db,
		ledger:       l,
		feeRecipient: feeRecipient,
		cache:        cache,
		metrics:      metricsReg,
	}
}

// Pay applies one installment: min(monthly, remaining). The fee share goes to
// the fee recipient, the net to the association pool.
func (c *ContributionApplier) Pay(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error) {
	result, err := c.pay(ctx, userID, associationID)
	if c.metrics != nil {
		c.metrics.InstallmentsTotal.WithLabelValues(apperrors.Code(err)).Inc()
	}
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			logging.Error("Installment failed",
				"user_id", userID,
				"association_id", associationID,
				"error", err.Error(),
			)
		}
		return nil, err
	}

	invalidateSummary(c.cache, associationID)
	logging.Info("Installment applied",
		"user_id", userID,
		"association_id", associationID,
		"amount", result.Payment.Amount.String(),
		"fee_amount", result.Payment.FeeAmount.String(),
		"remaining_amount", result.Payment.RemainingAmount.String(),
	)
	return result, nil
}

func (c *ContributionApplier) pay(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error) {
	recipientID, err := c.feeRecipient.Resolve(ctx)
	if err != nil {
		return nil, apperrors.Internal("resolve fee recipient", err)
	}

	var result *dtos.ContributionResult
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assoc gormModels.Association
		if err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", associationID).First(&assoc).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound(constants.ErrCodeAssociationNotFound,
					fmt.Sprintf("association %s not found", associationID))
			}
			return apperrors.Internal("lock association", err)
		}

		lockIDs := []string{userID}
		if recipientID != "" && recipientID != userID {
			lockIDs = append(lockIDs, recipientID)
		}
		users, err := c.ledger.LockUsers(ctx, tx, lockIDs)
		if err != nil {
			return err
		}

		var membership gormModels.Membership
		if err := db.ForUpdate(tx.WithContext(ctx)).
			Where("user_id = ? AND association_id = ?", userID, associationID).
			First(&membership).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound(constants.ErrCodeMembershipNotFound, "")
			}
			return apperrors.Internal("lock membership", err)
		}
		if !membership.RemainingAmount.IsPositive() {
			return apperrors.Conflict(constants.ErrCodeNothingOwed, "")
		}
		if membership.TurnNumber == nil {
			return apperrors.Conflict(constants.ErrCodeNoTurnAssigned, "")
		}

		amount := decimal.Min(assoc.MonthlyAmount, membership.RemainingAmount)
		if err := ledger.EnsureFunds(users[userID], amount); err != nil {
			return err
		}

		turnNumber := *membership.TurnNumber
		feePercent := fees.RatioForTurn(assoc.Duration, turnNumber)
		feeAmount := feePercent.Mul(amount)
		net := amount.Sub(feeAmount)
		now := time.Now().UTC()

		if err := c.ledger.Apply(ctx, tx, ledger.Entry{
			UserID:        userID,
			AssociationID: assoc.ID,
			Kind:          constants.PaymentInstallment,
			Delta:         amount.Neg(),
			FeeAmount:     feeAmount,
			FeePercent:    feePercent,
			TurnNumber:    turnNumber,
			At:            now,
		}); err != nil {
			return err
		}

		switch {
		case recipientID == "":
			// Without a recipient the fee share stays in the pool.
			logging.Warn("No fee recipient available; installment fee kept in pool",
				"association_id", assoc.ID,
				"turn_number", turnNumber,
			)
			net = amount
		case !feeAmount.IsZero():
			if err := c.ledger.Apply(ctx, tx, ledger.Entry{
				UserID:        recipientID,
				AssociationID: assoc.ID,
				Kind:          constants.PaymentFee,
				Delta:         feeAmount,
				FeeAmount:     feeAmount,
				FeePercent:    feePercent,
				TurnNumber:    turnNumber,
				At:            now,
			}); err != nil {
				return err
			}
		}

		if err := c.ledger.CreditPool(ctx, tx, assoc.ID, net); err != nil {
			return err
		}

		remaining := membership.RemainingAmount.Sub(amount)
		if err := tx.WithContext(ctx).
			Model(&gormModels.Membership{}).
			Where("id = ?", membership.ID).
			Update("remaining_amount", gorm.Expr("remaining_amount - ?", amount)).Error; err != nil {
			return apperrors.Internal("decrement remaining amount", err)
		}

		result = &dtos.ContributionResult{
			Success: true,
			Payment: dtos.PaymentView{
				Amount:          amount,
				FeeAmount:       feeAmount,
				FeePercent:      feePercent,
				NetAmount:       net,
				RemainingAmount: remaining,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
