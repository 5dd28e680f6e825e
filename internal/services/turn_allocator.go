package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db"
	"savings-circle/rosca/internal/ledger"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/metrics"
	"savings-circle/rosca/internal/models/dtos"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// TurnAllocator reserves payout slots. A slot goes Available → Reserved once;
// the payout itself is tracked by the membership lifecycle, not here.
type TurnAllocator struct {
	db           *gorm.DB
	ledger       *ledger.Ledger
	feeRecipient *FeeRecipientResolver
	cache        common.CacheInterface
	metrics      *metrics.MetricsRegistry
}

func NewTurnAllocator(
	db *gorm.DB,
	l *ledger.Ledger,
	feeRecipient *FeeRecipientResolver,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) *TurnAllocator {
	return &TurnAllocator{
		db:           db,
		ledger:       l,
		feeRecipient: feeRecipient,
		cache:        cache,
		metrics:      metricsReg,
	}
}

// Reserve books turnID for userID and charges the turn's reservation fee.
//
// Locks are taken association → users → turn, the same order the cycle uses,
// and all checks that feed a decision are repeated under those locks.
func (a *TurnAllocator) Reserve(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
	result, err := a.reserve(ctx, userID, turnID)
	if a.metrics != nil {
		a.metrics.TurnReservationTotal.WithLabelValues(apperrors.Code(err)).Inc()
	}
	if err != nil {
		logReservationFailure(userID, turnID, err)
		return nil, err
	}

	invalidateSummary(a.cache, result.Turn.AssociationID)
	logging.Info("Turn reserved",
		"user_id", userID,
		"turn_id", turnID,
		"association_id", result.Turn.AssociationID,
		"turn_number", result.Turn.TurnNumber,
		"fee_amount", result.Turn.FeeAmount.String(),
	)
	return result, nil
}

func (a *TurnAllocator) reserve(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
	if err := a.checkNotHolding(ctx, a.db, userID); err != nil {
		return nil, err
	}

	var probe gormModels.Turn
	if err := a.db.WithContext(ctx).Where("id = ?", turnID).First(&probe).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound(constants.ErrCodeTurnNotFound, fmt.Sprintf("turn %s not found", turnID))
		}
		return nil, apperrors.Internal("load turn", err)
	}

	recipientID, err := a.feeRecipient.Resolve(ctx)
	if err != nil {
		return nil, apperrors.Internal("resolve fee recipient", err)
	}

	var result *dtos.ReservationResult
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assoc gormModels.Association
		if err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", probe.AssociationID).First(&assoc).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound(constants.ErrCodeAssociationNotFound, "")
			}
			return apperrors.Internal("lock association", err)
		}
		if assoc.Status == constants.AssociationCompleted {
			return apperrors.Conflict(constants.ErrCodeInvalidState,
				fmt.Sprintf("association %s is completed", assoc.ID))
		}

		lockIDs := []string{userID}
		if recipientID != "" && recipientID != userID {
			lockIDs = append(lockIDs, recipientID)
		}
		users, err := a.ledger.LockUsers(ctx, tx, lockIDs)
		if err != nil {
			return err
		}
		user := users[userID]

		if err := a.checkNotHolding(ctx, tx, userID); err != nil {
			return err
		}

		var turn gormModels.Turn
		if err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", turnID).First(&turn).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound(constants.ErrCodeTurnNotFound, fmt.Sprintf("turn %s not found", turnID))
			}
			return apperrors.Internal("lock turn", err)
		}
		if turn.IsTaken {
			return apperrors.Conflict(constants.ErrCodeAlreadyReserved,
				fmt.Sprintf("turn %d is already reserved", turn.TurnNumber))
		}

		if err := ledger.EnsureFunds(user, turn.FeeAmount); err != nil {
			return err
		}

		now := time.Now().UTC()
		res := tx.WithContext(ctx).
			Model(&gormModels.Turn{}).
			Where("id = ? AND is_taken = ?", turn.ID, false).
			Updates(map[string]interface{}{
				"is_taken":  true,
				"user_id":   userID,
				"picked_at": now,
			})
		if res.Error != nil {
			return apperrors.Internal("reserve turn", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperrors.Conflict(constants.ErrCodeAlreadyReserved, "")
		}

		if err := a.chargeReservationFee(ctx, tx, &assoc, &turn, userID, recipientID, now); err != nil {
			return err
		}

		if err := a.attachMembership(ctx, tx, &assoc, userID, turn.TurnNumber); err != nil {
			return err
		}

		result = &dtos.ReservationResult{
			Success: true,
			Turn: dtos.TurnView{
				ID:            turn.ID,
				AssociationID: turn.AssociationID,
				TurnNumber:    turn.TurnNumber,
				FeeAmount:     turn.FeeAmount,
				PickedAt:      now,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkNotHolding fails when the user already has a reserved, unpaid turn anywhere.
func (a *TurnAllocator) checkNotHolding(ctx context.Context, tx *gorm.DB, userID string) error {
	var held gormModels.Turn
	err := tx.WithContext(ctx).
		Where("user_id = ? AND is_taken = ? AND is_completed = ?", userID, true, false).
		First(&held).Error
	if err == nil {
		return apperrors.Conflict(constants.ErrCodeAlreadyHoldingTurn,
			fmt.Sprintf("user already holds turn %d in association %s", held.TurnNumber, held.AssociationID))
	}
	if err != gorm.ErrRecordNotFound {
		return apperrors.Internal("check held turns", err)
	}
	return nil
}

func (a *TurnAllocator) chargeReservationFee(
	ctx context.Context,
	tx *gorm.DB,
	assoc *gormModels.Association,
	turn *gormModels.Turn,
	userID, recipientID string,
	at time.Time,
) error {
	if !turn.FeeAmount.IsPositive() {
		return nil
	}

	if err := a.ledger.Apply(ctx, tx, ledger.Entry{
		UserID:        userID,
		AssociationID: assoc.ID,
		Kind:          constants.PaymentReservation,
		Delta:         turn.FeeAmount.Neg(),
		FeeAmount:     turn.FeeAmount,
		TurnNumber:    turn.TurnNumber,
		At:            at,
	}); err != nil {
		return err
	}

	if recipientID == "" {
		logging.Warn("No fee recipient configured; reservation fee not credited",
			"association_id", assoc.ID,
			"turn_number", turn.TurnNumber,
		)
		return nil
	}
	return a.ledger.Apply(ctx, tx, ledger.Entry{
		UserID:        recipientID,
		AssociationID: assoc.ID,
		Kind:          constants.PaymentFee,
		Delta:         turn.FeeAmount,
		FeeAmount:     turn.FeeAmount,
		TurnNumber:    turn.TurnNumber,
		At:            at,
	})
}

// attachMembership records the reserved turn number on the user's membership,
// joining the association if the user is not yet a member.
func (a *TurnAllocator) attachMembership(ctx context.Context, tx *gorm.DB, assoc *gormModels.Association, userID string, turnNumber int) error {
	var membership gormModels.Membership
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("user_id = ? AND association_id = ?", userID, assoc.ID).
		First(&membership).Error

	if err == gorm.ErrRecordNotFound {
		var members int64
		if err := tx.WithContext(ctx).
			Model(&gormModels.Membership{}).
			Where("association_id = ?", assoc.ID).
			Count(&members).Error; err != nil {
			return apperrors.Internal("count members", err)
		}
		if assoc.MaxMembers > 0 && int(members) >= assoc.MaxMembers {
			return apperrors.Conflict(constants.ErrCodeAssociationFull, "")
		}

		tn := turnNumber
		membership = gormModels.Membership{
			UserID:          userID,
			AssociationID:   assoc.ID,
			TurnNumber:      &tn,
			RemainingAmount: assoc.TotalValue(),
			Status:          constants.MembershipActive,
		}
		if err := tx.WithContext(ctx).Create(&membership).Error; err != nil {
			return apperrors.Internal("create membership", err)
		}
		return nil
	}
	if err != nil {
		return apperrors.Internal("lock membership", err)
	}

	if membership.TurnNumber != nil {
		if *membership.TurnNumber == turnNumber {
			return nil
		}
		return apperrors.Conflict(constants.ErrCodeTurnMismatch,
			fmt.Sprintf("membership already holds turn %d", *membership.TurnNumber))
	}

	if err := tx.WithContext(ctx).
		Model(&gormModels.Membership{}).
		Where("id = ?", membership.ID).
		Update("turn_number", turnNumber).Error; err != nil {
		return apperrors.Internal("assign turn number", err)
	}
	return nil
}

func logReservationFailure(userID, turnID string, err error) {
	if apperrors.IsKind(err, apperrors.KindInternal) {
		logging.Error("Turn reservation failed",
			"user_id", userID,
			"turn_id", turnID,
			"error", err.Error(),
		)
		return
	}
	logging.Info("Turn reservation rejected",
		"user_id", userID,
		"turn_id", turnID,
		"code", apperrors.Code(err),
	)
}
