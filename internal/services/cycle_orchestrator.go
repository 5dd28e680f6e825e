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
	"savings-circle/rosca/internal/lifecycle"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/metrics"
	"savings-circle/rosca/internal/models/dtos"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// CycleOrchestrator runs one collect → fee → payout step for an association.
type CycleOrchestrator struct {
	db           *gorm.DB
	ledger       *ledger.Ledger
	feeRecipient *FeeRecipientResolver
	cache        common.CacheInterface
	events       common.CycleEventPublisher
	metrics      *metrics.MetricsRegistry
}

func NewCycleOrchestrator(
	db *gorm.DB,
	l *ledger.Ledger,
	feeRecipient *FeeRecipientResolver,
	cache common.CacheInterface,
	events common.CycleEventPublisher,
	metricsReg *metrics.MetricsRegistry,
) *CycleOrchestrator {
	return &CycleOrchestrator{
		db:           db,
		ledger:       l,
		feeRecipient: feeRecipient,
		cache:        cache,
		events:       events,
		metrics:      metricsReg,
	}
}

// cycleRun accumulates the state of one transaction attempt.
type cycleRun struct {
	assoc       gormModels.Association
	recipientID string
	result      *dtos.CycleResult
	settled     bool
}

func (r *cycleRun) log(action, userID string, kind constants.PaymentKind, amount decimal.Decimal, note string) {
	r.result.Logs = append(r.result.Logs, dtos.CycleLogEntry{
		Action: action,
		UserID: userID,
		Kind:   string(kind),
		Amount: amount,
		Note:   note,
	})
}

// TriggerCycle pays out the next turn of associationID. The whole step is
// one transaction: any failure leaves no observable money movement.
// Re-triggering a completed association is a no-op that reports completion.
func (o *CycleOrchestrator) TriggerCycle(ctx context.Context, associationID string) (*dtos.CycleResult, error) {
	start := time.Now()

	run, err := o.trigger(ctx, associationID)

	if o.metrics != nil {
		o.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		o.metrics.CyclesTotal.WithLabelValues(apperrors.Code(err)).Inc()
	}
	if err != nil {
		logCycleFailure(associationID, err)
		return nil, err
	}

	invalidateSummary(o.cache, associationID)
	if run.settled {
		o.afterSettle(ctx, run)
	}
	return run.result, nil
}

func (o *CycleOrchestrator) trigger(ctx context.Context, associationID string) (*cycleRun, error) {
	feeRecipientID, err := o.feeRecipient.Resolve(ctx)
	if err != nil {
		return nil, apperrors.Internal("resolve fee recipient", err)
	}

	var run *cycleRun
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run = &cycleRun{
			recipientID: feeRecipientID,
			result: &dtos.CycleResult{
				AssociationID: associationID,
				TotalPot:      decimal.Zero,
				FeePercent:    decimal.Zero,
				FeeAmount:     decimal.Zero,
				PayoutAmount:  decimal.Zero,
				Logs:          []dtos.CycleLogEntry{},
			},
		}
		return o.runCycle(ctx, tx, associationID, run)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (o *CycleOrchestrator) runCycle(ctx context.Context, tx *gorm.DB, associationID string, run *cycleRun) error {
	// 1. Serialize cycles per association.
	if err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", associationID).First(&run.assoc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound(constants.ErrCodeAssociationNotFound,
				fmt.Sprintf("association %s not found", associationID))
		}
		return apperrors.Internal("lock association", err)
	}
	assoc := &run.assoc

	// 2. Auto-promote; completed is a no-op.
	switch assoc.Status {
	case constants.AssociationCompleted:
		o.completedResult(run, "association already completed")
		return nil
	case constants.AssociationPending:
		if err := lifecycle.TransitionAssociation(ctx, tx, assoc, constants.AssociationActive); err != nil {
			return err
		}
		run.log("status", "", "", decimal.Zero, "pending -> active")
	case constants.AssociationActive:
	default:
		return apperrors.Conflict(constants.ErrCodeInvalidState,
			fmt.Sprintf("association %s has unknown status %q", assoc.ID, assoc.Status))
	}

	// 3. Progress is derived, never stored.
	turnNumber, err := lifecycle.CurrentTurnNumber(ctx, tx, assoc.ID)
	if err != nil {
		return err
	}
	if turnNumber > assoc.Duration {
		if err := lifecycle.TransitionAssociation(ctx, tx, assoc, constants.AssociationCompleted); err != nil {
			return err
		}
		o.completedResult(run, "all turns already paid; association completed")
		return nil
	}
	run.result.TurnNumber = turnNumber

	// 4. The recipient is whoever holds this turn number.
	var recipient gormModels.Membership
	err = db.ForUpdate(tx.WithContext(ctx)).
		Where("association_id = ? AND turn_number = ?", assoc.ID, turnNumber).
		First(&recipient).Error
	if err == gorm.ErrRecordNotFound {
		return apperrors.NotFound(constants.ErrCodeNoRecipient,
			fmt.Sprintf("no membership holds turn %d of association %s", turnNumber, assoc.ID))
	}
	if err != nil {
		return apperrors.Internal("load recipient", err)
	}
	run.result.RecipientID = recipient.UserID

	// 5. Collect from every other active member, all or nothing.
	var contributors []gormModels.Membership
	if err := db.ForUpdate(tx.WithContext(ctx)).
		Where("association_id = ? AND status = ? AND id <> ?", assoc.ID, constants.MembershipActive, recipient.ID).
		Order("turn_number").
		Find(&contributors).Error; err != nil {
		return apperrors.Internal("load contributors", err)
	}

	lockIDs := make([]string, 0, len(contributors)+2)
	lockIDs = append(lockIDs, recipient.UserID)
	for _, c := range contributors {
		lockIDs = append(lockIDs, c.UserID)
	}
	if run.recipientID != "" {
		lockIDs = append(lockIDs, run.recipientID)
	}
	users, err := o.ledger.LockUsers(ctx, tx, dedupe(lockIDs))
	if err != nil {
		return err
	}

	var shortfalls []apperrors.Shortfall
	for _, c := range contributors {
		if u := users[c.UserID]; u.WalletBalance.LessThan(assoc.MonthlyAmount) {
			shortfalls = append(shortfalls, apperrors.Shortfall{
				UserID:         c.UserID,
				RequiredAmount: assoc.MonthlyAmount,
				CurrentBalance: u.WalletBalance,
			})
		}
	}
	if len(shortfalls) > 0 {
		return apperrors.ContributionShortfall(shortfalls)
	}

	now := time.Now().UTC()
	totalPot := decimal.Zero
	for _, c := range contributors {
		if err := o.ledger.Apply(ctx, tx, ledger.Entry{
			UserID:        c.UserID,
			AssociationID: assoc.ID,
			Kind:          constants.PaymentContribution,
			Delta:         assoc.MonthlyAmount.Neg(),
			TurnNumber:    turnNumber,
			At:            now,
		}); err != nil {
			return err
		}
		totalPot = totalPot.Add(assoc.MonthlyAmount)
		run.log("debit", c.UserID, constants.PaymentContribution, assoc.MonthlyAmount, "")
	}

	// 6. Fee is taken off the association's total value, not the pot.
	feePercent := fees.RatioForTurn(assoc.Duration, turnNumber)
	feeAmount := fees.FeeAmount(assoc.Duration, turnNumber, assoc.MonthlyAmount)
	payout := totalPot.Sub(feeAmount)
	if payout.IsNegative() {
		return apperrors.Conflict(constants.ErrCodeInvalidState,
			fmt.Sprintf("collected pot %s does not cover fee %s", totalPot.StringFixed(2), feeAmount.StringFixed(2)))
	}
	run.result.TotalPot = totalPot
	run.result.FeePercent = feePercent
	run.result.FeeAmount = feeAmount
	run.result.PayoutAmount = payout

	// 7. Fee (negative on the rebate turn) to the fee recipient.
	switch {
	case run.recipientID == "":
		logging.Warn("No fee recipient available; skipping fee credit",
			"association_id", assoc.ID,
			"turn_number", turnNumber,
			"fee_amount", feeAmount.String(),
		)
		run.log("warning", "", constants.PaymentFee, feeAmount, "no fee recipient; fee not credited")
	case !feeAmount.IsZero():
		if err := o.ledger.Apply(ctx, tx, ledger.Entry{
			UserID:        run.recipientID,
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
		run.log("credit", run.recipientID, constants.PaymentFee, feeAmount, "")
	}

	// 8. Payout and the recipient's one-way flip.
	if err := o.ledger.Apply(ctx, tx, ledger.Entry{
		UserID:        recipient.UserID,
		AssociationID: assoc.ID,
		Kind:          constants.PaymentPayout,
		Delta:         payout,
		FeeAmount:     feeAmount,
		FeePercent:    feePercent,
		TurnNumber:    turnNumber,
		At:            now,
	}); err != nil {
		return err
	}
	run.log("credit", recipient.UserID, constants.PaymentPayout, payout, "")

	if err := lifecycle.MarkReceived(ctx, tx, &recipient, now); err != nil {
		return err
	}

	// 9. Last turn closes the association.
	if turnNumber == assoc.Duration {
		if err := lifecycle.TransitionAssociation(ctx, tx, assoc, constants.AssociationCompleted); err != nil {
			return err
		}
		run.log("status", "", "", decimal.Zero, "active -> completed")
	}

	run.settled = true
	run.result.Success = true
	run.result.Status = string(assoc.Status)
	run.result.Message = fmt.Sprintf("turn %d of %d paid out", turnNumber, assoc.Duration)
	return nil
}

func (o *CycleOrchestrator) completedResult(run *cycleRun, message string) {
	run.result.Success = true
	run.result.Status = string(constants.AssociationCompleted)
	run.result.Message = message
	run.result.TurnNumber = 0
}

func (o *CycleOrchestrator) afterSettle(ctx context.Context, run *cycleRun) {
	r := run.result

	if o.metrics != nil {
		o.metrics.PayoutAmountTotal.Add(r.PayoutAmount.InexactFloat64())
		if r.FeeAmount.IsPositive() && run.recipientID != "" {
			o.metrics.FeeAmountTotal.Add(r.FeeAmount.InexactFloat64())
		}
	}

	logging.Info("Cycle settled",
		"association_id", r.AssociationID,
		"turn_number", r.TurnNumber,
		"recipient_id", r.RecipientID,
		"total_pot", r.TotalPot.String(),
		"fee_amount", r.FeeAmount.String(),
		"payout_amount", r.PayoutAmount.String(),
		"status", r.Status,
	)

	if o.events == nil {
		return
	}
	eventType := constants.CycleEventSettled
	if r.Status == string(constants.AssociationCompleted) {
		eventType = constants.CycleEventCompleted
	}
	event := &dtos.CycleEvent{
		Type:          eventType,
		AssociationID: r.AssociationID,
		TurnNumber:    r.TurnNumber,
		RecipientID:   r.RecipientID,
		PayoutAmount:  r.PayoutAmount,
		FeeAmount:     r.FeeAmount,
		Status:        r.Status,
		OccurredAt:    time.Now().UTC(),
	}
	// The cycle has committed; a lost event is logged, not surfaced.
	if err := o.events.PublishCycleEvent(ctx, event); err != nil {
		logging.Warn("Failed to publish cycle event",
			"association_id", r.AssociationID,
			"turn_number", r.TurnNumber,
			"error", err.Error(),
		)
	}
}

func logCycleFailure(associationID string, err error) {
	if apperrors.IsKind(err, apperrors.KindInternal) {
		logging.Error("Cycle failed",
			"association_id", associationID,
			"error", err.Error(),
		)
		return
	}
	logging.Info("Cycle rejected",
		"association_id", associationID,
		"code", apperrors.Code(err),
		"error", err.Error(),
	)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
