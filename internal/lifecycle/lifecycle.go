// Package lifecycle holds the association and payout state machines.
//
// Associations move pending → active → completed and never back. A
// membership's payout flag moves false → true exactly once. Transitions
// are applied as guarded UPDATEs so a concurrent or repeated caller
// cannot regress or double-apply them.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

var associationTransitions = map[constants.AssociationStatus]constants.AssociationStatus{
	constants.AssociationPending: constants.AssociationActive,
	constants.AssociationActive:  constants.AssociationCompleted,
}

// CanTransition reports whether from → to is a single forward step.
func CanTransition(from, to constants.AssociationStatus) bool {
	next, ok := associationTransitions[from]
	return ok && next == to
}

// IsTerminal reports whether no further transition exists.
func IsTerminal(status constants.AssociationStatus) bool {
	_, ok := associationTransitions[status]
	return !ok
}

// TransitionAssociation moves the association one step forward. It must run
// inside the transaction that holds the association row lock.
func TransitionAssociation(ctx context.Context, tx *gorm.DB, assoc *gormModels.Association, to constants.AssociationStatus) error {
	if !CanTransition(assoc.Status, to) {
		return apperrors.Conflict(constants.ErrCodeInvalidState,
			fmt.Sprintf("association %s cannot move from %s to %s", assoc.ID, assoc.Status, to))
	}

	updates := map[string]interface{}{"status": to}
	var completedAt time.Time
	if to == constants.AssociationCompleted {
		completedAt = time.Now().UTC()
		updates["completed_at"] = completedAt
	}

	res := tx.WithContext(ctx).
		Model(&gormModels.Association{}).
		Where("id = ? AND status = ?", assoc.ID, assoc.Status).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Internal("update association status", res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.Conflict(constants.ErrCodeInvalidState,
			fmt.Sprintf("association %s changed state concurrently", assoc.ID))
	}

	assoc.Status = to
	if to == constants.AssociationCompleted {
		assoc.CompletedAt = &completedAt
		res := tx.WithContext(ctx).
			Model(&gormModels.Membership{}).
			Where("association_id = ? AND status <> ?", assoc.ID, constants.MembershipCompleted).
			Update("status", constants.MembershipCompleted)
		if res.Error != nil {
			return apperrors.Internal("complete memberships", res.Error)
		}
	}
	return nil
}

// MarkReceived flips a membership's payout flag and closes its turn slot.
func MarkReceived(ctx context.Context, tx *gorm.DB, m *gormModels.Membership, at time.Time) error {
	res := tx.WithContext(ctx).
		Model(&gormModels.Membership{}).
		Where("id = ? AND has_received = ?", m.ID, false).
		Updates(map[string]interface{}{
			"has_received":       true,
			"last_received_date": at,
		})
	if res.Error != nil {
		return apperrors.Internal("mark membership received", res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.Conflict(constants.ErrCodeInvalidState,
			fmt.Sprintf("membership %s already received its payout", m.ID))
	}
	m.HasReceived = true
	m.LastReceivedDate = &at

	if m.TurnNumber == nil {
		return nil
	}
	res = tx.WithContext(ctx).
		Model(&gormModels.Turn{}).
		Where("association_id = ? AND turn_number = ? AND is_completed = ?", m.AssociationID, *m.TurnNumber, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
	if res.Error != nil {
		return apperrors.Internal("complete turn", res.Error)
	}
	return nil
}

// CurrentTurnNumber derives progress from the received count rather than a
// stored counter: count(has_received) + 1.
func CurrentTurnNumber(ctx context.Context, tx *gorm.DB, associationID string) (int, error) {
	var received int64
	err := tx.WithContext(ctx).
		Model(&gormModels.Membership{}).
		Where("association_id = ? AND has_received = ?", associationID, true).
		Count(&received).Error
	if err != nil {
		return 0, apperrors.Internal("count received memberships", err)
	}
	return int(received) + 1, nil
}
