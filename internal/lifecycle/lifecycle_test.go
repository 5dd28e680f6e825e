package lifecycle

import (
	"context"
	"testing"
	"time"

	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db/dbtest"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to constants.AssociationStatus
		want     bool
	}{
		{constants.AssociationPending, constants.AssociationActive, true},
		{constants.AssociationActive, constants.AssociationCompleted, true},
		{constants.AssociationPending, constants.AssociationCompleted, false},
		{constants.AssociationActive, constants.AssociationPending, false},
		{constants.AssociationCompleted, constants.AssociationActive, false},
		{constants.AssociationCompleted, constants.AssociationCompleted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if !IsTerminal(constants.AssociationCompleted) || IsTerminal(constants.AssociationActive) {
		t.Error("Expected only completed to be terminal")
	}
}

func TestTransitionAssociation(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	f := dbtest.SeedAssociation(t, gdb, 2, dbtest.Money(t, "10"), dbtest.Money(t, "100"))
	assoc := f.Association

	if err := TransitionAssociation(ctx, gdb, assoc, constants.AssociationCompleted); !apperrors.IsCode(err, constants.ErrCodeInvalidState) {
		t.Fatalf("Expected skipping a state to fail, got %v", err)
	}

	if err := TransitionAssociation(ctx, gdb, assoc, constants.AssociationActive); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// A stale copy still thinks the association is pending.
	stale := *assoc
	stale.Status = constants.AssociationPending
	if err := TransitionAssociation(ctx, gdb, &stale, constants.AssociationActive); !apperrors.IsCode(err, constants.ErrCodeInvalidState) {
		t.Fatalf("Expected concurrent change to be rejected, got %v", err)
	}

	if err := TransitionAssociation(ctx, gdb, assoc, constants.AssociationCompleted); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if assoc.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}

	var open int64
	gdb.Model(&gormModels.Membership{}).
		Where("association_id = ? AND status <> ?", assoc.ID, constants.MembershipCompleted).
		Count(&open)
	if open != 0 {
		t.Errorf("Expected all memberships completed, %d still open", open)
	}
}

func TestMarkReceived(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	f := dbtest.SeedAssociation(t, gdb, 3, dbtest.Money(t, "10"), dbtest.Money(t, "100"))

	n, err := CurrentTurnNumber(ctx, gdb, f.Association.ID)
	if err != nil || n != 1 {
		t.Fatalf("Expected current turn 1, got %d (%v)", n, err)
	}

	m := f.Memberships[0]
	if err := MarkReceived(ctx, gdb, m, time.Now().UTC()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !m.HasReceived || m.LastReceivedDate == nil {
		t.Error("Expected in-memory membership updated")
	}

	var turn gormModels.Turn
	gdb.Where("association_id = ? AND turn_number = ?", f.Association.ID, 1).First(&turn)
	if !turn.IsCompleted {
		t.Error("Expected turn 1 completed")
	}

	copyOf := *f.Memberships[0]
	copyOf.HasReceived = false
	if err := MarkReceived(ctx, gdb, &copyOf, time.Now().UTC()); !apperrors.IsCode(err, constants.ErrCodeInvalidState) {
		t.Fatalf("Expected second payout to be rejected, got %v", err)
	}

	n, _ = CurrentTurnNumber(ctx, gdb, f.Association.ID)
	if n != 2 {
		t.Errorf("Expected current turn 2, got %d", n)
	}
}
