/*
allocation.go - The allocation ledger

PURPOSE:
  Apply, Edit and Delete grants of available remainder. Every operation
  runs inside one storage transaction: the ceiling is re-derived from rows
  read in that same transaction, the allocation row is written, and the
  beneficiary balance is adjusted - atomically. Two concurrent applies can
  never both see a stale larger ceiling and jointly overspend it.

STATE MACHINE (per allocation):
  created -> (edited)* -> deleted
  No approval workflow; every Apply is immediately effective.

REVERSIBILITY:
  Apply(b, X) followed by Delete of the resulting allocation leaves the
  beneficiary balance and the available remainder numerically identical to
  their pre-Apply values. Deleting never drives a balance negative: if an
  external adjustment already lowered it below the allocation's amount the
  store clamps at zero and the ledger logs the discrepancy.
*/
package fund

import (
	"context"
	"log"
	"sort"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger coordinates allocation mutations and remainder reads over one
// Store.
type Ledger struct {
	store Store
	logf  func(format string, args ...any)
}

// NewLedger creates an allocation ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, logf: log.Printf}
}

// Summary recomputes the remainder picture from current state. This is the
// same code path the write operations use for their ceiling checks.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	view, err := LoadView(ctx, l.store)
	if err != nil {
		return Summary{}, err
	}
	return ComputeSummary(view), nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Apply grants amount to the beneficiary, drawing from the available
// remainder. Fails with ErrInvalidInput for an unknown beneficiary or a
// non-positive amount, and with InsufficientRemainderError when the amount
// exceeds the ceiling computed inside the same transaction.
func (l *Ledger) Apply(ctx context.Context, beneficiaryID BeneficiaryID, amount int64, note string) (Allocation, error) {
	if amount <= 0 {
		return Allocation{}, ErrInvalidInput
	}

	var out Allocation
	err := l.store.WithTx(ctx, func(tx TxStore) error {
		ben, err := tx.Beneficiary(ctx, beneficiaryID)
		if err != nil {
			return err
		}
		if ben == nil {
			return ErrInvalidInput
		}

		view, err := LoadView(ctx, tx)
		if err != nil {
			return err
		}
		sum := ComputeSummary(view)
		if amount > sum.AvailableRemainder {
			return &InsufficientRemainderError{Attempted: amount, Available: sum.AvailableRemainder}
		}

		a := Allocation{
			BeneficiaryID: beneficiaryID,
			Amount:        amount,
			Note:          note,
			CreatedAt:     time.Now().UTC(),
		}
		id, err := tx.InsertAllocation(ctx, a)
		if err != nil {
			return err
		}
		a.ID = id

		if _, err := tx.AdjustBeneficiaryBalance(ctx, beneficiaryID, amount); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// Edit changes an allocation's amount and adjusts the beneficiary balance
// by the delta. An increase re-checks the ceiling with the allocation's
// own old amount excluded, so editing 4,000 up to 5,000 only needs 1,000
// of headroom.
func (l *Ledger) Edit(ctx context.Context, id AllocationID, newAmount int64) (Allocation, error) {
	if newAmount <= 0 {
		return Allocation{}, ErrInvalidInput
	}

	var out Allocation
	err := l.store.WithTx(ctx, func(tx TxStore) error {
		existing, err := tx.Allocation(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return &NotFoundError{Kind: "allocation", ID: int64(id)}
		}

		delta := newAmount - existing.Amount
		if delta > 0 {
			view, err := LoadView(ctx, tx)
			if err != nil {
				return err
			}
			sum := ComputeSummary(view)
			// The ceiling with this allocation's own old amount excluded is
			// available + oldAmount. The error reports the requested amount
			// against that ceiling, so the operator sees absolute figures
			// rather than the delta.
			ceiling := sum.AvailableRemainder + existing.Amount
			if newAmount > ceiling {
				return &InsufficientRemainderError{Attempted: newAmount, Available: ceiling}
			}
		}

		if err := tx.UpdateAllocationAmount(ctx, id, newAmount); err != nil {
			return err
		}
		if _, err := tx.AdjustBeneficiaryBalance(ctx, existing.BeneficiaryID, delta); err != nil {
			return err
		}

		out = *existing
		out.Amount = newAmount
		return nil
	})
	return out, err
}

// Delete removes the allocation and reverses its effect on the
// beneficiary balance.
func (l *Ledger) Delete(ctx context.Context, id AllocationID) error {
	return l.store.WithTx(ctx, func(tx TxStore) error {
		existing, err := tx.Allocation(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return &NotFoundError{Kind: "allocation", ID: int64(id)}
		}

		if err := tx.DeleteAllocation(ctx, id); err != nil {
			return err
		}
		clamped, err := tx.AdjustBeneficiaryBalance(ctx, existing.BeneficiaryID, -existing.Amount)
		if err != nil {
			return err
		}
		if clamped {
			// An external adjustment already spent part of this grant; the
			// balance floor is zero, not negative.
			l.logf("allocation %d: reversal of %d clamped beneficiary %d at zero",
				id, existing.Amount, existing.BeneficiaryID)
		}
		return nil
	})
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryEntry is one allocation with its beneficiary's display name
// joined in.
type HistoryEntry struct {
	Allocation
	BeneficiaryName string
}

// History lists allocations newest-first.
func (l *Ledger) History(ctx context.Context) ([]HistoryEntry, error) {
	allocations, err := l.store.Allocations(ctx)
	if err != nil {
		return nil, err
	}
	beneficiaries, err := l.store.Beneficiaries(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[BeneficiaryID]string, len(beneficiaries))
	for _, b := range beneficiaries {
		names[b.ID] = b.Name
	}

	entries := make([]HistoryEntry, 0, len(allocations))
	for _, a := range allocations {
		entries = append(entries, HistoryEntry{Allocation: a, BeneficiaryName: names[a.BeneficiaryID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
