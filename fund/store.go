/*
store.go - Persistence interfaces for the fund core

PURPOSE:
  The core never touches SQL directly. Reads go through Reader, writes
  through Writer, and every allocation mutation runs inside WithTx so the
  ceiling check and the resulting write observe the same state.

TRANSACTION DISCIPLINE:
  WithTx hands the callback a TxStore whose reads and writes all happen in
  one storage transaction. If the callback returns an error the whole
  operation rolls back, so an allocation row and its beneficiary balance
  can never diverge, even under process interruption.

DEGRADED SOURCES:
  Implementations must report an optional source (collections,
  sponsorships, guest or expense tables) that does not exist yet as empty,
  not as an error. Richer schema variants were added incrementally and
  reconciliation stays available on partially migrated data.
*/
package fund

import "context"

// Reader provides read access to every source the calculators aggregate.
type Reader interface {
	Movements(ctx context.Context) ([]Movement, error)
	Collections(ctx context.Context) ([]Collection, error)
	Sponsorships(ctx context.Context) ([]Sponsorship, error)

	// Dinners returns dinners with their guests and expense items loaded.
	Dinners(ctx context.Context) ([]Dinner, error)

	Beneficiaries(ctx context.Context) ([]Beneficiary, error)

	// Beneficiary returns nil, nil when the row does not exist.
	Beneficiary(ctx context.Context, id BeneficiaryID) (*Beneficiary, error)

	Allocations(ctx context.Context) ([]Allocation, error)

	// Allocation returns nil, nil when the row does not exist.
	Allocation(ctx context.Context, id AllocationID) (*Allocation, error)

	Settings(ctx context.Context) (Settings, error)
}

// Writer is the mutation surface of the allocation ledger and the block
// rotation. These are the ONLY writers allowed to touch beneficiary
// balances.
type Writer interface {
	InsertAllocation(ctx context.Context, a Allocation) (AllocationID, error)
	UpdateAllocationAmount(ctx context.Context, id AllocationID, amount int64) error
	DeleteAllocation(ctx context.Context, id AllocationID) error

	// AdjustBeneficiaryBalance applies a signed delta, clamping the result
	// at zero. It reports whether clamping occurred.
	AdjustBeneficiaryBalance(ctx context.Context, id BeneficiaryID, delta int64) (clamped bool, err error)

	// AddBlocksApplied advances the rotation's applied-block counter.
	AddBlocksApplied(ctx context.Context, n int) error
}

// TxStore is the view handed to a WithTx callback.
type TxStore interface {
	Reader
	Writer
}

// Store is what the allocation ledger is built on.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}
