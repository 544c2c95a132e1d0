/*
Package fund is the reconciliation and allocation core of the fund-raising
ledger.

PURPOSE:
  This package holds the domain records for a community fund-raising cycle
  (movements, collections, sponsorships, dinners, beneficiary households)
  and the logic that turns them into one consistent picture: the posted
  balance, the projected surplus from dinners that have not yet been copied
  into the books, and the remainder that is actually available to hand out
  to beneficiaries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Movement: a posted revenue or expense line, signed by its category kind
  - Dinner/Guest: a ticketed event whose profit is speculative until posted
  - Beneficiary: a fixed household account that accumulates granted surplus
  - Allocation: one reversible grant of remainder to one beneficiary

DESIGN PRINCIPLES:
  1. Integer money: all amounts are int64 minor units (cents). Display
     conversion lives in the money package, never here.
  2. Non-negative storage: Movement.Amount is stored >= 0; the sign comes
     from the category kind at aggregation time.
  3. Derived balances: the posted balance and the remainder are always
     recomputed from rows, never cached.

SEE ALSO:
  - balance.go: aggregation of posted balance and projected surplus
  - posting.go: "has this dinner been posted" detection
  - remainder.go: the remainder summary
  - allocation.go: the transactional allocation ledger
*/
package fund

import "time"

// =============================================================================
// CATEGORY KIND
// =============================================================================

// CategoryKind tags a movement category as revenue or expense.
type CategoryKind string

const (
	KindRevenue CategoryKind = "revenue"
	KindExpense CategoryKind = "expense"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MovementID int64
type DinnerID int64
type BeneficiaryID int64
type AllocationID int64

// =============================================================================
// LEDGER ROWS
// =============================================================================

// Movement is a single posted transaction. Amount is stored non-negative;
// whether it adds or removes funds is decided by Kind.
type Movement struct {
	ID          MovementID
	Date        string // YYYY-MM-DD, empty when unknown
	Category    string
	Kind        CategoryKind
	Description string
	Amount      int64
}

// Collection is a fixed-income event (door-to-door fundraising and the
// like). Always counted as revenue.
type Collection struct {
	ID       int64
	Date     string
	Location string
	Team     string
	Amount   int64
	Notes    string
}

// Sponsorship tracks a promised and a delivered amount independently.
// Only Delivered counts toward the posted balance.
type Sponsorship struct {
	ID        int64
	Name      string
	Contact   string
	Promised  int64
	Delivered int64
	Notes     string
}

// Guest is one registered diner: an agreed price, the amount actually paid,
// and whether they showed up.
type Guest struct {
	ID       int64
	DinnerID DinnerID
	Name     string
	Contact  string
	Price    int64
	Paid     int64
	Present  bool
}

// ExpenseItem is one expense line of a dinner.
type ExpenseItem struct {
	ID          int64
	DinnerID    DinnerID
	Description string
	Amount      int64
}

// Dinner is a ticketed event. GuestCount and BasePrice are the legacy
// "declared" figures used when no guests are registered; Expense is the
// aggregate figure used when no expense line items exist.
type Dinner struct {
	ID         DinnerID
	Date       string
	Title      string
	GuestCount int
	BasePrice  int64
	Expense    int64
	Guests     []Guest
	Expenses   []ExpenseItem
}

// Beneficiary is a fixed household account. Balance is only ever moved by
// the allocation ledger and the block rotation, and never goes negative.
type Beneficiary struct {
	ID      BeneficiaryID
	Name    string
	Balance int64
}

// Allocation is one reversible grant of available remainder to a
// beneficiary.
type Allocation struct {
	ID            AllocationID
	BeneficiaryID BeneficiaryID
	Amount        int64
	Note          string
	CreatedAt     time.Time
}

// Settings is the singleton configuration row. It is always passed into
// the rotation planner as an explicit value; nothing in this package reads
// it ambiently.
type Settings struct {
	Line1           string
	Line2           string
	BlockSize       int64 // rotation block, minor units
	RotationStartID BeneficiaryID
	BlocksApplied   int
}

// DefaultBlockSize is used when the settings row carries no positive block
// size (5,000.00 in minor units).
const DefaultBlockSize int64 = 500000

// EffectiveBlockSize returns the configured block size, falling back to
// DefaultBlockSize when unset or non-positive.
func (s Settings) EffectiveBlockSize() int64 {
	if s.BlockSize > 0 {
		return s.BlockSize
	}
	return DefaultBlockSize
}
