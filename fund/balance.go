/*
balance.go - Balance calculation from ledger rows

PURPOSE:
  Pure aggregation over a loaded LedgerView. No side effects, no storage
  access: callers load a view (usually inside the same transaction that
  will write) and every derived figure is computed from that one snapshot,
  so the number a screen shows and the number a write validates can never
  drift apart.

FORMULAS:
  postedBalance   = revenue movements - expense movements
                    + collections + delivered sponsorships
  dinnerRevenue   = sum of guests' paid amounts, or declared
                    guestCount x basePrice when no guests are registered
  dinnerExpenses  = sum of expense line items, or the aggregate expense
                    field when none exist
  projectedSurplus = sum over UNPOSTED dinners of revenue - expenses

Sources that are empty or absent simply contribute zero.
*/
package fund

import "context"

// =============================================================================
// LEDGER VIEW - One consistent snapshot of every source
// =============================================================================

// LedgerView holds every row the calculators aggregate, loaded at one
// point in time (ideally inside one storage transaction).
type LedgerView struct {
	Movements     []Movement
	Collections   []Collection
	Sponsorships  []Sponsorship
	Dinners       []Dinner
	Beneficiaries []Beneficiary
	Allocations   []Allocation
}

// LoadView reads every source through r. Absent optional sources arrive as
// empty slices (the store degrades them), so a partially migrated database
// still reconciles.
func LoadView(ctx context.Context, r Reader) (*LedgerView, error) {
	v := &LedgerView{}
	var err error

	if v.Movements, err = r.Movements(ctx); err != nil {
		return nil, err
	}
	if v.Collections, err = r.Collections(ctx); err != nil {
		return nil, err
	}
	if v.Sponsorships, err = r.Sponsorships(ctx); err != nil {
		return nil, err
	}
	if v.Dinners, err = r.Dinners(ctx); err != nil {
		return nil, err
	}
	if v.Beneficiaries, err = r.Beneficiaries(ctx); err != nil {
		return nil, err
	}
	if v.Allocations, err = r.Allocations(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

// PostedBalance is the confirmed position: movements signed by category
// kind, plus collections, plus delivered sponsorship money.
func PostedBalance(v *LedgerView) int64 {
	var total int64
	for _, m := range v.Movements {
		switch m.Kind {
		case KindExpense:
			total -= m.Amount
		default:
			total += m.Amount
		}
	}
	for _, c := range v.Collections {
		total += c.Amount
	}
	for _, s := range v.Sponsorships {
		total += s.Delivered
	}
	return total
}

// DinnerRevenue prefers what guests actually paid; a dinner with no
// registered guests falls back to the declared head count times the base
// price.
func DinnerRevenue(d Dinner) int64 {
	if len(d.Guests) == 0 {
		return int64(d.GuestCount) * d.BasePrice
	}
	var total int64
	for _, g := range d.Guests {
		total += g.Paid
	}
	return total
}

// DinnerExpenses sums expense line items, or uses the aggregate expense
// field when no line items were recorded.
func DinnerExpenses(d Dinner) int64 {
	if len(d.Expenses) == 0 {
		return d.Expense
	}
	var total int64
	for _, e := range d.Expenses {
		total += e.Amount
	}
	return total
}

// ProjectedSurplus is the speculative profit of dinners whose revenue has
// not yet been copied into the movements. A posted dinner contributes
// nothing; counting it again would double its revenue.
func ProjectedSurplus(v *LedgerView) int64 {
	var total int64
	for _, d := range v.Dinners {
		if IsPosted(d, v.Movements) {
			continue
		}
		total += DinnerRevenue(d) - DinnerExpenses(d)
	}
	return total
}

// TotalBeneficiaryBalance sums the accumulated balance of every household.
func TotalBeneficiaryBalance(v *LedgerView) int64 {
	var total int64
	for _, b := range v.Beneficiaries {
		total += b.Balance
	}
	return total
}

// AppliedRemainder sums every allocation currently recorded.
func AppliedRemainder(v *LedgerView) int64 {
	var total int64
	for _, a := range v.Allocations {
		total += a.Amount
	}
	return total
}
