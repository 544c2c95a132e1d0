package fund_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/festa/fund-ledger/fund"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func revenue(amount int64, descr string) fund.Movement {
	return fund.Movement{Kind: fund.KindRevenue, Description: descr, Amount: amount}
}

func expense(amount int64, descr string) fund.Movement {
	return fund.Movement{Kind: fund.KindExpense, Description: descr, Amount: amount}
}

// =============================================================================
// POSTED BALANCE
// =============================================================================

func TestPostedBalance_SignsMovementsByKind(t *testing.T) {
	// GIVEN: 100.00 revenue and 30.00 expenses in the book
	// WHEN: Computing the posted balance
	// THEN: Expenses subtract, revenue adds

	v := &fund.LedgerView{
		Movements: []fund.Movement{
			revenue(10000, "ticket sales"),
			expense(2000, "supplies"),
			expense(1000, "venue"),
		},
	}
	assert.Equal(t, int64(7000), fund.PostedBalance(v))
}

func TestPostedBalance_IncludesCollectionsAndDeliveredSponsorships(t *testing.T) {
	// GIVEN: Movements plus a collection and a sponsorship only half delivered
	// WHEN: Computing the posted balance
	// THEN: The full collection and only the delivered part count

	v := &fund.LedgerView{
		Movements:   []fund.Movement{revenue(5000, "")},
		Collections: []fund.Collection{{Amount: 2500}},
		Sponsorships: []fund.Sponsorship{
			{Name: "Bakery", Promised: 10000, Delivered: 4000},
		},
	}
	assert.Equal(t, int64(11500), fund.PostedBalance(v))
}

func TestPostedBalance_EmptySourcesContributeZero(t *testing.T) {
	v := &fund.LedgerView{}
	assert.Equal(t, int64(0), fund.PostedBalance(v))
}

// =============================================================================
// DINNER FIGURES
// =============================================================================

func TestDinnerRevenue_SumsGuestPayments(t *testing.T) {
	// GIVEN: A dinner with registered guests, some underpaying
	// WHEN: Computing revenue
	// THEN: Actual payments win over the declared head count

	d := fund.Dinner{
		GuestCount: 50, // stale declared figure
		BasePrice:  2000,
		Guests: []fund.Guest{
			{Price: 2000, Paid: 2000},
			{Price: 2000, Paid: 1500},
			{Price: 2000, Paid: 0},
		},
	}
	assert.Equal(t, int64(3500), fund.DinnerRevenue(d))
}

func TestDinnerRevenue_FallsBackToDeclaredFigures(t *testing.T) {
	// GIVEN: A dinner with no registered guests
	// WHEN: Computing revenue
	// THEN: guestCount x basePrice is used

	d := fund.Dinner{GuestCount: 40, BasePrice: 2500}
	assert.Equal(t, int64(100000), fund.DinnerRevenue(d))
}

func TestDinnerExpenses_LineItemsWinOverAggregate(t *testing.T) {
	d := fund.Dinner{
		Expense: 9999, // stale aggregate
		Expenses: []fund.ExpenseItem{
			{Amount: 3000},
			{Amount: 1500},
		},
	}
	assert.Equal(t, int64(4500), fund.DinnerExpenses(d))

	d.Expenses = nil
	assert.Equal(t, int64(9999), fund.DinnerExpenses(d))
}

// =============================================================================
// PROJECTED SURPLUS
// =============================================================================

func TestProjectedSurplus_CountsOnlyUnpostedDinners(t *testing.T) {
	// GIVEN: Two dinners, one already posted into the book
	// WHEN: Computing the projected surplus
	// THEN: Only the unposted dinner contributes

	posted := fund.Dinner{ID: 1, Title: "Spring dinner", GuestCount: 10, BasePrice: 2000, Expense: 5000}
	unposted := fund.Dinner{ID: 2, Title: "Summer dinner", GuestCount: 20, BasePrice: 2000, Expense: 10000}

	v := &fund.LedgerView{
		Dinners: []fund.Dinner{posted, unposted},
		Movements: []fund.Movement{
			{Kind: fund.KindRevenue, Description: fund.PostingDescription(posted), Amount: 20000},
		},
	}

	// 20*2000 - 10000 = 30000 from the unposted one only
	assert.Equal(t, int64(30000), fund.ProjectedSurplus(v))
}

func TestProjectedSurplus_DropsToZeroOncePosted(t *testing.T) {
	// GIVEN: One profitable dinner contributing to the projection
	// WHEN: Its revenue lands in the movements
	// THEN: The projection for it flips to zero instead of double counting

	d := fund.Dinner{ID: 7, Date: "2026-06-13", GuestCount: 30, BasePrice: 2500, Expense: 20000}
	v := &fund.LedgerView{Dinners: []fund.Dinner{d}}
	assert.Equal(t, int64(55000), fund.ProjectedSurplus(v))

	v.Movements = []fund.Movement{
		{Kind: fund.KindRevenue, Date: d.Date, Description: fund.PostingDescription(d), Amount: 75000},
	}
	assert.Equal(t, int64(0), fund.ProjectedSurplus(v))
}

func TestProjectedSurplus_CanBeNegative(t *testing.T) {
	// A dinner that lost money drags the projection below zero.
	d := fund.Dinner{ID: 3, GuestCount: 5, BasePrice: 1000, Expense: 8000}
	v := &fund.LedgerView{Dinners: []fund.Dinner{d}}
	assert.Equal(t, int64(-3000), fund.ProjectedSurplus(v))
}
