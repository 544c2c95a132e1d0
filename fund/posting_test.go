package fund_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/festa/fund-ledger/fund"
)

// =============================================================================
// LABELS AND DESCRIPTIONS
// =============================================================================

func TestPostingLabel_PrefersTitleThenDateThenID(t *testing.T) {
	assert.Equal(t, "Gala night",
		fund.PostingLabel(fund.Dinner{ID: 4, Date: "2026-05-01", Title: "Gala night"}))
	assert.Equal(t, "2026-05-01",
		fund.PostingLabel(fund.Dinner{ID: 4, Date: "2026-05-01"}))
	assert.Equal(t, "#4",
		fund.PostingLabel(fund.Dinner{ID: 4}))
}

func TestPostingDescription_Canonical(t *testing.T) {
	d := fund.Dinner{ID: 2, Title: "Harvest dinner"}
	assert.Equal(t, "Dinner — Harvest dinner — Revenue", fund.PostingDescription(d))
	assert.Equal(t, "Dinner — Harvest dinner — Expenses", fund.PostingExpenseDescription(d))
}

// =============================================================================
// DETECTION
// =============================================================================

func TestIsPosted_CanonicalDescription(t *testing.T) {
	// GIVEN: A revenue movement carrying the canonical description
	// WHEN: Checking whether the dinner is posted
	// THEN: It is

	d := fund.Dinner{ID: 1, Title: "Gala"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: fund.PostingDescription(d), Amount: 1000},
	}
	assert.True(t, fund.IsPosted(d, movements))
}

func TestIsPosted_IgnoresExpenseMovements(t *testing.T) {
	// The expense side of a posting must not mark the dinner as posted on
	// its own.
	d := fund.Dinner{ID: 1, Title: "Gala"}
	movements := []fund.Movement{
		{Kind: fund.KindExpense, Description: fund.PostingDescription(d), Amount: 1000},
	}
	assert.False(t, fund.IsPosted(d, movements))
}

func TestIsPosted_CanonicalRequiresDateAgreement(t *testing.T) {
	// GIVEN: Two dinners sharing a title but on different dates
	// WHEN: One is posted with its date on the movement
	// THEN: The other stays unposted

	d1 := fund.Dinner{ID: 1, Title: "Monthly dinner", Date: "2026-03-14"}
	d2 := fund.Dinner{ID: 2, Title: "Monthly dinner", Date: "2026-04-11"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Date: "2026-03-14", Description: fund.PostingDescription(d1), Amount: 1000},
	}
	assert.True(t, fund.IsPosted(d1, movements))
	assert.False(t, fund.IsPosted(d2, movements))
}

func TestIsPosted_LegacyDescription(t *testing.T) {
	// Rows written under the old convention still count.
	d := fund.Dinner{ID: 9, Date: "2025-11-22"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: "Dinner 2025-11-22 (ID:9) — Revenue", Amount: 1000},
	}
	assert.True(t, fund.IsPosted(d, movements))
}

func TestIsPosted_IDMarkerAnywhere(t *testing.T) {
	d := fund.Dinner{ID: 12, Title: "Whatever"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: "manual entry for the dinner (ID:12), entered late", Amount: 500},
	}
	assert.True(t, fund.IsPosted(d, movements))

	other := fund.Dinner{ID: 1, Title: "Other"}
	assert.False(t, fund.IsPosted(other, movements))
}

func TestIsPosted_DinnerPlusDelimitedLabel(t *testing.T) {
	// Older manual entries keep the delimited label but not the canonical
	// prefix; they still count.
	d := fund.Dinner{ID: 5, Title: "Carnival feast"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: "takings Dinner — Carnival feast — (manual)", Amount: 500},
	}
	assert.True(t, fund.IsPosted(d, movements))

	// The label has to appear delimited; a bare mention is not a posting.
	bare := []fund.Movement{
		{Kind: fund.KindRevenue, Description: "Dinner takings Carnival feast", Amount: 500},
	}
	assert.False(t, fund.IsPosted(d, bare))
}

func TestIsPosted_LabelOfOneDinnerInsideAnothers(t *testing.T) {
	// GIVEN: Dinner #12 is posted
	// WHEN: Checking the untitled dinner #1, whose label "#1" is a prefix
	//       of "#12"
	// THEN: #1 stays unposted

	d1 := fund.Dinner{ID: 1}
	d12 := fund.Dinner{ID: 12}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: fund.PostingDescription(d12), Amount: 1000},
	}
	assert.True(t, fund.IsPosted(d12, movements))
	assert.False(t, fund.IsPosted(d1, movements))
}

func TestIsPosted_TitlePrefixOfAnotherTitle(t *testing.T) {
	// "Gala" must not be flagged posted by the "Gala Night" movement.
	gala := fund.Dinner{ID: 1, Title: "Gala"}
	galaNight := fund.Dinner{ID: 2, Title: "Gala Night"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: fund.PostingDescription(galaNight), Amount: 1000},
	}
	assert.True(t, fund.IsPosted(galaNight, movements))
	assert.False(t, fund.IsPosted(gala, movements))
}

func TestIsPosted_UnrelatedMovements(t *testing.T) {
	d := fund.Dinner{ID: 5, Title: "Carnival feast"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: "raffle tickets", Amount: 500},
		{Kind: fund.KindRevenue, Description: "", Amount: 900},
	}
	assert.False(t, fund.IsPosted(d, movements))
}

func TestIsPosted_StableAsUnrelatedMovementsArrive(t *testing.T) {
	// GIVEN: A posted dinner
	// WHEN: More unrelated movements are appended
	// THEN: It stays posted

	d := fund.Dinner{ID: 3, Title: "Spring dinner"}
	movements := []fund.Movement{
		{Kind: fund.KindRevenue, Description: fund.PostingDescription(d), Amount: 1000},
	}
	assert.True(t, fund.IsPosted(d, movements))

	movements = append(movements,
		fund.Movement{Kind: fund.KindRevenue, Description: "donations", Amount: 200},
		fund.Movement{Kind: fund.KindExpense, Description: "printing", Amount: 100},
	)
	assert.True(t, fund.IsPosted(d, movements))
}
