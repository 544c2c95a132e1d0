package fund_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa/fund-ledger/fund"
	"github.com/festa/fund-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*fund.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return fund.NewLedger(store), store
}

// fund posted money so there is something to grant
func postRevenue(t *testing.T, store *sqlite.Store, cents int64) {
	_, err := store.InsertMovement(context.Background(), fund.Movement{
		Kind:        fund.KindRevenue,
		Description: "test revenue",
		Amount:      cents,
	})
	require.NoError(t, err)
}

func beneficiaryBalance(t *testing.T, store *sqlite.Store, id fund.BeneficiaryID) int64 {
	b, err := store.Beneficiary(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b.Balance
}

// =============================================================================
// APPLY
// =============================================================================

func TestApply_GrantWithinCeiling(t *testing.T) {
	// GIVEN: 100.00 posted and nothing granted yet
	// WHEN: Granting 40.00 to household 1
	// THEN: The grant lands, the balance moves, 60.00 remains available

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	a, err := ledger.Apply(ctx, 1, 4000, "school supplies")
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, int64(4000), a.Amount)

	assert.Equal(t, int64(4000), beneficiaryBalance(t, store, 1))

	sum, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), sum.AppliedRemainder)
	assert.Equal(t, int64(6000), sum.AvailableRemainder)
}

func TestApply_OverspendRejectedWithFigures(t *testing.T) {
	// GIVEN: Only 100.00 available
	// WHEN: Attempting to grant 120.00
	// THEN: Rejected, the error carries both figures, nothing changed

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	_, err := ledger.Apply(ctx, 1, 12000, "")
	require.Error(t, err)

	var insufficient *fund.InsufficientRemainderError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(12000), insufficient.Attempted)
	assert.Equal(t, int64(10000), insufficient.Available)
	assert.ErrorIs(t, err, fund.ErrInsufficientRemainder)

	assert.Equal(t, int64(0), beneficiaryBalance(t, store, 1))
	history, err := ledger.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApply_ExactCeilingAllowed(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	_, err := ledger.Apply(ctx, 1, 10000, "everything")
	require.NoError(t, err)

	sum, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.AvailableRemainder)
}

func TestApply_InvalidInput(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	_, err := ledger.Apply(ctx, 1, 0, "")
	assert.ErrorIs(t, err, fund.ErrInvalidInput)

	_, err = ledger.Apply(ctx, 1, -500, "")
	assert.ErrorIs(t, err, fund.ErrInvalidInput)

	// Unknown beneficiary (only 11 households are seeded)
	_, err = ledger.Apply(ctx, 999, 1000, "")
	assert.ErrorIs(t, err, fund.ErrInvalidInput)
}

func TestApply_ProjectedSurplusNotGrantable(t *testing.T) {
	// GIVEN: 50.00 posted and a dinner projecting another 100.00
	// WHEN: Trying to grant 80.00
	// THEN: Rejected; only posted money backs grants

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 5000)
	_, err := store.InsertDinner(ctx, fund.Dinner{Title: "Gala", GuestCount: 10, BasePrice: 1000})
	require.NoError(t, err)

	_, err = ledger.Apply(ctx, 1, 8000, "")
	var insufficient *fund.InsufficientRemainderError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5000), insufficient.Available)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEdit_IncreaseWithinHeadroom(t *testing.T) {
	// GIVEN: 100.00 posted, a 40.00 grant
	// WHEN: Editing it up to 50.00
	// THEN: Only the 10.00 delta has to fit; balance follows

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	a, err := ledger.Apply(ctx, 1, 4000, "")
	require.NoError(t, err)

	edited, err := ledger.Edit(ctx, a.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), edited.Amount)
	assert.Equal(t, int64(5000), beneficiaryBalance(t, store, 1))

	sum, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sum.AvailableRemainder)
}

func TestEdit_IncreaseBeyondCeilingRejected(t *testing.T) {
	// GIVEN: 100.00 posted, a 40.00 grant, 60.00 headroom
	// WHEN: Editing the grant up to 110.00
	// THEN: Rejected; the figures are the requested amount against the
	//       ceiling with the grant's own old amount excluded

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	a, err := ledger.Apply(ctx, 1, 4000, "")
	require.NoError(t, err)

	_, err = ledger.Edit(ctx, a.ID, 11000)
	var insufficient *fund.InsufficientRemainderError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(11000), insufficient.Attempted)
	assert.Equal(t, int64(10000), insufficient.Available)

	// Nothing changed
	assert.Equal(t, int64(4000), beneficiaryBalance(t, store, 1))
}

func TestEdit_DecreaseAlwaysAllowed(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	a, err := ledger.Apply(ctx, 1, 10000, "")
	require.NoError(t, err)

	edited, err := ledger.Edit(ctx, a.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), edited.Amount)
	assert.Equal(t, int64(2500), beneficiaryBalance(t, store, 1))

	sum, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), sum.AvailableRemainder)
}

func TestEdit_MissingAllocation(t *testing.T) {
	ledger, store := newTestLedger(t)
	postRevenue(t, store, 10000)

	_, err := ledger.Edit(context.Background(), 42, 1000)
	assert.ErrorIs(t, err, fund.ErrNotFound)

	var nf *fund.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "allocation", nf.Kind)
	assert.Equal(t, int64(42), nf.ID)
}

// =============================================================================
// DELETE / REVERSIBILITY
// =============================================================================

func TestDelete_RestoresRemainderAndBalance(t *testing.T) {
	// GIVEN: A grant of 40.00
	// WHEN: Deleting it
	// THEN: Balance and available remainder return to their prior values

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	before, err := ledger.Summary(ctx)
	require.NoError(t, err)

	a, err := ledger.Apply(ctx, 1, 4000, "")
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, a.ID))

	after, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.AvailableRemainder, after.AvailableRemainder)
	assert.Equal(t, int64(0), beneficiaryBalance(t, store, 1))

	history, err := ledger.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDelete_ClampsAtZeroAfterExternalReduction(t *testing.T) {
	// GIVEN: A 40.00 grant whose beneficiary balance was externally dropped
	//        to 10.00
	// WHEN: Deleting the grant
	// THEN: The balance floors at zero instead of going to -30.00

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 10000)

	a, err := ledger.Apply(ctx, 1, 4000, "")
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx fund.TxStore) error {
		_, err := tx.AdjustBeneficiaryBalance(ctx, 1, -3000)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(1000), beneficiaryBalance(t, store, 1))

	require.NoError(t, ledger.Delete(ctx, a.ID))
	assert.Equal(t, int64(0), beneficiaryBalance(t, store, 1))
}

func TestDelete_MissingAllocation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	err := ledger.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, fund.ErrNotFound)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_NewestFirstWithNames(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 100000)

	first, err := ledger.Apply(ctx, 1, 1000, "first")
	require.NoError(t, err)
	second, err := ledger.Apply(ctx, 2, 2000, "second")
	require.NoError(t, err)

	history, err := ledger.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, "Household 2", history[0].BeneficiaryName)
	assert.Equal(t, first.ID, history[1].ID)
	assert.Equal(t, "Household 1", history[1].BeneficiaryName)
}

// =============================================================================
// CONSERVATION
// =============================================================================

func TestConservation_AppliedPlusAvailableIsConstant(t *testing.T) {
	// With no external adjustments, applied + available always equals the
	// posted balance, through applies, edits and deletes.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	postRevenue(t, store, 20000)

	check := func() {
		sum, err := ledger.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(20000), sum.AppliedRemainder+sum.AvailableRemainder)
	}

	check()
	a, err := ledger.Apply(ctx, 3, 5000, "")
	require.NoError(t, err)
	check()
	b, err := ledger.Apply(ctx, 4, 2500, "")
	require.NoError(t, err)
	check()
	_, err = ledger.Edit(ctx, a.ID, 7500)
	require.NoError(t, err)
	check()
	require.NoError(t, ledger.Delete(ctx, b.ID))
	check()
	require.NoError(t, ledger.Delete(ctx, a.ID))
	check()
}
