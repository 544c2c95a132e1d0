/*
handlers_test.go - HTTP-level tests for the fund ledger API

Covers the error mapping (400/404/409) and the end-to-end flow of the
main operations against an in-memory store.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa/fund-ledger/api"
	"github.com/festa/fund-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	handler := api.NewHandler(store, nil)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

// =============================================================================
// SUMMARY AND MOVEMENTS
// =============================================================================

func TestSummary_ReflectsMovements(t *testing.T) {
	// GIVEN: A fresh ledger
	// WHEN: Recording 100.00 revenue and 25.00 expenses
	// THEN: The summary shows 75.00 posted and available

	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 10000, "description": "raffle",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "expense", "amount": "25.00", "description": "posters",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum map[string]any
	decode(t, resp, &sum)
	assert.Equal(t, float64(7500), sum["posted_balance_cents"])
	assert.Equal(t, "75.00", sum["posted_balance"])
	assert.Equal(t, float64(7500), sum["available_remainder_cents"])
}

func TestCreateMovement_RejectsBadKind(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "donation", "amount_cents": 100,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportMovementsCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 12345, "description": "raffle",
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/export/movements.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,date,category,kind,description,amount", lines[0])
	assert.Contains(t, lines[1], "123.45")
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func TestAllocationFlow(t *testing.T) {
	// GIVEN: 100.00 posted
	// WHEN: Granting 40.00, then attempting 70.00 more
	// THEN: The first lands, the second is a 409 with both figures

	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 10000,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/allocations", map[string]any{
		"beneficiary_id": 1, "amount_cents": 4000, "note": "groceries",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	decode(t, resp, &created)
	assert.Equal(t, "40.00", created["amount"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/allocations", map[string]any{
		"beneficiary_id": 2, "amount_cents": 7000,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var rejected map[string]any
	decode(t, resp, &rejected)
	assert.Equal(t, float64(7000), rejected["attempted_cents"])
	assert.Equal(t, float64(6000), rejected["available_cents"])

	// History lists the surviving grant with its household name
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/allocations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]any
	decode(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "Household 1", history[0]["beneficiary_name"])
}

func TestAllocation_InvalidAndMissing(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 10000,
	})
	resp.Body.Close()

	// Zero amount
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/allocations", map[string]any{
		"beneficiary_id": 1, "amount_cents": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown beneficiary
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/allocations", map[string]any{
		"beneficiary_id": 999, "amount_cents": 100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Missing allocation
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/allocations/42", map[string]any{
		"amount_cents": 100,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/allocations/42", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAllocation_DeleteRestoresRemainder(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 10000,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/allocations", map[string]any{
		"beneficiary_id": 1, "amount_cents": 4000,
	})
	var created map[string]any
	decode(t, resp, &created)
	id := int64(created["id"].(float64))

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/allocations/%d", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/summary", nil)
	var sum map[string]any
	decode(t, resp, &sum)
	assert.Equal(t, float64(10000), sum["available_remainder_cents"])
}

// =============================================================================
// DINNERS
// =============================================================================

func TestDinnerPostingFlow(t *testing.T) {
	// GIVEN: A dinner projecting 50.00 revenue
	// WHEN: Posting it once, then again
	// THEN: First succeeds and moves the projection into the book; the
	//       second is a 409

	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/dinners", map[string]any{
		"title": "Gala", "date": "2026-06-13", "guest_count": 5, "base_price_cents": 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dinner map[string]any
	decode(t, resp, &dinner)
	id := int64(dinner["id"].(float64))
	assert.Equal(t, false, dinner["posted"])
	assert.Equal(t, float64(5000), dinner["revenue_cents"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/summary", nil)
	var sum map[string]any
	decode(t, resp, &sum)
	assert.Equal(t, float64(5000), sum["projected_surplus_cents"])
	assert.Equal(t, float64(0), sum["posted_balance_cents"])

	url := fmt.Sprintf("%s/api/dinners/%d/post", srv.URL, id)
	resp = doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &dinner)
	assert.Equal(t, true, dinner["posted"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/summary", nil)
	decode(t, resp, &sum)
	assert.Equal(t, float64(0), sum["projected_surplus_cents"])
	assert.Equal(t, float64(5000), sum["posted_balance_cents"])

	resp = doJSON(t, http.MethodPost, url, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDinnerGuests_DriveRevenue(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/dinners", map[string]any{
		"title": "Gala", "guest_count": 50, "base_price_cents": 2000,
	})
	var dinner map[string]any
	decode(t, resp, &dinner)
	id := int64(dinner["id"].(float64))

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/dinners/%d/guests", srv.URL, id), map[string]any{
		"name": "Ana", "price_cents": 2000, "paid": "15.00", "present": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/dinners/%d", srv.URL, id), nil)
	decode(t, resp, &dinner)
	// Registered guests override the declared head count
	assert.Equal(t, float64(1500), dinner["revenue_cents"])
}

// =============================================================================
// ROTATION AND SETTINGS
// =============================================================================

func TestRotationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/movements", map[string]any{
		"kind": "revenue", "amount_cents": 12000,
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/settings", map[string]any{
		"line1": "Festival Committee", "block_size_cents": 5000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/rotation", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan map[string]any
	decode(t, resp, &plan)
	assert.Equal(t, float64(2), plan["new_blocks"])
	assert.Equal(t, float64(2000), plan["leftover_cents"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rotation/apply", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/beneficiaries", nil)
	var beneficiaries []map[string]any
	decode(t, resp, &beneficiaries)
	require.Len(t, beneficiaries, 11)
	assert.Equal(t, float64(5000), beneficiaries[0]["balance_cents"])
	assert.Equal(t, float64(5000), beneficiaries[1]["balance_cents"])
	assert.Equal(t, float64(0), beneficiaries[2]["balance_cents"])

	// Counter advanced; a second apply deals nothing
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rotation/apply", nil)
	decode(t, resp, &plan)
	assert.Equal(t, float64(0), plan["new_blocks"])
}

func TestSetRotationStart(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/rotation/start", map[string]any{
		"beneficiary_id": 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/rotation/start", map[string]any{
		"beneficiary_id": 99,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
