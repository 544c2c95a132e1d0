/*
handlers.go - HTTP API handlers for the fund reconciliation ledger

PURPOSE:
  Exposes the reconciliation and allocation engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Summary:
    GET    /api/summary                 Posted balance, projection, remainder

  Movements:
    GET    /api/movements               List posted transactions
    POST   /api/movements               Record a transaction
    PUT    /api/movements/{id}          Update a transaction
    DELETE /api/movements/{id}          Delete a transaction
    GET    /api/export/movements.csv    CSV export of the book

  Collections / Sponsorships:
    Full CRUD under /api/collections and /api/sponsorships

  Dinners:
    Full CRUD under /api/dinners, plus guest and expense sub-resources
    POST   /api/dinners/{id}/post       Copy projected figures into the book

  Beneficiaries / Allocations:
    GET    /api/beneficiaries           Household accounts
    GET    /api/allocations             Grant history (newest first)
    POST   /api/allocations             Grant remainder
    PUT    /api/allocations/{id}        Change a grant amount
    DELETE /api/allocations/{id}        Reverse a grant

  Rotation:
    GET    /api/rotation                Preview the block deal
    POST   /api/rotation/apply          Apply the deal
    PUT    /api/rotation/start          Pick the starting household

  Settings:
    GET    /api/settings
    PUT    /api/settings

  Audit:
    GET    /api/audit?type=...          Events of one type

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Ceiling rejection (with attempted/available), double posting
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/festa/fund-ledger/audit"
	"github.com/festa/fund-ledger/fund"
	"github.com/festa/fund-ledger/money"
	"github.com/festa/fund-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Ledger *fund.Ledger
	Audit  *audit.Worker // nil disables the trail
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, worker *audit.Worker) *Handler {
	return &Handler{
		Store:  store,
		Ledger: fund.NewLedger(store),
		Audit:  worker,
	}
}

func (h *Handler) record(opts ...audit.EventOption) {
	if h.Audit == nil {
		return
	}
	h.Audit.Log(audit.NewEvent(opts...))
}

// =============================================================================
// SUMMARY
// =============================================================================

// GetSummary returns the reconciliation picture.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Ledger.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, toMovementDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func movementFromRequest(w http.ResponseWriter, r *http.Request) (fund.Movement, bool) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.Movement{}, false
	}
	kind := fund.CategoryKind(req.Kind)
	if kind != fund.KindRevenue && kind != fund.KindExpense {
		writeError(w, http.StatusBadRequest, "Kind must be revenue or expense", nil)
		return fund.Movement{}, false
	}
	amount, err := resolveAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return fund.Movement{}, false
	}
	if amount < 0 {
		writeError(w, http.StatusBadRequest, "Amount must not be negative", nil)
		return fund.Movement{}, false
	}
	return fund.Movement{
		Date:        req.Date,
		Category:    req.Category,
		Kind:        kind,
		Description: req.Description,
		Amount:      amount,
	}, true
}

func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	m, ok := movementFromRequest(w, r)
	if !ok {
		return
	}
	id, err := h.Store.InsertMovement(r.Context(), m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create movement", err)
		return
	}
	m.ID = id
	writeJSON(w, http.StatusCreated, toMovementDTO(m))
}

func (h *Handler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, ok := movementFromRequest(w, r)
	if !ok {
		return
	}
	m.ID = fund.MovementID(id)
	if err := h.Store.UpdateMovement(r.Context(), m); err != nil {
		writeDomainError(w, "Failed to update movement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(m))
}

func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteMovement(r.Context(), fund.MovementID(id)); err != nil {
		writeDomainError(w, "Failed to delete movement", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ExportMovementsCSV streams the posted book as CSV.
func (h *Handler) ExportMovementsCSV(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="movements.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "date", "category", "kind", "description", "amount"})
	for _, m := range movements {
		cw.Write([]string{
			strconv.FormatInt(int64(m.ID), 10),
			m.Date,
			m.Category,
			string(m.Kind),
			m.Description,
			money.FormatEuros(m.Amount),
		})
	}
	cw.Flush()
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.Store.Collections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list collections", err)
		return
	}
	dtos := make([]CollectionDTO, 0, len(collections))
	for _, c := range collections {
		dtos = append(dtos, toCollectionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func collectionFromRequest(w http.ResponseWriter, r *http.Request) (fund.Collection, bool) {
	var req CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.Collection{}, false
	}
	amount, err := resolveAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return fund.Collection{}, false
	}
	return fund.Collection{
		Date:     req.Date,
		Location: req.Location,
		Team:     req.Team,
		Amount:   amount,
		Notes:    req.Notes,
	}, true
}

func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionFromRequest(w, r)
	if !ok {
		return
	}
	id, err := h.Store.InsertCollection(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create collection", err)
		return
	}
	c.ID = id
	writeJSON(w, http.StatusCreated, toCollectionDTO(c))
}

func (h *Handler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, ok := collectionFromRequest(w, r)
	if !ok {
		return
	}
	c.ID = id
	if err := h.Store.UpdateCollection(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to update collection", err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionDTO(c))
}

func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteCollection(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete collection", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// SPONSORSHIPS
// =============================================================================

func (h *Handler) ListSponsorships(w http.ResponseWriter, r *http.Request) {
	sponsorships, err := h.Store.Sponsorships(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sponsorships", err)
		return
	}
	dtos := make([]SponsorshipDTO, 0, len(sponsorships))
	for _, sp := range sponsorships {
		dtos = append(dtos, toSponsorshipDTO(sp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func sponsorshipFromRequest(w http.ResponseWriter, r *http.Request) (fund.Sponsorship, bool) {
	var req SponsorshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.Sponsorship{}, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return fund.Sponsorship{}, false
	}
	promised, err := resolveAmount(req.PromisedCents, req.Promised)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid promised amount", err)
		return fund.Sponsorship{}, false
	}
	delivered, err := resolveAmount(req.DeliveredCents, req.Delivered)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delivered amount", err)
		return fund.Sponsorship{}, false
	}
	return fund.Sponsorship{
		Name:      req.Name,
		Contact:   req.Contact,
		Promised:  promised,
		Delivered: delivered,
		Notes:     req.Notes,
	}, true
}

func (h *Handler) CreateSponsorship(w http.ResponseWriter, r *http.Request) {
	sp, ok := sponsorshipFromRequest(w, r)
	if !ok {
		return
	}
	id, err := h.Store.InsertSponsorship(r.Context(), sp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sponsorship", err)
		return
	}
	sp.ID = id
	writeJSON(w, http.StatusCreated, toSponsorshipDTO(sp))
}

func (h *Handler) UpdateSponsorship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sp, ok := sponsorshipFromRequest(w, r)
	if !ok {
		return
	}
	sp.ID = id
	if err := h.Store.UpdateSponsorship(r.Context(), sp); err != nil {
		writeDomainError(w, "Failed to update sponsorship", err)
		return
	}
	writeJSON(w, http.StatusOK, toSponsorshipDTO(sp))
}

func (h *Handler) DeleteSponsorship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteSponsorship(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete sponsorship", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// DINNERS
// =============================================================================

func (h *Handler) ListDinners(w http.ResponseWriter, r *http.Request) {
	dinners, err := h.Store.Dinners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dinners", err)
		return
	}
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	dtos := make([]DinnerDTO, 0, len(dinners))
	for _, d := range dinners {
		dtos = append(dtos, toDinnerDTO(d, movements))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetDinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Store.Dinner(r.Context(), fund.DinnerID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get dinner", err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "Dinner not found", nil)
		return
	}
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toDinnerDTO(*d, movements))
}

func dinnerFromRequest(w http.ResponseWriter, r *http.Request) (fund.Dinner, bool) {
	var req DinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.Dinner{}, false
	}
	if req.GuestCount < 0 {
		writeError(w, http.StatusBadRequest, "Guest count must not be negative", nil)
		return fund.Dinner{}, false
	}
	basePrice, err := resolveAmount(req.BasePriceCents, req.BasePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base price", err)
		return fund.Dinner{}, false
	}
	expense, err := resolveAmount(req.ExpenseCents, req.Expense)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense amount", err)
		return fund.Dinner{}, false
	}
	return fund.Dinner{
		Date:       req.Date,
		Title:      req.Title,
		GuestCount: req.GuestCount,
		BasePrice:  basePrice,
		Expense:    expense,
	}, true
}

func (h *Handler) CreateDinner(w http.ResponseWriter, r *http.Request) {
	d, ok := dinnerFromRequest(w, r)
	if !ok {
		return
	}
	id, err := h.Store.InsertDinner(r.Context(), d)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create dinner", err)
		return
	}
	d.ID = id
	writeJSON(w, http.StatusCreated, toDinnerDTO(d, nil))
}

func (h *Handler) UpdateDinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, ok := dinnerFromRequest(w, r)
	if !ok {
		return
	}
	d.ID = fund.DinnerID(id)
	if err := h.Store.UpdateDinner(r.Context(), d); err != nil {
		writeDomainError(w, "Failed to update dinner", err)
		return
	}
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toDinnerDTO(d, movements))
}

func (h *Handler) DeleteDinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteDinner(r.Context(), fund.DinnerID(id)); err != nil {
		writeDomainError(w, "Failed to delete dinner", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// PostDinner copies the dinner's projected revenue and expenses into the
// movements book. Posting twice returns 409.
func (h *Handler) PostDinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Store.PostDinner(r.Context(), fund.DinnerID(id))
	if err != nil {
		if errors.Is(err, sqlite.ErrAlreadyPosted) {
			writeError(w, http.StatusConflict, "Dinner already posted", err)
			return
		}
		writeDomainError(w, "Failed to post dinner", err)
		return
	}

	h.record(
		audit.WithType(audit.TypeDinnerPosted),
		audit.WithData(map[string]any{
			"dinner_id":      id,
			"revenue_cents":  fund.DinnerRevenue(*d),
			"expenses_cents": fund.DinnerExpenses(*d),
		}),
	)

	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toDinnerDTO(*d, movements))
}

// =============================================================================
// DINNER GUESTS
// =============================================================================

func guestFromRequest(w http.ResponseWriter, r *http.Request) (fund.Guest, bool) {
	var req GuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.Guest{}, false
	}
	price, err := resolveAmount(req.PriceCents, req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return fund.Guest{}, false
	}
	paid, err := resolveAmount(req.PaidCents, req.Paid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid amount", err)
		return fund.Guest{}, false
	}
	return fund.Guest{
		Name:    req.Name,
		Contact: req.Contact,
		Price:   price,
		Paid:    paid,
		Present: req.Present,
	}, true
}

func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	g, ok := guestFromRequest(w, r)
	if !ok {
		return
	}
	g.DinnerID = fund.DinnerID(dinnerID)
	id, err := h.Store.InsertGuest(r.Context(), g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create guest", err)
		return
	}
	g.ID = id
	writeJSON(w, http.StatusCreated, toGuestDTO(g))
}

func (h *Handler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	guestID, ok := pathInt(w, r, "guestID")
	if !ok {
		return
	}
	g, ok := guestFromRequest(w, r)
	if !ok {
		return
	}
	g.ID = guestID
	g.DinnerID = fund.DinnerID(dinnerID)
	if err := h.Store.UpdateGuest(r.Context(), g); err != nil {
		writeDomainError(w, "Failed to update guest", err)
		return
	}
	writeJSON(w, http.StatusOK, toGuestDTO(g))
}

func (h *Handler) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	guestID, ok := pathInt(w, r, "guestID")
	if !ok {
		return
	}
	if err := h.Store.DeleteGuest(r.Context(), fund.DinnerID(dinnerID), guestID); err != nil {
		writeDomainError(w, "Failed to delete guest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": guestID})
}

// =============================================================================
// DINNER EXPENSES
// =============================================================================

func expenseItemFromRequest(w http.ResponseWriter, r *http.Request) (fund.ExpenseItem, bool) {
	var req ExpenseItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fund.ExpenseItem{}, false
	}
	amount, err := resolveAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return fund.ExpenseItem{}, false
	}
	return fund.ExpenseItem{
		Description: req.Description,
		Amount:      amount,
	}, true
}

func (h *Handler) CreateExpenseItem(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	e, ok := expenseItemFromRequest(w, r)
	if !ok {
		return
	}
	e.DinnerID = fund.DinnerID(dinnerID)
	id, err := h.Store.InsertExpenseItem(r.Context(), e)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create dinner expense", err)
		return
	}
	e.ID = id
	writeJSON(w, http.StatusCreated, toExpenseItemDTO(e))
}

func (h *Handler) UpdateExpenseItem(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathInt(w, r, "expenseID")
	if !ok {
		return
	}
	e, ok := expenseItemFromRequest(w, r)
	if !ok {
		return
	}
	e.ID = itemID
	e.DinnerID = fund.DinnerID(dinnerID)
	if err := h.Store.UpdateExpenseItem(r.Context(), e); err != nil {
		writeDomainError(w, "Failed to update dinner expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseItemDTO(e))
}

func (h *Handler) DeleteExpenseItem(w http.ResponseWriter, r *http.Request) {
	dinnerID, ok := pathID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathInt(w, r, "expenseID")
	if !ok {
		return
	}
	if err := h.Store.DeleteExpenseItem(r.Context(), fund.DinnerID(dinnerID), itemID); err != nil {
		writeDomainError(w, "Failed to delete dinner expense", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": itemID})
}

// =============================================================================
// BENEFICIARIES / ALLOCATIONS
// =============================================================================

func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	beneficiaries, err := h.Store.Beneficiaries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list beneficiaries", err)
		return
	}
	dtos := make([]BeneficiaryDTO, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		dtos = append(dtos, toBeneficiaryDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	history, err := h.Ledger.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	dtos := make([]AllocationDTO, 0, len(history))
	for _, e := range history {
		dtos = append(dtos, toAllocationDTO(e.Allocation, e.BeneficiaryName))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyAllocation grants available remainder to a beneficiary.
func (h *Handler) ApplyAllocation(w http.ResponseWriter, r *http.Request) {
	var req ApplyAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := resolveAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	a, err := h.Ledger.Apply(r.Context(), fund.BeneficiaryID(req.BeneficiaryID), amount, req.Note)
	if err != nil {
		writeDomainError(w, "Failed to apply allocation", err)
		return
	}

	h.record(
		audit.WithType(audit.TypeAllocationApplied),
		audit.WithData(map[string]any{
			"allocation_id":  int64(a.ID),
			"beneficiary_id": req.BeneficiaryID,
			"amount_cents":   amount,
		}),
	)
	writeJSON(w, http.StatusCreated, toAllocationDTO(a, ""))
}

// EditAllocation changes an allocation's amount, re-checking the ceiling
// for any increase.
func (h *Handler) EditAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req EditAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := resolveAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	a, err := h.Ledger.Edit(r.Context(), fund.AllocationID(id), amount)
	if err != nil {
		writeDomainError(w, "Failed to edit allocation", err)
		return
	}

	h.record(
		audit.WithType(audit.TypeAllocationEdited),
		audit.WithData(map[string]any{
			"allocation_id": id,
			"amount_cents":  amount,
		}),
	)
	writeJSON(w, http.StatusOK, toAllocationDTO(a, ""))
}

// DeleteAllocation reverses a grant and returns its amount to the pool.
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.Delete(r.Context(), fund.AllocationID(id)); err != nil {
		writeDomainError(w, "Failed to delete allocation", err)
		return
	}

	h.record(
		audit.WithType(audit.TypeAllocationDeleted),
		audit.WithData(map[string]any{"allocation_id": id}),
	)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// ROTATION
// =============================================================================

// GetRotation previews the block deal without writing anything.
func (h *Handler) GetRotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.Store.Settings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	sum, err := h.Ledger.Summary(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}
	beneficiaries, err := h.Store.Beneficiaries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list beneficiaries", err)
		return
	}
	plan := fund.PlanRotation(st, beneficiaries, sum.ProjectedBalance)
	writeJSON(w, http.StatusOK, toRotationPlanDTO(plan))
}

// ApplyRotation deals the earned blocks onto the household balances.
func (h *Handler) ApplyRotation(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Ledger.ApplyRotation(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to apply rotation", err)
		return
	}

	h.record(
		audit.WithType(audit.TypeRotationApplied),
		audit.WithData(map[string]any{
			"new_blocks":       plan.NewBlocks,
			"block_size_cents": plan.BlockSize,
		}),
	)
	writeJSON(w, http.StatusOK, toRotationPlanDTO(plan))
}

// SetRotationStart picks the household the next deal begins from.
func (h *Handler) SetRotationStart(w http.ResponseWriter, r *http.Request) {
	var req RotationStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Store.SetRotationStart(r.Context(), fund.BeneficiaryID(req.BeneficiaryID)); err != nil {
		writeDomainError(w, "Failed to set rotation start", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rotation_start_id": req.BeneficiaryID})
}

// =============================================================================
// SETTINGS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(st))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	blockSize, err := resolveAmount(req.BlockSizeCents, req.BlockSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid block size", err)
		return
	}

	ctx := r.Context()
	current, err := h.Store.Settings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	current.Line1 = req.Line1
	current.Line2 = req.Line2
	current.BlockSize = blockSize
	if err := h.Store.UpdateSettings(ctx, current); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(current))
}

// =============================================================================
// AUDIT
// =============================================================================

func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	if eventType == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'type' is required", nil)
		return
	}
	events, err := h.Store.GetByType(r.Context(), eventType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit events", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return pathInt(w, r, "id")
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return v, true
}

// writeDomainError maps ledger errors onto HTTP statuses. Ceiling
// rejections carry the attempted and available figures so the frontend
// can show them.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	var insufficient *fund.InsufficientRemainderError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:          msg,
			Detail:         err.Error(),
			AttemptedCents: insufficient.Attempted,
			AvailableCents: insufficient.Available,
		})
		return
	}
	switch {
	case fund.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case fund.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
