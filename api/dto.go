/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Responses carry every amount twice: the integer minor units
  (`*_cents`) and a fixed two-decimal display string. Requests accept
  either form: `amount_cents` wins when present, otherwise the textual
  `amount` is parsed (comma decimals and thousands dots accepted).

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - money/money.go: ParseCents / FormatEuros
*/
package api

import (
	"strings"
	"time"

	"github.com/festa/fund-ledger/fund"
	"github.com/festa/fund-ledger/money"
)

// =============================================================================
// MONEY INPUT
// =============================================================================

// resolveAmount picks the integer cents when the client sent them, and
// otherwise parses the textual euro amount. An omitted amount is zero.
func resolveAmount(cents *int64, text string) (int64, error) {
	if cents != nil {
		return *cents, nil
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return money.ParseCents(text)
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryDTO is the full reconciliation picture.
type SummaryDTO struct {
	PostedBalanceCents           int64  `json:"posted_balance_cents"`
	PostedBalance                string `json:"posted_balance"`
	ProjectedSurplusCents        int64  `json:"projected_surplus_cents"`
	ProjectedSurplus             string `json:"projected_surplus"`
	ProjectedBalanceCents        int64  `json:"projected_balance_cents"`
	ProjectedBalance             string `json:"projected_balance"`
	TotalBeneficiaryBalanceCents int64  `json:"total_beneficiary_balance_cents"`
	TotalBeneficiaryBalance      string `json:"total_beneficiary_balance"`
	TheoreticalRemainderCents    int64  `json:"theoretical_remainder_cents"`
	TheoreticalRemainder         string `json:"theoretical_remainder"`
	AppliedRemainderCents        int64  `json:"applied_remainder_cents"`
	AppliedRemainder             string `json:"applied_remainder"`
	AvailableRemainderCents      int64  `json:"available_remainder_cents"`
	AvailableRemainder           string `json:"available_remainder"`
}

func toSummaryDTO(s fund.Summary) SummaryDTO {
	return SummaryDTO{
		PostedBalanceCents:           s.PostedBalance,
		PostedBalance:                money.FormatEuros(s.PostedBalance),
		ProjectedSurplusCents:        s.ProjectedSurplus,
		ProjectedSurplus:             money.FormatEuros(s.ProjectedSurplus),
		ProjectedBalanceCents:        s.ProjectedBalance,
		ProjectedBalance:             money.FormatEuros(s.ProjectedBalance),
		TotalBeneficiaryBalanceCents: s.TotalBeneficiaryBalance,
		TotalBeneficiaryBalance:      money.FormatEuros(s.TotalBeneficiaryBalance),
		TheoreticalRemainderCents:    s.TheoreticalRemainder,
		TheoreticalRemainder:         money.FormatEuros(s.TheoreticalRemainder),
		AppliedRemainderCents:        s.AppliedRemainder,
		AppliedRemainder:             money.FormatEuros(s.AppliedRemainder),
		AvailableRemainderCents:      s.AvailableRemainder,
		AvailableRemainder:           money.FormatEuros(s.AvailableRemainder),
	}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// MovementDTO represents a posted transaction in API responses.
type MovementDTO struct {
	ID          int64  `json:"id"`
	Date        string `json:"date,omitempty"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

func toMovementDTO(m fund.Movement) MovementDTO {
	return MovementDTO{
		ID:          int64(m.ID),
		Date:        m.Date,
		Category:    m.Category,
		Kind:        string(m.Kind),
		Description: m.Description,
		AmountCents: m.Amount,
		Amount:      money.FormatEuros(m.Amount),
	}
}

// MovementRequest creates or updates a movement.
type MovementRequest struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	AmountCents *int64 `json:"amount_cents"`
	Amount      string `json:"amount"`
}

// =============================================================================
// COLLECTIONS
// =============================================================================

type CollectionDTO struct {
	ID          int64  `json:"id"`
	Date        string `json:"date,omitempty"`
	Location    string `json:"location,omitempty"`
	Team        string `json:"team,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Notes       string `json:"notes,omitempty"`
}

func toCollectionDTO(c fund.Collection) CollectionDTO {
	return CollectionDTO{
		ID:          c.ID,
		Date:        c.Date,
		Location:    c.Location,
		Team:        c.Team,
		AmountCents: c.Amount,
		Amount:      money.FormatEuros(c.Amount),
		Notes:       c.Notes,
	}
}

type CollectionRequest struct {
	Date        string `json:"date"`
	Location    string `json:"location"`
	Team        string `json:"team"`
	AmountCents *int64 `json:"amount_cents"`
	Amount      string `json:"amount"`
	Notes       string `json:"notes"`
}

// =============================================================================
// SPONSORSHIPS
// =============================================================================

type SponsorshipDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Contact        string `json:"contact,omitempty"`
	PromisedCents  int64  `json:"promised_cents"`
	Promised       string `json:"promised"`
	DeliveredCents int64  `json:"delivered_cents"`
	Delivered      string `json:"delivered"`
	Notes          string `json:"notes,omitempty"`
}

func toSponsorshipDTO(sp fund.Sponsorship) SponsorshipDTO {
	return SponsorshipDTO{
		ID:             sp.ID,
		Name:           sp.Name,
		Contact:        sp.Contact,
		PromisedCents:  sp.Promised,
		Promised:       money.FormatEuros(sp.Promised),
		DeliveredCents: sp.Delivered,
		Delivered:      money.FormatEuros(sp.Delivered),
		Notes:          sp.Notes,
	}
}

type SponsorshipRequest struct {
	Name           string `json:"name"`
	Contact        string `json:"contact"`
	PromisedCents  *int64 `json:"promised_cents"`
	Promised       string `json:"promised"`
	DeliveredCents *int64 `json:"delivered_cents"`
	Delivered      string `json:"delivered"`
	Notes          string `json:"notes"`
}

// =============================================================================
// DINNERS
// =============================================================================

// DinnerDTO carries the stored row plus the derived figures the frontend
// shows: effective revenue, effective expenses, surplus, and whether the
// dinner has been copied into the movements book.
type DinnerDTO struct {
	ID             int64            `json:"id"`
	Date           string           `json:"date,omitempty"`
	Title          string           `json:"title,omitempty"`
	GuestCount     int              `json:"guest_count"`
	BasePriceCents int64            `json:"base_price_cents"`
	BasePrice      string           `json:"base_price"`
	RevenueCents   int64            `json:"revenue_cents"`
	Revenue        string           `json:"revenue"`
	ExpensesCents  int64            `json:"expenses_cents"`
	Expenses       string           `json:"expenses"`
	SurplusCents   int64            `json:"surplus_cents"`
	Surplus        string           `json:"surplus"`
	Posted         bool             `json:"posted"`
	Guests         []GuestDTO       `json:"guests"`
	ExpenseItems   []ExpenseItemDTO `json:"expense_items"`
}

func toDinnerDTO(d fund.Dinner, movements []fund.Movement) DinnerDTO {
	revenue := fund.DinnerRevenue(d)
	expenses := fund.DinnerExpenses(d)

	guests := make([]GuestDTO, 0, len(d.Guests))
	for _, g := range d.Guests {
		guests = append(guests, toGuestDTO(g))
	}
	items := make([]ExpenseItemDTO, 0, len(d.Expenses))
	for _, e := range d.Expenses {
		items = append(items, toExpenseItemDTO(e))
	}

	return DinnerDTO{
		ID:             int64(d.ID),
		Date:           d.Date,
		Title:          d.Title,
		GuestCount:     d.GuestCount,
		BasePriceCents: d.BasePrice,
		BasePrice:      money.FormatEuros(d.BasePrice),
		RevenueCents:   revenue,
		Revenue:        money.FormatEuros(revenue),
		ExpensesCents:  expenses,
		Expenses:       money.FormatEuros(expenses),
		SurplusCents:   revenue - expenses,
		Surplus:        money.FormatEuros(revenue - expenses),
		Posted:         fund.IsPosted(d, movements),
		Guests:         guests,
		ExpenseItems:   items,
	}
}

type DinnerRequest struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	GuestCount     int    `json:"guest_count"`
	BasePriceCents *int64 `json:"base_price_cents"`
	BasePrice      string `json:"base_price"`
	ExpenseCents   *int64 `json:"expense_cents"`
	Expense        string `json:"expense"`
}

type GuestDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name,omitempty"`
	Contact    string `json:"contact,omitempty"`
	PriceCents int64  `json:"price_cents"`
	Price      string `json:"price"`
	PaidCents  int64  `json:"paid_cents"`
	Paid       string `json:"paid"`
	Present    bool   `json:"present"`
}

func toGuestDTO(g fund.Guest) GuestDTO {
	return GuestDTO{
		ID:         g.ID,
		Name:       g.Name,
		Contact:    g.Contact,
		PriceCents: g.Price,
		Price:      money.FormatEuros(g.Price),
		PaidCents:  g.Paid,
		Paid:       money.FormatEuros(g.Paid),
		Present:    g.Present,
	}
}

type GuestRequest struct {
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	PriceCents *int64 `json:"price_cents"`
	Price      string `json:"price"`
	PaidCents  *int64 `json:"paid_cents"`
	Paid       string `json:"paid"`
	Present    bool   `json:"present"`
}

type ExpenseItemDTO struct {
	ID          int64  `json:"id"`
	Description string `json:"description,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

func toExpenseItemDTO(e fund.ExpenseItem) ExpenseItemDTO {
	return ExpenseItemDTO{
		ID:          e.ID,
		Description: e.Description,
		AmountCents: e.Amount,
		Amount:      money.FormatEuros(e.Amount),
	}
}

type ExpenseItemRequest struct {
	Description string `json:"description"`
	AmountCents *int64 `json:"amount_cents"`
	Amount      string `json:"amount"`
}

// =============================================================================
// BENEFICIARIES / ALLOCATIONS
// =============================================================================

type BeneficiaryDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}

func toBeneficiaryDTO(b fund.Beneficiary) BeneficiaryDTO {
	return BeneficiaryDTO{
		ID:           int64(b.ID),
		Name:         b.Name,
		BalanceCents: b.Balance,
		Balance:      money.FormatEuros(b.Balance),
	}
}

type AllocationDTO struct {
	ID              int64  `json:"id"`
	BeneficiaryID   int64  `json:"beneficiary_id"`
	BeneficiaryName string `json:"beneficiary_name,omitempty"`
	AmountCents     int64  `json:"amount_cents"`
	Amount          string `json:"amount"`
	Note            string `json:"note,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toAllocationDTO(a fund.Allocation, beneficiaryName string) AllocationDTO {
	return AllocationDTO{
		ID:              int64(a.ID),
		BeneficiaryID:   int64(a.BeneficiaryID),
		BeneficiaryName: beneficiaryName,
		AmountCents:     a.Amount,
		Amount:          money.FormatEuros(a.Amount),
		Note:            a.Note,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ApplyAllocationRequest grants remainder to one beneficiary.
type ApplyAllocationRequest struct {
	BeneficiaryID int64  `json:"beneficiary_id"`
	AmountCents   *int64 `json:"amount_cents"`
	Amount        string `json:"amount"`
	Note          string `json:"note"`
}

// EditAllocationRequest changes an existing allocation's amount.
type EditAllocationRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Amount      string `json:"amount"`
}

// =============================================================================
// ROTATION
// =============================================================================

type RotationLineDTO struct {
	Beneficiary BeneficiaryDTO `json:"beneficiary"`
	NewBlocks   int            `json:"new_blocks"`
	TargetCents int64          `json:"target_cents"`
	Target      string         `json:"target"`
}

type RotationPlanDTO struct {
	BlockSizeCents int64             `json:"block_size_cents"`
	BlockSize      string            `json:"block_size"`
	TotalBlocks    int               `json:"total_blocks"`
	AppliedBlocks  int               `json:"applied_blocks"`
	NewBlocks      int               `json:"new_blocks"`
	LeftoverCents  int64             `json:"leftover_cents"`
	Leftover       string            `json:"leftover"`
	Lines          []RotationLineDTO `json:"lines"`
}

func toRotationPlanDTO(p fund.RotationPlan) RotationPlanDTO {
	lines := make([]RotationLineDTO, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, RotationLineDTO{
			Beneficiary: toBeneficiaryDTO(l.Beneficiary),
			NewBlocks:   l.NewBlocks,
			TargetCents: l.Target,
			Target:      money.FormatEuros(l.Target),
		})
	}
	return RotationPlanDTO{
		BlockSizeCents: p.BlockSize,
		BlockSize:      money.FormatEuros(p.BlockSize),
		TotalBlocks:    p.TotalBlocks,
		AppliedBlocks:  p.AppliedBlocks,
		NewBlocks:      p.NewBlocks,
		LeftoverCents:  p.Leftover,
		Leftover:       money.FormatEuros(p.Leftover),
		Lines:          lines,
	}
}

// RotationStartRequest picks the household the next deal begins from.
// A zero id clears the override.
type RotationStartRequest struct {
	BeneficiaryID int64 `json:"beneficiary_id"`
}

// =============================================================================
// SETTINGS
// =============================================================================

type SettingsDTO struct {
	Line1           string `json:"line1"`
	Line2           string `json:"line2"`
	BlockSizeCents  int64  `json:"block_size_cents"`
	BlockSize       string `json:"block_size"`
	RotationStartID int64  `json:"rotation_start_id,omitempty"`
	BlocksApplied   int    `json:"blocks_applied"`
}

func toSettingsDTO(st fund.Settings) SettingsDTO {
	return SettingsDTO{
		Line1:           st.Line1,
		Line2:           st.Line2,
		BlockSizeCents:  st.EffectiveBlockSize(),
		BlockSize:       money.FormatEuros(st.EffectiveBlockSize()),
		RotationStartID: int64(st.RotationStartID),
		BlocksApplied:   st.BlocksApplied,
	}
}

type SettingsRequest struct {
	Line1          string `json:"line1"`
	Line2          string `json:"line2"`
	BlockSizeCents *int64 `json:"block_size_cents"`
	BlockSize      string `json:"block_size"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body. Attempted/Available are only
// set on remainder-ceiling rejections.
type ErrorResponse struct {
	Error          string `json:"error"`
	Detail         string `json:"detail,omitempty"`
	AttemptedCents int64  `json:"attempted_cents,omitempty"`
	AvailableCents int64  `json:"available_cents,omitempty"`
}
