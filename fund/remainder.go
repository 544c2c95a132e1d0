/*
remainder.go - The remainder summary

PURPOSE:
  Combines the balance calculator's outputs into the two remainders: the
  theoretical one (informative, includes speculative dinner profit) and
  the available one (the hard ceiling for new grants). One function, one
  formula, used both by the summary endpoint and by the pre-write ceiling
  check inside the allocation ledger.

THE CEILING:
  availableRemainder deliberately excludes the projected dinner surplus:
  an operator must not hand out money that exists only as an unconfirmed
  future profit. Granted money shows up twice in the inputs - once as the
  beneficiary's balance and once as the allocation row - so the ceiling
  subtracts the applied total plus only the portion of beneficiary balance
  NOT explained by allocations (block-rotation credits and other external
  adjustments). Subtracting both in full would count every grant twice.

INVARIANTS:
  - availableRemainder >= 0 always
  - holding the posted balance fixed, it is non-increasing as allocations
    are added and non-decreasing as they are removed or reduced
*/
package fund

// Summary is the remainder picture at one point in time. All figures are
// integers in minor currency units.
type Summary struct {
	PostedBalance           int64
	ProjectedSurplus        int64
	ProjectedBalance        int64
	TotalBeneficiaryBalance int64
	TheoreticalRemainder    int64
	AppliedRemainder        int64
	AvailableRemainder      int64
}

// ComputeSummary derives the full remainder summary from a loaded view.
// Pure function of its input.
func ComputeSummary(v *LedgerView) Summary {
	posted := PostedBalance(v)
	projected := ProjectedSurplus(v)
	beneficiaries := TotalBeneficiaryBalance(v)
	applied := AppliedRemainder(v)

	theoretical := posted + projected - beneficiaries
	if theoretical < 0 {
		theoretical = 0
	}

	// Beneficiary balance in excess of recorded allocations: rotation
	// credits and manual adjustments.
	external := beneficiaries - applied
	if external < 0 {
		external = 0
	}

	available := posted - applied - external
	if available < 0 {
		available = 0
	}

	return Summary{
		PostedBalance:           posted,
		ProjectedSurplus:        projected,
		ProjectedBalance:        posted + projected,
		TotalBeneficiaryBalance: beneficiaries,
		TheoreticalRemainder:    theoretical,
		AppliedRemainder:        applied,
		AvailableRemainder:      available,
	}
}
