/*
rotation.go - Block rotation over beneficiary households

PURPOSE:
  The projected balance is chopped into fixed-size blocks and the blocks
  are dealt round-robin across the households, starting from a configured
  household. Applying the rotation credits each household's balance and
  advances the applied-block counter, so re-running it only ever deals the
  blocks earned since last time.

  PlanRotation is a pure function: settings arrive as an explicit value,
  never read ambiently.
*/
package fund

import (
	"context"
	"sort"
)

// RotationLine is one household's share of the plan.
type RotationLine struct {
	Beneficiary Beneficiary
	NewBlocks   int
	Target      int64 // balance after the plan is applied
}

// RotationPlan describes how many blocks the projected balance earns and
// how the new ones would be dealt.
type RotationPlan struct {
	BlockSize     int64
	TotalBlocks   int
	AppliedBlocks int
	NewBlocks     int
	Leftover      int64 // projected balance not covered by whole blocks
	Lines         []RotationLine
}

// PlanRotation computes the rotation for the given settings, households
// and projected balance. Pure function; nothing is written.
func PlanRotation(st Settings, beneficiaries []Beneficiary, projectedBalance int64) RotationPlan {
	block := st.EffectiveBlockSize()

	plan := RotationPlan{
		BlockSize:     block,
		AppliedBlocks: st.BlocksApplied,
		Leftover:      projectedBalance,
	}

	ordered := make([]Beneficiary, len(beneficiaries))
	copy(ordered, beneficiaries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	plan.Lines = make([]RotationLine, len(ordered))
	for i, b := range ordered {
		plan.Lines[i] = RotationLine{Beneficiary: b, Target: b.Balance}
	}

	if block <= 0 || projectedBalance <= 0 {
		return plan
	}

	plan.TotalBlocks = int(projectedBalance / block)
	plan.Leftover = projectedBalance - int64(plan.TotalBlocks)*block
	plan.NewBlocks = plan.TotalBlocks - plan.AppliedBlocks
	if plan.NewBlocks < 0 {
		plan.NewBlocks = 0
	}

	if len(ordered) == 0 || plan.NewBlocks == 0 {
		return plan
	}

	start := 0
	if st.RotationStartID != 0 {
		for i, b := range ordered {
			if b.ID == st.RotationStartID {
				start = i
				break
			}
		}
	}

	for k, i := 0, start; k < plan.NewBlocks; k, i = k+1, (i+1)%len(ordered) {
		plan.Lines[i].NewBlocks++
		plan.Lines[i].Target += block
	}
	return plan
}

// ApplyRotation recomputes the plan inside one transaction, credits every
// household its new blocks, and advances the applied-block counter. The
// settings row is re-read in the same transaction so concurrent applies
// cannot deal the same block twice.
func (l *Ledger) ApplyRotation(ctx context.Context) (RotationPlan, error) {
	var plan RotationPlan
	err := l.store.WithTx(ctx, func(tx TxStore) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		view, err := LoadView(ctx, tx)
		if err != nil {
			return err
		}
		sum := ComputeSummary(view)

		plan = PlanRotation(st, view.Beneficiaries, sum.ProjectedBalance)
		if plan.NewBlocks == 0 {
			return nil
		}

		for _, line := range plan.Lines {
			if line.NewBlocks == 0 {
				continue
			}
			if _, err := tx.AdjustBeneficiaryBalance(ctx, line.Beneficiary.ID, int64(line.NewBlocks)*plan.BlockSize); err != nil {
				return err
			}
		}
		return tx.AddBlocksApplied(ctx, plan.NewBlocks)
	})
	return plan, err
}
