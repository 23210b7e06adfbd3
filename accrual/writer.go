/*
writer.go - Allocation ledger writer

PURPOSE:
  Applies a computed accrual to the persisted allocation exactly once and
  appends the matching audit ledger entry. Two paths:

  Incremental (calendar regimes): one discrete jump per evaluation. The
  total moves by the earned increment, clamped to the cap. Idempotent per
  day: a second call on the same day finds the day's accrual entry already
  in the ledger and no-ops.

  Formula (open-days regimes): re-evaluated on every call. The candidate
  total is rebuilt from the period baseline plus the cumulative earned
  amount, folds in the carried-forward balance, and is ceiled to the next
  whole day once the period closes. The delta written each time is the
  difference from the last stored total, so repeated calls converge
  instead of accumulating.

PRECISION CONTRACT:
  Both paths store totals rounded to 2 decimal places. The ledger delta is
  always new total minus old total at that precision.
*/
package accrual

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

type Writer struct {
	Store leave.Store
}

// =============================================================================
// INCREMENTAL PATH
// =============================================================================

// ApplyIncremental adds one period increment to the allocation total.
func (w *Writer) ApplyIncremental(ctx context.Context, allocationID string, lt leave.LeaveType, earned decimal.Decimal, today leave.Date) (Evaluation, error) {
	alloc, err := w.Store.Allocation(ctx, allocationID)
	if err != nil {
		return Evaluation{}, err
	}
	if alloc.DocStatus == leave.StatusCancelled {
		return Evaluation{}, leave.ErrAllocationCancelled
	}

	key := incrementalKey(alloc.ID, today)
	done, err := w.keyExists(ctx, alloc.ID, key)
	if err != nil {
		return Evaluation{}, err
	}
	if done {
		return skipped("already accrued today"), nil
	}

	newTotal := clamp(alloc.TotalLeavesAllocated.Add(earned), lt).Round(2)
	if newTotal.Equal(alloc.TotalLeavesAllocated) {
		return skipped("no balance change"), nil
	}

	return w.commit(ctx, alloc, newTotal, earned, today, key)
}

// =============================================================================
// FORMULA PATH
// =============================================================================

// ApplyFormula converges the allocation total onto the formula result:
// baseline + earned (+ carry-forward), ceiled at period close.
func (w *Writer) ApplyFormula(ctx context.Context, allocationID string, lt leave.LeaveType, earned decimal.Decimal, today leave.Date) (Evaluation, error) {
	alloc, err := w.Store.Allocation(ctx, allocationID)
	if err != nil {
		return Evaluation{}, err
	}
	if alloc.DocStatus == leave.StatusCancelled {
		return Evaluation{}, leave.ErrAllocationCancelled
	}

	candidate := clamp(alloc.NewLeavesAllocated.Add(earned.Round(2)), lt)
	if today.AfterOrEqual(alloc.ToDate) && !alloc.ToDate.IsZero() {
		// Settle fractional residue at period close.
		candidate = candidate.Ceil()
	}

	newTotal := candidate.Add(alloc.UnusedLeaves).Round(2)
	if newTotal.Equal(alloc.TotalLeavesAllocated) {
		return skipped("no balance change"), nil
	}

	key := formulaKey(alloc.ID, today, newTotal)
	return w.commit(ctx, alloc, newTotal, earned, today, key)
}

// commit persists the new total and appends the audit entry.
func (w *Writer) commit(ctx context.Context, alloc leave.Allocation, newTotal, earned decimal.Decimal, today leave.Date, key string) (Evaluation, error) {
	delta := newTotal.Sub(alloc.TotalLeavesAllocated)

	if err := w.Store.SetTotalAllocated(ctx, alloc.ID, newTotal); err != nil {
		return Evaluation{}, err
	}

	entry := leave.LedgerEntry{
		ID:             uuid.NewString(),
		AllocationID:   alloc.ID,
		EmployeeID:     alloc.EmployeeID,
		LeaveTypeID:    alloc.LeaveTypeID,
		Delta:          delta,
		EffectiveDate:  today,
		IdempotencyKey: key,
		Note:           fmt.Sprintf("allocated %s leave(s) via scheduler on %s", earned.Round(2), today),
		CreatedAt:      today,
	}
	if err := w.Store.AppendLedger(ctx, entry); err != nil {
		if leave.IsBenign(err) {
			return skipped("already accrued today"), nil
		}
		return Evaluation{}, err
	}

	return Evaluation{Applied: true, Delta: delta, NewTotal: newTotal}, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel reverses an allocation: an opposing ledger entry is appended, the
// allocation is marked cancelled, and the policy assignment's granted flag
// is reset so a new allocation may be issued.
func (w *Writer) Cancel(ctx context.Context, allocationID string, today leave.Date) error {
	alloc, err := w.Store.Allocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.DocStatus == leave.StatusCancelled {
		return leave.ErrAllocationCancelled
	}

	if !alloc.TotalLeavesAllocated.IsZero() {
		entry := leave.LedgerEntry{
			ID:             uuid.NewString(),
			AllocationID:   alloc.ID,
			EmployeeID:     alloc.EmployeeID,
			LeaveTypeID:    alloc.LeaveTypeID,
			Delta:          alloc.TotalLeavesAllocated.Neg(),
			EffectiveDate:  today,
			IdempotencyKey: fmt.Sprintf("cancel|%s", alloc.ID),
			Note:           fmt.Sprintf("allocation cancelled on %s", today),
			CreatedAt:      today,
		}
		if err := w.Store.AppendLedger(ctx, entry); err != nil && !leave.IsBenign(err) {
			return err
		}
	}

	if err := w.Store.SetDocStatus(ctx, alloc.ID, leave.StatusCancelled); err != nil {
		return err
	}

	if alloc.PolicyAssignmentID != "" {
		if err := w.Store.SetAssignmentAllocated(ctx, alloc.PolicyAssignmentID, false); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func clamp(total decimal.Decimal, lt leave.LeaveType) decimal.Decimal {
	if lt.HasCap() && total.GreaterThan(lt.MaxLeavesAllowed) {
		return lt.MaxLeavesAllowed
	}
	return total
}

func incrementalKey(allocationID string, today leave.Date) string {
	return fmt.Sprintf("accrual|%s|%s", allocationID, today)
}

func formulaKey(allocationID string, today leave.Date, total decimal.Decimal) string {
	return fmt.Sprintf("accrual|%s|%s|%s", allocationID, today, total)
}

func (w *Writer) keyExists(ctx context.Context, allocationID, key string) (bool, error) {
	entries, err := w.Store.LedgerEntries(ctx, allocationID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IdempotencyKey == key {
			return true, nil
		}
	}
	return false, nil
}
