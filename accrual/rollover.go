/*
rollover.go - Period close and carry-forward

PURPOSE:
  When an allocation period ends, the residual balance either carries
  forward into the next period or expires. Closing a period with residual
  U opens the next period's allocation with unused_leaves = U, so later
  totals include U as a floor; non-carry-forward residue is written off
  with a reversing ledger entry.

IDEMPOTENCE:
  Both the expiry entry and the opening carry-forward grant carry fixed
  idempotency keys, so a re-run after a partial failure resumes instead
  of double-writing.
*/
package accrual

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// ROLLOVER
// =============================================================================

type Rollover struct {
	Store leave.Store
	Log   *logrus.Logger
}

func NewRollover(store leave.Store, log *logrus.Logger) *Rollover {
	if log == nil {
		log = logrus.New()
	}
	return &Rollover{Store: store, Log: log}
}

// RolloverReport summarizes one period-close run.
type RolloverReport struct {
	Processed int
	Carried   int
	ExpiredN  int
	Failed    int

	Errors []*leave.CandidateError
}

// Run closes every expired, unsuperseded allocation as of the given date.
// Failures are isolated per allocation, mirroring the accrual driver.
func (r *Rollover) Run(ctx context.Context, today leave.Date) (*RolloverReport, error) {
	expired, err := r.Store.ExpiredAllocations(ctx, today)
	if err != nil {
		return nil, err
	}

	report := &RolloverReport{}
	for _, alloc := range expired {
		report.Processed++
		if err := r.close(ctx, alloc, today); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, &leave.CandidateError{
				EmployeeID:  alloc.EmployeeID,
				LeaveTypeID: alloc.LeaveTypeID,
				Err:         err,
			})
			r.Log.WithFields(logrus.Fields{
				"allocation": alloc.ID,
				"employee":   alloc.EmployeeID,
			}).WithError(err).Warn("rollover failed")
			continue
		}
		lt, ltErr := r.Store.LeaveType(ctx, alloc.LeaveTypeID)
		if ltErr == nil && lt.IsCarryForward {
			report.Carried++
		} else {
			report.ExpiredN++
		}
	}

	r.Log.WithFields(logrus.Fields{
		"date":      today.String(),
		"processed": report.Processed,
		"carried":   report.Carried,
		"expired":   report.ExpiredN,
		"failed":    report.Failed,
	}).Info("rollover run completed")

	return report, nil
}

// close settles one expired allocation.
func (r *Rollover) close(ctx context.Context, alloc leave.Allocation, today leave.Date) error {
	lt, err := r.Store.LeaveType(ctx, alloc.LeaveTypeID)
	if err != nil {
		return err
	}

	residual, err := r.residualBalance(ctx, alloc)
	if err != nil {
		return err
	}

	if !lt.IsCarryForward {
		return r.expire(ctx, alloc, residual, today)
	}
	return r.carryForward(ctx, alloc, lt, residual, today)
}

// residualBalance is the accrued total minus everything consumed against it.
func (r *Rollover) residualBalance(ctx context.Context, alloc leave.Allocation) (decimal.Decimal, error) {
	entries, err := r.Store.LedgerEntries(ctx, alloc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	taken := decimal.Zero
	for _, e := range entries {
		if e.IsConsumption() {
			taken = taken.Add(e.Delta.Neg())
		}
	}
	residual := alloc.TotalLeavesAllocated.Sub(taken)
	if residual.IsNegative() {
		residual = decimal.Zero
	}
	return residual, nil
}

// expire writes off residue that does not carry forward. A later allocation
// (if any) starts clean; the old one keeps its audit trail.
func (r *Rollover) expire(ctx context.Context, alloc leave.Allocation, residual decimal.Decimal, today leave.Date) error {
	if residual.IsPositive() {
		entry := leave.LedgerEntry{
			ID:             uuid.NewString(),
			AllocationID:   alloc.ID,
			EmployeeID:     alloc.EmployeeID,
			LeaveTypeID:    alloc.LeaveTypeID,
			Delta:          residual.Neg(),
			EffectiveDate:  alloc.ToDate,
			IdempotencyKey: "expire|" + alloc.ID,
			Note:           "balance expired at period end",
			CreatedAt:      today,
		}
		if err := r.Store.AppendLedger(ctx, entry); err != nil && !leave.IsBenign(err) {
			return err
		}
	}
	return r.Store.MarkClosed(ctx, alloc.ID)
}

// carryForward opens the next period's allocation seeded with the residual.
func (r *Rollover) carryForward(ctx context.Context, alloc leave.Allocation, lt leave.LeaveType, residual decimal.Decimal, today leave.Date) error {
	nextFrom := alloc.ToDate.AddDays(1)
	nextTo := lt.PeriodEnd(nextFrom)
	if !nextTo.After(nextFrom) {
		nextTo = nextFrom.AddYears(1).AddDays(-1)
	}

	next := leave.Allocation{
		ID:                   uuid.NewString(),
		EmployeeID:           alloc.EmployeeID,
		CompanyID:            alloc.CompanyID,
		LeaveTypeID:          alloc.LeaveTypeID,
		FromDate:             nextFrom,
		ToDate:               nextTo,
		NewLeavesAllocated:   decimal.Zero,
		TotalLeavesAllocated: residual,
		UnusedLeaves:         residual,
		LeavePolicyID:        alloc.LeavePolicyID,
		PolicyAssignmentID:   alloc.PolicyAssignmentID,
		DocStatus:            leave.StatusSubmitted,
	}
	if err := r.Store.CreateAllocation(ctx, next); err != nil {
		if leave.IsBenign(err) {
			return r.Store.MarkClosed(ctx, alloc.ID)
		}
		return err
	}

	if residual.IsPositive() {
		entry := leave.LedgerEntry{
			ID:             uuid.NewString(),
			AllocationID:   next.ID,
			EmployeeID:     next.EmployeeID,
			LeaveTypeID:    next.LeaveTypeID,
			Delta:          residual,
			EffectiveDate:  nextFrom,
			IdempotencyKey: "carry|" + alloc.ID,
			Note:           "carried forward from previous period",
			CreatedAt:      today,
		}
		if err := r.Store.AppendLedger(ctx, entry); err != nil && !leave.IsBenign(err) {
			return err
		}
	}
	return r.Store.MarkClosed(ctx, alloc.ID)
}
