/*
allocator.go - The accrual driver

PURPOSE:
  Enumerates every (employee, leave type) pair that needs evaluation on a
  given date and runs the calculator for each.

TWO MODES:
  Contract-bound: walk active employment contracts; create the period's
  allocation when missing (zero baseline for earned types, full cap for
  fixed types) and evaluate earned types immediately (gate bypassed).

  Policy-scan: walk every earned leave type's open allocations and
  evaluate with the allocate-on-day gate enforced.

FAILURE ISOLATION:
  One misconfigured candidate must not abort the batch. Each candidate's
  error is logged, wrapped as a CandidateError, and collected on the run
  report; the run itself only fails when enumeration fails.
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
// CONFIGURATION AND REPORT
// =============================================================================

// Config mirrors the HR settings that steer a run.
type Config struct {
	// AccrueFromContracts selects contract-bound mode over policy-scan.
	AccrueFromContracts bool

	// InferAttendance synthesizes eligibility from calendars instead of
	// trusting recorded attendance rows alone.
	InferAttendance bool
}

// RunReport summarizes one allocator invocation.
type RunReport struct {
	Date      leave.Date
	Evaluated int
	Applied   int
	Skipped   int
	Created   int
	Failed    int

	Errors []*leave.CandidateError
}

// =============================================================================
// ALLOCATOR
// =============================================================================

type Allocator struct {
	Store  leave.Store
	Config Config
	Log    *logrus.Logger
}

func NewAllocator(store leave.Store, cfg Config, log *logrus.Logger) *Allocator {
	if log == nil {
		log = logrus.New()
	}
	return &Allocator{Store: store, Config: cfg, Log: log}
}

// Run evaluates accrual for every candidate pair as of the given date.
// Idempotent per calendar day: re-running with unchanged inputs writes
// nothing new.
func (al *Allocator) Run(ctx context.Context, today leave.Date) (*RunReport, error) {
	cache := NewRunCache(al.Store)
	calc := &Calculator{
		Store:      al.Store,
		Cache:      cache,
		Aggregator: &Aggregator{Store: al.Store, Cache: cache, Infer: al.Config.InferAttendance},
		Writer:     &Writer{Store: al.Store},
	}

	report := &RunReport{Date: today}
	if al.Config.AccrueFromContracts {
		if err := al.runFromContracts(ctx, calc, today, report); err != nil {
			return report, err
		}
	} else {
		if err := al.runPolicyScan(ctx, calc, today, report); err != nil {
			return report, err
		}
	}

	al.Log.WithFields(logrus.Fields{
		"date":      today.String(),
		"evaluated": report.Evaluated,
		"applied":   report.Applied,
		"skipped":   report.Skipped,
		"created":   report.Created,
		"failed":    report.Failed,
	}).Info("accrual run completed")

	return report, nil
}

// runFromContracts creates missing allocations for contract-bound leave
// types and evaluates earned ones immediately.
func (al *Allocator) runFromContracts(ctx context.Context, calc *Calculator, today leave.Date, report *RunReport) error {
	contracts, err := al.Store.ActiveContracts(ctx, today)
	if err != nil {
		return err
	}

	for _, contract := range contracts {
		for _, leaveTypeID := range contract.LeaveTypeIDs {
			al.evaluateCandidate(ctx, calc, report, contract.EmployeeID, leaveTypeID, func() error {
				return al.contractCandidate(ctx, calc, contract, leaveTypeID, today, report)
			})
		}
	}
	return nil
}

func (al *Allocator) contractCandidate(ctx context.Context, calc *Calculator, contract leave.EmploymentContract, leaveTypeID string, today leave.Date, report *RunReport) error {
	lt, err := calc.Cache.LeaveType(ctx, leaveTypeID)
	if err != nil {
		return err
	}

	allocs, err := al.Store.AllocationsFor(ctx, contract.EmployeeID, leaveTypeID, today)
	if err != nil {
		return err
	}
	justCreated := false
	if len(allocs) == 0 {
		created, err := al.createAllocation(ctx, contract, lt, today)
		if err != nil {
			return err
		}
		allocs = []leave.Allocation{created}
		report.Created++
		justCreated = true
	}

	if !lt.IsEarnedLeave {
		return nil
	}

	// The gate is bypassed only for the binding run, so a freshly bound
	// contract accrues its first increment without waiting for a boundary.
	for _, alloc := range allocs {
		report.Evaluated++
		result, err := calc.Evaluate(ctx, alloc, today, justCreated)
		if err != nil {
			return err
		}
		tally(report, result)
	}
	return nil
}

// runPolicyScan evaluates every open allocation of every earned leave type
// with the day gate enforced.
func (al *Allocator) runPolicyScan(ctx context.Context, calc *Calculator, today leave.Date, report *RunReport) error {
	earned, err := al.Store.EarnedLeaveTypes(ctx)
	if err != nil {
		return err
	}

	for _, lt := range earned {
		allocs, err := al.Store.OpenAllocations(ctx, lt.ID, today)
		if err != nil {
			return err
		}
		for _, alloc := range allocs {
			alloc := alloc
			al.evaluateCandidate(ctx, calc, report, alloc.EmployeeID, lt.ID, func() error {
				report.Evaluated++
				result, err := calc.Evaluate(ctx, alloc, today, false)
				if err != nil {
					return err
				}
				tally(report, result)
				return nil
			})
		}
	}
	return nil
}

// evaluateCandidate isolates one candidate's failure from the batch.
func (al *Allocator) evaluateCandidate(ctx context.Context, calc *Calculator, report *RunReport, employeeID, leaveTypeID string, fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	if leave.IsBenign(err) {
		report.Skipped++
		return
	}

	candidateErr := &leave.CandidateError{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Err: err}
	report.Failed++
	report.Errors = append(report.Errors, candidateErr)

	al.Log.WithFields(logrus.Fields{
		"employee":   employeeID,
		"leave_type": leaveTypeID,
		"config":     leave.IsConfiguration(err),
	}).WithError(err).Warn("accrual candidate failed")
}

// createAllocation opens the current period's allocation for a contract
// binding: zero baseline for earned types, full cap for fixed types.
func (al *Allocator) createAllocation(ctx context.Context, contract leave.EmploymentContract, lt leave.LeaveType, today leave.Date) (leave.Allocation, error) {
	baseline := decimal.Zero
	if !lt.IsEarnedLeave {
		baseline = lt.MaxLeavesAllowed
	}

	alloc := leave.Allocation{
		ID:                   uuid.NewString(),
		EmployeeID:           contract.EmployeeID,
		CompanyID:            contract.CompanyID,
		LeaveTypeID:          lt.ID,
		FromDate:             lt.PeriodStart(today),
		ToDate:               lt.PeriodEnd(today),
		NewLeavesAllocated:   baseline,
		TotalLeavesAllocated: baseline,
		DocStatus:            leave.StatusSubmitted,
	}
	if err := al.Store.CreateAllocation(ctx, alloc); err != nil {
		return leave.Allocation{}, err
	}

	if baseline.IsPositive() {
		entry := leave.LedgerEntry{
			ID:             uuid.NewString(),
			AllocationID:   alloc.ID,
			EmployeeID:     alloc.EmployeeID,
			LeaveTypeID:    alloc.LeaveTypeID,
			Delta:          baseline,
			EffectiveDate:  alloc.FromDate,
			IdempotencyKey: "grant|" + alloc.ID,
			Note:           "allocated on contract binding",
			CreatedAt:      today,
		}
		if err := al.Store.AppendLedger(ctx, entry); err != nil && !leave.IsBenign(err) {
			return leave.Allocation{}, err
		}
	}
	return alloc, nil
}

func tally(report *RunReport, result Evaluation) {
	if result.Applied {
		report.Applied++
	} else {
		report.Skipped++
	}
}
