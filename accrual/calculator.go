/*
calculator.go - The accrual calculator

PURPOSE:
  For one (employee, leave type, allocation period) triple, computes how
  many leave days should be accrued as of "today" and hands the result to
  the ledger writer.

REGIMES:
  Calendar frequencies (monthly/quarterly/half-yearly/yearly) grant
  annual_allocation / divisor in one discrete jump per boundary, gated by
  the leave type's allocate-on-day option, through the writer's
  incremental path.

  The open-days regimes accrue continuously from counted eligible days:
    earned = min(earneable_per_month * max(days/D, weeks/4),
                 months_elapsed * earneable_per_month)
  with D = 24 for jours ouvrables (6-day week) and D = 20 for jours
  ouvrés (5-day week), written through the formula path on every call.

  Each regime is one entry in the regime table; adding a regime means
  adding a row, not another branch.

ENTRY GATE:
  Callers that just bound a contract pass immediate=true to bypass the
  allocate-on-day gate; scheduled runs keep it enforced so each boundary
  grants at most once.
*/
package accrual

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EVALUATION RESULT
// =============================================================================

// Evaluation reports what one calculator call did.
type Evaluation struct {
	Applied bool
	Skipped bool
	Reason  string

	// Delta and NewTotal are set when Applied.
	Delta    decimal.Decimal
	NewTotal decimal.Decimal
}

func skipped(reason string) Evaluation {
	return Evaluation{Skipped: true, Reason: reason}
}

// =============================================================================
// CALCULATOR
// =============================================================================

type Calculator struct {
	Store      leave.Store
	Cache      *RunCache
	Aggregator *Aggregator
	Writer     *Writer
}

// evaluation is the per-call state threaded through a regime function.
type evaluation struct {
	alloc leave.Allocation
	lt    leave.LeaveType
	today leave.Date

	periodStart leave.Date
	periodEnd   leave.Date // min(today, alloc.ToDate)

	annualAllocation  decimal.Decimal
	earneablePerMonth decimal.Decimal
}

// regimeFunc computes and writes the accrual for one frequency tag.
type regimeFunc func(c *Calculator, ctx context.Context, ev *evaluation) (Evaluation, error)

var regimes = map[leave.Frequency]regimeFunc{
	leave.FreqMonthly:           (*Calculator).calendarRegime,
	leave.FreqQuarterly:         (*Calculator).calendarRegime,
	leave.FreqHalfYearly:        (*Calculator).calendarRegime,
	leave.FreqYearly:            (*Calculator).calendarRegime,
	leave.FreqOpenDaysOuvrables: (*Calculator).ouvrablesRegime,
	leave.FreqOpenDaysOuvres:    (*Calculator).ouvresRegime,
}

// Evaluate runs one accrual evaluation. immediate bypasses the
// allocate-on-day gate (contract-binding path).
func (c *Calculator) Evaluate(ctx context.Context, alloc leave.Allocation, today leave.Date, immediate bool) (Evaluation, error) {
	if alloc.DocStatus != leave.StatusSubmitted {
		return skipped("allocation not submitted"), nil
	}

	lt, err := c.Cache.LeaveType(ctx, alloc.LeaveTypeID)
	if err != nil {
		return Evaluation{}, err
	}

	regime, ok := regimes[lt.Frequency]
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: unknown accrual frequency %q", leave.ErrInvalidPeriod, lt.Frequency)
	}

	if lt.Frequency.IsCalendar() && !immediate {
		pass, err := c.gateOpen(ctx, alloc, lt, today)
		if err != nil {
			return Evaluation{}, err
		}
		if !pass {
			return skipped("allocate-on-day gate not satisfied"), nil
		}
	}

	ev := &evaluation{alloc: alloc, lt: lt, today: today}
	ev.periodStart = alloc.FromDate
	if ev.periodStart.IsZero() {
		ev.periodStart = lt.PeriodStart(today)
	}
	periodEnd := alloc.ToDate
	if periodEnd.IsZero() {
		periodEnd = lt.PeriodEnd(today)
	}
	ev.periodEnd = leave.MinDate(today, periodEnd)

	annual, err := c.resolveAnnualAllocation(ctx, alloc, lt)
	if err != nil {
		return Evaluation{}, err
	}
	if !annual.IsPositive() {
		return skipped("no annual allocation resolved"), nil
	}
	ev.annualAllocation = annual
	ev.earneablePerMonth = annual.Div(twelve).Round(2)

	return regime(c, ctx, ev)
}

// gateOpen checks the allocate-on-day restriction for calendar regimes.
func (c *Calculator) gateOpen(ctx context.Context, alloc leave.Allocation, lt leave.LeaveType, today leave.Date) (bool, error) {
	switch lt.AllocateOn {
	case leave.AllocateFirstDay:
		return today.IsFirstOfMonth(), nil
	case leave.AllocateLastDay:
		return today.IsLastOfMonth(), nil
	case leave.AllocateDateOfJoined:
		emp, err := c.Cache.Employee(ctx, alloc.EmployeeID)
		if err != nil {
			return false, err
		}
		if emp.DateOfJoining.IsZero() {
			return false, nil
		}
		// Clamp to month length so a 31st joiner still accrues in
		// 30-day months.
		day := emp.DateOfJoining.Day()
		if last := today.LastOfMonth().Day(); day > last {
			day = last
		}
		return today.Day() == day, nil
	default:
		return true, nil
	}
}

// resolveAnnualAllocation looks up the annual allocation: directly bound
// policy first, then the policy behind the assignment, then the leave
// type's own cap.
func (c *Calculator) resolveAnnualAllocation(ctx context.Context, alloc leave.Allocation, lt leave.LeaveType) (decimal.Decimal, error) {
	policyID := alloc.LeavePolicyID
	if policyID == "" && alloc.PolicyAssignmentID != "" {
		assignment, err := c.Store.PolicyAssignment(ctx, alloc.PolicyAssignmentID)
		if err != nil {
			return decimal.Zero, err
		}
		policyID = assignment.LeavePolicyID
	}

	if policyID != "" {
		policy, err := c.Store.LeavePolicy(ctx, policyID)
		if err != nil {
			return decimal.Zero, err
		}
		if annual, ok := policy.AnnualAllocation(lt.ID); ok {
			return annual, nil
		}
		return decimal.Zero, fmt.Errorf("%w: policy %s has no detail for leave type %s",
			leave.ErrNoAnnualAllocation, policyID, lt.ID)
	}

	return lt.MaxLeavesAllowed, nil
}

// =============================================================================
// REGIME FORMULAS
// =============================================================================

// calendarRegime grants annual / divisor in one jump per boundary.
func (c *Calculator) calendarRegime(ctx context.Context, ev *evaluation) (Evaluation, error) {
	divisor := decimal.NewFromInt(int64(ev.lt.Frequency.Divisor()))
	earned := ev.lt.Rounding.Apply(ev.annualAllocation.Div(divisor))
	return c.Writer.ApplyIncremental(ctx, ev.alloc.ID, ev.lt, earned, ev.today)
}

// ouvrablesRegime: jours ouvrables, 24 counted days per month.
func (c *Calculator) ouvrablesRegime(ctx context.Context, ev *evaluation) (Evaluation, error) {
	return c.openDaysRegime(ctx, ev, twentyFour, false)
}

// ouvresRegime: jours ouvrés, 20 counted days per month, with the month-end
// catch-up when no absence explains a shortfall.
func (c *Calculator) ouvresRegime(ctx context.Context, ev *evaluation) (Evaluation, error) {
	return c.openDaysRegime(ctx, ev, twenty, true)
}

func (c *Calculator) openDaysRegime(ctx context.Context, ev *evaluation, daysPerMonth decimal.Decimal, catchUp bool) (Evaluation, error) {
	summary, err := c.Aggregator.Summarize(ctx, ev.alloc, ev.lt, ev.periodStart, ev.periodEnd)
	if err != nil {
		return Evaluation{}, err
	}

	months := monthsElapsed(ev.periodStart, ev.periodEnd)
	fullEntitlement := decimal.NewFromInt(int64(months)).Mul(ev.earneablePerMonth)

	fraction := decimal.Max(
		summary.EligibleCount().Div(daysPerMonth),
		summary.EquivalentWeeks.Div(four),
	)
	earned := decimal.Min(ev.earneablePerMonth.Mul(fraction), fullEntitlement)

	// Assume full attendance when nothing on record explains a month-end
	// shortfall. Flagged business rule: see DESIGN.md.
	if catchUp && ev.today.IsLastOfMonth() && earned.LessThan(fullEntitlement) && len(summary.AbsenceDates) == 0 {
		earned = fullEntitlement
	}

	return c.Writer.ApplyFormula(ctx, ev.alloc.ID, ev.lt, earned, ev.today)
}

// monthsElapsed counts completed months in [start, end]: the month holding
// end only counts once end reaches its last day.
func monthsElapsed(start, end leave.Date) int {
	months := leave.MonthDiff(start, end)
	if !end.IsLastOfMonth() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
