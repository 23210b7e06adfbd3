/*
attendance.go - Attendance aggregation for open-days accrual

PURPOSE:
  Normalizes an employee's calendar over a date range into the summary the
  open-days formulas consume: eligible days, the equivalent week count, and
  the absence dates that explain any shortfall.

TWO MODES:
  Direct: eligibility comes straight from recorded attendance rows,
  partitioned into "counts" vs "excluded/absent".

  Inferred: attendance is not explicitly recorded, so eligibility is
  synthesized day by day. A day is eligible unless it is a holiday or a
  proven absence - presence never has to be proven. Recorded rows are
  first filtered by the weekdays the employee's active contract designates
  as working days.

OUVRABLES RULE:
  The jours-ouvrables regime counts Saturdays as potentially worked days,
  so weekly-off Saturdays are dropped from the holiday list; only genuine
  public holidays remain. The jours-ouvrés regime keeps the full list.
*/
package accrual

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

var (
	seven      = decimal.NewFromInt(7)
	twelve     = decimal.NewFromInt(12)
	four       = decimal.NewFromInt(4)
	twentyFour = decimal.NewFromInt(24)
	twenty     = decimal.NewFromInt(20)
)

// Summary is the normalized attendance picture for one allocation period.
type Summary struct {
	// EligibleDates are the days that count toward acquisition, in order.
	EligibleDates []leave.Date

	// EquivalentWeeks is len(EligibleDates) / 7.
	EquivalentWeeks decimal.Decimal

	// AbsenceDates are proven absences and excluded-leave days.
	AbsenceDates []leave.Date
}

// EligibleCount returns the number of eligible days as a decimal.
func (s Summary) EligibleCount() decimal.Decimal {
	return decimal.NewFromInt(int64(len(s.EligibleDates)))
}

func summarize(eligible, absences []leave.Date) Summary {
	return Summary{
		EligibleDates:   eligible,
		EquivalentWeeks: decimal.NewFromInt(int64(len(eligible))).Div(seven),
		AbsenceDates:    absences,
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	Store leave.Store
	Cache *RunCache

	// Infer synthesizes eligibility from calendars instead of trusting
	// recorded rows alone.
	Infer bool
}

// Summarize builds the attendance summary for an allocation. periodEnd is
// the evaluation end (min of today and the allocation's to_date); the
// aggregation window stops at the end of the previous month unless the
// evaluation end is itself a month end, so partial months never count.
func (g *Aggregator) Summarize(ctx context.Context, alloc leave.Allocation, lt leave.LeaveType, periodStart, periodEnd leave.Date) (Summary, error) {
	excluded, err := g.Cache.ExcludedLeaveTypes(ctx)
	if err != nil {
		return Summary{}, err
	}

	recordEnd := periodEnd
	if !recordEnd.IsLastOfMonth() {
		recordEnd = recordEnd.FirstOfMonth().AddDays(-1)
	}
	records, err := g.Store.Attendance(ctx, alloc.EmployeeID, periodStart, recordEnd)
	if err != nil {
		return Summary{}, err
	}

	if g.Infer {
		return g.infer(ctx, alloc, lt, periodStart, periodEnd, records, excluded)
	}
	return direct(records, excluded), nil
}

// direct partitions recorded rows into eligible days and absences.
func direct(records []leave.AttendanceRecord, excluded leave.IDSet) Summary {
	var eligible, absences []leave.Date
	for _, r := range records {
		if r.CountsTowardAcquisition(excluded) {
			eligible = append(eligible, r.Date)
		} else {
			absences = append(absences, r.Date)
		}
	}
	return summarize(eligible, absences)
}

// infer walks every calendar day in range, counting a day as eligible
// unless it is a holiday or a proven absence.
func (g *Aggregator) infer(ctx context.Context, alloc leave.Allocation, lt leave.LeaveType, periodStart, periodEnd leave.Date, records []leave.AttendanceRecord, excluded leave.IDSet) (Summary, error) {
	emp, err := g.Cache.Employee(ctx, alloc.EmployeeID)
	if err != nil {
		return Summary{}, err
	}

	start := periodStart
	if !emp.DateOfJoining.IsZero() {
		start = leave.MaxDate(start, emp.DateOfJoining)
	}

	// Count only completed months.
	end := periodEnd
	if !end.IsLastOfMonth() {
		end = end.FirstOfMonth().AddDays(-1)
	}
	if !emp.RelievingDate.IsZero() {
		end = leave.MinDate(end, emp.RelievingDate)
	}
	if end.Before(start) {
		return Summary{}, nil
	}

	recorded := leave.NewDateSet()
	var absences []leave.Date
	absent := leave.NewDateSet()
	for _, r := range records {
		if r.CountsTowardAcquisition(excluded) {
			recorded.Add(r.Date)
		} else {
			absences = append(absences, r.Date)
			absent.Add(r.Date)
		}
	}

	// If a contract restricts eligible weekdays, recorded rows on
	// non-contracted weekdays are dropped.
	contracts, err := g.Store.ContractsCovering(ctx, alloc.EmployeeID, start, end)
	if err != nil {
		return Summary{}, err
	}
	if workdays := contractedWeekdays(contracts); workdays != nil {
		filtered := leave.NewDateSet()
		for _, r := range records {
			if r.CountsTowardAcquisition(excluded) && workdays[r.Date.Weekday()] {
				filtered.Add(r.Date)
			}
		}
		recorded = filtered
	}

	holidayDates, err := g.holidaySet(ctx, alloc.EmployeeID, lt, start, end)
	if err != nil {
		return Summary{}, err
	}

	var eligible []leave.Date
	for _, day := range leave.DateRange(start, end) {
		switch {
		case recorded.Contains(day):
			eligible = append(eligible, day)
		case holidayDates.Contains(day) || absent.Contains(day):
			// not eligible
		default:
			eligible = append(eligible, day)
		}
	}
	return summarize(eligible, absences), nil
}

// holidaySet loads the employee's holidays, applying the ouvrables Saturday
// rule: a weekly-off day falling on Saturday is not a holiday for that
// regime unless it is a genuine public holiday.
func (g *Aggregator) holidaySet(ctx context.Context, employeeID string, lt leave.LeaveType, from, to leave.Date) (leave.DateSet, error) {
	holidays, err := g.Cache.HolidaysFor(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	set := leave.NewDateSet()
	for _, h := range holidays {
		if lt.Frequency == leave.FreqOpenDaysOuvrables && h.WeeklyOff && h.Date.Weekday() == time.Saturday {
			continue
		}
		set.Add(h.Date)
	}
	return set, nil
}

// contractedWeekdays merges working weekdays across contracts; nil means no
// contract restricts eligibility.
func contractedWeekdays(contracts []leave.EmploymentContract) map[time.Weekday]bool {
	var merged map[time.Weekday]bool
	for _, c := range contracts {
		for wd := range c.WorkingWeekdays() {
			if merged == nil {
				merged = make(map[time.Weekday]bool)
			}
			merged[wd] = true
		}
	}
	return merged
}
