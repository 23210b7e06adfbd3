/*
leavedays.go - Regime-aware leave day counting

PURPOSE:
  Counts how many leave days a request between two dates consumes, for
  payroll and request validation. French counting starts from the first
  expected working day after the leave begins: the day after the start
  date, skipping an initial Saturday and any holidays. Holidays inside
  the span are then excluded unless the leave type includes them. A
  single-day half leave counts 0.5; a half day falling inside the counted
  span adds 0.5 on top of it.

  For the jours-ouvrables regime, weekly-off Saturdays are not holidays,
  so they consume leave like any counted day.
*/
package accrual

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

var half = decimal.NewFromFloat(0.5)

// LeaveDaysBetween returns the number of leave days consumed in [from, to]
// after holiday exclusion and half-day handling. The boolean mirrors the
// data-access contract: whether the count is authoritative for this type.
func LeaveDaysBetween(ctx context.Context, store leave.Store, employeeID, leaveTypeID string, from, to leave.Date, halfDay bool, halfDayDate leave.Date) (decimal.Decimal, bool, error) {
	lt, err := store.LeaveType(ctx, leaveTypeID)
	if err != nil {
		return decimal.Zero, false, err
	}

	holidays, err := store.HolidaysFor(ctx, employeeID, from, to.AddDays(-1))
	if err != nil {
		return decimal.Zero, false, err
	}

	ouvrables := lt.IsEarnedLeave && lt.Frequency == leave.FreqOpenDaysOuvrables
	holidaySet := leave.NewDateSet()
	var holidayDates []leave.Date
	for _, h := range holidays {
		if ouvrables && h.WeeklyOff && h.Date.Weekday() == time.Saturday {
			continue
		}
		holidaySet.Add(h.Date)
		holidayDates = append(holidayDates, h.Date)
	}

	// First expected working day after the leave starts. An initial
	// Saturday does not count as a leave day.
	next := from.AddDays(1)
	if next.Weekday() == time.Saturday {
		next = next.AddDays(1)
	}
	for holidaySet.Contains(next) {
		next = next.AddDays(1)
	}

	var days decimal.Decimal
	switch {
	case halfDay && from.Equal(to):
		days = half
	case halfDay && !halfDayDate.IsZero() && next.BeforeOrEqual(halfDayDate) && halfDayDate.BeforeOrEqual(to):
		// A half day inside the counted span: the half worked day still
		// consumes half a day of leave on top of the full span.
		days = decimal.NewFromInt(int64(leave.DaysBetween(next, to))).Add(half)
	default:
		// A half day outside [next, to] (notably on the departure day
		// itself) gets no adjustment.
		days = decimal.NewFromInt(int64(leave.DaysBetween(next, to)))
	}

	if !lt.IncludeHoliday {
		excluded := 0
		for _, h := range holidayDates {
			if h.After(next) {
				excluded++
			}
		}
		days = days.Sub(decimal.NewFromInt(int64(excluded)))
	}

	return decimal.Max(days, decimal.Zero), true, nil
}
