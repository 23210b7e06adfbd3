/*
Package leave defines the leave accrual data model.

PURPOSE:
  This package contains the domain types shared by the accrual engine and
  its storage backends: leave types and their accrual configuration, leave
  policies, allocations, the append-only allocation ledger, and the HR
  master data the engine reads (employees, contracts, attendance, holidays).

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: accrual policy definition (frequency, rounding, cap, period)
  - LeavePolicy / PolicyAssignment: annual allocation bundles per employee
  - EmploymentContract: working weekdays and bound leave types
  - AttendanceRecord / Holiday: eligibility inputs for the aggregator

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every leave balance, never float64
  2. Immutability: ledger entries are appended, never edited
  3. Read-only inputs: everything except Allocation is read-only from the
     calculator's perspective

SEE ALSO:
  - allocation.go: Allocation aggregate and LedgerEntry
  - store.go: persistence interfaces
  - date.go: calendar date helpers
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL CONFIGURATION
// =============================================================================

// Frequency selects the accrual regime for an earned leave type.
type Frequency string

const (
	// Calendar-frequency regimes: one discrete jump per boundary.
	FreqMonthly    Frequency = "monthly"
	FreqQuarterly  Frequency = "quarterly"
	FreqHalfYearly Frequency = "half_yearly"
	FreqYearly     Frequency = "yearly"

	// French open-days regimes: continuous accrual over counted days.
	// Ouvrables counts all days except Sunday and public holidays;
	// ouvrés counts business days of a 5-day week.
	FreqOpenDaysOuvrables Frequency = "open_days_ouvrables"
	FreqOpenDaysOuvres    Frequency = "open_days_ouvres"
)

// IsCalendar reports whether the frequency is one of the fixed calendar
// regimes (as opposed to the open-days formulas).
func (f Frequency) IsCalendar() bool {
	switch f {
	case FreqMonthly, FreqQuarterly, FreqHalfYearly, FreqYearly:
		return true
	}
	return false
}

// Divisor returns the number of grants per allocation year for calendar
// frequencies. Zero for open-days regimes.
func (f Frequency) Divisor() int {
	switch f {
	case FreqMonthly:
		return 12
	case FreqQuarterly:
		return 4
	case FreqHalfYearly:
		return 2
	case FreqYearly:
		return 1
	}
	return 0
}

// Rounding is applied to each calendar-frequency increment.
type Rounding string

const (
	RoundNone    Rounding = "none"    // keep the exact quotient
	RoundHalf    Rounding = "half"    // nearest 0.5
	RoundNearest Rounding = "nearest" // nearest whole day
)

// Apply rounds an increment according to the policy. The zero value
// behaves like RoundNone.
func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	switch r {
	case RoundHalf:
		return d.Mul(two).Round(0).Div(two)
	case RoundNearest:
		return d.Round(0)
	default:
		return d
	}
}

var two = decimal.NewFromInt(2)

// AllocateOnDay gates calendar-frequency accrual to a specific day of month.
type AllocateOnDay string

const (
	AllocateAnyDay       AllocateOnDay = ""
	AllocateFirstDay     AllocateOnDay = "first_day"
	AllocateLastDay      AllocateOnDay = "last_day"
	AllocateDateOfJoined AllocateOnDay = "date_of_joining"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType is the policy definition for one kind of leave. Immutable once
// allocations reference it, except for administrative correction.
type LeaveType struct {
	ID   string
	Name string

	IsEarnedLeave bool
	Frequency     Frequency
	Rounding      Rounding
	AllocateOn    AllocateOnDay

	// MaxLeavesAllowed caps the allocation total; zero means uncapped.
	// It doubles as the annual allocation when no policy resolves one.
	MaxLeavesAllowed decimal.Decimal

	IsCarryForward bool

	// IncludeHoliday: holidays inside a leave application count as leave.
	IncludeHoliday bool

	// ExcludeFromAcquisition: absences of this type do not count as
	// eligible days when accruing other leave types.
	ExcludeFromAcquisition bool

	// Recurring allocation window boundaries (month/day), e.g. June 1 to
	// May 31 for French paid leave.
	PeriodStartMonth time.Month
	PeriodStartDay   int
	PeriodEndMonth   time.Month
	PeriodEndDay     int
}

// Validate checks the recurring period boundaries. February is capped at 28
// so the window is valid in non-leap years too.
func (lt *LeaveType) Validate() error {
	boundaries := []struct {
		name  string
		month time.Month
		day   int
	}{
		{"period start", lt.PeriodStartMonth, lt.PeriodStartDay},
		{"period end", lt.PeriodEndMonth, lt.PeriodEndDay},
	}
	for _, b := range boundaries {
		if b.month < time.January || b.month > time.December {
			return fmt.Errorf("%w: %s month %d out of range", ErrInvalidPeriod, b.name, b.month)
		}
		max := daysInMonth(b.month)
		if b.day < 1 || b.day > max {
			return fmt.Errorf("%w: %s day %d out of range for %s (max %d)",
				ErrInvalidPeriod, b.name, b.day, b.month, max)
		}
	}
	return nil
}

func daysInMonth(m time.Month) int {
	switch m {
	case time.February:
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// PeriodStart returns the most recent occurrence of the recurring period
// start strictly before the reference date.
func (lt *LeaveType) PeriodStart(ref Date) Date {
	start := NewDate(ref.Year(), lt.PeriodStartMonth, lt.PeriodStartDay)
	if start.AfterOrEqual(ref) {
		start = start.AddYears(-1)
	}
	return start
}

// PeriodEnd returns the next occurrence of the recurring period end strictly
// after the reference date.
func (lt *LeaveType) PeriodEnd(ref Date) Date {
	end := NewDate(ref.Year(), lt.PeriodEndMonth, lt.PeriodEndDay)
	if end.BeforeOrEqual(ref) {
		end = end.AddYears(1)
	}
	return end
}

// HasCap reports whether MaxLeavesAllowed limits the allocation.
func (lt *LeaveType) HasCap() bool {
	return lt.MaxLeavesAllowed.IsPositive()
}

// =============================================================================
// LEAVE POLICY AND ASSIGNMENT
// =============================================================================

// LeavePolicy bundles annual allocations per leave type. Read-only from the
// calculator's perspective.
type LeavePolicy struct {
	ID      string
	Title   string
	Details []PolicyDetail
}

// PolicyDetail maps one leave type to its annual allocation.
type PolicyDetail struct {
	LeaveTypeID      string
	AnnualAllocation decimal.Decimal
}

// AnnualAllocation resolves the allocation for a leave type.
func (p *LeavePolicy) AnnualAllocation(leaveTypeID string) (decimal.Decimal, bool) {
	for _, d := range p.Details {
		if d.LeaveTypeID == leaveTypeID {
			return d.AnnualAllocation, true
		}
	}
	return decimal.Zero, false
}

// PolicyAssignment binds an employee to a leave policy for a date window.
// LeavesAllocated tracks whether the assignment has produced an allocation;
// cancelling that allocation resets it so a new grant is permitted.
type PolicyAssignment struct {
	ID            string
	EmployeeID    string
	LeavePolicyID string
	EffectiveFrom Date
	EffectiveTo   Date

	LeavesAllocated bool
}

// =============================================================================
// HR MASTER DATA (read-only inputs)
// =============================================================================

// Employee is the minimal employee record the engine reads.
type Employee struct {
	ID            string
	Name          string
	CompanyID     string
	DateOfJoining Date
	RelievingDate Date // zero = still employed
}

// Active reports whether the employee is employed on the given date.
func (e *Employee) Active(on Date) bool {
	if !e.DateOfJoining.IsZero() && on.Before(e.DateOfJoining) {
		return false
	}
	if !e.RelievingDate.IsZero() && on.After(e.RelievingDate) {
		return false
	}
	return true
}

// EmploymentContract carries per-weekday working hours and the leave types
// the contract binds. Only weekdays with positive hours are working days.
type EmploymentContract struct {
	ID            string
	EmployeeID    string
	CompanyID     string
	DateOfJoining Date
	RelievingDate Date // zero = open-ended

	WeekdayHours map[time.Weekday]float64

	LeaveTypeIDs []string
}

// Active reports whether the contract is in force on the given date.
func (c *EmploymentContract) Active(on Date) bool {
	if !c.DateOfJoining.IsZero() && on.Before(c.DateOfJoining) {
		return false
	}
	if !c.RelievingDate.IsZero() && on.After(c.RelievingDate) {
		return false
	}
	return true
}

// WorkingWeekdays returns the weekdays with positive contracted hours.
func (c *EmploymentContract) WorkingWeekdays() map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for wd, hours := range c.WeekdayHours {
		if hours > 0 {
			days[wd] = true
		}
	}
	return days
}

// Holiday is one entry of an employee's holiday calendar. WeeklyOff marks
// recurring weekend days as opposed to genuine public holidays.
type Holiday struct {
	Date        Date
	Description string
	WeeklyOff   bool
}

// AttendanceStatus is the recorded state of one employee-day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceHalfDay AttendanceStatus = "half_day"
	AttendanceOnLeave AttendanceStatus = "on_leave"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord is one submitted attendance row.
type AttendanceRecord struct {
	EmployeeID  string
	Date        Date
	Status      AttendanceStatus
	LeaveTypeID string // set when Status is AttendanceOnLeave
}

// CountsTowardAcquisition reports whether the row counts as an eligible day
// for leave acquisition. Absence must be proven: only explicit absences and
// excluded-leave days disqualify a day.
func (a *AttendanceRecord) CountsTowardAcquisition(excluded IDSet) bool {
	if a.Status == AttendanceAbsent {
		return false
	}
	if a.Status == AttendanceOnLeave && excluded.Contains(a.LeaveTypeID) {
		return false
	}
	return true
}

// IDSet is a string-membership set, used for excluded leave type lookups.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Contains(id string) bool { _, ok := s[id]; return ok }
