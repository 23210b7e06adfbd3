/*
Package factory provides JSON to Go leave-type conversion and the
built-in policy presets.

PURPOSE:
  Converts JSON leave-type definitions into leave.LeaveType and
  leave.LeavePolicy values, and ships the standard presets (French
  regimes included) ready to seed into a store. This enables policy
  configuration without code changes - HR can define leave types in
  JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify leave types
  - Easy integration with admin tooling
  - Version control for policy definitions
  - Database storage of configs

JSON SCHEMA:
  {
    "id": "conges-payes",
    "name": "Congés Payés",
    "is_earned_leave": true,
    "frequency": "open_days_ouvrables",
    "max_leaves_allowed": 30,
    "is_carry_forward": true,
    "period_start": "06-01",
    "period_end": "05-31"
  }

PRESETS:
  CongesPayesOuvrables  French statutory paid leave, 30 jours ouvrables
  CongesPayesOuvres     Company-convention variant, jours ouvrés
  RTT                   Working-time reduction days, fixed grant
  SickLeave             Unpaid sick leave, excluded from acquisition
  StandardEarnedMonthly Calendar-year earned leave, monthly accrual

USAGE:
  lt, err := factory.ParseLeaveType(jsonString)

  // Or seed the French defaults directly:
  err := factory.SeedFrenchDefaults(ctx, store)

SEE ALSO:
  - leave/types.go: LeaveType definition and validation
  - store/sqlite, store/memory: Seeder implementations
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	IsEarnedLeave          bool    `json:"is_earned_leave,omitempty"`
	Frequency              string  `json:"frequency,omitempty"`
	Rounding               string  `json:"rounding,omitempty"`
	AllocateOn             string  `json:"allocate_on,omitempty"`
	MaxLeavesAllowed       float64 `json:"max_leaves_allowed,omitempty"`
	IsCarryForward         bool    `json:"is_carry_forward,omitempty"`
	IncludeHoliday         bool    `json:"include_holiday,omitempty"`
	ExcludeFromAcquisition bool    `json:"exclude_from_acquisition,omitempty"`
	PeriodStart            string  `json:"period_start,omitempty"` // "MM-DD", default "01-01"
	PeriodEnd              string  `json:"period_end,omitempty"`   // "MM-DD", default "12-31"
}

// PolicyJSON is the JSON representation of a leave policy.
type PolicyJSON struct {
	ID      string             `json:"id"`
	Title   string             `json:"title"`
	Details []PolicyDetailJSON `json:"details"`
}

// PolicyDetailJSON maps one leave type to its annual allocation.
type PolicyDetailJSON struct {
	LeaveTypeID      string  `json:"leave_type_id"`
	AnnualAllocation float64 `json:"annual_allocation"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseLeaveType converts a JSON document into a validated LeaveType.
func ParseLeaveType(data string) (leave.LeaveType, error) {
	var raw LeaveTypeJSON
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return leave.LeaveType{}, fmt.Errorf("invalid leave type JSON: %w", err)
	}
	return FromJSON(raw)
}

// FromJSON converts the JSON shape into a validated LeaveType.
func FromJSON(raw LeaveTypeJSON) (leave.LeaveType, error) {
	if raw.ID == "" {
		return leave.LeaveType{}, fmt.Errorf("leave type id is required")
	}

	lt := leave.LeaveType{
		ID:                     raw.ID,
		Name:                   raw.Name,
		IsEarnedLeave:          raw.IsEarnedLeave,
		Frequency:              leave.Frequency(raw.Frequency),
		Rounding:               leave.Rounding(raw.Rounding),
		AllocateOn:             leave.AllocateOnDay(raw.AllocateOn),
		MaxLeavesAllowed:       decimal.NewFromFloat(raw.MaxLeavesAllowed),
		IsCarryForward:         raw.IsCarryForward,
		IncludeHoliday:         raw.IncludeHoliday,
		ExcludeFromAcquisition: raw.ExcludeFromAcquisition,
	}
	if lt.Name == "" {
		lt.Name = lt.ID
	}

	var err error
	if lt.PeriodStartMonth, lt.PeriodStartDay, err = parseMonthDay(raw.PeriodStart, 1, 1); err != nil {
		return leave.LeaveType{}, fmt.Errorf("invalid period_start: %w", err)
	}
	if lt.PeriodEndMonth, lt.PeriodEndDay, err = parseMonthDay(raw.PeriodEnd, 12, 31); err != nil {
		return leave.LeaveType{}, fmt.Errorf("invalid period_end: %w", err)
	}

	if err := lt.Validate(); err != nil {
		return leave.LeaveType{}, err
	}
	return lt, nil
}

// ParsePolicy converts a JSON document into a LeavePolicy.
func ParsePolicy(data string) (leave.LeavePolicy, error) {
	var raw PolicyJSON
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("invalid policy JSON: %w", err)
	}
	if raw.ID == "" {
		return leave.LeavePolicy{}, fmt.Errorf("policy id is required")
	}

	p := leave.LeavePolicy{ID: raw.ID, Title: raw.Title}
	for _, d := range raw.Details {
		p.Details = append(p.Details, leave.PolicyDetail{
			LeaveTypeID:      d.LeaveTypeID,
			AnnualAllocation: decimal.NewFromFloat(d.AnnualAllocation),
		})
	}
	return p, nil
}

func parseMonthDay(s string, defMonth time.Month, defDay int) (time.Month, int, error) {
	if s == "" {
		return defMonth, defDay, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected MM-DD, got %q", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad month in %q", s)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad day in %q", s)
	}
	return time.Month(month), day, nil
}

// =============================================================================
// PRESETS
// =============================================================================

// CongesPayesOuvrables is the French statutory paid-leave type:
// 2.5 jours ouvrables per month worked, 30 per reference year, counted
// June 1 to May 31, Saturdays included as working days.
func CongesPayesOuvrables() leave.LeaveType {
	return leave.LeaveType{
		ID:               "conges-payes",
		Name:             "Congés Payés",
		IsEarnedLeave:    true,
		Frequency:        leave.FreqOpenDaysOuvrables,
		MaxLeavesAllowed: decimal.NewFromInt(30),
		IsCarryForward:   true,
		PeriodStartMonth: 6, PeriodStartDay: 1,
		PeriodEndMonth: 5, PeriodEndDay: 31,
	}
}

// CongesPayesOuvres is the jours ouvrés variant used by company
// conventions that count a five-day work week: 25 days per year.
func CongesPayesOuvres() leave.LeaveType {
	return leave.LeaveType{
		ID:               "conges-payes-ouvres",
		Name:             "Congés Payés (jours ouvrés)",
		IsEarnedLeave:    true,
		Frequency:        leave.FreqOpenDaysOuvres,
		MaxLeavesAllowed: decimal.NewFromInt(25),
		IsCarryForward:   true,
		PeriodStartMonth: 6, PeriodStartDay: 1,
		PeriodEndMonth: 5, PeriodEndDay: 31,
	}
}

// RTT is the working-time reduction day type: a fixed grant, not
// earned, expiring at calendar year end.
func RTT() leave.LeaveType {
	return leave.LeaveType{
		ID:               "rtt",
		Name:             "RTT",
		MaxLeavesAllowed: decimal.NewFromInt(10),
		PeriodStartMonth: 1, PeriodStartDay: 1,
		PeriodEndMonth: 12, PeriodEndDay: 31,
	}
}

// SickLeave is unpaid sick leave. Days taken on it do not count toward
// earned-leave acquisition.
func SickLeave() leave.LeaveType {
	return leave.LeaveType{
		ID:                     "sick-leave",
		Name:                   "Sick Leave",
		ExcludeFromAcquisition: true,
		PeriodStartMonth:       1, PeriodStartDay: 1,
		PeriodEndMonth: 12, PeriodEndDay: 31,
	}
}

// StandardEarnedMonthly is a plain calendar-year earned leave type
// accruing monthly, for companies outside the French regimes.
func StandardEarnedMonthly(id string, annual int64) leave.LeaveType {
	return leave.LeaveType{
		ID:               id,
		Name:             id,
		IsEarnedLeave:    true,
		Frequency:        leave.FreqMonthly,
		Rounding:         leave.RoundHalf,
		AllocateOn:       leave.AllocateLastDay,
		MaxLeavesAllowed: decimal.NewFromInt(annual),
		PeriodStartMonth: 1, PeriodStartDay: 1,
		PeriodEndMonth: 12, PeriodEndDay: 31,
	}
}

// FrenchPolicy is the default Congés Payés policy: 30 days per
// reference year on the ouvrables type.
func FrenchPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		ID:    "policy-conges-payes",
		Title: "Congés Payés",
		Details: []leave.PolicyDetail{
			{LeaveTypeID: "conges-payes", AnnualAllocation: decimal.NewFromInt(30)},
		},
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// Seeder is the store surface the factory writes presets through.
// Both store/sqlite and store/memory implement it.
type Seeder interface {
	SaveLeaveType(ctx context.Context, lt leave.LeaveType) error
	SavePolicy(ctx context.Context, p leave.LeavePolicy) error
}

// SeedFrenchDefaults writes the French leave types and the default
// Congés Payés policy into the store. Idempotent: existing rows are
// replaced.
func SeedFrenchDefaults(ctx context.Context, store Seeder) error {
	types := []leave.LeaveType{
		CongesPayesOuvrables(),
		CongesPayesOuvres(),
		RTT(),
		SickLeave(),
	}
	for _, lt := range types {
		if err := lt.Validate(); err != nil {
			return fmt.Errorf("preset %s: %w", lt.ID, err)
		}
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return fmt.Errorf("seed leave type %s: %w", lt.ID, err)
		}
	}
	if err := store.SavePolicy(ctx, FrenchPolicy()); err != nil {
		return fmt.Errorf("seed policy: %w", err)
	}
	return nil
}
