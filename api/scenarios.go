/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates leave types,
	policies, employees and contracts that demonstrate one accrual
	feature.

AVAILABLE SCENARIOS:

	french-new-hire:   Congés payés (jours ouvrables) for an employee
	                   joining at the start of the reference year
	ouvres-attendance: Jours ouvrés accrual fed by recorded attendance,
	                   including an excluded sick-leave absence
	carry-forward:     An expired period with residual balance, ready
	                   for a rollover run

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "french-new-hire"}

NOTE:

	Scenarios write master data through the store's seeding surface and
	are meant for development environments. Allocations already created
	by earlier runs are left in place.

SEE ALSO:
  - handlers.go: ListScenarios, LoadScenario handlers
  - factory/policy.go: French presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO REGISTRY
// =============================================================================

// Scenario describes one loadable demo dataset.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []Scenario{
	{
		ID:          "french-new-hire",
		Name:        "French new hire",
		Description: "Congés payés over the June-May reference year, accrued from an employment contract",
	},
	{
		ID:          "ouvres-attendance",
		Name:        "Jours ouvrés with attendance",
		Description: "Five-day-week accrual fed by recorded attendance, with a sick-leave absence",
	},
	{
		ID:          "carry-forward",
		Name:        "Carry-forward at period end",
		Description: "An expired congés payés period with residual balance awaiting rollover",
	},
}

// seeder is the store surface scenarios write through. Both store/memory
// and store/sqlite implement it.
type seeder interface {
	factory.Seeder
	SaveEmployee(ctx context.Context, e leave.Employee) error
	SaveContract(ctx context.Context, c leave.EmploymentContract) error
	SaveAttendance(ctx context.Context, records ...leave.AttendanceRecord) error
	SaveHolidays(ctx context.Context, employeeID string, holidays ...leave.Holiday) error
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario populates the store with one scenario's dataset.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := h.Store.(seeder)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Store does not support scenario loading", nil)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "french-new-hire":
		err = loadFrenchNewHire(ctx, s)
	case "ouvres-attendance":
		err = loadOuvresAttendance(ctx, s)
	case "carry-forward":
		err = h.loadCarryForward(ctx, s)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func loadFrenchNewHire(ctx context.Context, s seeder) error {
	if err := factory.SeedFrenchDefaults(ctx, s); err != nil {
		return err
	}

	if err := s.SaveEmployee(ctx, leave.Employee{
		ID:            "emp-dupont",
		Name:          "Marie Dupont",
		CompanyID:     "acme-fr",
		DateOfJoining: leave.NewDate(2024, time.June, 1),
	}); err != nil {
		return err
	}

	return s.SaveContract(ctx, leave.EmploymentContract{
		ID:            "ct-dupont",
		EmployeeID:    "emp-dupont",
		CompanyID:     "acme-fr",
		DateOfJoining: leave.NewDate(2024, time.June, 1),
		WeekdayHours: map[time.Weekday]float64{
			time.Monday: 7, time.Tuesday: 7, time.Wednesday: 7,
			time.Thursday: 7, time.Friday: 7,
		},
		LeaveTypeIDs: []string{"conges-payes", "rtt"},
	})
}

func loadOuvresAttendance(ctx context.Context, s seeder) error {
	if err := factory.SeedFrenchDefaults(ctx, s); err != nil {
		return err
	}

	if err := s.SaveEmployee(ctx, leave.Employee{
		ID:            "emp-martin",
		Name:          "Luc Martin",
		CompanyID:     "acme-fr",
		DateOfJoining: leave.NewDate(2024, time.June, 1),
	}); err != nil {
		return err
	}

	// A month of weekday attendance with one sick day; the sick-leave
	// absence does not count toward acquisition.
	var records []leave.AttendanceRecord
	for d := leave.NewDate(2024, time.June, 1); d.Month() == time.June; d = d.AddDays(1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		record := leave.AttendanceRecord{
			EmployeeID: "emp-martin",
			Date:       d,
			Status:     leave.AttendancePresent,
		}
		if d.Day() == 12 {
			record.Status = leave.AttendanceOnLeave
			record.LeaveTypeID = "sick-leave"
		}
		records = append(records, record)
	}
	if err := s.SaveAttendance(ctx, records...); err != nil {
		return err
	}

	return s.SaveHolidays(ctx, "emp-martin", leave.Holiday{
		Date:        leave.NewDate(2024, time.July, 14),
		Description: "Fête Nationale",
	})
}

func (h *Handler) loadCarryForward(ctx context.Context, s seeder) error {
	if err := factory.SeedFrenchDefaults(ctx, s); err != nil {
		return err
	}

	if err := s.SaveEmployee(ctx, leave.Employee{
		ID:            "emp-bernard",
		Name:          "Sophie Bernard",
		CompanyID:     "acme-fr",
		DateOfJoining: leave.NewDate(2022, time.September, 1),
	}); err != nil {
		return err
	}

	expired := leave.Allocation{
		ID:                   "alloc-bernard-2023",
		EmployeeID:           "emp-bernard",
		CompanyID:            "acme-fr",
		LeaveTypeID:          "conges-payes",
		FromDate:             leave.NewDate(2023, time.June, 1),
		ToDate:               leave.NewDate(2024, time.May, 31),
		TotalLeavesAllocated: decimal.NewFromInt(30),
		DocStatus:            leave.StatusSubmitted,
	}
	if err := h.Store.CreateAllocation(ctx, expired); err != nil && !leave.IsBenign(err) {
		return err
	}

	// 26 days taken over the year leaves 4 to carry into the next period.
	consumed := leave.LedgerEntry{
		ID:             "entry-bernard-consumed",
		AllocationID:   expired.ID,
		EmployeeID:     expired.EmployeeID,
		LeaveTypeID:    expired.LeaveTypeID,
		Delta:          decimal.NewFromInt(-26),
		EffectiveDate:  leave.NewDate(2024, time.April, 30),
		IdempotencyKey: "demo|" + expired.ID,
		Note:           "leave taken during the period",
	}
	if err := h.Store.AppendLedger(ctx, consumed); err != nil && !leave.IsBenign(err) {
		return err
	}
	return nil
}
