package accrual_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestCalculator(t *testing.T, infer bool) (*accrual.Calculator, *memory.Store) {
	t.Helper()
	store := memory.New()
	cache := accrual.NewRunCache(store)
	calc := &accrual.Calculator{
		Store:      store,
		Cache:      cache,
		Aggregator: &accrual.Aggregator{Store: store, Cache: cache, Infer: infer},
		Writer:     &accrual.Writer{Store: store},
	}
	return calc, store
}

// monthlyType accrues annual/12 on the last day of each month, calendar year.
func monthlyType(id string, annual int64) leave.LeaveType {
	return leave.LeaveType{
		ID:               id,
		Name:             "Annual Leave",
		IsEarnedLeave:    true,
		Frequency:        leave.FreqMonthly,
		AllocateOn:       leave.AllocateLastDay,
		MaxLeavesAllowed: decimal.NewFromInt(annual),
		PeriodStartMonth: time.January,
		PeriodStartDay:   1,
		PeriodEndMonth:   time.December,
		PeriodEndDay:     31,
	}
}

// congesPayes is the French paid-leave type: jours ouvrables, 30-day cap,
// June-to-May reference year, carry-forward.
func congesPayes() leave.LeaveType {
	return leave.LeaveType{
		ID:               "conges-payes",
		Name:             "Congés Payés",
		IsEarnedLeave:    true,
		Frequency:        leave.FreqOpenDaysOuvrables,
		MaxLeavesAllowed: decimal.NewFromInt(30),
		IsCarryForward:   true,
		PeriodStartMonth: time.June,
		PeriodStartDay:   1,
		PeriodEndMonth:   time.May,
		PeriodEndDay:     31,
	}
}

// congesPayesOuvres counts business days of a 5-day week, 25-day cap.
func congesPayesOuvres() leave.LeaveType {
	lt := congesPayes()
	lt.ID = "conges-payes-ouvres"
	lt.Frequency = leave.FreqOpenDaysOuvres
	lt.MaxLeavesAllowed = decimal.NewFromInt(25)
	return lt
}

func submittedAlloc(id, employeeID, leaveTypeID string, from, to leave.Date) leave.Allocation {
	return leave.Allocation{
		ID:          id,
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		FromDate:    from,
		ToDate:      to,
		DocStatus:   leave.StatusSubmitted,
	}
}

func seedAlloc(t *testing.T, store *memory.Store, a leave.Allocation) {
	t.Helper()
	require.NoError(t, store.CreateAllocation(context.Background(), a))
}

func seedType(t *testing.T, store *memory.Store, lt leave.LeaveType) {
	t.Helper()
	require.NoError(t, store.SaveLeaveType(context.Background(), lt))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got),
		"want %s, got %s: %v", want, got, msgAndArgs)
}

func fetchAlloc(t *testing.T, store *memory.Store, id string) leave.Allocation {
	t.Helper()
	a, err := store.Allocation(context.Background(), id)
	require.NoError(t, err)
	return a
}

// =============================================================================
// CALENDAR REGIME - Monthly accrual
// =============================================================================

func TestCalculator_Monthly_OneGrantPerMonthEnd(t *testing.T) {
	// GIVEN: Annual allocation of 12 days, monthly accrual on the last day
	// WHEN: Evaluating at each month end of Q1
	// THEN: Total grows by 1 per evaluation

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	monthEnds := []leave.Date{
		leave.NewDate(2025, time.January, 31),
		leave.NewDate(2025, time.February, 28),
		leave.NewDate(2025, time.March, 31),
	}
	for i, day := range monthEnds {
		result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"), day, false)
		require.NoError(t, err)
		assert.True(t, result.Applied, "month end %s should accrue", day)
		assertDecimal(t, "1", result.Delta)
		assertDecimal(t, decimal.NewFromInt(int64(i+1)).String(), result.NewTotal)
	}

	assertDecimal(t, "3", fetchAlloc(t, store, "al-1").TotalLeavesAllocated)
}

func TestCalculator_Monthly_SameDayRerunIsIdempotent(t *testing.T) {
	// GIVEN: The January accrual already ran today
	// WHEN: The scheduler fires a second time on the same date
	// THEN: The second run is skipped and the total is unchanged

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	jan31 := leave.NewDate(2025, time.January, 31)

	first, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"), jan31, false)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"), jan31, false)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, "already accrued today", second.Reason)

	assertDecimal(t, "1", fetchAlloc(t, store, "al-1").TotalLeavesAllocated)

	entries, err := store.LedgerEntries(ctx, "al-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only one ledger entry despite two runs")
}

func TestCalculator_Monthly_MidYearJoinerProRates(t *testing.T) {
	// GIVEN: Annual allocation of 12 days, but the employee joins three
	//        months into the calendar-year period
	// WHEN: Evaluating at every remaining month end, April through December
	// THEN: Only nine monthly grants land, so the final total is 9 of 12

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.April, 1), leave.NewDate(2025, time.December, 31)))

	applied := 0
	for month := time.April; month <= time.December; month++ {
		day := leave.NewDate(2025, month, 1).LastOfMonth()
		result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"), day, false)
		require.NoError(t, err)
		require.True(t, result.Applied, "month end %s should accrue", day)
		assertDecimal(t, "1", result.Delta)
		applied++
	}

	assert.Equal(t, 9, applied)
	assertDecimal(t, "9", fetchAlloc(t, store, "al-1").TotalLeavesAllocated)
}

func TestCalculator_Monthly_MidMonthGateClosed(t *testing.T) {
	// GIVEN: Accrual allocates on the last day of the month
	// WHEN: Evaluating mid-month without the immediate flag
	// THEN: The gate rejects the run

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 15), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "allocate-on-day gate not satisfied", result.Reason)
}

func TestCalculator_Monthly_ImmediateBypassesGate(t *testing.T) {
	// GIVEN: A contract was just bound mid-month
	// WHEN: Evaluating with immediate=true on the 15th
	// THEN: The accrual applies despite the last-day gate

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 15), true)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "1", result.NewTotal)
}

func TestCalculator_Quarterly_RoundsToHalfDay(t *testing.T) {
	// GIVEN: 25 days per year, quarterly grants rounded to the nearest half
	// WHEN: Evaluating at a quarter boundary
	// THEN: 25/4 = 6.25 rounds to 6.5

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	lt := monthlyType("quarterly-leave", 25)
	lt.Frequency = leave.FreqQuarterly
	lt.Rounding = leave.RoundHalf
	seedType(t, store, lt)
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "quarterly-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.March, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "6.5", result.NewTotal)
}

func TestCalculator_Monthly_CapClampsFinalIncrement(t *testing.T) {
	// GIVEN: A total of 11.5 against a cap of 12
	// WHEN: The next monthly increment of 1 accrues
	// THEN: The total clamps to 12 and the ledger delta is 0.5

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	alloc := submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31))
	alloc.TotalLeavesAllocated = decimal.RequireFromString("11.5")
	seedAlloc(t, store, alloc)

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.November, 30), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "12", result.NewTotal)
	assertDecimal(t, "0.5", result.Delta)

	// At the cap, the following month is a no-op.
	result, err = calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.December, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "no balance change", result.Reason)
}

// =============================================================================
// GATE VARIANTS
// =============================================================================

func TestCalculator_Gate_FirstDay(t *testing.T) {
	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	lt := monthlyType("annual-leave", 12)
	lt.AllocateOn = leave.AllocateFirstDay
	seedType(t, store, lt)
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.February, 1), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)

	result, err = calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.February, 28), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestCalculator_Gate_DateOfJoining_ClampsToShortMonths(t *testing.T) {
	// GIVEN: An employee who joined on the 31st
	// WHEN: Evaluating in a 30-day month
	// THEN: The 30th satisfies the gate; the 15th does not

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	lt := monthlyType("annual-leave", 12)
	lt.AllocateOn = leave.AllocateDateOfJoined
	seedType(t, store, lt)
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID:            "emp-1",
		DateOfJoining: leave.NewDate(2024, time.January, 31),
	}))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.April, 15), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped, "mid-month should not satisfy a 31st joiner")

	result, err = calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.April, 30), false)
	require.NoError(t, err)
	assert.True(t, result.Applied, "April 30 stands in for the 31st")
}

// =============================================================================
// ANNUAL ALLOCATION RESOLUTION
// =============================================================================

func TestCalculator_ResolvesAnnualFromBoundPolicy(t *testing.T) {
	// GIVEN: An allocation bound directly to a policy granting 24 days
	// WHEN: The monthly accrual runs
	// THEN: The increment is 24/12 = 2, not the type's own cap

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	require.NoError(t, store.SavePolicy(ctx, leave.LeavePolicy{
		ID: "generous",
		Details: []leave.PolicyDetail{
			{LeaveTypeID: "annual-leave", AnnualAllocation: decimal.NewFromInt(24)},
		},
	}))

	alloc := submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31))
	alloc.LeavePolicyID = "generous"
	seedAlloc(t, store, alloc)

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "2", result.Delta)
}

func TestCalculator_ResolvesAnnualThroughAssignment(t *testing.T) {
	// GIVEN: An allocation referencing a policy assignment, not a policy
	// WHEN: The accrual runs
	// THEN: The policy is resolved through the assignment

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	require.NoError(t, store.SavePolicy(ctx, leave.LeavePolicy{
		ID: "standard",
		Details: []leave.PolicyDetail{
			{LeaveTypeID: "annual-leave", AnnualAllocation: decimal.NewFromInt(18)},
		},
	}))
	require.NoError(t, store.SaveAssignment(ctx, leave.PolicyAssignment{
		ID:            "asg-1",
		EmployeeID:    "emp-1",
		LeavePolicyID: "standard",
	}))

	alloc := submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31))
	alloc.PolicyAssignmentID = "asg-1"
	seedAlloc(t, store, alloc)

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "1.5", result.Delta)
}

func TestCalculator_PolicyWithoutDetail_IsConfigurationError(t *testing.T) {
	// GIVEN: A bound policy that has no detail for this leave type
	// WHEN: The accrual runs
	// THEN: It fails with ErrNoAnnualAllocation instead of falling back

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	require.NoError(t, store.SavePolicy(ctx, leave.LeavePolicy{ID: "empty"}))

	alloc := submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31))
	alloc.LeavePolicyID = "empty"
	seedAlloc(t, store, alloc)

	_, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 31), false)
	assert.ErrorIs(t, err, leave.ErrNoAnnualAllocation)
}

func TestCalculator_NoPolicyNoCap_Skips(t *testing.T) {
	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	lt := monthlyType("annual-leave", 0)
	seedType(t, store, lt)
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "no annual allocation resolved", result.Reason)
}

func TestCalculator_NonSubmittedAllocation_Skips(t *testing.T) {
	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	alloc := submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31))
	alloc.DocStatus = leave.StatusDraft
	seedAlloc(t, store, alloc)

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.January, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "allocation not submitted", result.Reason)
}

// =============================================================================
// OPEN-DAYS REGIME - Jours ouvrables
// =============================================================================

func TestCalculator_Ouvrables_FullAttendanceReachesCapAtPeriodClose(t *testing.T) {
	// GIVEN: Congés payés over the June 2024 - May 2025 reference year,
	//        eligibility inferred from an empty calendar (full presence)
	// WHEN: Evaluating after 3 months and again at the period close
	// THEN: 3 months earn 7.5 days; the close settles at the 30-day cap

	calc, store := newTestCalculator(t, true)
	ctx := context.Background()

	seedType(t, store, congesPayes())
	require.NoError(t, store.SavePolicy(ctx, leave.LeavePolicy{
		ID: "policy-cp",
		Details: []leave.PolicyDetail{
			{LeaveTypeID: "conges-payes", AnnualAllocation: decimal.NewFromInt(30)},
		},
	}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID:            "emp-1",
		DateOfJoining: leave.NewDate(2024, time.June, 1),
	}))

	alloc := submittedAlloc("al-1", "emp-1", "conges-payes",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))
	alloc.LeavePolicyID = "policy-cp"
	seedAlloc(t, store, alloc)

	// Three completed months: 3 * 2.5 = 7.5, capped by the elapsed-months
	// entitlement even though eligible days run ahead of 24/month.
	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2024, time.August, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "7.5", result.NewTotal)

	// Same-day re-run converges on the same total.
	result, err = calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2024, time.August, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "no balance change", result.Reason)

	// Period close: 12 months of full presence settle at the cap.
	result, err = calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2025, time.May, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "30", result.NewTotal)
	assertDecimal(t, "22.5", result.Delta)
}

func TestCalculator_Ouvrables_DirectAttendanceProRates(t *testing.T) {
	// GIVEN: Recorded attendance of 12 counted days in June
	// WHEN: Evaluating mid-July (one completed month)
	// THEN: The earned fraction is 12/24 of one month's 2.5 days

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, congesPayes())
	alloc := submittedAlloc("al-1", "emp-1", "conges-payes",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))
	seedAlloc(t, store, alloc)

	var records []leave.AttendanceRecord
	for day := 3; day <= 14; day++ {
		records = append(records, leave.AttendanceRecord{
			EmployeeID: "emp-1",
			Date:       leave.NewDate(2024, time.June, day),
			Status:     leave.AttendancePresent,
		})
	}
	// A July row sits beyond the completed-month window and must not count.
	records = append(records, leave.AttendanceRecord{
		EmployeeID: "emp-1",
		Date:       leave.NewDate(2024, time.July, 1),
		Status:     leave.AttendancePresent,
	})
	require.NoError(t, store.SaveAttendance(ctx, records...))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2024, time.July, 15), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assertDecimal(t, "1.25", result.NewTotal)
}

// =============================================================================
// OPEN-DAYS REGIME - Jours ouvrés
// =============================================================================

func TestCalculator_Ouvres_MonthEndCatchUpWithoutAbsences(t *testing.T) {
	// GIVEN: No attendance on record and no proven absences
	// WHEN: Evaluating on the last day of the first month
	// THEN: Full presence is assumed and the month's entitlement accrues

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, congesPayesOuvres())
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "conges-payes-ouvres",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31)))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2024, time.June, 30), false)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	// 25/12 per month, rounded to 2 decimals.
	assertDecimal(t, "2.08", result.NewTotal)
}

func TestCalculator_Ouvres_NoCatchUpWhenAbsenceRecorded(t *testing.T) {
	// GIVEN: A proven absence in June
	// WHEN: Evaluating on July 31
	// THEN: The shortfall stands; no catch-up is applied

	calc, store := newTestCalculator(t, false)
	ctx := context.Background()

	seedType(t, store, congesPayesOuvres())
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "conges-payes-ouvres",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31)))
	require.NoError(t, store.SaveAttendance(ctx, leave.AttendanceRecord{
		EmployeeID: "emp-1",
		Date:       leave.NewDate(2024, time.June, 10),
		Status:     leave.AttendanceAbsent,
	}))

	result, err := calc.Evaluate(ctx, fetchAlloc(t, store, "al-1"),
		leave.NewDate(2024, time.July, 31), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped, "one recorded day of absence earns nothing yet")
	assertDecimal(t, "0", fetchAlloc(t, store, "al-1").TotalLeavesAllocated)
}
