package accrual_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestAllocator(t *testing.T, cfg accrual.Config) (*accrual.Allocator, *memory.Store) {
	t.Helper()
	store := memory.New()
	return accrual.NewAllocator(store, cfg, quietLogger()), store
}

// =============================================================================
// POLICY-SCAN MODE
// =============================================================================

func TestAllocator_PolicyScan_AppliesOncePerBoundary(t *testing.T) {
	// GIVEN: One open monthly allocation
	// WHEN: Running on a month end, again the same day, then mid-month
	// THEN: Exactly one accrual lands

	al, store := newTestAllocator(t, accrual.Config{})
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	seedAlloc(t, store, submittedAlloc("al-1", "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))

	report, err := al.Run(ctx, leave.NewDate(2025, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 0, report.Failed)

	report, err = al.Run(ctx, leave.NewDate(2025, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied)
	assert.Equal(t, 1, report.Skipped)

	report, err = al.Run(ctx, leave.NewDate(2025, time.February, 15))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied, "gate holds on scheduled runs")

	assertDecimal(t, "1", fetchAlloc(t, store, "al-1").TotalLeavesAllocated)
}

// =============================================================================
// CONTRACT-BOUND MODE
// =============================================================================

func TestAllocator_Contracts_CreatesAndEvaluates(t *testing.T) {
	// GIVEN: A contract binding a fixed RTT grant and an earned monthly type
	// WHEN: The first run of the period fires
	// THEN: Both allocations are created; RTT opens at its full cap with a
	//       grant entry, the earned type accrues immediately

	al, store := newTestAllocator(t, accrual.Config{AccrueFromContracts: true})
	ctx := context.Background()

	rtt := leave.LeaveType{
		ID:               "rtt",
		Name:             "RTT",
		MaxLeavesAllowed: decimal.NewFromInt(10),
		PeriodStartMonth: time.January,
		PeriodStartDay:   1,
		PeriodEndMonth:   time.December,
		PeriodEndDay:     31,
	}
	seedType(t, store, rtt)
	seedType(t, store, monthlyType("annual-leave", 12))

	require.NoError(t, store.SaveContract(ctx, leave.EmploymentContract{
		ID:            "ct-1",
		EmployeeID:    "emp-1",
		DateOfJoining: leave.NewDate(2024, time.March, 1),
		LeaveTypeIDs:  []string{"rtt", "annual-leave"},
	}))

	today := leave.NewDate(2025, time.January, 31)
	report, err := al.Run(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Evaluated, "only the earned type is evaluated")
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 0, report.Failed)

	rttAllocs, err := store.AllocationsFor(ctx, "emp-1", "rtt", today)
	require.NoError(t, err)
	require.Len(t, rttAllocs, 1)
	assertDecimal(t, "10", rttAllocs[0].TotalLeavesAllocated)
	assert.True(t, rttAllocs[0].FromDate.Equal(leave.NewDate(2025, time.January, 1)))
	assert.True(t, rttAllocs[0].ToDate.Equal(leave.NewDate(2025, time.December, 31)))

	entries, err := store.LedgerEntries(ctx, rttAllocs[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "grant|"+rttAllocs[0].ID, entries[0].IdempotencyKey)
	assertDecimal(t, "10", entries[0].Delta)

	earnedAllocs, err := store.AllocationsFor(ctx, "emp-1", "annual-leave", today)
	require.NoError(t, err)
	require.Len(t, earnedAllocs, 1)
	assertDecimal(t, "1", earnedAllocs[0].TotalLeavesAllocated)
}

func TestAllocator_Contracts_SecondRunReusesAllocations(t *testing.T) {
	al, store := newTestAllocator(t, accrual.Config{AccrueFromContracts: true})
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	require.NoError(t, store.SaveContract(ctx, leave.EmploymentContract{
		ID:           "ct-1",
		EmployeeID:   "emp-1",
		LeaveTypeIDs: []string{"annual-leave"},
	}))

	_, err := al.Run(ctx, leave.NewDate(2025, time.January, 31))
	require.NoError(t, err)

	report, err := al.Run(ctx, leave.NewDate(2025, time.February, 28))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Applied)

	allocs, err := store.AllocationsFor(ctx, "emp-1", "annual-leave",
		leave.NewDate(2025, time.February, 28))
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assertDecimal(t, "2", allocs[0].TotalLeavesAllocated)
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestAllocator_OneBadCandidateDoesNotAbortTheBatch(t *testing.T) {
	// GIVEN: A contract referencing a leave type that does not exist,
	//        alongside a valid one
	// WHEN: The run fires
	// THEN: The bad candidate is reported; the good one still accrues

	al, store := newTestAllocator(t, accrual.Config{AccrueFromContracts: true})
	ctx := context.Background()

	seedType(t, store, monthlyType("annual-leave", 12))
	require.NoError(t, store.SaveContract(ctx, leave.EmploymentContract{
		ID:           "ct-1",
		EmployeeID:   "emp-1",
		LeaveTypeIDs: []string{"ghost", "annual-leave"},
	}))

	report, err := al.Run(ctx, leave.NewDate(2025, time.January, 31))
	require.NoError(t, err, "enumeration succeeded; candidate failures stay on the report")
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "emp-1", report.Errors[0].EmployeeID)
	assert.Equal(t, "ghost", report.Errors[0].LeaveTypeID)
	assert.ErrorIs(t, report.Errors[0], leave.ErrLeaveTypeNotFound)

	assert.Equal(t, 1, report.Applied)
	allocs, err := store.AllocationsFor(ctx, "emp-1", "annual-leave",
		leave.NewDate(2025, time.January, 31))
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assertDecimal(t, "1", allocs[0].TotalLeavesAllocated)
}
