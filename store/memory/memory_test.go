package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func alloc(id string, from, to leave.Date) leave.Allocation {
	return leave.Allocation{
		ID:          id,
		EmployeeID:  "emp-1",
		LeaveTypeID: "conges-payes",
		FromDate:    from,
		ToDate:      to,
		DocStatus:   leave.StatusSubmitted,
	}
}

func TestStore_CreateAllocation_RejectsOverlappingPeriod(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.CreateAllocation(ctx, alloc("a-1",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))))

	err := store.CreateAllocation(ctx, alloc("a-2",
		leave.NewDate(2025, time.January, 1), leave.NewDate(2025, time.December, 31)))
	assert.ErrorIs(t, err, leave.ErrAllocationExists)

	// The next reference year starts where the old one ends.
	require.NoError(t, store.CreateAllocation(ctx, alloc("a-3",
		leave.NewDate(2025, time.June, 1), leave.NewDate(2026, time.May, 31))))
}

func TestStore_CreateAllocation_CancelledPeriodDoesNotBlock(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := alloc("a-1", leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))
	require.NoError(t, store.CreateAllocation(ctx, first))
	require.NoError(t, store.SetDocStatus(ctx, "a-1", leave.StatusCancelled))

	require.NoError(t, store.CreateAllocation(ctx, alloc("a-2",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))))
}

func TestStore_AppendLedger_DuplicateIdempotencyKey(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	entry := leave.LedgerEntry{
		ID:             "e-1",
		AllocationID:   "a-1",
		Delta:          decimal.NewFromInt(1),
		EffectiveDate:  leave.NewDate(2025, time.January, 31),
		IdempotencyKey: "accrual|a-1|2025-01-31",
	}
	require.NoError(t, store.AppendLedger(ctx, entry))

	entry.ID = "e-2"
	err := store.AppendLedger(ctx, entry)
	assert.ErrorIs(t, err, leave.ErrDuplicateLedgerEntry)

	entries, err := store.LedgerEntries(ctx, "a-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_ExpiredAllocations_SkipsClosedAndCovered(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	expired := alloc("a-old", leave.NewDate(2023, time.June, 1), leave.NewDate(2024, time.May, 31))
	open := alloc("a-new", leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))
	require.NoError(t, store.CreateAllocation(ctx, expired))
	require.NoError(t, store.CreateAllocation(ctx, open))

	today := leave.NewDate(2024, time.June, 2)
	got, err := store.ExpiredAllocations(ctx, today)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a-old", got[0].ID)

	require.NoError(t, store.MarkClosed(ctx, "a-old"))
	got, err = store.ExpiredAllocations(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SetTotalAllocated(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.CreateAllocation(ctx, alloc("a-1",
		leave.NewDate(2024, time.June, 1), leave.NewDate(2025, time.May, 31))))
	require.NoError(t, store.SetTotalAllocated(ctx, "a-1", decimal.RequireFromString("7.5")))

	got, err := store.Allocation(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "7.5", got.TotalLeavesAllocated.String())

	assert.ErrorIs(t, store.SetTotalAllocated(ctx, "missing", decimal.Zero),
		leave.ErrAllocationNotFound)
}
