/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Employee and allocation reads
- Allocation cancellation over HTTP
- Admin accrual trigger with an explicit run date
- Leave-day counting endpoint
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
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

func newTestAPI(t *testing.T, cfg accrual.Config) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store,
		accrual.NewAllocator(store, cfg, log),
		accrual.NewRollover(store, log),
		log)
	return NewRouter(h), store
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// EMPLOYEE AND ALLOCATION READS
// =============================================================================

func TestGetEmployee(t *testing.T) {
	router, store := newTestAPI(t, accrual.Config{})
	require.NoError(t, store.SaveEmployee(context.Background(), leave.Employee{
		ID:            "emp-1",
		Name:          "Marie Dupont",
		DateOfJoining: leave.NewDate(2024, time.June, 1),
	}))

	rec := doRequest(t, router, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decodeBody[EmployeeDTO](t, rec)
	assert.Equal(t, "Marie Dupont", dto.Name)
	assert.Equal(t, "2024-06-01", dto.DateOfJoining)

	rec = doRequest(t, router, http.MethodGet, "/api/employees/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAllocationAndLedger(t *testing.T) {
	router, store := newTestAPI(t, accrual.Config{})
	ctx := context.Background()

	alloc := leave.Allocation{
		ID:                   "al-1",
		EmployeeID:           "emp-1",
		LeaveTypeID:          "conges-payes",
		FromDate:             leave.NewDate(2024, time.June, 1),
		ToDate:               leave.NewDate(2025, time.May, 31),
		TotalLeavesAllocated: decimal.RequireFromString("7.5"),
		DocStatus:            leave.StatusSubmitted,
	}
	require.NoError(t, store.CreateAllocation(ctx, alloc))
	require.NoError(t, store.AppendLedger(ctx, leave.LedgerEntry{
		ID:             "e-1",
		AllocationID:   "al-1",
		Delta:          decimal.RequireFromString("7.5"),
		EffectiveDate:  leave.NewDate(2024, time.August, 31),
		IdempotencyKey: "accrual|al-1|2024-08-31|7.5",
	}))

	rec := doRequest(t, router, http.MethodGet, "/api/allocations/al-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[AllocationDTO](t, rec)
	assert.Equal(t, "7.5", dto.TotalLeavesAllocated)
	assert.Equal(t, "submitted", dto.DocStatus)

	rec = doRequest(t, router, http.MethodGet, "/api/allocations/al-1/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]LedgerEntryDTO](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "7.5", entries[0].Delta)

	rec = doRequest(t, router, http.MethodGet, "/api/allocations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancelAllocation(t *testing.T) {
	// GIVEN: A submitted allocation with a positive balance
	// WHEN: Cancelling it twice over HTTP
	// THEN: The first call reverses it; the second reports it as done

	router, store := newTestAPI(t, accrual.Config{})
	ctx := context.Background()

	alloc := leave.Allocation{
		ID:                   "al-1",
		EmployeeID:           "emp-1",
		LeaveTypeID:          "conges-payes",
		FromDate:             leave.NewDate(2024, time.June, 1),
		ToDate:               leave.NewDate(2025, time.May, 31),
		TotalLeavesAllocated: decimal.NewFromInt(5),
		DocStatus:            leave.StatusSubmitted,
	}
	require.NoError(t, store.CreateAllocation(ctx, alloc))

	rec := doRequest(t, router, http.MethodPost, "/api/allocations/al-1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Allocation(ctx, "al-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, got.DocStatus)

	entries, err := store.LedgerEntries(ctx, "al-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "-5", entries[0].Delta.String())

	rec = doRequest(t, router, http.MethodPost, "/api/allocations/al-1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "already cancelled", body["status"])
}

// =============================================================================
// ADMIN TRIGGERS
// =============================================================================

func TestTriggerAccrual_WithRunDate(t *testing.T) {
	// GIVEN: One open monthly allocation
	// WHEN: Triggering the accrual for a month-end date
	// THEN: The report shows one applied accrual

	router, store := newTestAPI(t, accrual.Config{})
	ctx := context.Background()

	require.NoError(t, store.SaveLeaveType(ctx, leave.LeaveType{
		ID:               "annual-leave",
		IsEarnedLeave:    true,
		Frequency:        leave.FreqMonthly,
		AllocateOn:       leave.AllocateLastDay,
		MaxLeavesAllowed: decimal.NewFromInt(12),
		PeriodStartMonth: time.January, PeriodStartDay: 1,
		PeriodEndMonth: time.December, PeriodEndDay: 31,
	}))
	require.NoError(t, store.CreateAllocation(ctx, leave.Allocation{
		ID:          "al-1",
		EmployeeID:  "emp-1",
		LeaveTypeID: "annual-leave",
		FromDate:    leave.NewDate(2025, time.January, 1),
		ToDate:      leave.NewDate(2025, time.December, 31),
		DocStatus:   leave.StatusSubmitted,
	}))

	rec := doRequest(t, router, http.MethodPost, "/api/admin/accrual",
		RunRequest{Date: "2025-01-31"})
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[RunReportDTO](t, rec)
	assert.Equal(t, "2025-01-31", report.Date)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 0, report.Failed)

	rec = doRequest(t, router, http.MethodPost, "/api/admin/accrual",
		RunRequest{Date: "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LEAVE DAYS
// =============================================================================

func TestLeaveDaysEndpoint(t *testing.T) {
	router, store := newTestAPI(t, accrual.Config{})
	require.NoError(t, store.SaveLeaveType(context.Background(), leave.LeaveType{ID: "cp"}))

	rec := doRequest(t, router, http.MethodPost, "/api/leave-days", LeaveDaysRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "cp",
		FromDate:    "2024-06-03",
		ToDate:      "2024-06-07",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", decodeBody[LeaveDaysResponse](t, rec).Days)

	// Reversed range is rejected before any store access.
	rec = doRequest(t, router, http.MethodPost, "/api/leave-days", LeaveDaysRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "cp",
		FromDate:    "2024-06-07",
		ToDate:      "2024-06-03",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/leave-days", LeaveDaysRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "missing",
		FromDate:    "2024-06-03",
		ToDate:      "2024-06-07",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
