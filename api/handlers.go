/*
handlers.go - HTTP API handlers for the leave accrual engine

PURPOSE:
  Exposes the accrual engine via REST API. Handles HTTP concerns
  (decoding, status codes, error mapping) and delegates all domain
  logic to the accrual package.

ERROR MAPPING:
  leave.IsNotFound       -> 404
  leave.IsConfiguration  -> 422
  leave.IsBenign         -> 200 with a no-op body
  anything else          -> 500

ENDPOINTS:
  GET  /api/employees/{id}                  Employee record
  GET  /api/employees/{id}/balance          Balance per leave type
  GET  /api/allocations/{id}                One allocation
  GET  /api/allocations/{id}/ledger         Allocation ledger
  POST /api/allocations/{id}/cancel         Cancel and reverse
  POST /api/admin/accrual                   Trigger an accrual run
  POST /api/admin/rollover                  Trigger period-end rollover
  POST /api/leave-days                      Day-count query

SEE ALSO:
  - server.go: Route wiring
  - dto.go: Request/response shapes
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     leave.Store
	Allocator *accrual.Allocator
	Rollover  *accrual.Rollover
	Log       *logrus.Logger
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store leave.Store, allocator *accrual.Allocator, rollover *accrual.Rollover, log *logrus.Logger) *Handler {
	return &Handler{
		Store:     store,
		Allocator: allocator,
		Rollover:  rollover,
		Log:       log,
	}
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	employee, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}

	dto := EmployeeDTO{
		ID:            employee.ID,
		Name:          employee.Name,
		CompanyID:     employee.CompanyID,
		DateOfJoining: employee.DateOfJoining.String(),
	}
	if !employee.RelievingDate.IsZero() {
		dto.RelievingDate = employee.RelievingDate.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetBalance returns the employee's balance for one leave type as of a
// date. Balance is the sum of open allocation totals minus consumption.
// GET /api/employees/{id}/balance?leave_type=X&as_of=YYYY-MM-DD
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := chi.URLParam(r, "id")
	leaveTypeID := r.URL.Query().Get("leave_type")
	if leaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "leave_type query parameter is required", nil)
		return
	}

	asOf := leave.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		var err error
		if asOf, err = leave.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
	}

	if _, err := h.Store.Employee(ctx, employeeID); err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}

	allocations, err := h.Store.AllocationsFor(ctx, employeeID, leaveTypeID, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get allocations", err)
		return
	}

	balance := decimal.Zero
	for _, a := range allocations {
		balance = balance.Add(a.TotalLeavesAllocated)
		entries, err := h.Store.LedgerEntries(ctx, a.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get ledger", err)
			return
		}
		for _, e := range entries {
			if e.IsConsumption() {
				balance = balance.Add(e.Delta)
			}
		}
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Balance:     balance.String(),
		AsOf:        asOf.String(),
		Allocations: toAllocationDTOs(allocations),
	})
}

// =============================================================================
// ALLOCATION ENDPOINTS
// =============================================================================

// GetAllocation returns a single allocation.
// GET /api/allocations/{id}
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	allocation, err := h.Store.Allocation(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(allocation))
}

// GetLedger returns the full ledger for an allocation.
// GET /api/allocations/{id}/ledger
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.Store.Allocation(ctx, id); err != nil {
		h.writeDomainError(w, "Failed to get allocation", err)
		return
	}

	entries, err := h.Store.LedgerEntries(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get ledger", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CancelAllocation cancels an allocation: writes a reversing ledger
// entry, marks the document cancelled and releases the policy
// assignment so a corrected allocation can be granted.
// POST /api/allocations/{id}/cancel
func (h *Handler) CancelAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	writer := &accrual.Writer{Store: h.Store}
	if err := writer.Cancel(ctx, id, leave.Today()); err != nil {
		if leave.IsBenign(err) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "already cancelled"})
			return
		}
		h.writeDomainError(w, "Failed to cancel allocation", err)
		return
	}

	h.Log.WithField("allocation", id).Info("allocation cancelled")
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// TriggerAccrual runs the daily accrual job immediately.
// POST /api/admin/accrual
func (h *Handler) TriggerAccrual(w http.ResponseWriter, r *http.Request) {
	today, ok := h.decodeRunDate(w, r)
	if !ok {
		return
	}

	report, err := h.Allocator.Run(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Accrual run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunReportDTO(report))
}

// TriggerRollover runs period-end carry-forward and expiry.
// POST /api/admin/rollover
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	today, ok := h.decodeRunDate(w, r)
	if !ok {
		return
	}

	report, err := h.Rollover.Run(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRolloverReportDTO(report))
}

func (h *Handler) decodeRunDate(w http.ResponseWriter, r *http.Request) (leave.Date, bool) {
	var req RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return leave.Date{}, false
		}
	}
	if req.Date == "" {
		return leave.Today(), true
	}
	d, err := leave.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return leave.Date{}, false
	}
	return d, true
}

// =============================================================================
// LEAVE DAYS
// =============================================================================

// LeaveDays computes how many leave days a date range consumes, holiday
// calendar and regime rules applied.
// POST /api/leave-days
func (h *Handler) LeaveDays(w http.ResponseWriter, r *http.Request) {
	var req LeaveDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.LeaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and leave_type_id are required", nil)
		return
	}

	from, err := leave.ParseDate(req.FromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from_date format (use YYYY-MM-DD)", err)
		return
	}
	to, err := leave.ParseDate(req.ToDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to_date format (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to_date must not be before from_date", nil)
		return
	}

	var halfDayDate leave.Date
	if req.HalfDayDate != "" {
		if halfDayDate, err = leave.ParseDate(req.HalfDayDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid half_day_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	days, _, err := accrual.LeaveDaysBetween(r.Context(), h.Store,
		req.EmployeeID, req.LeaveTypeID, from, to, req.HalfDay, halfDayDate)
	if err != nil {
		h.writeDomainError(w, "Failed to compute leave days", err)
		return
	}

	writeJSON(w, http.StatusOK, LeaveDaysResponse{Days: days.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case leave.IsConfiguration(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
