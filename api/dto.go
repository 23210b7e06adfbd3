/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY-GRADE NUMBERS:
  Balances cross the wire as strings ("2.50"), never floats. Clients
  that want arithmetic parse them with a decimal library on their side.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CompanyID     string `json:"company_id,omitempty"`
	DateOfJoining string `json:"date_of_joining"`
	RelievingDate string `json:"relieving_date,omitempty"`
}

// AllocationDTO represents a leave allocation in API responses.
type AllocationDTO struct {
	ID                   string `json:"id"`
	EmployeeID           string `json:"employee_id"`
	LeaveTypeID          string `json:"leave_type_id"`
	FromDate             string `json:"from_date"`
	ToDate               string `json:"to_date"`
	NewLeavesAllocated   string `json:"new_leaves_allocated"`
	TotalLeavesAllocated string `json:"total_leaves_allocated"`
	UnusedLeaves         string `json:"unused_leaves"`
	DocStatus            string `json:"doc_status"`
	Closed               bool   `json:"closed,omitempty"`
}

// LedgerEntryDTO represents one ledger line.
type LedgerEntryDTO struct {
	ID            string `json:"id"`
	AllocationID  string `json:"allocation_id"`
	Delta         string `json:"delta"`
	EffectiveDate string `json:"effective_date"`
	Note          string `json:"note,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// BalanceDTO is an employee's balance for one leave type.
type BalanceDTO struct {
	EmployeeID  string          `json:"employee_id"`
	LeaveTypeID string          `json:"leave_type_id"`
	Balance     string          `json:"balance"`
	AsOf        string          `json:"as_of"`
	Allocations []AllocationDTO `json:"allocations"`
}

// RunReportDTO is the result of an accrual run.
type RunReportDTO struct {
	Date      string   `json:"date"`
	Evaluated int      `json:"evaluated"`
	Applied   int      `json:"applied"`
	Skipped   int      `json:"skipped"`
	Created   int      `json:"created"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RolloverReportDTO is the result of a period-end rollover run.
type RolloverReportDTO struct {
	Processed int      `json:"processed"`
	Carried   int      `json:"carried"`
	Expired   int      `json:"expired"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RunRequest triggers an accrual or rollover run. Date defaults to today.
type RunRequest struct {
	Date string `json:"date,omitempty"`
}

// LeaveDaysRequest asks how many leave days a date range consumes.
type LeaveDaysRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	HalfDay     bool   `json:"half_day,omitempty"`
	HalfDayDate string `json:"half_day_date,omitempty"`
}

// LeaveDaysResponse is the computed day count.
type LeaveDaysResponse struct {
	Days string `json:"days"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAllocationDTO(a leave.Allocation) AllocationDTO {
	return AllocationDTO{
		ID:                   a.ID,
		EmployeeID:           a.EmployeeID,
		LeaveTypeID:          a.LeaveTypeID,
		FromDate:             a.FromDate.String(),
		ToDate:               a.ToDate.String(),
		NewLeavesAllocated:   a.NewLeavesAllocated.String(),
		TotalLeavesAllocated: a.TotalLeavesAllocated.String(),
		UnusedLeaves:         a.UnusedLeaves.String(),
		DocStatus:            a.DocStatus.String(),
		Closed:               a.Closed,
	}
}

func toAllocationDTOs(allocations []leave.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = toAllocationDTO(a)
	}
	return dtos
}

func toLedgerEntryDTO(e leave.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:            e.ID,
		AllocationID:  e.AllocationID,
		Delta:         e.Delta.String(),
		EffectiveDate: e.EffectiveDate.String(),
		Note:          e.Note,
		CreatedAt:     e.CreatedAt.String(),
	}
}

func toRunReportDTO(report *accrual.RunReport) RunReportDTO {
	dto := RunReportDTO{
		Date:      report.Date.String(),
		Evaluated: report.Evaluated,
		Applied:   report.Applied,
		Skipped:   report.Skipped,
		Created:   report.Created,
		Failed:    report.Failed,
	}
	for _, e := range report.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	return dto
}

func toRolloverReportDTO(report *accrual.RolloverReport) RolloverReportDTO {
	dto := RolloverReportDTO{
		Processed: report.Processed,
		Carried:   report.Carried,
		Expired:   report.ExpiredN,
		Failed:    report.Failed,
	}
	for _, e := range report.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	return dto
}
