/*
store.go - Persistence interfaces consumed by the accrual engine

PURPOSE:
  Defines the data-access boundary. The engine never talks to a database
  directly; it reads master data and writes allocations through these
  interfaces. Implementations live in store/memory (tests, dev) and
  store/sqlite (production).

WRITE CONTRACT:
  - SetTotalAllocated updates exactly one field and must NOT bump any
    modification timestamp: accrual writes are system corrections, not
    user edits.
  - AppendLedger is the only ledger write. No update, no delete. A
    duplicate idempotency key returns ErrDuplicateLedgerEntry.
  - Implementations must serialize writes to the same allocation row so
    parallel evaluation cannot lose updates.
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY STORE - Leave types, policies, assignments
// =============================================================================

type PolicyStore interface {
	// LeaveType returns one leave type by ID.
	LeaveType(ctx context.Context, id string) (LeaveType, error)

	// EarnedLeaveTypes returns every leave type flagged is_earned_leave.
	EarnedLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// ExcludedLeaveTypes returns the IDs of leave types whose absences do
	// not count toward leave acquisition.
	ExcludedLeaveTypes(ctx context.Context) (IDSet, error)

	// LeavePolicy returns one policy by ID.
	LeavePolicy(ctx context.Context, id string) (LeavePolicy, error)

	// PolicyAssignment returns one assignment by ID.
	PolicyAssignment(ctx context.Context, id string) (PolicyAssignment, error)

	// SetAssignmentAllocated flips the assignment's leaves-allocated flag.
	SetAssignmentAllocated(ctx context.Context, assignmentID string, allocated bool) error
}

// =============================================================================
// ALLOCATION STORE - The one aggregate the engine writes
// =============================================================================

type AllocationStore interface {
	// Allocation returns one allocation by ID.
	Allocation(ctx context.Context, id string) (Allocation, error)

	// OpenAllocations returns submitted allocations of a leave type whose
	// period contains the date.
	OpenAllocations(ctx context.Context, leaveTypeID string, on Date) ([]Allocation, error)

	// AllocationsFor returns submitted allocations for one employee and
	// leave type whose period contains the date.
	AllocationsFor(ctx context.Context, employeeID, leaveTypeID string, on Date) ([]Allocation, error)

	// ExpiredAllocations returns submitted, unclosed allocations whose
	// period ended before the date.
	ExpiredAllocations(ctx context.Context, before Date) ([]Allocation, error)

	// MarkClosed records that period-end processing settled the allocation.
	MarkClosed(ctx context.Context, allocationID string) error

	// CreateAllocation persists a new allocation. Returns
	// ErrAllocationExists when one already covers the same
	// (employee, leave type, period).
	CreateAllocation(ctx context.Context, a Allocation) error

	// SetTotalAllocated updates total_leaves_allocated without bumping the
	// modification timestamp.
	SetTotalAllocated(ctx context.Context, allocationID string, total decimal.Decimal) error

	// SetDocStatus moves the allocation through its lifecycle.
	SetDocStatus(ctx context.Context, allocationID string, status DocStatus) error

	// AppendLedger appends an immutable ledger entry. Returns
	// ErrDuplicateLedgerEntry when the idempotency key exists.
	AppendLedger(ctx context.Context, e LedgerEntry) error

	// LedgerEntries returns all entries for an allocation, chronologically.
	LedgerEntries(ctx context.Context, allocationID string) ([]LedgerEntry, error)
}

// =============================================================================
// HR STORE - Read-only master data
// =============================================================================

type HRStore interface {
	// Employee returns one employee by ID.
	Employee(ctx context.Context, id string) (Employee, error)

	// ActiveContracts returns contracts not yet relieved as of the date.
	ActiveContracts(ctx context.Context, on Date) ([]EmploymentContract, error)

	// ContractsCovering returns the employee's contracts spanning [from, to].
	ContractsCovering(ctx context.Context, employeeID string, from, to Date) ([]EmploymentContract, error)

	// Attendance returns submitted attendance rows in [from, to].
	Attendance(ctx context.Context, employeeID string, from, to Date) ([]AttendanceRecord, error)

	// HolidaysFor returns the employee's holiday calendar entries in [from, to].
	HolidaysFor(ctx context.Context, employeeID string, from, to Date) ([]Holiday, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is the full persistence surface the allocator wires together.
type Store interface {
	PolicyStore
	AllocationStore
	HRStore
}
