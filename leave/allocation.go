/*
allocation.go - Allocation aggregate and the allocation ledger

PURPOSE:
  Allocation is the single mutable aggregate the accrual engine writes: one
  row per (employee, leave type, period) holding the running accrued total.
  Every change to that total is mirrored by an immutable LedgerEntry.

CRITICAL INVARIANTS:
  1. TotalLeavesAllocated is never recomputed from scratch - it moves by
     deltas, each recorded in the ledger.
  2. Within an open period the total is monotonically non-decreasing,
     except for explicit cap application or cancellation.
  3. Ledger entries are append-only. Cancellation appends a reversing
     entry; nothing is ever edited or deleted.

SEE ALSO:
  - store.go: AllocationStore write contract
  - types.go: LeaveType / LeavePolicy inputs
*/
package leave

import "github.com/shopspring/decimal"

// =============================================================================
// ALLOCATION
// =============================================================================

// DocStatus is the allocation lifecycle state.
type DocStatus int

const (
	StatusDraft     DocStatus = 0
	StatusSubmitted DocStatus = 1
	StatusCancelled DocStatus = 2
)

func (s DocStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSubmitted:
		return "submitted"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Allocation holds one employee's leave balance for one leave type over one
// allocation period.
type Allocation struct {
	ID          string
	EmployeeID  string
	CompanyID   string
	LeaveTypeID string

	FromDate Date
	ToDate   Date

	// NewLeavesAllocated is the manually granted baseline for the period.
	NewLeavesAllocated decimal.Decimal

	// TotalLeavesAllocated is the running accrued+granted total, the only
	// field the ledger writer mutates.
	TotalLeavesAllocated decimal.Decimal

	// UnusedLeaves is the carry-forward remainder from the prior period.
	UnusedLeaves decimal.Decimal

	// Provenance: the policy this allocation was granted under, if any.
	LeavePolicyID      string
	PolicyAssignmentID string

	DocStatus DocStatus

	// Closed marks that period-end processing (carry-forward or expiry)
	// has already settled this allocation.
	Closed bool
}

// Covers reports whether the allocation period contains the date.
func (a *Allocation) Covers(on Date) bool {
	return a.FromDate.BeforeOrEqual(on) && a.ToDate.AfterOrEqual(on)
}

// Expired reports whether the allocation period ended before the date.
func (a *Allocation) Expired(on Date) bool {
	return a.ToDate.Before(on)
}

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// LedgerEntry is an immutable audit record of one balance delta.
type LedgerEntry struct {
	ID           string
	AllocationID string
	EmployeeID   string
	LeaveTypeID  string

	// Delta is the signed balance change. Accruals and carry-forward
	// grants are positive; consumption and reversals are negative.
	Delta decimal.Decimal

	EffectiveDate Date

	// IdempotencyKey rejects duplicate writes from repeated invocations.
	IdempotencyKey string

	// Note is the human-readable audit trail line.
	Note string

	CreatedAt Date
}

// IsConsumption reports whether the entry drains the balance.
func (e *LedgerEntry) IsConsumption() bool {
	return e.Delta.IsNegative()
}
