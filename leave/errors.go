/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All sentinel errors in one place. The accrual engine sorts failures into
  three buckets: configuration errors (skip this candidate, keep the batch
  running), no-op conditions (not errors at all), and data errors (hard
  failure for the candidate). The predicates at the bottom implement that
  taxonomy for the allocator.

USAGE:
  if errors.Is(err, leave.ErrNoAnnualAllocation) { ... }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when employee master data is missing.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrLeaveTypeNotFound is returned when a referenced leave type doesn't exist.
	ErrLeaveTypeNotFound = errors.New("leave type not found")

	// ErrPolicyNotFound is returned when a referenced leave policy doesn't exist.
	ErrPolicyNotFound = errors.New("leave policy not found")

	// ErrAllocationNotFound is returned when a referenced allocation doesn't exist.
	ErrAllocationNotFound = errors.New("leave allocation not found")

	// ErrContractNotFound is returned when employment contract data is missing.
	ErrContractNotFound = errors.New("employment contract not found")

	// ErrNoAnnualAllocation is returned when no policy or leave type cap
	// resolves a positive annual allocation. Configuration, not data.
	ErrNoAnnualAllocation = errors.New("no annual allocation resolved")

	// ErrInvalidPeriod is returned for malformed period boundaries.
	ErrInvalidPeriod = errors.New("invalid allocation period")

	// ErrAllocationExists is returned when creating a duplicate allocation
	// for an (employee, leave type, period) that already has one.
	ErrAllocationExists = errors.New("allocation already exists for period")

	// ErrAllocationCancelled is returned when writing to a cancelled allocation.
	ErrAllocationCancelled = errors.New("allocation is cancelled")

	// ErrDuplicateLedgerEntry is returned when a ledger entry with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateLedgerEntry = errors.New("duplicate ledger entry")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CandidateError wraps a failure for one (employee, leave type) candidate so
// the allocator can report it without aborting the batch.
type CandidateError struct {
	EmployeeID  string
	LeaveTypeID string
	Err         error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %s/%s: %v", e.EmployeeID, e.LeaveTypeID, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR TAXONOMY HELPERS
// =============================================================================

// IsConfiguration reports whether the error is a policy misconfiguration
// that should halt one candidate without failing the run.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrNoAnnualAllocation) || errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound reports whether the error is missing master data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrAllocationNotFound) ||
		errors.Is(err, ErrContractNotFound)
}

// IsBenign reports whether the error can be ignored by a same-day retry:
// the work it guarded was already done.
func IsBenign(err error) bool {
	return errors.Is(err, ErrDuplicateLedgerEntry) || errors.Is(err, ErrAllocationExists)
}
