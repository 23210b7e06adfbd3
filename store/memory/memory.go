// Package memory provides an in-memory leave.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	leaveTypes  map[string]leave.LeaveType
	policies    map[string]leave.LeavePolicy
	assignments map[string]leave.PolicyAssignment
	employees   map[string]leave.Employee
	contracts   []leave.EmploymentContract
	attendance  map[string][]leave.AttendanceRecord
	holidays    map[string][]leave.Holiday

	allocations map[string]*leave.Allocation
	ledger      map[string][]leave.LedgerEntry
	idempotency map[string]bool
}

func New() *Store {
	return &Store{
		leaveTypes:  make(map[string]leave.LeaveType),
		policies:    make(map[string]leave.LeavePolicy),
		assignments: make(map[string]leave.PolicyAssignment),
		employees:   make(map[string]leave.Employee),
		attendance:  make(map[string][]leave.AttendanceRecord),
		holidays:    make(map[string][]leave.Holiday),
		allocations: make(map[string]*leave.Allocation),
		ledger:      make(map[string][]leave.LedgerEntry),
		idempotency: make(map[string]bool),
	}
}

// =============================================================================
// SEEDING (tests and dev servers)
// =============================================================================

// Save* methods mirror the sqlite store so both backends can be seeded
// through the same factory code.

func (s *Store) SaveLeaveType(_ context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[lt.ID] = lt
	return nil
}

func (s *Store) SavePolicy(_ context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
	return nil
}

func (s *Store) SaveAssignment(_ context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) SaveEmployee(_ context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) SaveContract(_ context.Context, c leave.EmploymentContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.contracts {
		if existing.ID == c.ID {
			s.contracts[i] = c
			return nil
		}
	}
	s.contracts = append(s.contracts, c)
	return nil
}

func (s *Store) SaveAttendance(_ context.Context, records ...leave.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.attendance[r.EmployeeID] = append(s.attendance[r.EmployeeID], r)
	}
	return nil
}

func (s *Store) SaveHolidays(_ context.Context, employeeID string, holidays ...leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[employeeID] = append(s.holidays[employeeID], holidays...)
	return nil
}

// =============================================================================
// POLICY STORE
// =============================================================================

func (s *Store) LeaveType(_ context.Context, id string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lt, ok := s.leaveTypes[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return lt, nil
}

func (s *Store) EarnedLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var earned []leave.LeaveType
	for _, lt := range s.leaveTypes {
		if lt.IsEarnedLeave {
			earned = append(earned, lt)
		}
	}
	sort.Slice(earned, func(i, j int) bool { return earned[i].ID < earned[j].ID })
	return earned, nil
}

func (s *Store) ExcludedLeaveTypes(_ context.Context) (leave.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	excluded := leave.NewIDSet()
	for _, lt := range s.leaveTypes {
		if lt.ExcludeFromAcquisition {
			excluded[lt.ID] = struct{}{}
		}
	}
	return excluded, nil
}

func (s *Store) LeavePolicy(_ context.Context, id string) (leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return leave.LeavePolicy{}, leave.ErrPolicyNotFound
	}
	return p, nil
}

func (s *Store) PolicyAssignment(_ context.Context, id string) (leave.PolicyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return leave.PolicyAssignment{}, leave.ErrPolicyNotFound
	}
	return a, nil
}

func (s *Store) SetAssignmentAllocated(_ context.Context, assignmentID string, allocated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return leave.ErrPolicyNotFound
	}
	a.LeavesAllocated = allocated
	s.assignments[assignmentID] = a
	return nil
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

func (s *Store) Allocation(_ context.Context, id string) (leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[id]
	if !ok {
		return leave.Allocation{}, leave.ErrAllocationNotFound
	}
	return *a, nil
}

func (s *Store) OpenAllocations(_ context.Context, leaveTypeID string, on leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []leave.Allocation
	for _, a := range s.allocations {
		if a.LeaveTypeID == leaveTypeID && a.DocStatus == leave.StatusSubmitted && a.Covers(on) {
			open = append(open, *a)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open, nil
}

func (s *Store) AllocationsFor(_ context.Context, employeeID, leaveTypeID string, on leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []leave.Allocation
	for _, a := range s.allocations {
		if a.EmployeeID == employeeID && a.LeaveTypeID == leaveTypeID &&
			a.DocStatus == leave.StatusSubmitted && a.Covers(on) {
			matched = append(matched, *a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (s *Store) ExpiredAllocations(_ context.Context, before leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expired []leave.Allocation
	for _, a := range s.allocations {
		if a.DocStatus == leave.StatusSubmitted && !a.Closed && a.Expired(before) {
			expired = append(expired, *a)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired, nil
}

func (s *Store) CreateAllocation(_ context.Context, a leave.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.allocations {
		if existing.EmployeeID == a.EmployeeID && existing.LeaveTypeID == a.LeaveTypeID &&
			existing.DocStatus == leave.StatusSubmitted && overlaps(*existing, a) {
			return leave.ErrAllocationExists
		}
	}
	copied := a
	s.allocations[a.ID] = &copied
	return nil
}

func overlaps(a, b leave.Allocation) bool {
	return a.FromDate.BeforeOrEqual(b.ToDate) && b.FromDate.BeforeOrEqual(a.ToDate)
}

func (s *Store) SetTotalAllocated(_ context.Context, allocationID string, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[allocationID]
	if !ok {
		return leave.ErrAllocationNotFound
	}
	a.TotalLeavesAllocated = total
	return nil
}

func (s *Store) SetDocStatus(_ context.Context, allocationID string, status leave.DocStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[allocationID]
	if !ok {
		return leave.ErrAllocationNotFound
	}
	a.DocStatus = status
	return nil
}

func (s *Store) MarkClosed(_ context.Context, allocationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[allocationID]
	if !ok {
		return leave.ErrAllocationNotFound
	}
	a.Closed = true
	return nil
}

func (s *Store) AppendLedger(_ context.Context, e leave.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IdempotencyKey != "" && s.idempotency[e.IdempotencyKey] {
		return leave.ErrDuplicateLedgerEntry
	}
	s.ledger[e.AllocationID] = append(s.ledger[e.AllocationID], e)
	if e.IdempotencyKey != "" {
		s.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (s *Store) LedgerEntries(_ context.Context, allocationID string) ([]leave.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]leave.LedgerEntry, len(s.ledger[allocationID]))
	copy(entries, s.ledger[allocationID])
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EffectiveDate.Before(entries[j].EffectiveDate)
	})
	return entries, nil
}

// =============================================================================
// HR STORE
// =============================================================================

func (s *Store) Employee(_ context.Context, id string) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return leave.Employee{}, leave.ErrEmployeeNotFound
	}
	return e, nil
}

func (s *Store) ActiveContracts(_ context.Context, on leave.Date) ([]leave.EmploymentContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []leave.EmploymentContract
	for _, c := range s.contracts {
		if c.RelievingDate.IsZero() || c.RelievingDate.AfterOrEqual(on) {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *Store) ContractsCovering(_ context.Context, employeeID string, from, to leave.Date) ([]leave.EmploymentContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var covering []leave.EmploymentContract
	for _, c := range s.contracts {
		if c.EmployeeID != employeeID {
			continue
		}
		if !c.DateOfJoining.IsZero() && c.DateOfJoining.After(from) {
			continue
		}
		if !c.RelievingDate.IsZero() && c.RelievingDate.Before(to) {
			continue
		}
		covering = append(covering, c)
	}
	return covering, nil
}

func (s *Store) Attendance(_ context.Context, employeeID string, from, to leave.Date) ([]leave.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []leave.AttendanceRecord
	for _, r := range s.attendance[employeeID] {
		if r.Date.AfterOrEqual(from) && r.Date.BeforeOrEqual(to) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (s *Store) HolidaysFor(_ context.Context, employeeID string, from, to leave.Date) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []leave.Holiday
	for _, h := range s.holidays[employeeID] {
		if h.Date.AfterOrEqual(from) && h.Date.BeforeOrEqual(to) {
			rows = append(rows, h)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

var _ leave.Store = (*Store)(nil)
