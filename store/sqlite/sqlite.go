/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists the full accrual surface: leave types, policies, assignments,
  employees, contracts, attendance, holiday calendars, allocations and
  the allocation ledger. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The ledger_entries table is append-only:
  - No UPDATE statements
  - No DELETE statements
  - A UNIQUE index on idempotency_key rejects replays at the database
    level, so a crashed run can always be re-executed.

KEY INDEXES:
  idx_ledger_idempotency:       replay protection (hot path)
  idx_allocations_open:         open-allocation scans per leave type
  idx_unique_allocation_period: one submitted allocation per
                                (employee, leave type, from, to)

CONCURRENCY:
  Uses sync.RWMutex so parallel evaluation cannot interleave the
  read-recompute-write cycle on one allocation row. WAL mode keeps
  readers unblocked.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - leave/store.go: interface definitions and the write contract
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_earned_leave BOOLEAN DEFAULT FALSE,
		frequency TEXT NOT NULL DEFAULT '',
		rounding TEXT NOT NULL DEFAULT '',
		allocate_on TEXT NOT NULL DEFAULT '',
		max_leaves_allowed TEXT NOT NULL DEFAULT '0',
		is_carry_forward BOOLEAN DEFAULT FALSE,
		include_holiday BOOLEAN DEFAULT FALSE,
		exclude_from_acquisition BOOLEAN DEFAULT FALSE,
		period_start_month INTEGER DEFAULT 1,
		period_start_day INTEGER DEFAULT 1,
		period_end_month INTEGER DEFAULT 12,
		period_end_day INTEGER DEFAULT 31,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		details_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS policy_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT NOT NULL,
		leaves_allocated BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON policy_assignments(employee_id);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		date_of_joining TEXT NOT NULL,
		relieving_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		date_of_joining TEXT NOT NULL,
		relieving_date TEXT,
		weekday_hours_json TEXT NOT NULL DEFAULT '{}',
		leave_type_ids_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_employee
		ON contracts(employee_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_relieving
		ON contracts(relieving_date);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		leave_type_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_unique
		ON attendance(employee_id, date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		weekly_off BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(employee_id, date);

	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL DEFAULT '',
		leave_type_id TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		new_leaves_allocated TEXT NOT NULL DEFAULT '0',
		total_leaves_allocated TEXT NOT NULL DEFAULT '0',
		unused_leaves TEXT NOT NULL DEFAULT '0',
		leave_policy_id TEXT NOT NULL DEFAULT '',
		policy_assignment_id TEXT NOT NULL DEFAULT '',
		doc_status INTEGER NOT NULL DEFAULT 0,
		closed BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL,
		modified_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_open
		ON allocations(leave_type_id, doc_status, from_date, to_date);
	CREATE INDEX IF NOT EXISTS idx_allocations_employee
		ON allocations(employee_id, leave_type_id);

	-- One submitted allocation per employee, leave type and period.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_allocation_period
		ON allocations(employee_id, leave_type_id, from_date, to_date)
		WHERE doc_status = 1;

	-- Append-only ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		allocation_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		delta TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_allocation
		ON ledger_entries(allocation_id, effective_date);
	CREATE INDEX IF NOT EXISTS idx_ledger_idempotency
		ON ledger_entries(idempotency_key) WHERE idempotency_key IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE
// =============================================================================

// SaveLeaveType inserts or replaces a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_types
		(id, name, is_earned_leave, frequency, rounding, allocate_on,
		 max_leaves_allowed, is_carry_forward, include_holiday,
		 exclude_from_acquisition, period_start_month, period_start_day,
		 period_end_month, period_end_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_earned_leave = excluded.is_earned_leave,
			frequency = excluded.frequency,
			rounding = excluded.rounding,
			allocate_on = excluded.allocate_on,
			max_leaves_allowed = excluded.max_leaves_allowed,
			is_carry_forward = excluded.is_carry_forward,
			include_holiday = excluded.include_holiday,
			exclude_from_acquisition = excluded.exclude_from_acquisition,
			period_start_month = excluded.period_start_month,
			period_start_day = excluded.period_start_day,
			period_end_month = excluded.period_end_month,
			period_end_day = excluded.period_end_day
	`

	_, err := s.db.ExecContext(ctx, query,
		lt.ID, lt.Name, lt.IsEarnedLeave, string(lt.Frequency), string(lt.Rounding),
		string(lt.AllocateOn), lt.MaxLeavesAllowed.String(), lt.IsCarryForward,
		lt.IncludeHoliday, lt.ExcludeFromAcquisition,
		lt.PeriodStartMonth, lt.PeriodStartDay, lt.PeriodEndMonth, lt.PeriodEndDay,
		nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func (s *Store) LeaveType(ctx context.Context, id string) (leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, leaveTypeColumns+" WHERE id = ?", id)
	lt, err := scanLeaveType(row)
	if err == sql.ErrNoRows {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return lt, err
}

func (s *Store) EarnedLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLeaveTypes(ctx, leaveTypeColumns+" WHERE is_earned_leave = TRUE ORDER BY id")
}

func (s *Store) ExcludedLeaveTypes(ctx context.Context) (leave.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM leave_types WHERE exclude_from_acquisition = TRUE")
	if err != nil {
		return nil, fmt.Errorf("failed to query excluded leave types: %w", err)
	}
	defer rows.Close()

	excluded := leave.NewIDSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		excluded[id] = struct{}{}
	}
	return excluded, rows.Err()
}

// SavePolicy inserts or replaces a leave policy. Details are stored as a
// JSON document, same shape as the wire format.
func (s *Store) SavePolicy(ctx context.Context, p leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	detailsJSON, err := json.Marshal(p.Details)
	if err != nil {
		return fmt.Errorf("failed to encode policy details: %w", err)
	}

	query := `
		INSERT INTO leave_policies (id, title, details_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			details_json = excluded.details_json
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Title, string(detailsJSON), nowRFC3339()); err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *Store) LeavePolicy(ctx context.Context, id string) (leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p           leave.LeavePolicy
		detailsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, details_json FROM leave_policies WHERE id = ?", id,
	).Scan(&p.ID, &p.Title, &detailsJSON)
	if err == sql.ErrNoRows {
		return leave.LeavePolicy{}, leave.ErrPolicyNotFound
	}
	if err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("failed to load policy: %w", err)
	}
	if err := json.Unmarshal([]byte(detailsJSON), &p.Details); err != nil {
		return leave.LeavePolicy{}, fmt.Errorf("failed to decode policy details: %w", err)
	}
	return p, nil
}

// SaveAssignment inserts or replaces a policy assignment.
func (s *Store) SaveAssignment(ctx context.Context, a leave.PolicyAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO policy_assignments
		(id, employee_id, policy_id, effective_from, effective_to, leaves_allocated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			policy_id = excluded.policy_id,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to,
			leaves_allocated = excluded.leaves_allocated
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.LeavePolicyID,
		a.EffectiveFrom.String(), a.EffectiveTo.String(),
		a.LeavesAllocated, nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

func (s *Store) PolicyAssignment(ctx context.Context, id string) (leave.PolicyAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a        leave.PolicyAssignment
		from, to string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, policy_id, effective_from, effective_to, leaves_allocated
		FROM policy_assignments WHERE id = ?`, id,
	).Scan(&a.ID, &a.EmployeeID, &a.LeavePolicyID, &from, &to, &a.LeavesAllocated)
	if err == sql.ErrNoRows {
		return leave.PolicyAssignment{}, leave.ErrPolicyNotFound
	}
	if err != nil {
		return leave.PolicyAssignment{}, fmt.Errorf("failed to load assignment: %w", err)
	}
	a.EffectiveFrom = parseDate(from)
	a.EffectiveTo = parseDate(to)
	return a, nil
}

func (s *Store) SetAssignmentAllocated(ctx context.Context, assignmentID string, allocated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE policy_assignments SET leaves_allocated = ? WHERE id = ?",
		allocated, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrPolicyNotFound
	}
	return nil
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

const allocationColumns = `
	SELECT id, employee_id, company_id, leave_type_id, from_date, to_date,
	       new_leaves_allocated, total_leaves_allocated, unused_leaves,
	       leave_policy_id, policy_assignment_id, doc_status, closed
	FROM allocations`

func (s *Store) Allocation(ctx context.Context, id string) (leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, allocationColumns+" WHERE id = ?", id)
	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return leave.Allocation{}, leave.ErrAllocationNotFound
	}
	return a, err
}

func (s *Store) OpenAllocations(ctx context.Context, leaveTypeID string, on leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := allocationColumns + `
		WHERE leave_type_id = ? AND doc_status = ?
		  AND from_date <= ? AND to_date >= ?
		ORDER BY id`
	return s.queryAllocations(ctx, query,
		leaveTypeID, int(leave.StatusSubmitted), on.String(), on.String())
}

func (s *Store) AllocationsFor(ctx context.Context, employeeID, leaveTypeID string, on leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := allocationColumns + `
		WHERE employee_id = ? AND leave_type_id = ? AND doc_status = ?
		  AND from_date <= ? AND to_date >= ?
		ORDER BY id`
	return s.queryAllocations(ctx, query,
		employeeID, leaveTypeID, int(leave.StatusSubmitted), on.String(), on.String())
}

func (s *Store) ExpiredAllocations(ctx context.Context, before leave.Date) ([]leave.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := allocationColumns + `
		WHERE doc_status = ? AND closed = FALSE AND to_date < ?
		ORDER BY id`
	return s.queryAllocations(ctx, query, int(leave.StatusSubmitted), before.String())
}

func (s *Store) CreateAllocation(ctx context.Context, a leave.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO allocations
		(id, employee_id, company_id, leave_type_id, from_date, to_date,
		 new_leaves_allocated, total_leaves_allocated, unused_leaves,
		 leave_policy_id, policy_assignment_id, doc_status, closed,
		 created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.CompanyID, a.LeaveTypeID,
		a.FromDate.String(), a.ToDate.String(),
		a.NewLeavesAllocated.String(), a.TotalLeavesAllocated.String(),
		a.UnusedLeaves.String(),
		a.LeavePolicyID, a.PolicyAssignmentID, int(a.DocStatus), a.Closed,
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrAllocationExists
		}
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

// SetTotalAllocated deliberately leaves modified_at untouched: accrual
// writes are system corrections, not user edits.
func (s *Store) SetTotalAllocated(ctx context.Context, allocationID string, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET total_leaves_allocated = ? WHERE id = ?",
		total.String(), allocationID)
	if err != nil {
		return fmt.Errorf("failed to update allocation total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) SetDocStatus(ctx context.Context, allocationID string, status leave.DocStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET doc_status = ?, modified_at = ? WHERE id = ?",
		int(status), nowRFC3339(), allocationID)
	if err != nil {
		return fmt.Errorf("failed to update allocation status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) MarkClosed(ctx context.Context, allocationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET closed = TRUE WHERE id = ?", allocationID)
	if err != nil {
		return fmt.Errorf("failed to close allocation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) AppendLedger(ctx context.Context, e leave.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger_entries
		(id, allocation_id, employee_id, leave_type_id, delta, effective_date,
		 idempotency_key, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = leave.Today()
	}
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.AllocationID, e.EmployeeID, e.LeaveTypeID,
		e.Delta.String(), e.EffectiveDate.String(),
		nullString(e.IdempotencyKey), e.Note, createdAt.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicateLedgerEntry
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (s *Store) LedgerEntries(ctx context.Context, allocationID string) ([]leave.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, allocation_id, employee_id, leave_type_id, delta,
		       effective_date, idempotency_key, note, created_at
		FROM ledger_entries
		WHERE allocation_id = ?
		ORDER BY effective_date ASC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, allocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []leave.LedgerEntry
	for rows.Next() {
		var (
			e         leave.LedgerEntry
			delta     string
			date      string
			key       sql.NullString
			note      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.AllocationID, &e.EmployeeID, &e.LeaveTypeID,
			&delta, &date, &key, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Delta = parseDecimal(delta)
		e.EffectiveDate = parseDate(date)
		e.IdempotencyKey = key.String
		e.Note = note.String
		e.CreatedAt = parseDate(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HR STORE
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, company_id, date_of_joining, relieving_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			company_id = excluded.company_id,
			date_of_joining = excluded.date_of_joining,
			relieving_date = excluded.relieving_date
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Name, e.CompanyID,
		e.DateOfJoining.String(), nullDate(e.RelievingDate), nowRFC3339())
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) Employee(ctx context.Context, id string) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e         leave.Employee
		joined    string
		relieving sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, company_id, date_of_joining, relieving_date FROM employees WHERE id = ?", id,
	).Scan(&e.ID, &e.Name, &e.CompanyID, &joined, &relieving)
	if err == sql.ErrNoRows {
		return leave.Employee{}, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return leave.Employee{}, fmt.Errorf("failed to load employee: %w", err)
	}
	e.DateOfJoining = parseDate(joined)
	if relieving.Valid {
		e.RelievingDate = parseDate(relieving.String)
	}
	return e, nil
}

// SaveContract inserts or replaces an employment contract.
func (s *Store) SaveContract(ctx context.Context, c leave.EmploymentContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hoursJSON, err := json.Marshal(weekdayHoursToJSON(c.WeekdayHours))
	if err != nil {
		return fmt.Errorf("failed to encode weekday hours: %w", err)
	}
	idsJSON, err := json.Marshal(c.LeaveTypeIDs)
	if err != nil {
		return fmt.Errorf("failed to encode leave type ids: %w", err)
	}

	query := `
		INSERT INTO contracts
		(id, employee_id, company_id, date_of_joining, relieving_date,
		 weekday_hours_json, leave_type_ids_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			company_id = excluded.company_id,
			date_of_joining = excluded.date_of_joining,
			relieving_date = excluded.relieving_date,
			weekday_hours_json = excluded.weekday_hours_json,
			leave_type_ids_json = excluded.leave_type_ids_json
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.EmployeeID, c.CompanyID,
		c.DateOfJoining.String(), nullDate(c.RelievingDate),
		string(hoursJSON), string(idsJSON), nowRFC3339())
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

func (s *Store) ActiveContracts(ctx context.Context, on leave.Date) ([]leave.EmploymentContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := contractColumns + " WHERE relieving_date IS NULL OR relieving_date >= ?"
	return s.queryContracts(ctx, query, on.String())
}

func (s *Store) ContractsCovering(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.EmploymentContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := contractColumns + `
		WHERE employee_id = ?
		  AND date_of_joining <= ?
		  AND (relieving_date IS NULL OR relieving_date >= ?)`
	return s.queryContracts(ctx, query, employeeID, from.String(), to.String())
}

// SaveAttendance inserts attendance rows. A duplicate employee-day
// replaces the original row: attendance corrections overwrite.
func (s *Store) SaveAttendance(ctx context.Context, records ...leave.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (id, employee_id, date, status, leave_type_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			status = excluded.status,
			leave_type_id = excluded.leave_type_id
	`
	for _, r := range records {
		id := r.EmployeeID + "|" + r.Date.String()
		if _, err := s.db.ExecContext(ctx, query,
			id, r.EmployeeID, r.Date.String(), string(r.Status), r.LeaveTypeID, nowRFC3339()); err != nil {
			return fmt.Errorf("failed to save attendance: %w", err)
		}
	}
	return nil
}

func (s *Store) Attendance(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, status, leave_type_id
		FROM attendance
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []leave.AttendanceRecord
	for rows.Next() {
		var (
			r      leave.AttendanceRecord
			date   string
			status string
		)
		if err := rows.Scan(&r.EmployeeID, &date, &status, &r.LeaveTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		r.Date = parseDate(date)
		r.Status = leave.AttendanceStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveHolidays inserts holiday calendar entries for an employee.
func (s *Store) SaveHolidays(ctx context.Context, employeeID string, holidays ...leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, employee_id, date, description, weekly_off, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			description = excluded.description,
			weekly_off = excluded.weekly_off
	`
	for _, h := range holidays {
		id := employeeID + "|" + h.Date.String()
		if _, err := s.db.ExecContext(ctx, query,
			id, employeeID, h.Date.String(), h.Description, h.WeeklyOff, nowRFC3339()); err != nil {
			return fmt.Errorf("failed to save holiday: %w", err)
		}
	}
	return nil
}

func (s *Store) HolidaysFor(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT date, description, weekly_off
		FROM holidays
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, employeeID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var (
			h    leave.Holiday
			date string
		)
		if err := rows.Scan(&date, &h.Description, &h.WeeklyOff); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date = parseDate(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

const leaveTypeColumns = `
	SELECT id, name, is_earned_leave, frequency, rounding, allocate_on,
	       max_leaves_allowed, is_carry_forward, include_holiday,
	       exclude_from_acquisition, period_start_month, period_start_day,
	       period_end_month, period_end_day
	FROM leave_types`

const contractColumns = `
	SELECT id, employee_id, company_id, date_of_joining, relieving_date,
	       weekday_hours_json, leave_type_ids_json
	FROM contracts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeaveType(row rowScanner) (leave.LeaveType, error) {
	var (
		lt         leave.LeaveType
		frequency  string
		rounding   string
		allocateOn string
		maxAllowed string
	)
	err := row.Scan(&lt.ID, &lt.Name, &lt.IsEarnedLeave, &frequency, &rounding,
		&allocateOn, &maxAllowed, &lt.IsCarryForward, &lt.IncludeHoliday,
		&lt.ExcludeFromAcquisition, &lt.PeriodStartMonth, &lt.PeriodStartDay,
		&lt.PeriodEndMonth, &lt.PeriodEndDay)
	if err != nil {
		return lt, err
	}
	lt.Frequency = leave.Frequency(frequency)
	lt.Rounding = leave.Rounding(rounding)
	lt.AllocateOn = leave.AllocateOnDay(allocateOn)
	lt.MaxLeavesAllowed = parseDecimal(maxAllowed)
	return lt, nil
}

func (s *Store) queryLeaveTypes(ctx context.Context, query string, args ...any) ([]leave.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func scanAllocation(row rowScanner) (leave.Allocation, error) {
	var (
		a         leave.Allocation
		from, to  string
		newAlloc  string
		total     string
		unused    string
		docStatus int
	)
	err := row.Scan(&a.ID, &a.EmployeeID, &a.CompanyID, &a.LeaveTypeID,
		&from, &to, &newAlloc, &total, &unused,
		&a.LeavePolicyID, &a.PolicyAssignmentID, &docStatus, &a.Closed)
	if err != nil {
		return a, err
	}
	a.FromDate = parseDate(from)
	a.ToDate = parseDate(to)
	a.NewLeavesAllocated = parseDecimal(newAlloc)
	a.TotalLeavesAllocated = parseDecimal(total)
	a.UnusedLeaves = parseDecimal(unused)
	a.DocStatus = leave.DocStatus(docStatus)
	return a, nil
}

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]leave.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []leave.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *Store) queryContracts(ctx context.Context, query string, args ...any) ([]leave.EmploymentContract, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []leave.EmploymentContract
	for rows.Next() {
		var (
			c         leave.EmploymentContract
			joined    string
			relieving sql.NullString
			hoursJSON string
			idsJSON   string
		)
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.CompanyID,
			&joined, &relieving, &hoursJSON, &idsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		c.DateOfJoining = parseDate(joined)
		if relieving.Valid {
			c.RelievingDate = parseDate(relieving.String)
		}
		var hours map[string]float64
		if err := json.Unmarshal([]byte(hoursJSON), &hours); err != nil {
			return nil, fmt.Errorf("failed to decode weekday hours: %w", err)
		}
		c.WeekdayHours = weekdayHoursFromJSON(hours)
		if err := json.Unmarshal([]byte(idsJSON), &c.LeaveTypeIDs); err != nil {
			return nil, fmt.Errorf("failed to decode leave type ids: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// Weekday hours are stored keyed by integer weekday (time.Sunday = 0).
func weekdayHoursToJSON(hours map[time.Weekday]float64) map[string]float64 {
	out := make(map[string]float64, len(hours))
	for wd, h := range hours {
		out[strconv.Itoa(int(wd))] = h
	}
	return out
}

func weekdayHoursFromJSON(hours map[string]float64) map[time.Weekday]float64 {
	if len(hours) == 0 {
		return nil
	}
	out := make(map[time.Weekday]float64, len(hours))
	for k, h := range hours {
		wd, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[time.Weekday(wd)] = h
	}
	return out
}

func parseDate(s string) leave.Date {
	d, _ := leave.ParseDate(s)
	return d
}

func nullDate(d leave.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ leave.Store = (*Store)(nil)
