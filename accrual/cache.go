/*
Package accrual implements the leave accrual engine.

PURPOSE:
  Given an employee, a leave type's accrual policy, an allocation period and
  an as-of date, compute the leave balance that should exist on that date,
  apply the change exactly once per day, and record every change as an
  immutable ledger entry.

COMPONENTS:
  Aggregator  - normalizes attendance into eligible-day counts (attendance.go)
  Calculator  - regime dispatch and accrual formulas (calculator.go)
  Writer      - idempotent balance updates + ledger append (writer.go)
  Allocator   - enumerates candidates and drives the above (allocator.go)
  Rollover    - period close and carry-forward (rollover.go)

KEY CONCEPTS IN THIS FILE (cache.go):
  RunCache memoizes the lookups that repeat across candidates in one
  allocator run (excluded leave types, leave types, holiday calendars,
  employees). It is created per run and discarded with it, so no stale
  state survives across invocations. Not safe for concurrent use; the
  allocator iterates candidates sequentially.
*/
package accrual

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// RUN CACHE - Per-invocation memoization
// =============================================================================

type RunCache struct {
	store leave.Store

	excluded   leave.IDSet
	leaveTypes map[string]leave.LeaveType
	employees  map[string]leave.Employee
	holidays   map[string][]leave.Holiday
}

func NewRunCache(store leave.Store) *RunCache {
	return &RunCache{
		store:      store,
		leaveTypes: make(map[string]leave.LeaveType),
		employees:  make(map[string]leave.Employee),
		holidays:   make(map[string][]leave.Holiday),
	}
}

// ExcludedLeaveTypes returns the leave types that do not count toward
// acquisition, fetched once per run.
func (c *RunCache) ExcludedLeaveTypes(ctx context.Context) (leave.IDSet, error) {
	if c.excluded != nil {
		return c.excluded, nil
	}
	excluded, err := c.store.ExcludedLeaveTypes(ctx)
	if err != nil {
		return nil, err
	}
	c.excluded = excluded
	return excluded, nil
}

// LeaveType returns a leave type, memoized by ID.
func (c *RunCache) LeaveType(ctx context.Context, id string) (leave.LeaveType, error) {
	if lt, ok := c.leaveTypes[id]; ok {
		return lt, nil
	}
	lt, err := c.store.LeaveType(ctx, id)
	if err != nil {
		return leave.LeaveType{}, err
	}
	c.leaveTypes[id] = lt
	return lt, nil
}

// Employee returns an employee, memoized by ID.
func (c *RunCache) Employee(ctx context.Context, id string) (leave.Employee, error) {
	if e, ok := c.employees[id]; ok {
		return e, nil
	}
	e, err := c.store.Employee(ctx, id)
	if err != nil {
		return leave.Employee{}, err
	}
	c.employees[id] = e
	return e, nil
}

// HolidaysFor returns an employee's holidays in a range, memoized by
// (employee, range).
func (c *RunCache) HolidaysFor(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.Holiday, error) {
	key := fmt.Sprintf("%s|%s|%s", employeeID, from, to)
	if h, ok := c.holidays[key]; ok {
		return h, nil
	}
	h, err := c.store.HolidaysFor(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	c.holidays[key] = h
	return h, nil
}
