/*
scheduler.go - Automated accrual and rollover scheduler

PURPOSE:
  Runs the daily accrual job and the period-end rollover on cron
  schedules. Mirrors what the HR system's nightly batch would do,
  without needing an external job runner.

DESIGN:
  - robfig/cron with two entries: accrual and rollover
  - Each job logs a structured run report
  - Job bodies are idempotent (ledger idempotency keys), so an
    overlapping or repeated fire is harmless

CONFIGURATION:
  Cron specs come from config (ACCRUAL_CRON, ROLLOVER_CRON). Defaults
  run accrual daily just after midnight and rollover an hour later, so
  expiring periods are settled before the day's accrual of the next
  period begins on the following night.

USAGE:
  scheduler := NewScheduler(allocator, rollover, log)
  scheduler.Start("0 5 0 * * *", "0 0 1 * * *")
  defer scheduler.Stop()

SEE ALSO:
  - handlers.go: manual trigger endpoints for the same jobs
  - accrual/allocator.go, accrual/rollover.go: job bodies
*/
package api

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/leave"
)

// Scheduler fires the accrual and rollover jobs on cron schedules.
type Scheduler struct {
	Allocator *accrual.Allocator
	Rollover  *accrual.Rollover
	Log       *logrus.Logger

	cron *cron.Cron
}

// NewScheduler creates a scheduler. Call Start to begin firing jobs.
func NewScheduler(allocator *accrual.Allocator, rollover *accrual.Rollover, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		Allocator: allocator,
		Rollover:  rollover,
		Log:       log,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start(accrualSpec, rolloverSpec string) error {
	if _, err := s.cron.AddFunc(accrualSpec, s.runAccrual); err != nil {
		return fmt.Errorf("invalid accrual cron spec %q: %w", accrualSpec, err)
	}
	if _, err := s.cron.AddFunc(rolloverSpec, s.runRollover); err != nil {
		return fmt.Errorf("invalid rollover cron spec %q: %w", rolloverSpec, err)
	}

	s.cron.Start()
	s.Log.WithFields(logrus.Fields{
		"accrual_cron":  accrualSpec,
		"rollover_cron": rolloverSpec,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.Log.Info("scheduler stopped")
}

func (s *Scheduler) runAccrual() {
	report, err := s.Allocator.Run(context.Background(), leave.Today())
	if err != nil {
		s.Log.WithError(err).Error("scheduled accrual run failed")
		return
	}
	s.Log.WithFields(logrus.Fields{
		"evaluated": report.Evaluated,
		"applied":   report.Applied,
		"skipped":   report.Skipped,
		"created":   report.Created,
		"failed":    report.Failed,
	}).Info("scheduled accrual run complete")
}

func (s *Scheduler) runRollover() {
	report, err := s.Rollover.Run(context.Background(), leave.Today())
	if err != nil {
		s.Log.WithError(err).Error("scheduled rollover run failed")
		return
	}
	s.Log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"carried":   report.Carried,
		"expired":   report.ExpiredN,
		"failed":    report.Failed,
	}).Info("scheduled rollover run complete")
}
