// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// parser accepts standard five-field expressions and descriptors such as
// "@daily" or "@every 1h".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether schedule is a valid cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Trigger runs one cleanup; typically it enqueues a task.
type Trigger func(ctx context.Context) error

// AuditCleanupScheduler fires a Trigger on a cron schedule.
type AuditCleanupScheduler struct {
	schedule string
	trigger  Trigger
	logger   zerolog.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
}

// NewAuditCleanupScheduler creates a new scheduler instance.
func NewAuditCleanupScheduler(schedule string, trigger Trigger, logger zerolog.Logger) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		schedule: schedule,
		trigger:  trigger,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the job. An empty schedule disables the scheduler.
// The scheduler stops on its own when ctx is cancelled.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		s.logger.Info().Msg("audit cleanup scheduler disabled")
		return nil
	}
	if s.trigger == nil {
		return errors.New("audit cleanup trigger not configured")
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID
	s.ctx = ctx

	s.cron.Start()
	s.isRunning = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.cron.Entry(entryID).Next).
		Msg("audit cleanup scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	s.logger.Info().Msg("audit cleanup scheduler stopped")
}

// RunNow fires the trigger immediately, outside the schedule.
func (s *AuditCleanupScheduler) RunNow(ctx context.Context) error {
	if s.trigger == nil {
		return errors.New("audit cleanup trigger not configured")
	}
	return s.trigger(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job fires next, or nil when stopped.
func (s *AuditCleanupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *AuditCleanupScheduler) run() {
	// ctx is written before the cron goroutine starts and never again.
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.trigger(ctx); err != nil {
		s.logger.Error().Err(err).Msg("audit cleanup failed")
		return
	}
	s.logger.Debug().Msg("audit cleanup triggered")
}
