// Package scheduler runs recurring network scans on a cron expression.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/mjelva/netwarden/internal/errors"
	"github.com/mjelva/netwarden/internal/logging"
)

// Trigger starts one scan session. Satisfied by session.Orchestrator.
type Trigger interface {
	StartScan(ctx context.Context) error
}

// Config holds scheduler configuration.
type Config struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Schedule string `yaml:"schedule" json:"schedule"`
}

// DefaultConfig returns a disabled scheduler with a nightly schedule.
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Schedule: "0 3 * * *",
	}
}

// Scheduler triggers scans on a fixed cron schedule. A tick that fires
// while a scan is still running is rejected by the session guard and
// simply skipped.
type Scheduler struct {
	cfg     Config
	trigger Trigger
	logger  *logging.Logger
	cron    *cron.Cron
	entry   cron.EntryID

	mu      sync.Mutex
	running bool
	lastRun time.Time
	cancel  context.CancelFunc
}

// New creates a scheduler for the given trigger.
func New(cfg Config, trigger Trigger, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		trigger: trigger,
		logger:  logger.WithComponent("scheduler"),
		cron:    cron.New(),
	}
}

// Start validates the schedule and begins firing ticks. Starting an
// already running scheduler is an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return apperrors.NewScanError(apperrors.CodeConfiguration, "Scheduler is already running")
	}
	if s.cfg.Schedule == "" {
		return apperrors.ErrConfigMissing("scheduler.schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) })
	if err != nil {
		cancel()
		return apperrors.NewConfigFieldError(apperrors.CodeValidation,
			"Invalid cron schedule", "scheduler.schedule", s.cfg.Schedule)
	}

	s.entry = entry
	s.cancel = cancel
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop halts the schedule and cancels any scan it started. Safe to call
// on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.running = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns when the last tick fired, zero if none has.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRun returns the next scheduled tick, zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.logger.Info("Scheduled scan starting")
	if err := s.trigger.StartScan(ctx); err != nil {
		if apperrors.IsCode(err, apperrors.CodeScanInProgress) {
			s.logger.Warn("Scheduled scan skipped, previous scan still running")
			return
		}
		s.logger.Error("Scheduled scan failed", "error", err)
	}
}
