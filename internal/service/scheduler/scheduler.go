package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/config"
)

// Runner is the work the scheduler triggers
type Runner interface {
	SyncAllActive(ctx context.Context) error
	RenewWatches(ctx context.Context, within time.Duration) (int, error)
}

// watchRenewalWindow is how far ahead expiring watches are renewed
const watchRenewalWindow = 48 * time.Hour

// Scheduler manages the periodic poll sync and watch renewal
type Scheduler struct {
	cron         *cron.Cron
	pollEntry    cron.EntryID
	renewalEntry cron.EntryID
	config       *config.SchedulerConfig
	runner       Runner
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	isRunning    bool
	mu           sync.RWMutex
}

// New creates a new scheduler
func New(cfg *config.SchedulerConfig, runner Runner) *Scheduler {
	return &Scheduler{
		config: cfg,
		runner: runner,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	c := cron.New(cron.WithSeconds())

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)
	pollEntry, err := c.AddFunc(schedule, s.pollConnections)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	var renewalEntry cron.EntryID
	if s.config.WatchRenewalSpec != "" {
		renewalEntry, err = c.AddFunc(s.config.WatchRenewalSpec, s.renewWatches)
		if err != nil {
			return fmt.Errorf("failed to add watch renewal job: %w", err)
		}
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.pollEntry = pollEntry
	s.renewalEntry = renewalEntry
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RunOnce polls every active connection once (for manual triggering)
func (s *Scheduler) RunOnce(ctx context.Context) error {
	logrus.Info("Running connection sync once")
	s.wg.Add(1)
	defer s.wg.Done()
	return s.runner.SyncAllActive(ctx)
}

// GetNextRun returns the time of the next scheduled poll
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.pollEntry).Next
}

// GetLastRun returns the time of the last scheduled poll
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.pollEntry).Prev
}

// Wait waits for in-flight runs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runContext() (context.Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return nil, false
	}
	return s.ctx, true
}
