// Package scheduler drives the poll cycle on a fixed interval and exposes the
// start/stop/status control surface.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"secure-mail-digest-go/internal/store"
)

// CycleRunner is the single operation the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Status is the monitor state reported to the control surface.
type Status struct {
	Running             bool      `json:"running"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ProcessedCount      int64     `json:"processed_count"`
	NextRun             time.Time `json:"next_run,omitempty"`
}

// Scheduler manages the periodic poll cycle. Start and Stop are idempotent,
// and a stopped scheduler can be started again. Scheduled and manual cycles
// are serialized so two cycles never overlap.
type Scheduler struct {
	runner     CycleRunner
	dedup      store.DedupStore
	interval   time.Duration
	maxBackoff time.Duration

	mu          sync.RWMutex
	cron        *cron.Cron
	entryID     cron.EntryID
	ctx         context.Context
	cancel      context.CancelFunc
	isRunning   bool
	lastCheck   time.Time
	lastErr     error
	failures    int
	nextAllowed time.Time

	cycleMu sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler that runs the given cycle every interval.
// Consecutive cycle failures push the next allowed run out exponentially, up
// to maxBackoff.
func NewScheduler(runner CycleRunner, dedup store.DedupStore, interval, maxBackoff time.Duration) *Scheduler {
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &Scheduler{
		runner:     runner,
		dedup:      dedup,
		interval:   interval,
		maxBackoff: maxBackoff,
	}
}

// Start begins periodic polling. Starting an already running scheduler is a
// no-op. The first cycle runs immediately; the cron entry handles the rest.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		logrus.Info("Monitor already running")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	schedule := fmt.Sprintf("@every %ds", int(s.interval.Seconds()))
	entryID, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCycle(ctx)
	}()

	logrus.Infof("Monitor started with %v poll interval", s.interval)
	return nil
}

// Stop halts polling. The in-flight cycle is allowed to finish its current
// message; remaining messages wait for the next start. Stopping a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	cronCtx := s.cron.Stop()
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		logrus.Warn("Monitor stop timeout waiting for scheduled jobs")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logrus.Info("Monitor stopped")
	case <-time.After(30 * time.Second):
		logrus.Warn("Monitor stop timeout, forcing shutdown")
	}
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// tick is the cron entry point. Ticks inside a backoff window are skipped.
func (s *Scheduler) tick() {
	s.mu.RLock()
	ctx := s.ctx
	running := s.isRunning
	notBefore := s.nextAllowed
	s.mu.RUnlock()

	if !running {
		return
	}
	if time.Now().Before(notBefore) {
		logrus.Debugf("Backing off, next cycle allowed at %s", notBefore.Format(time.RFC3339))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.runCycle(ctx)
}

// runCycle executes one cycle and updates the failure accounting. Scheduled
// and manual runs both come through here, serialized by cycleMu.
func (s *Scheduler) runCycle(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	err := s.runner.RunCycle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.lastErr = err
		s.failures++
		delay := s.backoffDelay()
		s.nextAllowed = time.Now().Add(delay)
		logrus.Errorf("Poll cycle failed (%d consecutive): %v", s.failures, err)
		if delay > s.interval {
			logrus.Warnf("Backing off %v before the next cycle", delay)
		}
		return err
	}

	s.lastErr = nil
	s.failures = 0
	s.nextAllowed = time.Time{}
	s.lastCheck = time.Now()
	return nil
}

// backoffDelay doubles the interval per consecutive failure, capped at
// maxBackoff. Called with mu held.
func (s *Scheduler) backoffDelay() time.Duration {
	delay := s.interval
	for i := 1; i < s.failures; i++ {
		delay *= 2
		if delay >= s.maxBackoff {
			return s.maxBackoff
		}
	}
	if delay > s.maxBackoff {
		return s.maxBackoff
	}
	return delay
}

// RunOnce triggers one cycle immediately, bypassing the backoff gate. It
// works whether or not periodic polling is active.
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running poll cycle once")
	return s.runCycle(context.Background())
}

// Status reports the current monitor state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:             s.isRunning,
		LastCheck:           s.lastCheck,
		ConsecutiveFailures: s.failures,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.isRunning {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	if count, err := s.dedup.CountProcessed(); err == nil {
		st.ProcessedCount = count
	}
	return st
}
