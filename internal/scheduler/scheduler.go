package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

// dispatchPass is a minimal internal interface for the scheduler. It matches
// ProcessDueRuns of DispatchService and lets us unit test the poll loop with
// a small fake implementation.
type dispatchPass interface {
	ProcessDueRuns(ctx context.Context) (domain.PassSummary, error)
}

// Scheduler drives dispatch passes on a fixed interval. It holds no dispatch
// state of its own: a pass triggered here may freely overlap a pass triggered
// through the HTTP endpoint or another replica.
type Scheduler struct {
	dispatcher dispatchPass
	interval   time.Duration

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt       time.Time
	stepsDispatched int64
	runsCompleted   int64
	passCount       int64
}

func NewScheduler(dispatcher dispatchPass, interval time.Duration) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		interval:   interval,
		running:    false,
	}
}

// StartWithInterval overrides the poll interval before starting.
func (s *Scheduler) StartWithInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next pass in %v", s.interval)

	for {
		select {
		case <-ticker.C:
			s.runPass(ctx)
			logger.Debugf("Next pass in %v", s.interval)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.passCount++
	passNumber := s.passCount
	s.mu.Unlock()

	logger.Infof("[Pass #%d] Starting dispatch pass at %s", passNumber, s.lastRunAt.Format(time.RFC3339))

	summary, err := s.dispatcher.ProcessDueRuns(ctx)
	if err != nil {
		logger.Errorf("[Pass #%d] Dispatch pass failed: %v", passNumber, err)
		return
	}

	s.mu.Lock()
	s.stepsDispatched += int64(summary.Dispatched)
	s.runsCompleted += int64(summary.Completed)
	s.mu.Unlock()

	if summary.Processed == 0 {
		logger.Debugf("[Pass #%d] No due runs", passNumber)
		return
	}

	logger.Infof("[Pass #%d] %d runs processed: %d dispatched, %d completed, %d skipped, %d conflicts, %d errors",
		passNumber, summary.Processed, summary.Dispatched, summary.Completed,
		summary.Skipped, summary.Conflicts, summary.Errors)
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:         s.running,
		LastRunAt:       s.lastRunAt,
		StepsDispatched: s.stepsDispatched,
		RunsCompleted:   s.runsCompleted,
		PassCount:       s.passCount,
		Interval:        s.interval,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SchedulerStatus struct {
	Running         bool          `json:"running"`
	LastRunAt       time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt       time.Time     `json:"nextRunAt,omitempty"`
	StepsDispatched int64         `json:"stepsDispatched"`
	RunsCompleted   int64         `json:"runsCompleted"`
	PassCount       int64         `json:"passCount"`
	Interval        time.Duration `json:"interval"`
}
