package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// fakeDispatcher is a simple test double for dispatchPass.
type fakeDispatcher struct {
	summaryToReturn domain.PassSummary
	errToReturn     error

	calls int
}

func (f *fakeDispatcher) ProcessDueRuns(ctx context.Context) (domain.PassSummary, error) {
	f.calls++
	return f.summaryToReturn, f.errToReturn
}

func TestScheduler_RunPass_AccumulatesStats(t *testing.T) {
	ctx := context.Background()

	dispatcher := &fakeDispatcher{
		summaryToReturn: domain.PassSummary{
			Processed:  4,
			Dispatched: 2,
			Completed:  1,
			Skipped:    1,
		},
	}
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   time.Minute,
	}

	s.runPass(ctx)
	s.runPass(ctx)

	status := s.GetStatus()
	if status.StepsDispatched != 4 {
		t.Errorf("expected StepsDispatched=4, got %d", status.StepsDispatched)
	}
	if status.RunsCompleted != 2 {
		t.Errorf("expected RunsCompleted=2, got %d", status.RunsCompleted)
	}
	if status.PassCount != 2 {
		t.Errorf("expected PassCount=2, got %d", status.PassCount)
	}
	if dispatcher.calls != 2 {
		t.Fatalf("expected 2 calls to ProcessDueRuns, got %d", dispatcher.calls)
	}
}

func TestScheduler_RunPass_ErrorLeavesStatsUntouched(t *testing.T) {
	ctx := context.Background()

	dispatcher := &fakeDispatcher{
		errToReturn: errors.New("database unavailable"),
	}
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   time.Minute,
	}

	s.runPass(ctx)

	status := s.GetStatus()
	if status.StepsDispatched != 0 {
		t.Errorf("expected StepsDispatched=0, got %d", status.StepsDispatched)
	}
	if status.RunsCompleted != 0 {
		t.Errorf("expected RunsCompleted=0, got %d", status.RunsCompleted)
	}
	// The pass itself is still counted.
	if status.PassCount != 1 {
		t.Errorf("expected PassCount=1, got %d", status.PassCount)
	}
}

func TestScheduler_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := &fakeDispatcher{}
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   10 * time.Millisecond,
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running initially")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !s.IsRunning() {
		t.Fatalf("expected scheduler to be running after Start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running after Stop")
	}
}

func TestScheduler_StartWithInterval_OverridesInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := &fakeDispatcher{}
	s := NewScheduler(dispatcher, time.Minute)

	if err := s.StartWithInterval(ctx, 30*time.Second); err != nil {
		t.Fatalf("StartWithInterval returned error: %v", err)
	}
	defer s.Stop()

	status := s.GetStatus()
	if status.Interval != 30*time.Second {
		t.Errorf("expected interval 30s, got %v", status.Interval)
	}
}
