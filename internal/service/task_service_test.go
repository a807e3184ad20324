package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

type fakeTaskStore struct {
	outboxID  string
	err       error
	completed []string
}

func (s *fakeTaskStore) GetOpen(ctx context.Context, page, pageSize int) ([]domain.ManualTask, int64, error) {
	return nil, 0, nil
}

func (s *fakeTaskStore) Complete(ctx context.Context, id string, completedAt time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.completed = append(s.completed, id)
	return s.outboxID, nil
}

func TestCompleteTask_MarksOutboxSent(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTaskStore{outboxID: "outbox-7"}
	outbox := newFakeOutboxRepo()
	outbox.byID["outbox-7"] = &domain.OutboxRecord{ID: "outbox-7", Status: domain.OutboxStatusPendingManual}

	svc := NewTaskService(tasks, outbox)

	if err := svc.CompleteTask(ctx, "task-1"); err != nil {
		t.Fatalf("CompleteTask returned error: %v", err)
	}

	if len(tasks.completed) != 1 || tasks.completed[0] != "task-1" {
		t.Fatalf("expected task-1 completed, got %v", tasks.completed)
	}
	if outbox.byID["outbox-7"].Status != domain.OutboxStatusSent {
		t.Fatalf("expected outbox record sent, got %s", outbox.byID["outbox-7"].Status)
	}
}

func TestCompleteTask_StoreErrorSkipsOutboxUpdate(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTaskStore{err: errors.New("task not open")}
	outbox := newFakeOutboxRepo()

	svc := NewTaskService(tasks, outbox)

	if err := svc.CompleteTask(ctx, "task-1"); err == nil {
		t.Fatal("expected error from task store")
	}
	if len(outbox.updates) != 0 {
		t.Fatalf("expected no outbox updates, got %v", outbox.updates)
	}
}
