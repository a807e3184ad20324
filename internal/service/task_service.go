package service

import (
	"context"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

type taskStore interface {
	GetOpen(ctx context.Context, page, pageSize int) ([]domain.ManualTask, int64, error)
	Complete(ctx context.Context, id string, completedAt time.Time) (string, error)
}

// TaskService serves the human review queue. Completing a task is the
// out-of-band transition for the compliance-gated channel: a person performed
// the send, so the pending_manual outbox record becomes sent.
type TaskService struct {
	tasks  taskStore
	outbox outboxRepository

	now func() time.Time
}

func NewTaskService(tasks taskStore, outbox outboxRepository) *TaskService {
	return &TaskService{
		tasks:  tasks,
		outbox: outbox,
		now:    time.Now,
	}
}

func (s *TaskService) GetOpenTasks(ctx context.Context, page, pageSize int) ([]domain.ManualTask, int64, error) {
	return s.tasks.GetOpen(ctx, page, pageSize)
}

func (s *TaskService) CompleteTask(ctx context.Context, id string) error {
	outboxID, err := s.tasks.Complete(ctx, id, s.now())
	if err != nil {
		return err
	}

	if err := s.outbox.Update(ctx, outboxID, domain.OutboxStatusSent, nil); err != nil {
		return err
	}

	logger.Infof("Manual task %s completed, outbox record %s marked sent", id, outboxID)

	return nil
}
