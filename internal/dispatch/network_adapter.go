package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

type taskCreator interface {
	Create(ctx context.Context, task *domain.ManualTask) error
}

// NetworkAdapter never sends. Outbound messages on the professional network
// require human execution to stay inside the platform's terms of service, so
// the adapter enqueues a manual task with the generated message and the
// recipient's profile link and reports pending_manual.
type NetworkAdapter struct {
	tasks taskCreator
}

func NewNetworkAdapter(tasks taskCreator) *NetworkAdapter {
	return &NetworkAdapter{tasks: tasks}
}

func (a *NetworkAdapter) Dispatch(ctx context.Context, job Job) Outcome {
	task := &domain.ManualTask{
		ID:         uuid.NewString(),
		TenantID:   job.TenantID,
		RunID:      job.RunID,
		OutboxID:   job.OutboxID,
		ProfileURL: job.Address,
		Message:    job.Message,
		Status:     domain.TaskStatusOpen,
		CreatedAt:  time.Now(),
	}

	if err := a.tasks.Create(ctx, task); err != nil {
		logger.Errorf("Failed to enqueue manual task for run %s: %v", job.RunID, err)
		return Outcome{
			OK:     false,
			Status: domain.OutboxStatusFailed,
			Err:    err,
		}
	}

	logger.Infof("Enqueued manual network task %s for run %s", task.ID, job.RunID)

	return Outcome{
		OK:     true,
		Status: domain.OutboxStatusPendingManual,
		TaskID: task.ID,
	}
}
