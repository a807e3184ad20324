package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// TaskRepository backs the human review queue for the compliance-gated
// channel.
type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.ManualTask) error {
	query := `
		INSERT INTO manual_tasks
			(id, tenant_id, run_id, outbox_id, profile_url, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.TenantID, task.RunID, task.OutboxID,
		task.ProfileURL, task.Message, task.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create manual task: %w", err)
	}

	return nil
}

func (r *TaskRepository) GetOpen(ctx context.Context, page, pageSize int) ([]domain.ManualTask, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM manual_tasks WHERE status = 'open'"
	if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to count open tasks: %w", err)
	}

	query := `
		SELECT id, tenant_id, run_id, outbox_id, profile_url, message, status, completed_at, created_at
		FROM manual_tasks
		WHERE status = 'open'
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	var tasks []domain.ManualTask
	if err := r.db.SelectContext(ctx, &tasks, query, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get open tasks: %w", err)
	}

	return tasks, totalCount, nil
}

// Complete marks the task sent and returns its outbox id so the caller can
// move the outbox record out of pending_manual.
func (r *TaskRepository) Complete(ctx context.Context, id string, completedAt time.Time) (string, error) {
	var outboxID string
	getQuery := "SELECT outbox_id FROM manual_tasks WHERE id = ? AND status = 'open'"
	if err := r.db.GetContext(ctx, &outboxID, getQuery, id); err != nil {
		return "", fmt.Errorf("no open task found with id %s", id)
	}

	query := `
		UPDATE manual_tasks
		SET status = 'sent', completed_at = ?
		WHERE id = ? AND status = 'open'
	`

	result, err := r.db.ExecContext(ctx, query, completedAt, id)
	if err != nil {
		return "", fmt.Errorf("failed to complete manual task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return "", fmt.Errorf("no open task found with id %s", id)
	}

	return outboxID, nil
}
