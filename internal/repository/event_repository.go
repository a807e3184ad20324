package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// EventRepository is the append-only audit log.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *domain.MessageEvent) error {
	query := `
		INSERT INTO message_events
			(id, tenant_id, run_id, step_order, event_type, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.TenantID, event.RunID, event.StepOrder, event.Type, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append message event: %w", err)
	}

	return nil
}

func (r *EventRepository) GetByRun(ctx context.Context, runID string) ([]domain.MessageEvent, error) {
	query := `
		SELECT id, tenant_id, run_id, step_order, event_type, detail, created_at
		FROM message_events
		WHERE run_id = ?
		ORDER BY created_at ASC
	`

	var events []domain.MessageEvent
	if err := r.db.SelectContext(ctx, &events, query, runID); err != nil {
		return nil, fmt.Errorf("failed to get message events: %w", err)
	}

	return events, nil
}
