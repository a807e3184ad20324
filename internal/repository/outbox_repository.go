package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// mysqlDuplicateEntry is the server error for a unique-key violation.
const mysqlDuplicateEntry = 1062

// OutboxRepository is the idempotent delivery ledger. Claim is atomic at the
// storage layer via the unique idempotency key, not advisory: it is the only
// coordination point between overlapping dispatcher invocations.
type OutboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Claim inserts the record with status queued. It returns acquired=false
// with a nil error when another execution already holds the key; that is a
// normal concurrency outcome, not a failure.
func (r *OutboxRepository) Claim(ctx context.Context, record *domain.OutboxRecord) (bool, error) {
	query := `
		INSERT INTO outbox_records
			(id, tenant_id, run_id, step_id, channel, idempotency_key, status, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.TenantID, record.RunID, record.StepID,
		record.Channel, record.IdempotencyKey, record.Status, record.Payload,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim outbox record: %w", err)
	}

	return true, nil
}

// Update records the provider result. Safe to call repeatedly with the same
// terminal status.
func (r *OutboxRepository) Update(ctx context.Context, id string, status domain.OutboxStatus, providerMessageID *string) error {
	query := `
		UPDATE outbox_records
		SET status = ?, provider_message_id = COALESCE(?, provider_message_id), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, status, providerMessageID, id)
	if err != nil {
		return fmt.Errorf("failed to update outbox record: %w", err)
	}

	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id string) (*domain.OutboxRecord, error) {
	query := `
		SELECT id, tenant_id, run_id, step_id, channel, idempotency_key, status,
		       provider_message_id, payload, created_at, updated_at
		FROM outbox_records
		WHERE id = ?
	`

	var record domain.OutboxRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get outbox record: %w", err)
	}

	return &record, nil
}

func (r *OutboxRepository) GetByRun(ctx context.Context, runID string) ([]domain.OutboxRecord, error) {
	query := `
		SELECT id, tenant_id, run_id, step_id, channel, idempotency_key, status,
		       provider_message_id, payload, created_at, updated_at
		FROM outbox_records
		WHERE run_id = ?
		ORDER BY created_at ASC
	`

	var records []domain.OutboxRecord
	if err := r.db.SelectContext(ctx, &records, query, runID); err != nil {
		return nil, fmt.Errorf("failed to get outbox records: %w", err)
	}

	return records, nil
}
