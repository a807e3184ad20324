package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// RunRepository handles database operations for sequence runs. Run status and
// cursor writes happen only here, on behalf of the dispatcher (active →
// active/completed) and the reply listener (active → paused).
type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// GetDue selects active runs whose next step is due, oldest first, bounded by
// limit. Multiple overlapping invocations may select the same rows; the
// outbox claim makes that safe.
func (r *RunRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.SequenceRun, error) {
	query := `
		SELECT id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status,
		       started_at, created_at, updated_at
		FROM sequence_runs
		WHERE status = 'active' AND next_step_due_at IS NOT NULL AND next_step_due_at <= ?
		ORDER BY next_step_due_at ASC
		LIMIT ?
	`

	var runs []domain.SequenceRun
	if err := r.db.SelectContext(ctx, &runs, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.SequenceRun, error) {
	query := `
		SELECT id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status,
		       started_at, created_at, updated_at
		FROM sequence_runs
		WHERE id = ?
	`

	var run domain.SequenceRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.SequenceRun) error {
	query := `
		INSERT INTO sequence_runs
			(id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TenantID, run.SequenceID, run.ProspectID,
		run.LastStepSent, run.NextStepDue, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Advance moves the cursor to stepOrder and sets the next due time. The WHERE
// clause guards the monotonic cursor: a stale worker whose view of the run is
// behind the stored cursor updates nothing.
func (r *RunRepository) Advance(ctx context.Context, id string, stepOrder int, nextDue time.Time) error {
	query := `
		UPDATE sequence_runs
		SET last_step_sent = ?, next_step_due_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND last_step_sent < ?
	`

	result, err := r.db.ExecContext(ctx, query, stepOrder, nextDue, id, stepOrder)
	if err != nil {
		return fmt.Errorf("failed to advance run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run %s not advanced: not active or cursor already past step %d", id, stepOrder)
	}

	return nil
}

// Complete marks the run's terminal success state. lastStepSent covers the
// case where the final step was just dispatched; when a run is found already
// out of steps the cursor is left untouched.
func (r *RunRepository) Complete(ctx context.Context, id string, lastStepSent int) error {
	query := `
		UPDATE sequence_runs
		SET status = 'completed', last_step_sent = ?, next_step_due_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND last_step_sent <= ?
	`

	_, err := r.db.ExecContext(ctx, query, lastStepSent, id, lastStepSent)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	return nil
}

// Pause freezes an active run in place: the due time and cursor keep their
// values so analytics can see where the run stopped.
func (r *RunRepository) Pause(ctx context.Context, id string) error {
	query := `
		UPDATE sequence_runs
		SET status = 'paused', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to pause run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no active run found with id %s", id)
	}

	return nil
}

// FindActiveByProspect returns the active runs for a prospect, most recently
// started first. Reply matching takes the first row when several runs share
// the same recipient address.
func (r *RunRepository) FindActiveByProspect(ctx context.Context, prospectID int64) ([]domain.SequenceRun, error) {
	query := `
		SELECT id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status,
		       started_at, created_at, updated_at
		FROM sequence_runs
		WHERE prospect_id = ? AND status = 'active'
		ORDER BY started_at DESC
	`

	var runs []domain.SequenceRun
	if err := r.db.SelectContext(ctx, &runs, query, prospectID); err != nil {
		return nil, fmt.Errorf("failed to find active runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) GetAll(
	ctx context.Context,
	status *domain.RunStatus,
	page, pageSize int,
) ([]domain.SequenceRun, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var runs []domain.SequenceRun

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM sequence_runs WHERE status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count runs: %w", err)
		}

		query := `
			SELECT id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status,
			       started_at, created_at, updated_at
			FROM sequence_runs
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &runs, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get runs: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM sequence_runs"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count runs: %w", err)
		}

		query := `
			SELECT id, tenant_id, sequence_id, prospect_id, last_step_sent, next_step_due_at, status,
			       started_at, created_at, updated_at
			FROM sequence_runs
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &runs, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get runs: %w", err)
		}
	}

	return runs, totalCount, nil
}

// GetStats returns run counts by status.
func (r *RunRepository) GetStats(ctx context.Context) (active, paused, completed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)    AS active,
			COALESCE(SUM(CASE WHEN status = 'paused' THEN 1 ELSE 0 END), 0)    AS paused,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM sequence_runs
	`

	var stats struct {
		Active    int64 `db:"active"`
		Paused    int64 `db:"paused"`
		Completed int64 `db:"completed"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get run stats: %w", err)
	}

	return stats.Active, stats.Paused, stats.Completed, nil
}
