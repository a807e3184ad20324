package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// SequenceRepository reads sequence and step definitions. Steps are read at
// dispatch time only for the next cursor position, so sequence edits never
// retroactively change in-flight runs' computed due times.
type SequenceRepository struct {
	db *sqlx.DB
}

func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// GetStep returns the step at stepOrder, or nil when the sequence has no such
// step (the run's terminal condition).
func (r *SequenceRepository) GetStep(ctx context.Context, sequenceID int64, stepOrder int) (*domain.SequenceStep, error) {
	query := `
		SELECT id, sequence_id, step_order, channel, delay_days, metadata, created_at
		FROM sequence_steps
		WHERE sequence_id = ? AND step_order = ?
	`

	var step domain.SequenceStep
	if err := r.db.GetContext(ctx, &step, query, sequenceID, stepOrder); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return &step, nil
}

func (r *SequenceRepository) GetSteps(ctx context.Context, sequenceID int64) ([]domain.SequenceStep, error) {
	query := `
		SELECT id, sequence_id, step_order, channel, delay_days, metadata, created_at
		FROM sequence_steps
		WHERE sequence_id = ?
		ORDER BY step_order ASC
	`

	var steps []domain.SequenceStep
	if err := r.db.SelectContext(ctx, &steps, query, sequenceID); err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}

	return steps, nil
}

func (r *SequenceRepository) GetByID(ctx context.Context, id int64) (*domain.Sequence, error) {
	query := `
		SELECT id, tenant_id, name, created_at, updated_at
		FROM sequences
		WHERE id = ?
	`

	var seq domain.Sequence
	if err := r.db.GetContext(ctx, &seq, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	return &seq, nil
}

// GetTenant resolves tenant settings (brand voice) for generation.
func (r *SequenceRepository) GetTenant(ctx context.Context, id int64) (*domain.Tenant, error) {
	query := `
		SELECT id, name, brand_voice, created_at
		FROM tenants
		WHERE id = ?
	`

	var tenant domain.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}
