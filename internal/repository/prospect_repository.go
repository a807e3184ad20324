package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// ProspectRepository resolves recipient identities. "Not found" is reported
// as nil, nil: for the dispatcher that is a soft failure retried next cycle.
type ProspectRepository struct {
	db *sqlx.DB
}

func NewProspectRepository(db *sqlx.DB) *ProspectRepository {
	return &ProspectRepository{db: db}
}

const prospectColumns = `id, tenant_id, full_name, email, phone, profile_url, engagement_score, intent, created_at, updated_at`

func (r *ProspectRepository) GetByID(ctx context.Context, id int64) (*domain.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id = ?`

	var prospect domain.Prospect
	if err := r.db.GetContext(ctx, &prospect, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}

	return &prospect, nil
}

// FindByAddress maps an inbound sender address back to prospects. Lookup
// order mirrors reply matching: email, then phone, then profile URL.
func (r *ProspectRepository) FindByAddress(ctx context.Context, address string) ([]domain.Prospect, error) {
	query := `
		SELECT ` + prospectColumns + `
		FROM prospects
		WHERE email = ? OR phone = ? OR profile_url = ?
		ORDER BY
			CASE WHEN email = ? THEN 0 WHEN phone = ? THEN 1 ELSE 2 END,
			updated_at DESC
	`

	var prospects []domain.Prospect
	err := r.db.SelectContext(ctx, &prospects, query, address, address, address, address, address)
	if err != nil {
		return nil, fmt.Errorf("failed to find prospects by address: %w", err)
	}

	return prospects, nil
}
