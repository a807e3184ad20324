package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

type runStore interface {
	Create(ctx context.Context, run *domain.SequenceRun) error
	GetByID(ctx context.Context, id string) (*domain.SequenceRun, error)
	GetAll(ctx context.Context, status *domain.RunStatus, page, pageSize int) ([]domain.SequenceRun, int64, error)
	GetStats(ctx context.Context) (active, paused, completed int64, err error)
}

type sequenceReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Sequence, error)
	GetSteps(ctx context.Context, sequenceID int64) ([]domain.SequenceStep, error)
}

type outboxReader interface {
	GetByRun(ctx context.Context, runID string) ([]domain.OutboxRecord, error)
}

type eventReader interface {
	GetByRun(ctx context.Context, runID string) ([]domain.MessageEvent, error)
}

// RunService covers enrollment and inspection: creating a run when a prospect
// enters a campaign, and the read paths behind the API.
type RunService struct {
	runs      runStore
	sequences sequenceReader
	prospects prospectRepository
	outbox    outboxReader
	events    eventReader

	now func() time.Time
}

func NewRunService(
	runs runStore,
	sequences sequenceReader,
	prospects prospectRepository,
	outbox outboxReader,
	events eventReader,
) *RunService {
	return &RunService{
		runs:      runs,
		sequences: sequences,
		prospects: prospects,
		outbox:    outbox,
		events:    events,
		now:       time.Now,
	}
}

// Enroll creates an active run for a prospect. The first step's due time is
// computed from its delay at enrollment, so a zero-delay opener is due
// immediately.
func (s *RunService) Enroll(ctx context.Context, sequenceID, prospectID int64) (*domain.SequenceRun, error) {
	seq, err := s.sequences.GetByID(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, fmt.Errorf("sequence %d not found", sequenceID)
	}

	steps, err := s.sequences.GetSteps(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequence %d has no steps", sequenceID)
	}

	// Validate the definition up front so malformed sequences are rejected at
	// enrollment rather than discovered mid-run.
	for i, step := range steps {
		if step.StepOrder != i+1 {
			return nil, fmt.Errorf("sequence %d steps are not contiguous at position %d", sequenceID, i+1)
		}
		if !step.Channel.Valid() {
			return nil, fmt.Errorf("sequence %d step %d has unknown channel %q", sequenceID, step.StepOrder, step.Channel)
		}
		if _, err := domain.DecodeStepMeta(step.Channel, step.Metadata); err != nil {
			return nil, fmt.Errorf("sequence %d step %d: %w", sequenceID, step.StepOrder, err)
		}
	}

	prospect, err := s.prospects.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	if prospect == nil {
		return nil, fmt.Errorf("prospect %d not found", prospectID)
	}

	if prospect.TenantID != seq.TenantID {
		return nil, fmt.Errorf("prospect %d does not belong to tenant %d", prospectID, seq.TenantID)
	}

	now := s.now()
	firstDue := steps[0].DueAfter(now)

	run := &domain.SequenceRun{
		ID:           uuid.NewString(),
		TenantID:     seq.TenantID,
		SequenceID:   sequenceID,
		ProspectID:   prospectID,
		LastStepSent: 0,
		NextStepDue:  &firstDue,
		Status:       domain.RunStatusActive,
		StartedAt:    now,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	logger.Infof("Enrolled prospect %d into sequence %d (run %s, first step due %s)",
		prospectID, sequenceID, run.ID, firstDue.Format(time.RFC3339))

	return run, nil
}

func (s *RunService) GetRun(ctx context.Context, id string) (*domain.SequenceRun, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *RunService) GetAllRuns(
	ctx context.Context,
	status *domain.RunStatus,
	page, pageSize int,
) ([]domain.SequenceRun, int64, error) {
	return s.runs.GetAll(ctx, status, page, pageSize)
}

func (s *RunService) GetStats(ctx context.Context) (active, paused, completed int64, err error) {
	return s.runs.GetStats(ctx)
}

// RunDetail bundles a run with its delivery ledger and audit trail.
type RunDetail struct {
	Run    *domain.SequenceRun   `json:"run"`
	Outbox []domain.OutboxRecord `json:"outbox"`
	Events []domain.MessageEvent `json:"events"`
}

func (s *RunService) GetRunDetail(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	records, err := s.outbox.GetByRun(ctx, id)
	if err != nil {
		return nil, err
	}

	events, err := s.events.GetByRun(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RunDetail{Run: run, Outbox: records, Events: events}, nil
}
