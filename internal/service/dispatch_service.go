package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/internal/dispatch"
	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/Redis/HTTP.

type runRepository interface {
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.SequenceRun, error)
	Advance(ctx context.Context, id string, stepOrder int, nextDue time.Time) error
	Complete(ctx context.Context, id string, lastStepSent int) error
}

type sequenceRepository interface {
	GetStep(ctx context.Context, sequenceID int64, stepOrder int) (*domain.SequenceStep, error)
	GetTenant(ctx context.Context, id int64) (*domain.Tenant, error)
}

type prospectRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Prospect, error)
}

type outboxRepository interface {
	Claim(ctx context.Context, record *domain.OutboxRecord) (bool, error)
	Update(ctx context.Context, id string, status domain.OutboxStatus, providerMessageID *string) error
}

type eventAppender interface {
	Append(ctx context.Context, event *domain.MessageEvent) error
}

type contentGenerator interface {
	Generate(
		ctx context.Context,
		prospect *domain.Prospect,
		channel domain.Channel,
		address string,
		stepMeta any,
		brandVoice string,
	) (*domain.GeneratedMessage, error)
}

// ProspectCache is exported so main can pass a nil interface when Redis is
// unavailable instead of a typed nil pointer.
type ProspectCache interface {
	CacheProspect(ctx context.Context, prospect *domain.Prospect) error
	GetCachedProspect(ctx context.Context, prospectID int64) (*domain.Prospect, error)
}

type adapterRegistry interface {
	For(channel domain.Channel) (dispatch.Adapter, error)
}

// runOutcome classifies one run's pass for the aggregate summary.
type runOutcome int

const (
	outcomeDispatched runOutcome = iota
	outcomeCompleted
	outcomeSkipped
	outcomeConflict
	outcomeError
)

// DispatchService executes the per-run dispatch protocol over batches of due
// runs. It is stateless across invocations: overlapping passes (an in-process
// tick racing an external cron trigger, or two replicas) are safe because the
// outbox claim is atomic at the storage layer.
type DispatchService struct {
	runs      runRepository
	sequences sequenceRepository
	prospects prospectRepository
	outbox    outboxRepository
	events    eventAppender
	generator contentGenerator
	cache     ProspectCache
	adapters  adapterRegistry
	config    environments.DispatchConfig

	now func() time.Time
}

func NewDispatchService(
	runs runRepository,
	sequences sequenceRepository,
	prospects prospectRepository,
	outbox outboxRepository,
	events eventAppender,
	generator contentGenerator,
	cache ProspectCache,
	adapters adapterRegistry,
	config environments.DispatchConfig,
) *DispatchService {
	return &DispatchService{
		runs:      runs,
		sequences: sequences,
		prospects: prospects,
		outbox:    outbox,
		events:    events,
		generator: generator,
		cache:     cache,
		adapters:  adapters,
		config:    config,
		now:       time.Now,
	}
}

// ProcessDueRuns executes one dispatch pass: select due runs bounded by the
// batch size, process them concurrently bounded by the concurrency limit, and
// report aggregate counts. Individual run failures never abort the pass.
func (s *DispatchService) ProcessDueRuns(ctx context.Context) (domain.PassSummary, error) {
	now := s.now()

	runs, err := s.runs.GetDue(ctx, now, s.config.BatchSize)
	if err != nil {
		return domain.PassSummary{}, fmt.Errorf("failed to get due runs: %w", err)
	}

	if len(runs) == 0 {
		logger.Debugf("No due runs to process")
		return domain.PassSummary{}, nil
	}

	logger.Infof("Processing %d due runs", len(runs))

	var (
		mu      sync.Mutex
		summary domain.PassSummary
	)
	summary.Processed = len(runs)

	limit := s.config.Concurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, run := range runs {
		run := run
		g.Go(func() error {
			outcome := s.processRun(gctx, &run)

			mu.Lock()
			switch outcome {
			case outcomeDispatched:
				summary.Dispatched++
			case outcomeCompleted:
				summary.Completed++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeConflict:
				summary.Conflicts++
			case outcomeError:
				summary.Errors++
			}
			mu.Unlock()

			// Run failures are counted, never propagated: returning an error
			// here would cancel the sibling runs.
			return nil
		})
	}

	_ = g.Wait()

	logger.Infof("Dispatch pass done: %d processed, %d dispatched, %d completed, %d skipped, %d conflicts, %d errors",
		summary.Processed, summary.Dispatched, summary.Completed, summary.Skipped, summary.Conflicts, summary.Errors)

	return summary, nil
}

// processRun runs the per-run dispatch protocol. Steps for one run are always
// attempted in strictly increasing order through the last_step_sent cursor.
func (s *DispatchService) processRun(ctx context.Context, run *domain.SequenceRun) runOutcome {
	stepOrder := run.LastStepSent + 1

	step, err := s.sequences.GetStep(ctx, run.SequenceID, stepOrder)
	if err != nil {
		logger.Errorf("Failed to load step %d for run %s: %v", stepOrder, run.ID, err)
		return outcomeError
	}

	// No step beyond the cursor: the run's terminal success path.
	if step == nil {
		if err := s.runs.Complete(ctx, run.ID, run.LastStepSent); err != nil {
			logger.Errorf("Failed to complete run %s: %v", run.ID, err)
			return outcomeError
		}
		logger.Infof("Run %s completed (no step beyond %d)", run.ID, run.LastStepSent)
		return outcomeCompleted
	}

	stepMeta, err := domain.DecodeStepMeta(step.Channel, step.Metadata)
	if err != nil {
		// Malformed definition: log an error event, leave the run active so an
		// operator can fix the sequence. No dead-lettering exists here.
		s.appendEvent(ctx, run, stepOrder, domain.EventError, fmt.Sprintf("malformed step metadata: %v", err))
		logger.Errorf("Run %s step %d has malformed metadata: %v", run.ID, stepOrder, err)
		return outcomeError
	}

	prospect, err := s.resolveProspect(ctx, run.ProspectID)
	if err != nil {
		logger.Warnf("Run %s: prospect resolution failed, retrying next cycle: %v", run.ID, err)
		return outcomeSkipped
	}
	if prospect == nil {
		logger.Warnf("Run %s: prospect %d not found, retrying next cycle", run.ID, run.ProspectID)
		return outcomeSkipped
	}

	address, err := prospect.AddressFor(step.Channel)
	if err != nil {
		s.appendEvent(ctx, run, stepOrder, domain.EventError, err.Error())
		logger.Errorf("Run %s step %d: %v", run.ID, stepOrder, err)
		return outcomeError
	}

	brandVoice := ""
	if tenant, err := s.sequences.GetTenant(ctx, run.TenantID); err != nil {
		logger.Warnf("Run %s: failed to load tenant %d: %v", run.ID, run.TenantID, err)
	} else if tenant != nil {
		brandVoice = tenant.BrandVoice
	}

	generated, err := s.generator.Generate(ctx, prospect, step.Channel, address, stepMeta, brandVoice)
	if err != nil {
		logger.Warnf("Run %s: content generation failed, retrying next cycle: %v", run.ID, err)
		return outcomeSkipped
	}

	payload, err := json.Marshal(domain.OutboxPayload{
		Address:    address,
		Subject:    generated.Subject,
		Message:    generated.MessageText,
		VariantTag: generated.VariantTag,
	})
	if err != nil {
		logger.Errorf("Run %s: failed to marshal outbox payload: %v", run.ID, err)
		return outcomeError
	}

	record := &domain.OutboxRecord{
		ID:             uuid.NewString(),
		TenantID:       run.TenantID,
		RunID:          run.ID,
		StepID:         step.ID,
		Channel:        step.Channel,
		IdempotencyKey: domain.IdempotencyKey(run.ID, step.ID, address),
		Status:         domain.OutboxStatusQueued,
		Payload:        payload,
	}

	acquired, err := s.outbox.Claim(ctx, record)
	if err != nil {
		logger.Errorf("Run %s: outbox claim failed: %v", run.ID, err)
		return outcomeError
	}
	if !acquired {
		// Another execution already owns this (run, step, recipient) and is
		// responsible for advancing the run.
		logger.Debugf("Run %s step %d: idempotency key already claimed, abandoning attempt", run.ID, stepOrder)
		return outcomeConflict
	}

	adapter, err := s.adapters.For(step.Channel)
	if err != nil {
		s.appendEvent(ctx, run, stepOrder, domain.EventError, err.Error())
		logger.Errorf("Run %s: %v", run.ID, err)
		if updErr := s.outbox.Update(ctx, record.ID, domain.OutboxStatusFailed, nil); updErr != nil {
			logger.Errorf("Run %s: failed to update outbox record %s: %v", run.ID, record.ID, updErr)
		}
		return outcomeError
	}

	outcome := adapter.Dispatch(ctx, dispatch.Job{
		TenantID: run.TenantID,
		RunID:    run.ID,
		OutboxID: record.ID,
		Address:  address,
		Subject:  generated.Subject,
		Message:  generated.MessageText,
	})

	var providerMessageID *string
	if outcome.ProviderMessageID != "" {
		providerMessageID = &outcome.ProviderMessageID
	}

	if err := s.outbox.Update(ctx, record.ID, outcome.Status, providerMessageID); err != nil {
		logger.Errorf("Run %s: failed to update outbox record %s: %v", run.ID, record.ID, err)
	}

	switch outcome.Status {
	case domain.OutboxStatusSent:
		s.appendEvent(ctx, run, stepOrder, domain.EventSent, outcome.ProviderMessageID)
	case domain.OutboxStatusPendingManual:
		s.appendEvent(ctx, run, stepOrder, domain.EventPending, outcome.TaskID)
	default:
		detail := ""
		if outcome.Err != nil {
			detail = outcome.Err.Error()
		}
		s.appendEvent(ctx, run, stepOrder, domain.EventFailed, detail)
	}

	// Advance on attempt, not on confirmed delivery: a bounced send does not
	// retry this step, the run proceeds to the next one.
	if err := s.advanceRun(ctx, run, step); err != nil {
		logger.Errorf("Run %s: failed to advance past step %d: %v", run.ID, stepOrder, err)
		return outcomeError
	}

	if !outcome.OK {
		logger.Warnf("Run %s step %d send failed, run advanced regardless", run.ID, stepOrder)
	}

	return outcomeDispatched
}

// advanceRun computes the next due time from the step after the one just
// attempted, or completes the run when none exists.
func (s *DispatchService) advanceRun(ctx context.Context, run *domain.SequenceRun, sent *domain.SequenceStep) error {
	next, err := s.sequences.GetStep(ctx, run.SequenceID, sent.StepOrder+1)
	if err != nil {
		return fmt.Errorf("failed to load step %d: %w", sent.StepOrder+1, err)
	}

	if next == nil {
		if err := s.runs.Complete(ctx, run.ID, sent.StepOrder); err != nil {
			return err
		}
		logger.Infof("Run %s completed after step %d", run.ID, sent.StepOrder)
		return nil
	}

	return s.runs.Advance(ctx, run.ID, sent.StepOrder, next.DueAfter(s.now()))
}

func (s *DispatchService) resolveProspect(ctx context.Context, prospectID int64) (*domain.Prospect, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedProspect(ctx, prospectID)
		if err != nil {
			logger.Debugf("Prospect cache read failed for %d: %v", prospectID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	prospect, err := s.prospects.GetByID(ctx, prospectID)
	if err != nil || prospect == nil {
		return prospect, err
	}

	if s.cache != nil {
		if err := s.cache.CacheProspect(ctx, prospect); err != nil {
			logger.Debugf("Failed to cache prospect %d: %v", prospectID, err)
		}
	}

	return prospect, nil
}

func (s *DispatchService) appendEvent(
	ctx context.Context,
	run *domain.SequenceRun,
	stepOrder int,
	eventType domain.EventType,
	detail string,
) {
	event := &domain.MessageEvent{
		ID:        uuid.NewString(),
		TenantID:  run.TenantID,
		RunID:     run.ID,
		StepOrder: stepOrder,
		Type:      eventType,
		Detail:    detail,
	}

	if err := s.events.Append(ctx, event); err != nil {
		logger.Errorf("Failed to append %s event for run %s: %v", eventType, run.ID, err)
	}
}
