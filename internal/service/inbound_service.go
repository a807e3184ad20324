package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

type prospectFinder interface {
	FindByAddress(ctx context.Context, address string) ([]domain.Prospect, error)
}

type runPauser interface {
	FindActiveByProspect(ctx context.Context, prospectID int64) ([]domain.SequenceRun, error)
	Pause(ctx context.Context, id string) error
}

// InboundService is the reply listener: it consumes provider webhook events
// and feeds them back into scheduling. A reply always wins over continued
// automated outreach; everything else is audit-only.
type InboundService struct {
	prospects prospectFinder
	runs      runPauser
	events    eventAppender
}

func NewInboundService(prospects prospectFinder, runs runPauser, events eventAppender) *InboundService {
	return &InboundService{
		prospects: prospects,
		runs:      runs,
		events:    events,
	}
}

var inboundEventTypes = map[string]domain.EventType{
	"delivered": domain.EventDelivered,
	"opened":    domain.EventOpened,
	"clicked":   domain.EventClicked,
	"bounced":   domain.EventBounced,
	"reply":     domain.EventReplied,
}

// HandleEvent processes one verified inbound event. A reply pauses the
// matching run; delivery/open/click/bounce events only append to the audit
// log. Events that match no active run are dropped with a log line.
func (s *InboundService) HandleEvent(ctx context.Context, event *domain.InboundEvent) error {
	eventType, ok := inboundEventTypes[event.Type]
	if !ok {
		return fmt.Errorf("unknown inbound event type %q", event.Type)
	}

	run, err := s.matchRun(ctx, event.SenderAddress)
	if err != nil {
		return err
	}
	if run == nil {
		logger.Infof("Inbound %s event from %s matches no active run, ignoring", event.Type, event.SenderAddress)
		return nil
	}

	if eventType == domain.EventReplied {
		if err := s.runs.Pause(ctx, run.ID); err != nil {
			return fmt.Errorf("failed to pause run %s: %w", run.ID, err)
		}
		logger.Infof("Run %s paused after reply from %s", run.ID, event.SenderAddress)
	}

	detail := event.Detail
	if detail == "" {
		detail = event.ProviderMessageID
	}

	messageEvent := &domain.MessageEvent{
		ID:        uuid.NewString(),
		TenantID:  run.TenantID,
		RunID:     run.ID,
		StepOrder: run.LastStepSent,
		Type:      eventType,
		Detail:    detail,
	}

	if err := s.events.Append(ctx, messageEvent); err != nil {
		return fmt.Errorf("failed to append %s event: %w", eventType, err)
	}

	return nil
}

// matchRun maps a sender address to one active run. The address may match
// several prospects and a prospect may have several active runs; the most
// recently started run wins, a deliberate tie-break rather than leaving the
// match nondeterministic.
func (s *InboundService) matchRun(ctx context.Context, address string) (*domain.SequenceRun, error) {
	prospects, err := s.prospects.FindByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address %s: %w", address, err)
	}

	var best *domain.SequenceRun
	for _, prospect := range prospects {
		runs, err := s.runs.FindActiveByProspect(ctx, prospect.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find runs for prospect %d: %w", prospect.ID, err)
		}
		for i := range runs {
			if best == nil || runs[i].StartedAt.After(best.StartedAt) {
				best = &runs[i]
			}
		}
	}

	return best, nil
}
