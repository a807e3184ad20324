package service

import (
	"context"
	"testing"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

type fakeProspectFinder struct {
	byAddress map[string][]domain.Prospect
}

func (f *fakeProspectFinder) FindByAddress(ctx context.Context, address string) ([]domain.Prospect, error) {
	return f.byAddress[address], nil
}

type fakeRunPauser struct {
	byProspect map[int64][]domain.SequenceRun
	paused     []string
}

func (f *fakeRunPauser) FindActiveByProspect(ctx context.Context, prospectID int64) ([]domain.SequenceRun, error) {
	return f.byProspect[prospectID], nil
}

func (f *fakeRunPauser) Pause(ctx context.Context, id string) error {
	f.paused = append(f.paused, id)
	return nil
}

func inboundRun(id string, prospectID int64, lastStepSent int, startedAt time.Time) domain.SequenceRun {
	return domain.SequenceRun{
		ID:           id,
		TenantID:     1,
		SequenceID:   5,
		ProspectID:   prospectID,
		LastStepSent: lastStepSent,
		Status:       domain.RunStatusActive,
		StartedAt:    startedAt,
	}
}

func TestHandleEvent_ReplyPausesMatchingRun(t *testing.T) {
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	finder := &fakeProspectFinder{byAddress: map[string][]domain.Prospect{
		"ada@example.com": {{ID: 10, TenantID: 1, Email: "ada@example.com"}},
	}}
	pauser := &fakeRunPauser{byProspect: map[int64][]domain.SequenceRun{
		10: {inboundRun("run-1", 10, 2, started)},
	}}
	events := &fakeEventRepo{}

	svc := NewInboundService(finder, pauser, events)

	err := svc.HandleEvent(ctx, &domain.InboundEvent{
		Type:          "reply",
		Channel:       "email",
		SenderAddress: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}

	if len(pauser.paused) != 1 || pauser.paused[0] != "run-1" {
		t.Fatalf("expected run-1 paused, got %v", pauser.paused)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.Type != domain.EventReplied {
		t.Errorf("expected replied event, got %s", event.Type)
	}
	// Pausing records the event against the cursor, it never rewinds it.
	if event.StepOrder != 2 {
		t.Errorf("expected event at step 2, got %d", event.StepOrder)
	}
}

func TestHandleEvent_MostRecentlyStartedRunWins(t *testing.T) {
	ctx := context.Background()

	older := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	finder := &fakeProspectFinder{byAddress: map[string][]domain.Prospect{
		"+905551234567": {
			{ID: 10, TenantID: 1, Phone: "+905551234567"},
			{ID: 11, TenantID: 1, Phone: "+905551234567"},
		},
	}}
	pauser := &fakeRunPauser{byProspect: map[int64][]domain.SequenceRun{
		10: {inboundRun("run-old", 10, 1, older)},
		11: {inboundRun("run-new", 11, 1, newer)},
	}}
	events := &fakeEventRepo{}

	svc := NewInboundService(finder, pauser, events)

	err := svc.HandleEvent(ctx, &domain.InboundEvent{
		Type:          "reply",
		Channel:       "sms",
		SenderAddress: "+905551234567",
	})
	if err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}

	if len(pauser.paused) != 1 || pauser.paused[0] != "run-new" {
		t.Fatalf("expected only run-new paused, got %v", pauser.paused)
	}
}

func TestHandleEvent_NoMatchingRunIsIgnored(t *testing.T) {
	ctx := context.Background()

	finder := &fakeProspectFinder{byAddress: map[string][]domain.Prospect{}}
	pauser := &fakeRunPauser{byProspect: map[int64][]domain.SequenceRun{}}
	events := &fakeEventRepo{}

	svc := NewInboundService(finder, pauser, events)

	err := svc.HandleEvent(ctx, &domain.InboundEvent{
		Type:          "reply",
		Channel:       "email",
		SenderAddress: "stranger@example.com",
	})
	if err != nil {
		t.Fatalf("expected unmatched event to be dropped silently, got %v", err)
	}

	if len(pauser.paused) != 0 {
		t.Errorf("expected no pauses, got %v", pauser.paused)
	}
	if len(events.events) != 0 {
		t.Errorf("expected no events, got %d", len(events.events))
	}
}

func TestHandleEvent_NonReplyEventsDoNotPause(t *testing.T) {
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	finder := &fakeProspectFinder{byAddress: map[string][]domain.Prospect{
		"ada@example.com": {{ID: 10, TenantID: 1, Email: "ada@example.com"}},
	}}

	cases := []struct {
		inboundType string
		want        domain.EventType
	}{
		{"delivered", domain.EventDelivered},
		{"opened", domain.EventOpened},
		{"clicked", domain.EventClicked},
		{"bounced", domain.EventBounced},
	}

	for _, tc := range cases {
		t.Run(tc.inboundType, func(t *testing.T) {
			pauser := &fakeRunPauser{byProspect: map[int64][]domain.SequenceRun{
				10: {inboundRun("run-1", 10, 1, started)},
			}}
			events := &fakeEventRepo{}
			svc := NewInboundService(finder, pauser, events)

			err := svc.HandleEvent(ctx, &domain.InboundEvent{
				Type:          tc.inboundType,
				Channel:       "email",
				SenderAddress: "ada@example.com",
			})
			if err != nil {
				t.Fatalf("HandleEvent returned error: %v", err)
			}

			if len(pauser.paused) != 0 {
				t.Errorf("%s event must not pause runs, paused %v", tc.inboundType, pauser.paused)
			}
			if len(events.events) != 1 || events.events[0].Type != tc.want {
				t.Errorf("expected one %s event, got %v", tc.want, events.typesSeen())
			}
		})
	}
}

func TestHandleEvent_UnknownTypeIsRejected(t *testing.T) {
	ctx := context.Background()

	svc := NewInboundService(
		&fakeProspectFinder{byAddress: map[string][]domain.Prospect{}},
		&fakeRunPauser{},
		&fakeEventRepo{},
	)

	err := svc.HandleEvent(ctx, &domain.InboundEvent{
		Type:          "unsubscribed",
		Channel:       "email",
		SenderAddress: "ada@example.com",
	})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
