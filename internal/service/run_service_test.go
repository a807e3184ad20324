package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

type fakeRunStore struct {
	created []*domain.SequenceRun
}

func (s *fakeRunStore) Create(ctx context.Context, run *domain.SequenceRun) error {
	s.created = append(s.created, run)
	return nil
}

func (s *fakeRunStore) GetByID(ctx context.Context, id string) (*domain.SequenceRun, error) {
	return nil, nil
}

func (s *fakeRunStore) GetAll(ctx context.Context, status *domain.RunStatus, page, pageSize int) ([]domain.SequenceRun, int64, error) {
	return nil, 0, nil
}

func (s *fakeRunStore) GetStats(ctx context.Context) (active, paused, completed int64, err error) {
	return 0, 0, 0, nil
}

type fakeSequenceReader struct {
	sequence *domain.Sequence
	steps    []domain.SequenceStep
}

func (r *fakeSequenceReader) GetByID(ctx context.Context, id int64) (*domain.Sequence, error) {
	if r.sequence != nil && r.sequence.ID == id {
		return r.sequence, nil
	}
	return nil, nil
}

func (r *fakeSequenceReader) GetSteps(ctx context.Context, sequenceID int64) ([]domain.SequenceStep, error) {
	return r.steps, nil
}

func newEnrollService(seqs *fakeSequenceReader, prospects *fakeProspectRepo) (*RunService, *fakeRunStore) {
	store := &fakeRunStore{}
	svc := NewRunService(store, seqs, prospects, nil, nil)
	return svc, store
}

func TestEnroll_FirstStepDueFromItsDelay(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1, Name: "Q3 outbound"},
		steps:    []domain.SequenceStep{emailStep(5, 1, 1), emailStep(5, 2, 3)},
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}

	svc, store := newEnrollService(seqs, prospects)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	run, err := svc.Enroll(ctx, 5, 10)
	if err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}

	if run.Status != domain.RunStatusActive || run.LastStepSent != 0 {
		t.Fatalf("expected fresh active run, got status=%s cursor=%d", run.Status, run.LastStepSent)
	}

	wantDue := now.Add(24 * time.Hour)
	if run.NextStepDue == nil || !run.NextStepDue.Equal(wantDue) {
		t.Fatalf("expected first due %v, got %v", wantDue, run.NextStepDue)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected run persisted, got %d", len(store.created))
	}
}

func TestEnroll_ZeroDelayOpenerIsDueImmediately(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1},
		steps:    []domain.SequenceStep{emailStep(5, 1, 0)},
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}

	svc, _ := newEnrollService(seqs, prospects)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	run, err := svc.Enroll(ctx, 5, 10)
	if err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}
	if run.NextStepDue == nil || !run.NextStepDue.Equal(now) {
		t.Fatalf("expected zero-delay opener due at enrollment, got %v", run.NextStepDue)
	}
}

func TestEnroll_RejectsNonContiguousSteps(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1},
		steps:    []domain.SequenceStep{emailStep(5, 1, 0), emailStep(5, 3, 2)},
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}

	svc, store := newEnrollService(seqs, prospects)
	if _, err := svc.Enroll(ctx, 5, 10); err == nil {
		t.Fatal("expected error for non-contiguous step orders")
	}
	if len(store.created) != 0 {
		t.Fatal("expected no run persisted")
	}
}

func TestEnroll_RejectsMalformedStepMetadata(t *testing.T) {
	ctx := context.Background()

	bad := emailStep(5, 1, 0)
	bad.Metadata = json.RawMessage(`not-json`)

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1},
		steps:    []domain.SequenceStep{bad},
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}

	svc, _ := newEnrollService(seqs, prospects)
	if _, err := svc.Enroll(ctx, 5, 10); err == nil {
		t.Fatal("expected error for malformed step metadata")
	}
}

func TestEnroll_RejectsTenantMismatch(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 2},
		steps:    []domain.SequenceStep{emailStep(5, 1, 0)},
	}
	// testProspect belongs to tenant 1.
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}

	svc, store := newEnrollService(seqs, prospects)
	if _, err := svc.Enroll(ctx, 5, 10); err == nil {
		t.Fatal("expected error for cross-tenant enrollment")
	}
	if len(store.created) != 0 {
		t.Fatal("expected no run persisted")
	}
}

func TestEnroll_RejectsUnknownSequenceAndProspect(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1},
		steps:    []domain.SequenceStep{emailStep(5, 1, 0)},
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}
	svc, _ := newEnrollService(seqs, prospects)

	if _, err := svc.Enroll(ctx, 99, 10); err == nil {
		t.Error("expected error for unknown sequence")
	}
	if _, err := svc.Enroll(ctx, 5, 99); err == nil {
		t.Error("expected error for unknown prospect")
	}
}

func TestEnroll_RejectsEmptySequence(t *testing.T) {
	ctx := context.Background()

	seqs := &fakeSequenceReader{
		sequence: &domain.Sequence{ID: 5, TenantID: 1},
		steps:    nil,
	}
	prospects := &fakeProspectRepo{prospects: map[int64]*domain.Prospect{10: testProspect()}}
	svc, _ := newEnrollService(seqs, prospects)

	if _, err := svc.Enroll(ctx, 5, 10); err == nil {
		t.Fatal("expected error for sequence without steps")
	}
}
