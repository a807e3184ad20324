package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/provider"
)

type fakeSender struct {
	resp *provider.SendResponse
	err  error

	addresses []string
}

func (f *fakeSender) Send(ctx context.Context, address, subject, content string) (*provider.SendResponse, error) {
	f.addresses = append(f.addresses, address)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeTaskCreator struct {
	err   error
	tasks []*domain.ManualTask
}

func (f *fakeTaskCreator) Create(ctx context.Context, task *domain.ManualTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func testJob() Job {
	return Job{
		TenantID: 1,
		RunID:    "run-1",
		OutboxID: "outbox-1",
		Address:  "ada@example.com",
		Subject:  "quick question",
		Message:  "Hi Ada",
	}
}

func TestSyncAdapter_SuccessReportsSent(t *testing.T) {
	sender := &fakeSender{resp: &provider.SendResponse{Message: "Accepted", MessageID: "prov-42"}}
	adapter := NewSyncAdapter(domain.ChannelEmail, sender)

	outcome := adapter.Dispatch(context.Background(), testJob())

	if !outcome.OK || outcome.Status != domain.OutboxStatusSent {
		t.Fatalf("expected sent outcome, got %+v", outcome)
	}
	if outcome.ProviderMessageID != "prov-42" {
		t.Errorf("expected provider message id prov-42, got %q", outcome.ProviderMessageID)
	}
	if len(sender.addresses) != 1 || sender.addresses[0] != "ada@example.com" {
		t.Errorf("expected one send to ada@example.com, got %v", sender.addresses)
	}
}

func TestSyncAdapter_ProviderErrorReportsFailed(t *testing.T) {
	sendErr := errors.New("provider returned 503")
	adapter := NewSyncAdapter(domain.ChannelSMS, &fakeSender{err: sendErr})

	outcome := adapter.Dispatch(context.Background(), testJob())

	if outcome.OK {
		t.Fatal("expected OK=false on provider error")
	}
	if outcome.Status != domain.OutboxStatusFailed {
		t.Errorf("expected failed status, got %s", outcome.Status)
	}
	if !errors.Is(outcome.Err, sendErr) {
		t.Errorf("expected provider error preserved, got %v", outcome.Err)
	}
}

func TestNetworkAdapter_EnqueuesOpenManualTask(t *testing.T) {
	creator := &fakeTaskCreator{}
	adapter := NewNetworkAdapter(creator)

	job := testJob()
	job.Address = "https://network.example/in/ada"

	outcome := adapter.Dispatch(context.Background(), job)

	if !outcome.OK || outcome.Status != domain.OutboxStatusPendingManual {
		t.Fatalf("expected pending_manual outcome, got %+v", outcome)
	}
	if outcome.ProviderMessageID != "" {
		t.Errorf("manual dispatch must not carry a provider message id, got %q", outcome.ProviderMessageID)
	}

	if len(creator.tasks) != 1 {
		t.Fatalf("expected 1 manual task, got %d", len(creator.tasks))
	}
	task := creator.tasks[0]
	if task.Status != domain.TaskStatusOpen {
		t.Errorf("expected open task, got %s", task.Status)
	}
	if task.OutboxID != "outbox-1" || task.RunID != "run-1" {
		t.Errorf("task not linked to outbox/run: %+v", task)
	}
	if task.ProfileURL != job.Address || task.Message != job.Message {
		t.Errorf("task missing profile or message: %+v", task)
	}
	if outcome.TaskID != task.ID {
		t.Errorf("outcome TaskID %q does not match task %q", outcome.TaskID, task.ID)
	}
}

func TestNetworkAdapter_StoreErrorReportsFailed(t *testing.T) {
	adapter := NewNetworkAdapter(&fakeTaskCreator{err: errors.New("insert failed")})

	outcome := adapter.Dispatch(context.Background(), testJob())

	if outcome.OK || outcome.Status != domain.OutboxStatusFailed {
		t.Fatalf("expected failed outcome, got %+v", outcome)
	}
}

func TestRegistry_UnknownChannelErrors(t *testing.T) {
	registry := NewRegistry(map[domain.Channel]Adapter{
		domain.ChannelEmail: NewSyncAdapter(domain.ChannelEmail, &fakeSender{resp: &provider.SendResponse{}}),
	})

	if _, err := registry.For(domain.ChannelEmail); err != nil {
		t.Fatalf("expected email adapter, got error: %v", err)
	}
	if _, err := registry.For(domain.ChannelVoice); err == nil {
		t.Fatal("expected error for unregistered channel")
	}
}
