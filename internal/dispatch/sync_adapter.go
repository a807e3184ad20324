package dispatch

import (
	"context"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
	"github.com/cadencehq/outreach-dispatch/pkg/provider"
)

// sender matches provider.Client and keeps the adapter testable with a fake.
type sender interface {
	Send(ctx context.Context, address, subject, content string) (*provider.SendResponse, error)
}

// SyncAdapter covers the synchronous fire-and-forget channels (email, SMS,
// voice): one provider call, failure recorded but never blocking advancement.
type SyncAdapter struct {
	channel domain.Channel
	client  sender
}

func NewSyncAdapter(channel domain.Channel, client sender) *SyncAdapter {
	return &SyncAdapter{channel: channel, client: client}
}

func (a *SyncAdapter) Dispatch(ctx context.Context, job Job) Outcome {
	resp, err := a.client.Send(ctx, job.Address, job.Subject, job.Message)
	if err != nil {
		logger.Errorf("%s send failed for run %s: %v", a.channel, job.RunID, err)
		return Outcome{
			OK:     false,
			Status: domain.OutboxStatusFailed,
			Err:    err,
		}
	}

	return Outcome{
		OK:                true,
		Status:            domain.OutboxStatusSent,
		ProviderMessageID: resp.MessageID,
	}
}
