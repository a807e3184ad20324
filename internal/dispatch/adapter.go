// Package dispatch holds the channel adapters. Each adapter normalizes its
// provider's result into a common Outcome; the registry is an explicit value
// handed to the dispatcher at construction, never a package-level map.
package dispatch

import (
	"context"
	"fmt"

	"github.com/cadencehq/outreach-dispatch/internal/domain"
)

// Job is one prepared delivery: the claimed outbox record plus everything the
// channel needs to execute it.
type Job struct {
	TenantID int64
	RunID    string
	OutboxID string
	Address  string
	Subject  string
	Message  string
}

// Outcome is the normalized adapter result. OK with Status pending_manual
// means the message was handed to the human review queue, not sent.
type Outcome struct {
	OK                bool
	Status            domain.OutboxStatus
	ProviderMessageID string
	TaskID            string
	Err               error
}

type Adapter interface {
	Dispatch(ctx context.Context, job Job) Outcome
}

// Registry maps channels to their adapters.
type Registry struct {
	adapters map[domain.Channel]Adapter
}

func NewRegistry(adapters map[domain.Channel]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

func (r *Registry) For(channel domain.Channel) (Adapter, error) {
	adapter, ok := r.adapters[channel]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for channel %q", channel)
	}
	return adapter, nil
}
