package domain

import "time"

type EventType string

const (
	EventSent      EventType = "sent"
	EventPending   EventType = "pending"
	EventFailed    EventType = "failed"
	EventReplied   EventType = "replied"
	EventDelivered EventType = "delivered"
	EventOpened    EventType = "opened"
	EventClicked   EventType = "clicked"
	EventBounced   EventType = "bounced"
	EventError     EventType = "error"
)

// MessageEvent is an append-only audit entry tied to a run and step. Delivery
// confidence lives here and in the outbox, never in run status.
type MessageEvent struct {
	ID        string    `db:"id" json:"id"`
	TenantID  int64     `db:"tenant_id" json:"tenantId"`
	RunID     string    `db:"run_id" json:"runId"`
	StepOrder int       `db:"step_order" json:"stepOrder"`
	Type      EventType `db:"event_type" json:"type"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// InboundEvent is a provider webhook payload after signature verification.
type InboundEvent struct {
	Type              string `json:"type" validate:"required,oneof=delivered opened clicked bounced reply"`
	Channel           string `json:"channel" validate:"required"`
	SenderAddress     string `json:"senderAddress" validate:"required"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	ThreadID          string `json:"threadId,omitempty"`
	Detail            string `json:"detail,omitempty"`
}
