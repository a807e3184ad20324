package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

type OutboxStatus string

const (
	OutboxStatusQueued        OutboxStatus = "queued"
	OutboxStatusSent          OutboxStatus = "sent"
	OutboxStatusPendingManual OutboxStatus = "pending_manual"
	OutboxStatusFailed        OutboxStatus = "failed"
)

// OutboxRecord is one durable delivery attempt. The unique IdempotencyKey is
// the engine's sole cross-process coordination point: whichever worker inserts
// the record first owns the dispatch for that (run, step, recipient).
type OutboxRecord struct {
	ID                string          `db:"id" json:"id"`
	TenantID          int64           `db:"tenant_id" json:"tenantId"`
	RunID             string          `db:"run_id" json:"runId"`
	StepID            int64           `db:"step_id" json:"stepId"`
	Channel           Channel         `db:"channel" json:"channel"`
	IdempotencyKey    string          `db:"idempotency_key" json:"idempotencyKey"`
	Status            OutboxStatus    `db:"status" json:"status"`
	ProviderMessageID *string         `db:"provider_message_id" json:"providerMessageId,omitempty"`
	Payload           json.RawMessage `db:"payload" json:"payload"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// IdempotencyKey derives the deterministic claim key for one delivery attempt.
func IdempotencyKey(runID string, stepID int64, recipientAddress string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", runID, stepID, recipientAddress)))
	return hex.EncodeToString(sum[:])
}

// OutboxPayload is the snapshot persisted with each attempt.
type OutboxPayload struct {
	Address    string `json:"address"`
	Subject    string `json:"subject,omitempty"`
	Message    string `json:"message"`
	VariantTag string `json:"variantTag,omitempty"`
}

type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusSent TaskStatus = "sent"
)

// ManualTask is a human-review queue entry for the compliance-gated channel.
// The engine prepares the message; a person performs the send and completes
// the task out of band.
type ManualTask struct {
	ID          string     `db:"id" json:"id"`
	TenantID    int64      `db:"tenant_id" json:"tenantId"`
	RunID       string     `db:"run_id" json:"runId"`
	OutboxID    string     `db:"outbox_id" json:"outboxId"`
	ProfileURL  string     `db:"profile_url" json:"profileUrl"`
	Message     string     `db:"message" json:"message"`
	Status      TaskStatus `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}
