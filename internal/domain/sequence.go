package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelNetwork Channel = "professional_network"
	ChannelSMS     Channel = "sms"
	ChannelVoice   Channel = "voice"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelNetwork, ChannelSMS, ChannelVoice:
		return true
	}
	return false
}

// Sequence is an ordered template of outreach steps for one tenant's campaign.
// Edits to a sequence never recompute due times of in-flight runs.
type Sequence struct {
	ID        int64     `db:"id" json:"id"`
	TenantID  int64     `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SequenceStep is one unit of outreach within a sequence. StepOrder is 1-based
// and contiguous within a sequence. DelayDays is the wait after the previous
// step before this step becomes due.
type SequenceStep struct {
	ID         int64           `db:"id" json:"id"`
	SequenceID int64           `db:"sequence_id" json:"sequenceId"`
	StepOrder  int             `db:"step_order" json:"stepOrder"`
	Channel    Channel         `db:"channel" json:"channel"`
	DelayDays  int             `db:"delay_days" json:"delayDays"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// DueAfter returns when this step becomes due if the previous step was
// dispatched at from.
func (s SequenceStep) DueAfter(from time.Time) time.Time {
	return from.Add(time.Duration(s.DelayDays) * 24 * time.Hour)
}

// Per-channel step metadata. The free-form payloads of the legacy schema are
// replaced with one variant per channel, validated before persistence and
// again when a step is loaded for dispatch.

type EmailStepMeta struct {
	SubjectHint  string `json:"subjectHint,omitempty"`
	CallToAction string `json:"callToAction" validate:"required,max=500"`
}

type NetworkStepMeta struct {
	CallToAction   string `json:"callToAction" validate:"required,max=500"`
	ConnectionNote string `json:"connectionNote,omitempty" validate:"max=300"`
}

type SMSStepMeta struct {
	CallToAction string `json:"callToAction" validate:"required,max=320"`
}

type VoiceStepMeta struct {
	ScriptHint string `json:"scriptHint" validate:"required,max=1000"`
}

// DecodeStepMeta parses raw step metadata into the channel's variant.
func DecodeStepMeta(channel Channel, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("step metadata is empty for channel %s", channel)
	}

	var meta any
	switch channel {
	case ChannelEmail:
		meta = &EmailStepMeta{}
	case ChannelNetwork:
		meta = &NetworkStepMeta{}
	case ChannelSMS:
		meta = &SMSStepMeta{}
	case ChannelVoice:
		meta = &VoiceStepMeta{}
	default:
		return nil, fmt.Errorf("unknown channel %q", channel)
	}

	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("failed to decode %s step metadata: %w", channel, err)
	}

	return meta, nil
}

// Tenant carries per-tenant settings the engine needs, currently the brand
// voice handed to the content generator.
type Tenant struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	BrandVoice string    `db:"brand_voice" json:"brandVoice"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
