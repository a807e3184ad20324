package domain

import (
	"fmt"
	"time"
)

// Prospect is the resolved recipient identity plus whatever insight signal is
// available for personalization.
type Prospect struct {
	ID              int64     `db:"id" json:"id"`
	TenantID        int64     `db:"tenant_id" json:"tenantId"`
	FullName        string    `db:"full_name" json:"fullName"`
	Email           string    `db:"email" json:"email"`
	Phone           string    `db:"phone" json:"phone"`
	ProfileURL      string    `db:"profile_url" json:"profileUrl"`
	EngagementScore float64   `db:"engagement_score" json:"engagementScore"`
	Intent          string    `db:"intent" json:"intent"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// AddressFor returns the channel-specific recipient identifier.
func (p *Prospect) AddressFor(channel Channel) (string, error) {
	var addr string
	switch channel {
	case ChannelEmail:
		addr = p.Email
	case ChannelSMS, ChannelVoice:
		addr = p.Phone
	case ChannelNetwork:
		addr = p.ProfileURL
	default:
		return "", fmt.Errorf("unknown channel %q", channel)
	}

	if addr == "" {
		return "", fmt.Errorf("prospect %d has no address for channel %s", p.ID, channel)
	}

	return addr, nil
}

// GeneratedMessage is the content-generator collaborator's output.
type GeneratedMessage struct {
	MessageText string `json:"messageText"`
	Subject     string `json:"subject,omitempty"`
	VariantTag  string `json:"variantTag,omitempty"`
}
