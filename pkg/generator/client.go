package generator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

// Client talks to the content-generation collaborator. Generation failures
// and timeouts are soft: the caller skips the run for this cycle and retries
// on the next poll.
type Client struct {
	httpClient *resty.Client
	url        string
}

type generateRequest struct {
	Recipient     recipientPayload `json:"recipient"`
	InsightSignal insightPayload   `json:"insightSignal"`
	Channel       string           `json:"channel"`
	StepMetadata  any              `json:"stepMetadata"`
	BrandVoice    string           `json:"brandVoice"`
}

type recipientPayload struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
}

type insightPayload struct {
	EngagementScore float64 `json:"engagementScore"`
	Intent          string  `json:"intent"`
}

func NewClient(cfg environments.GeneratorConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-generator-auth-key", cfg.AuthKey)

	return &Client{
		httpClient: client,
		url:        cfg.URL,
	}
}

func (c *Client) Generate(
	ctx context.Context,
	prospect *domain.Prospect,
	channel domain.Channel,
	address string,
	stepMeta any,
	brandVoice string,
) (*domain.GeneratedMessage, error) {
	payload := generateRequest{
		Recipient: recipientPayload{
			FullName: prospect.FullName,
			Address:  address,
		},
		InsightSignal: insightPayload{
			EngagementScore: prospect.EngagementScore,
			Intent:          prospect.Intent,
		},
		Channel:      string(channel),
		StepMetadata: stepMeta,
		BrandVoice:   brandVoice,
	}

	var generated domain.GeneratedMessage

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&generated).
		Post(c.url)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to send generation request: %w", err)
	}

	logger.Debugf("Generator request completed in %v (status: %d)", duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("generator returned status %d, body: %s", resp.StatusCode(), resp.String())
	}

	if generated.MessageText == "" {
		return nil, fmt.Errorf("generator returned empty message text")
	}

	return &generated, nil
}

func (c *Client) GetURL() string {
	return c.url
}
