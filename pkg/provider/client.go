package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

// Client is a synchronous send client for one channel provider. Email, SMS
// and voice providers share the same contract: POST the message, expect 202,
// read back a provider message id.
type Client struct {
	httpClient *resty.Client
	url        string
	channel    string
}

type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
}

type SendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func NewClient(channel string, cfg environments.ProviderConfig, timeout time.Duration) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-provider-auth-key", cfg.AuthKey)

	return &Client{
		httpClient: client,
		url:        cfg.URL,
		channel:    channel,
	}
}

func (c *Client) Send(ctx context.Context, address, subject, content string) (*SendResponse, error) {
	payload := SendRequest{
		To:      address,
		Subject: subject,
		Content: content,
	}

	var sendResp SendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&sendResp).
		Post(c.url)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", c.channel, err)
	}

	logger.Infof("%s provider request to %s completed in %v (status: %d)", c.channel, c.url, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d (expected 202), body: %s", resp.StatusCode(), resp.String())
	}

	return &sendResp, nil
}

func (c *Client) GetURL() string {
	return c.url
}
