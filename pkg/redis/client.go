package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/internal/domain"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	prospectKeyPrefix = "prospect:"
	prospectTTL       = 10 * time.Minute
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheProspect stores a resolved prospect profile so hot poll cycles do not
// hit the store for every step of the same recipient.
func (c *Client) CacheProspect(ctx context.Context, prospect *domain.Prospect) error {
	data, err := json.Marshal(prospect)
	if err != nil {
		return fmt.Errorf("failed to marshal prospect: %w", err)
	}

	key := fmt.Sprintf("%s%d", prospectKeyPrefix, prospect.ID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(prospectTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache prospect: %w", err)
	}

	logger.Debugf("Cached prospect %d in Redis", prospect.ID)

	return nil
}

// GetCachedProspect returns nil, nil on a cache miss.
func (c *Client) GetCachedProspect(ctx context.Context, prospectID int64) (*domain.Prospect, error) {
	key := fmt.Sprintf("%s%d", prospectKeyPrefix, prospectID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached prospect: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached prospect: %w", err)
	}

	var prospect domain.Prospect
	if err := json.Unmarshal([]byte(data), &prospect); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached prospect: %w", err)
	}

	return &prospect, nil
}

// InvalidateProspect drops a cached profile, used when prospect data changes.
func (c *Client) InvalidateProspect(ctx context.Context, prospectID int64) error {
	key := fmt.Sprintf("%s%d", prospectKeyPrefix, prospectID)

	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate cached prospect: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
