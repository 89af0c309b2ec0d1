package store

import (
	"context"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// ValkeyCache is the distributed resolver cache (Redis-compatible). Use it
// when more than one instance serves resolves, so a grant on one node
// invalidates the set seen by all of them.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache connects to a Valkey server.
// addr example: "127.0.0.1:6379"; prefix namespaces the keys.
func NewValkeyCache(addr string, prefix string) (*ValkeyCache, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "iam:resolved:"
	}
	return &ValkeyCache{client: cli, prefix: prefix}, nil
}

func (c *ValkeyCache) key(userID string) string { return c.prefix + userID }

func (c *ValkeyCache) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	res := c.client.Do(ctx, c.client.B().Get().Key(c.key(userID)).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	val, err := res.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, userID string, payload []byte, ttl time.Duration) error {
	b := c.client.B().Set().Key(c.key(userID)).Value(string(payload))
	if ttl > 0 {
		return c.client.Do(ctx, b.Ex(ttl).Build()).Error()
	}
	return c.client.Do(ctx, b.Build()).Error()
}

func (c *ValkeyCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.key(userID)).Build()).Error()
}

func (c *ValkeyCache) Close() error {
	c.client.Close()
	return nil
}
