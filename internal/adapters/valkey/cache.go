package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrMiss is returned by Get for absent keys.
var ErrMiss = errors.New("cache miss")

// localTTL bounds how long a value is served from the client-side cache
// before valkey is asked again. Geocode answers for one spot are read
// repeatedly while a user drags stations around it.
const localTTL = time.Minute

// Cache implements ports.CacheService on valkey with server-assisted client
// side caching. Keys are namespaced by prefix so the API and the namer
// worker can share one instance.
type Cache struct {
	client valkey.Client
	prefix string
}

// New connects to addr.
func New(addr, prefix string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client, prefix: prefix}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(c.prefix + key).Cache()
	b, err := c.client.DoCache(ctx, cmd, localTTL).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value for ttlSeconds. Zero keeps it until evicted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	set := c.client.B().Set().Key(c.prefix + key).Value(valkey.BinaryString(value))
	if ttlSeconds > 0 {
		return c.client.Do(ctx, set.Ex(time.Duration(ttlSeconds)*time.Second).Build()).Error()
	}
	return c.client.Do(ctx, set.Build()).Error()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *Cache) Close() {
	c.client.Close()
}
