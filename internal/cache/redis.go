package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the marker only if it still holds our token, so a
// slow settlement never clears a marker taken after its own expired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SettleGuard keeps short-lived settle:{orderId} markers in Redis to reject
// concurrent submissions of the same bill before they reach the database.
type SettleGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSettleGuard(client *redis.Client, ttl time.Duration) *SettleGuard {
	return &SettleGuard{Client: client, TTL: ttl}
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (g *SettleGuard) SettleKey(orderID uuid.UUID) string {
	return "settle:" + orderID.String()
}

// Acquire takes the marker for orderID. ok is false when another settlement holds it.
// The returned release func is a no-op when ok is false.
func (g *SettleGuard) Acquire(ctx context.Context, orderID uuid.UUID) (release func(), ok bool, err error) {
	key := g.SettleKey(orderID)
	token := uuid.NewString()

	ok, err = g.Client.SetNX(ctx, key, token, g.TTL).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		// Detached so a cancelled request still clears its marker.
		releaseScript.Run(context.Background(), g.Client, []string{key}, token) //nolint:errcheck
	}, true, nil
}
