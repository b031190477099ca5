package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// LedgerChannel is the Redis pub/sub channel carrying selection ledger changes.
	LedgerChannel = "bestshot:selections"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance delivery.
type redisPayload struct {
	Change Change `json:"change"`
	At     int64  `json:"at"`
}

// RedisFeed implements Feed using Redis pub/sub so every server instance sees
// changes written by any other.
type RedisFeed struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisFeed creates a Redis-backed change feed.
func NewRedisFeed(client *redis.Client, logger *zap.Logger) *RedisFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeed{client: client, logger: logger}
}

// Publish sends change on the ledger channel.
func (r *RedisFeed) Publish(ctx context.Context, change Change) error {
	body, err := json.Marshal(redisPayload{Change: change, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, LedgerChannel, body).Err()
}

// Subscribe subscribes to the ledger channel. The returned channel closes when ctx is done.
func (r *RedisFeed) Subscribe(ctx context.Context) (<-chan Change, error) {
	pubsub := r.client.Subscribe(ctx, LedgerChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	in := pubsub.Channel()
	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Warn("invalid ledger change payload", zap.Error(err))
					continue
				}
				select {
				case out <- p.Change:
				default:
				}
			}
		}
	}()
	return out, nil
}
