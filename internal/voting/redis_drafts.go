package voting

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const draftKeyPrefix = "bestshot:draft:"

// RedisDrafts stores each draft as a Redis hash that expires after ttl of inactivity.
type RedisDrafts struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDrafts creates a Redis-backed draft store.
func NewRedisDrafts(client *redis.Client, ttl time.Duration) *RedisDrafts {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDrafts{client: client, ttl: ttl}
}

func draftKey(id uuid.UUID) string { return draftKeyPrefix + id.String() }

func (r *RedisDrafts) Load(ctx context.Context, participantID uuid.UUID) (*Draft, error) {
	fields, err := r.client.HGetAll(ctx, draftKey(participantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	d := &Draft{}
	if raw := fields["photo_ids"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.PhotoIDs); err != nil {
			return nil, fmt.Errorf("decode draft: %w", err)
		}
	}
	d.Submitting, _ = strconv.ParseBool(fields["submitting"])
	if ts, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		d.UpdatedAt = time.UnixMilli(ts).UTC()
	}
	return d, nil
}

func (r *RedisDrafts) Save(ctx context.Context, participantID uuid.UUID, d *Draft) error {
	ids, err := json.Marshal(d.PhotoIDs)
	if err != nil {
		return err
	}
	key := draftKey(participantID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		"photo_ids", string(ids),
		"submitting", strconv.FormatBool(d.Submitting),
		"updated_at", strconv.FormatInt(d.UpdatedAt.UnixMilli(), 10),
	)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *RedisDrafts) Delete(ctx context.Context, participantID uuid.UUID) error {
	return r.client.Del(ctx, draftKey(participantID)).Err()
}
