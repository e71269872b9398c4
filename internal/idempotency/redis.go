package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idempotency:"
	pending   = "pending"
)

// Redis stores reservations and responses as plain keys with a TTL.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Close releases the underlying client when it owns connections.
func (r *Redis) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Redis) Begin(ctx context.Context, key string) (*Response, error) {
	k := keyPrefix + key
	// The second attempt covers a key that expired between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := r.client.SetNX(ctx, k, pending, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}
		val, err := r.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		if val == pending {
			return nil, ErrInProgress
		}
		var resp Response
		if err := json.Unmarshal([]byte(val), &resp); err != nil {
			return nil, fmt.Errorf("decode idempotency record: %w", err)
		}
		return &resp, nil
	}
	return nil, ErrInProgress
}

func (r *Redis) Complete(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (r *Redis) Abort(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
