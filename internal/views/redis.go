package views

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"metadesk-backend/internal/metadata"
)

// RedisStore keeps each (org, entity) as a hash of view name to JSON
// override, so saving one view never rewrites the others.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A positive ttl expires an entry that has not
// been saved for that long.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect dials Redis and checks the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Load(ctx context.Context, org, entity string) (Overrides, error) {
	fields, err := r.client.HGetAll(ctx, Key(org, entity)).Result()
	if err != nil {
		return nil, fmt.Errorf("load view overrides: %w", err)
	}
	out := make(Overrides, len(fields))
	for view, raw := range fields {
		var o metadata.ViewOverride
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("decode override %s: %w", view, err)
		}
		out[view] = o
	}
	return out, nil
}

func (r *RedisStore) Save(ctx context.Context, org, entity, view string, o metadata.ViewOverride) error {
	data, err := json.Marshal(writable(o))
	if err != nil {
		return fmt.Errorf("encode override: %w", err)
	}
	key := Key(org, entity)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, view, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save view override: %w", err)
	}
	return nil
}
