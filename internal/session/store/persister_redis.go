package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"evera/internal/session/models"
	"evera/pkg/platform/sentinel"
)

// RedisPersister keeps the snapshot as a JSON string under prefix+key. It
// lets several shell instances behind one address share a session.
type RedisPersister struct {
	client redis.Cmdable
	key    string
}

func NewRedisPersister(client redis.Cmdable, prefix, key string) (*RedisPersister, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		return nil, errors.New("session key is required")
	}
	return &RedisPersister{client: client, key: prefix + key}, nil
}

func (p *RedisPersister) Load(ctx context.Context) (*models.Snapshot, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %w", p.key, sentinel.ErrUnavailable, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w: %w", sentinel.ErrCorrupt, err)
	}
	return &snap, nil
}

func (p *RedisPersister) Save(ctx context.Context, snapshot models.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", p.key, sentinel.ErrUnavailable, err)
	}
	return nil
}
