package redisx

import (
	"context"
	"taskremind/internal/ports"
	"time"
)

var _ ports.MarkerStore = (*MarkerStore)(nil)

// MarkerStore keeps reminder markers as plain keys with a TTL.
type MarkerStore struct {
	C *Client
}

func NewMarkerStore(c *Client) *MarkerStore {
	return &MarkerStore{C: c}
}

func (m *MarkerStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := m.C.Rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *MarkerStore) Set(ctx context.Context, key string, ttl time.Duration) error {
	return m.C.Rdb.Set(ctx, key, time.Now().UnixMilli(), ttl).Err()
}
