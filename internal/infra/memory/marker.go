// Package memory holds in-process adapters for single-instance runs.
package memory

import (
	"context"
	"taskremind/internal/ports"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ ports.MarkerStore = (*MarkerStore)(nil)

const defaultMarkerTTL = time.Hour

// MarkerStore keeps reminder markers in a bounded LRU. Each entry stores
// its own deadline because the cache TTL is shared by all keys.
type MarkerStore struct {
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

// NewMarkerStore creates a store holding at most size markers. maxTTL
// should be the longest marker expiry in the stage table.
func NewMarkerStore(size int, maxTTL time.Duration) *MarkerStore {
	if maxTTL <= 0 {
		maxTTL = defaultMarkerTTL
	}
	return &MarkerStore{
		cache: expirable.NewLRU[string, time.Time](size, nil, maxTTL),
		now:   time.Now,
	}
}

func (m *MarkerStore) Exists(_ context.Context, key string) (bool, error) {
	until, ok := m.cache.Get(key)
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		m.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

func (m *MarkerStore) Set(_ context.Context, key string, ttl time.Duration) error {
	m.cache.Add(key, m.now().Add(ttl))
	return nil
}

func (m *MarkerStore) Len() int {
	return m.cache.Len()
}
