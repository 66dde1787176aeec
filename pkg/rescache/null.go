package rescache

import (
	"context"
	"time"

	"github.com/matzehuels/fpgapack/pkg/observability"
)

// NullCache is a no-op cache: every Get misses, every Set is a no-op.
// Used when no cache backend is configured (caching disabled).
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return NullCache{}
}

func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, "pack-result")
	return nil, false, nil
}

func (NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
