package rescache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/fpgapack/pkg/observability"
)

// FileCache is a file-based cache for local CLI use: each entry is one
// JSON file under dir, named by a hash-prefixed path to keep any single
// directory small.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache rooted at dir, creating it if
// necessary.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

type fileEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		observability.Cache().OnCacheMiss(ctx, "pack-result")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		observability.Cache().OnCacheMiss(ctx, "pack-result")
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		observability.Cache().OnCacheMiss(ctx, "pack-result")
		return nil, false, nil
	}

	observability.Cache().OnCacheHit(ctx, "pack-result")
	return entry.Data, true, nil
}

func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, entryData, 0o644); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, "pack-result", len(data))
	return nil
}

func (c *FileCache) Close() error { return nil }

// path maps a cache key to a file path, using the key's own hash prefix
// (already present as the "pack:<hex>" key shape from Key) as a
// two-level subdirectory to keep any one directory small.
func (c *FileCache) path(key string) string {
	h := hashOnly(key)
	return filepath.Join(c.dir, h[:2], h[2:]+".json")
}

func hashOnly(key string) string {
	// key already has a "prefix:hexsum" shape from Key/hashKey; fall
	// back to hashing the raw key if it doesn't (defensive against
	// callers that pass an arbitrary key directly to a FileCache).
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return hashKey("raw", key)[4:]
}

var _ Cache = (*FileCache)(nil)
