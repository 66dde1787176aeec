// Package rescache fronts the pipeline's finished-run cache (SPEC_FULL.md
// §2 "Result caching" / §6 "(ADDED) Result cache"): a completed, immutable
// pack Result keyed by a content fingerprint of (netlist, architecture,
// resolved Options), so re-running the identical invocation is instant.
//
// This never caches in-progress packer state (spec's Non-goal on
// persisting intermediate state between invocations) — only the finished
// ClusterSet/Result a run produced.
//
// Grounded on the teacher's pkg/cache Keyer/Cache split: a Cache stores
// opaque bytes under a string key with a TTL, and a Key is computed from
// the same kind of ingredients the teacher's Keyer hashes (language,
// package, options) by JSON-marshalling them and hashing the result.
package rescache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is the storage backend contract every rescache implementation
// satisfies: NullCache (disabled), FileCache (local, on disk),
// RedisCache (shared, multi-instance).
type Cache interface {
	// Get retrieves the bytes stored under key. hit is false on a miss;
	// a hit with a read error still reports hit=false so callers treat
	// it as a cache miss and recompute.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key with the given time-to-live. ttl <= 0
	// means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Close releases any resources (connections) held by the backend.
	Close() error
}

// DefaultTTL is how long a cached Result is trusted before a fresh run is
// forced regardless of cache presence.
const DefaultTTL = 24 * time.Hour

// Key computes the cache key for one pack invocation from the fingerprints
// of its two input files and its resolved options. Any JSON-marshalable
// options value works; callers pass their resolved pipeline.Options.
func Key(netlistFingerprint, archFingerprint string, opts interface{}) string {
	return hashKey("pack", netlistFingerprint, archFingerprint, opts)
}

func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}
