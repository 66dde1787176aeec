// Package observability provides hooks for metrics, tracing, and logging
// around the packer's pipeline stages and per-cluster lifecycle events
// (SPEC_FULL.md §2's "(ADDED)" observability cross-cutting concern).
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by pkg/cluster)
//   - Keeps the core packer dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, ...)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPackHooks(&myPackHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// The controller calls hooks as it works:
//
//	observability.Pack().OnClusterOpen(ctx, seedPattern)
//	// ... try every block type/mode ...
//	observability.Pack().OnClusterFinalize(ctx, atomCount, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pack Hooks
// =============================================================================

// PackHooks receives events from one packing run and the per-cluster
// open/grow/finalize/discard transitions within it (spec §4.7).
type PackHooks interface {
	// OnRunStart/OnRunComplete bracket one full pipeline invocation.
	OnRunStart(ctx context.Context, atomCount int)
	OnRunComplete(ctx context.Context, clusterCount int, duration time.Duration, err error)

	// OnClusterOpen fires once a seed molecule has been picked and the
	// controller starts trying block types and modes for it.
	OnClusterOpen(ctx context.Context, seedPattern string)
	// OnClusterGrow fires once per molecule the grow loop successfully
	// commits into the cluster currently under construction, with the
	// cluster's atom count so far.
	OnClusterGrow(ctx context.Context, atomCount int)
	// OnClusterFinalize fires once a cluster's end-of-cluster route
	// succeeds and it is committed.
	OnClusterFinalize(ctx context.Context, atomCount int, duration time.Duration)
	// OnClusterDiscard fires when a cluster's end-of-cluster route fails
	// and it is discarded for a per-atom-routing retry (spec §4.7's
	// routine recovery path, not an error).
	OnClusterDiscard(ctx context.Context, atomCount int, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the result cache (pkg/rescache).
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API (internal/api).
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError records a request-handling error.
	OnError(ctx context.Context, method, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPackHooks is a no-op implementation of PackHooks.
type NoopPackHooks struct{}

func (NoopPackHooks) OnRunStart(context.Context, int)                         {}
func (NoopPackHooks) OnRunComplete(context.Context, int, time.Duration, error) {}
func (NoopPackHooks) OnClusterOpen(context.Context, string)                   {}
func (NoopPackHooks) OnClusterGrow(context.Context, int)                      {}
func (NoopPackHooks) OnClusterFinalize(context.Context, int, time.Duration)   {}
func (NoopPackHooks) OnClusterDiscard(context.Context, int, string)           {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	packHooks  PackHooks  = NoopPackHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetPackHooks registers custom pack hooks.
// This should be called once at application startup before any packing runs.
func SetPackHooks(h PackHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		packHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving requests.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pack returns the registered pack hooks.
func Pack() PackHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return packHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	packHooks = NoopPackHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
