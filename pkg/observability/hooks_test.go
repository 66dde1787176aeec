package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pack hooks
	p := NoopPackHooks{}
	p.OnRunStart(ctx, 100)
	p.OnRunComplete(ctx, 12, time.Second, nil)
	p.OnClusterOpen(ctx, "ble")
	p.OnClusterGrow(ctx, 3)
	p.OnClusterFinalize(ctx, 8, time.Second)
	p.OnClusterDiscard(ctx, 8, "route failed")

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "result", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/pack")
	h.OnResponse(ctx, "POST", "/v1/pack", 200, time.Second)
	h.OnError(ctx, "POST", "/v1/pack", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pack().(NoopPackHooks); !ok {
		t.Error("Pack() should return NoopPackHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPack := &testPackHooks{}
	SetPackHooks(customPack)
	if Pack() != customPack {
		t.Error("SetPackHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pack().(NoopPackHooks); !ok {
		t.Error("Reset() should restore NoopPackHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPackHooks{}
	SetPackHooks(custom)

	// Setting nil should be ignored
	SetPackHooks(nil)

	if Pack() != custom {
		t.Error("SetPackHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPackHooks struct{ NoopPackHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
