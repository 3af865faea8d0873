package youtube

import (
	"testing"
	"time"
)

func TestResponseCacheHit(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache := newResponseCache(5*time.Minute, func() time.Time { return now })

	cache.set("/search?q=test", []byte(`{"items":[]}`))

	payload, ok := cache.get("/search?q=test")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(payload) != `{"items":[]}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestResponseCacheMissWhenStale(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache := newResponseCache(5*time.Minute, func() time.Time { return now })

	cache.set("/subscriptions", []byte(`{}`))

	now = now.Add(5 * time.Minute)
	if _, ok := cache.get("/subscriptions"); ok {
		t.Fatal("expected stale entry to be masked")
	}

	// A fresh write resurrects the key.
	cache.set("/subscriptions", []byte(`{"items":[]}`))
	if _, ok := cache.get("/subscriptions"); !ok {
		t.Fatal("expected hit after rewrite")
	}
}

func TestResponseCacheOverwrite(t *testing.T) {
	cache := newResponseCache(time.Minute, nil)

	cache.set("key", []byte("first"))
	cache.set("key", []byte("second"))

	payload, ok := cache.get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(payload) != "second" {
		t.Fatalf("expected overwrite, got %s", payload)
	}
}

func TestResponseCacheDefaultTTL(t *testing.T) {
	cache := newResponseCache(0, nil)
	if cache.ttl <= 0 {
		t.Fatalf("expected ttl to default positive got %v", cache.ttl)
	}
}
