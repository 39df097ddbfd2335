// internal/storage/kv/redis_test.go
package kv

import (
	"context"
	"os"
	"testing"
)

func TestRedisStore_ImplementsStore(t *testing.T) {
	var _ Store = (*RedisStore)(nil)
}

func TestRedisStore_Key(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "coins", "coins"},
		{"cryptodash:", "coins", "cryptodash:coins"},
		{"app:", "selectedCoins", "app:selectedCoins"},
	}

	for _, tt := range tests {
		r := &RedisStore{prefix: tt.prefix}
		if got := r.key(tt.key); got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
		}
	}
}

// Integration test - needs REDIS_ADDR
func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisConfig{Addr: addr, Prefix: "cryptodash-test:"})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	defer s.Delete(ctx, "coins")

	if err := s.Set(ctx, "coins", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "coins")
	if err != nil || !ok || v != "[]" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}
