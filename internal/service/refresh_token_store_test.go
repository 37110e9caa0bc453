package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"videotube/internal/domain"
)

type mockRedisRefreshClient struct {
	fields     map[string]string
	hgetErr    error
	evalResult int64
	evalErr    error
	delErr     error

	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	lastDel    []string
}

func (m *mockRedisRefreshClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	if m.hgetErr != nil {
		cmd.SetErr(m.hgetErr)
		return cmd
	}
	if m.fields == nil {
		cmd.SetVal(map[string]string{})
		return cmd
	}
	cmd.SetVal(m.fields)
	return cmd
}

func (m *mockRedisRefreshClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.evalErr != nil {
		cmd.SetErr(m.evalErr)
		return cmd
	}
	cmd.SetVal(m.evalResult)
	return cmd
}

func (m *mockRedisRefreshClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func newTestRedisRefreshStore(client redisRefreshClient, now time.Time) *redisRefreshTokenStore {
	return &redisRefreshTokenStore{
		client:  client,
		prefix:  "auth:refresh:",
		timeout: time.Second,
		now:     func() time.Time { return now },
	}
}

func TestMemoryRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()

	if _, ok, err := store.GetRefreshRef(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing ref false,nil; got %v,%v", ok, err)
	}

	ref := domain.RefreshRef{UserID: "u1", TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.SetRefreshRef(ctx, ref); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, ok, err := store.GetRefreshRef(ctx, "u1")
	if err != nil || !ok || got.TokenHash != "h1" {
		t.Fatalf("expected stored ref, got %+v %v %v", got, ok, err)
	}

	swapped, err := store.SwapRefreshRef(ctx, "u1", "wrong", domain.RefreshRef{TokenHash: "h2"})
	if err != nil || swapped {
		t.Fatalf("expected swap with wrong hash to fail, got %v,%v", swapped, err)
	}
	swapped, err = store.SwapRefreshRef(ctx, "u1", "h1", domain.RefreshRef{TokenHash: "h2"})
	if err != nil || !swapped {
		t.Fatalf("expected swap to succeed, got %v,%v", swapped, err)
	}
	got, _, _ = store.GetRefreshRef(ctx, "u1")
	if got.TokenHash != "h2" || got.UserID != "u1" {
		t.Fatalf("expected swapped ref, got %+v", got)
	}

	if err := store.ClearRefreshRef(ctx, "u1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.GetRefreshRef(ctx, "u1"); ok {
		t.Fatalf("expected ref cleared")
	}
	if err := store.ClearRefreshRef(ctx, "u1"); err != nil {
		t.Fatalf("expected idempotent clear, got %v", err)
	}
}

func TestRedisRefreshTokenStore_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("absent", func(t *testing.T) {
		store := newTestRedisRefreshStore(&mockRedisRefreshClient{}, now)
		if _, ok, err := store.GetRefreshRef(ctx, "u1"); err != nil || ok {
			t.Fatalf("expected absent ref, got %v,%v", ok, err)
		}
	})

	t.Run("present", func(t *testing.T) {
		client := &mockRedisRefreshClient{fields: map[string]string{
			"hash":    "h1",
			"issued":  strconv.FormatInt(now.UnixMilli(), 10),
			"expires": strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10),
		}}
		store := newTestRedisRefreshStore(client, now)
		ref, ok, err := store.GetRefreshRef(ctx, " u1 ")
		if err != nil || !ok {
			t.Fatalf("expected ref, got %v,%v", ok, err)
		}
		if ref.UserID != "u1" || ref.TokenHash != "h1" || !ref.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("unexpected ref: %+v", ref)
		}
	})

	t.Run("error", func(t *testing.T) {
		store := newTestRedisRefreshStore(&mockRedisRefreshClient{hgetErr: errors.New("redis down")}, now)
		if _, _, err := store.GetRefreshRef(ctx, "u1"); err == nil {
			t.Fatalf("expected redis error")
		}
	})
}

func TestRedisRefreshTokenStore_SetSwapClear(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	client := &mockRedisRefreshClient{evalResult: 1}
	store := newTestRedisRefreshStore(client, now)

	ref := domain.RefreshRef{UserID: "u1", TokenHash: "h1", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := store.SetRefreshRef(ctx, ref); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if client.lastScript != redisRefreshSetScript {
		t.Fatalf("expected set script")
	}
	if len(client.lastKeys) != 1 || client.lastKeys[0] != "auth:refresh:u1" {
		t.Fatalf("unexpected keys: %+v", client.lastKeys)
	}
	if len(client.lastArgs) != 4 || client.lastArgs[3] != int64(60000) {
		t.Fatalf("expected ttl 60000ms, got %+v", client.lastArgs)
	}

	swapped, err := store.SwapRefreshRef(ctx, "u1", "h1", domain.RefreshRef{TokenHash: "h2", IssuedAt: now, ExpiresAt: now.Add(time.Minute)})
	if err != nil || !swapped {
		t.Fatalf("expected swap, got %v,%v", swapped, err)
	}
	if client.lastScript != redisRefreshSwapScript || client.lastArgs[0] != "h1" || client.lastArgs[1] != "h2" {
		t.Fatalf("unexpected swap call: %+v", client.lastArgs)
	}

	client.evalResult = 0
	swapped, err = store.SwapRefreshRef(ctx, "u1", "stale", domain.RefreshRef{TokenHash: "h3"})
	if err != nil || swapped {
		t.Fatalf("expected lost swap, got %v,%v", swapped, err)
	}

	if err := store.ClearRefreshRef(ctx, "u1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if len(client.lastDel) != 1 || client.lastDel[0] != "auth:refresh:u1" {
		t.Fatalf("unexpected del keys: %+v", client.lastDel)
	}

	client.evalErr = errors.New("redis down")
	if _, err := store.SwapRefreshRef(ctx, "u1", "h2", domain.RefreshRef{TokenHash: "h4"}); err == nil {
		t.Fatalf("expected redis error on swap")
	}
}
