package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"videotube/internal/domain"
)

type ctxKey struct{}

type fakeWindowEvaler struct {
	keys   []string
	args   []interface{}
	ctxVal any
	hasDL  bool
	val    interface{}
	err    error
}

func (f *fakeWindowEvaler) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.keys = keys
	f.args = args
	f.ctxVal = ctx.Value(ctxKey{})
	_, f.hasDL = ctx.Deadline()
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.val)
	}
	return cmd
}

func TestRedisToggleRateLimiter(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "request")

	t.Run("within window", func(t *testing.T) {
		ev := &fakeWindowEvaler{val: []interface{}{int64(3), int64(45000)}}
		l := newRedisToggleRateLimiter(zap.NewNop(), ev, time.Minute, 3)
		if _, ok := l.Allow(ctx, " U1 ", domain.EdgeSubscription); !ok {
			t.Fatalf("expected allowed at the limit")
		}
		if len(ev.keys) != 1 || ev.keys[0] != "toggle:rl:u1:subscription" {
			t.Fatalf("expected key per subject and kind, got %v", ev.keys)
		}
		if len(ev.args) != 1 || ev.args[0] != int64(60000) {
			t.Fatalf("expected window in milliseconds, got %v", ev.args)
		}
		if ev.ctxVal != "request" || !ev.hasDL {
			t.Fatalf("expected the request context with a deadline")
		}
	})

	t.Run("over limit reports remaining window", func(t *testing.T) {
		ev := &fakeWindowEvaler{val: []interface{}{int64(4), int64(1500)}}
		l := newRedisToggleRateLimiter(zap.NewNop(), ev, time.Minute, 3)
		wait, ok := l.Allow(ctx, "u1", domain.EdgeLike)
		if ok || wait != 1500*time.Millisecond {
			t.Fatalf("expected denial with 1.5s wait, got %v %v", wait, ok)
		}
	})

	t.Run("missing ttl falls back to window", func(t *testing.T) {
		ev := &fakeWindowEvaler{val: []interface{}{int64(9), int64(-1)}}
		l := newRedisToggleRateLimiter(zap.NewNop(), ev, 10*time.Second, 3)
		if wait, ok := l.Allow(ctx, "u1", domain.EdgeLike); ok || wait != 10*time.Second {
			t.Fatalf("expected window as wait, got %v %v", wait, ok)
		}
	})

	t.Run("redis failure lets the toggle through", func(t *testing.T) {
		ev := &fakeWindowEvaler{err: errors.New("connection refused")}
		l := newRedisToggleRateLimiter(zap.NewNop(), ev, time.Minute, 3)
		if _, ok := l.Allow(ctx, "u1", domain.EdgeLike); !ok {
			t.Fatalf("expected allowed when redis is down")
		}
	})

	t.Run("empty subject", func(t *testing.T) {
		ev := &fakeWindowEvaler{val: []interface{}{int64(1), int64(60000)}}
		l := newRedisToggleRateLimiter(zap.NewNop(), ev, time.Minute, 3)
		if _, ok := l.Allow(ctx, " ", domain.EdgeLike); ok {
			t.Fatalf("expected empty subject denied")
		}
		if ev.keys != nil {
			t.Fatalf("expected no redis call for an empty subject")
		}
	})
}
