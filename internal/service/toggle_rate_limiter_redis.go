package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"videotube/internal/domain"
)

// Devuelve {toggles en la ventana, ms hasta que la ventana se reinicia}.
const redisToggleWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`

const redisLimiterTimeout = 500 * time.Millisecond

// redisToggleRateLimiter cuenta toggles en una ventana fija compartida entre réplicas.
type redisToggleRateLimiter struct {
	logger *zap.Logger
	client redisEvaler
	window time.Duration
	max    int64
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisToggleRateLimiter(logger *zap.Logger, client *redis.Client, window time.Duration, max int) ToggleRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisToggleRateLimiter(logger, client, window, max)
}

func newRedisToggleRateLimiter(logger *zap.Logger, client redisEvaler, window time.Duration, max int) *redisToggleRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisToggleRateLimiter{
		logger: logger,
		client: client,
		window: window,
		max:    int64(max),
		prefix: "toggle:rl:",
	}
}

// Allow usa el contexto de la petición acotado a redisLimiterTimeout.
// Si Redis falla el toggle pasa.
func (l *redisToggleRateLimiter) Allow(ctx context.Context, subjectID string, kind domain.EdgeKind) (time.Duration, bool) {
	key := toggleLimiterKey(subjectID, kind)
	if key == "" {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	res, err := l.client.Eval(ctx, redisToggleWindowScript, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		l.logger.Warn("toggle rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return 0, true
	}
	if res[0] <= l.max {
		return 0, true
	}
	wait := time.Duration(res[1]) * time.Millisecond
	if wait <= 0 {
		wait = l.window
	}
	return wait, false
}
