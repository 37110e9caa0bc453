package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"videotube/internal/domain"
)

// RefreshTokenStore guarda la referencia vigente del refresh token por usuario.
// Set sobrescribe de forma atómica y Swap es un compare-and-swap sobre el hash.
type RefreshTokenStore interface {
	GetRefreshRef(ctx context.Context, userID string) (domain.RefreshRef, bool, error)
	SetRefreshRef(ctx context.Context, ref domain.RefreshRef) error
	SwapRefreshRef(ctx context.Context, userID, oldHash string, next domain.RefreshRef) (bool, error)
	ClearRefreshRef(ctx context.Context, userID string) error
}

type memoryRefreshTokenStore struct {
	mu    sync.Mutex
	items map[string]domain.RefreshRef
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		items: make(map[string]domain.RefreshRef),
	}
}

func (s *memoryRefreshTokenStore) GetRefreshRef(_ context.Context, userID string) (domain.RefreshRef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.items[userID]
	return ref, ok, nil
}

func (s *memoryRefreshTokenStore) SetRefreshRef(_ context.Context, ref domain.RefreshRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(ref.UserID) == "" {
		return nil
	}
	s.items[ref.UserID] = ref
	return nil
}

func (s *memoryRefreshTokenStore) SwapRefreshRef(_ context.Context, userID, oldHash string, next domain.RefreshRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[userID]
	if !ok || cur.TokenHash != oldHash {
		return false, nil
	}
	next.UserID = userID
	s.items[userID] = next
	return true, nil
}

func (s *memoryRefreshTokenStore) ClearRefreshRef(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
	return nil
}

// La referencia vive en un hash de Redis: hash, issued y expires (unix ms).
const redisRefreshSetScript = `
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "hash", ARGV[1], "issued", ARGV[2], "expires", ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return 1
`

const redisRefreshSwapScript = `
local current = redis.call("HGET", KEYS[1], "hash")
if current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "hash", ARGV[2], "issued", ARGV[3], "expires", ARGV[4])
if tonumber(ARGV[5]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[5])
end
return 1
`

type redisRefreshClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRefreshTokenStore struct {
	client  redisRefreshClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{
		client:  client,
		prefix:  "auth:refresh:",
		timeout: 500 * time.Millisecond,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *redisRefreshTokenStore) key(userID string) string {
	return s.prefix + strings.TrimSpace(userID)
}

func (s *redisRefreshTokenStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *redisRefreshTokenStore) GetRefreshRef(ctx context.Context, userID string) (domain.RefreshRef, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.RefreshRef{}, false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.RefreshRef{}, false, err
	}
	hash := fields["hash"]
	if hash == "" {
		return domain.RefreshRef{}, false, nil
	}
	return domain.RefreshRef{
		UserID:    strings.TrimSpace(userID),
		TokenHash: hash,
		IssuedAt:  parseUnixMilli(fields["issued"]),
		ExpiresAt: parseUnixMilli(fields["expires"]),
	}, true, nil
}

func (s *redisRefreshTokenStore) SetRefreshRef(ctx context.Context, ref domain.RefreshRef) error {
	if strings.TrimSpace(ref.UserID) == "" {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Eval(ctx, redisRefreshSetScript, []string{s.key(ref.UserID)},
		ref.TokenHash,
		ref.IssuedAt.UnixMilli(),
		ref.ExpiresAt.UnixMilli(),
		s.ttlMillis(ref.ExpiresAt),
	).Err()
}

func (s *redisRefreshTokenStore) SwapRefreshRef(ctx context.Context, userID, oldHash string, next domain.RefreshRef) (bool, error) {
	if strings.TrimSpace(userID) == "" || oldHash == "" {
		return false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Eval(ctx, redisRefreshSwapScript, []string{s.key(userID)},
		oldHash,
		next.TokenHash,
		next.IssuedAt.UnixMilli(),
		next.ExpiresAt.UnixMilli(),
		s.ttlMillis(next.ExpiresAt),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisRefreshTokenStore) ClearRefreshRef(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *redisRefreshTokenStore) ttlMillis(expiresAt time.Time) int64 {
	if expiresAt.IsZero() {
		return 0
	}
	ttl := expiresAt.Sub(s.now()).Milliseconds()
	if ttl <= 0 {
		return 1
	}
	return ttl
}

func parseUnixMilli(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
