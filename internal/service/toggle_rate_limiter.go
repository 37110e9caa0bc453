package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"videotube/internal/domain"
)

// ToggleRateLimiter limita la frecuencia de toggles por usuario y tipo de arista.
// Cuando niega devuelve cuánto esperar antes de reintentar.
type ToggleRateLimiter interface {
	Allow(ctx context.Context, subjectID string, kind domain.EdgeKind) (retryAfter time.Duration, ok bool)
}

func toggleLimiterKey(subjectID string, kind domain.EdgeKind) string {
	subjectID = domain.NormalizeID(subjectID)
	if subjectID == "" {
		return ""
	}
	return subjectID + ":" + string(kind)
}

type toggleBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// memoryToggleRateLimiter es un token bucket por clave dentro del proceso.
// Un bucket sin uso durante window ya está lleno, así que se descarta.
type memoryToggleRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	buckets   map[string]*toggleBucket
	lastSweep time.Time
	now       func() time.Time
}

// NewToggleRateLimiter crea un rate limiter en memoria: max toggles por window,
// con ráfaga igual a max.
func NewToggleRateLimiter(window time.Duration, max int) ToggleRateLimiter {
	return newMemoryToggleRateLimiter(window, max)
}

func newMemoryToggleRateLimiter(window time.Duration, max int) *memoryToggleRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryToggleRateLimiter{
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idleTTL: window,
		buckets: make(map[string]*toggleBucket),
		now:     time.Now,
	}
}

func (l *memoryToggleRateLimiter) Allow(_ context.Context, subjectID string, kind domain.EdgeKind) (time.Duration, bool) {
	key := toggleLimiterKey(subjectID, kind)
	if key == "" {
		return 0, false
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &toggleBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return l.idleTTL, false
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return wait, false
	}
	return 0, true
}

func (l *memoryToggleRateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *memoryToggleRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
