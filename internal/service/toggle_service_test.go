package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/repository"
)

type fakeEdgeRepo struct {
	repository.EdgeRepository
	flipErrs  []error
	flipCalls int
}

func (f *fakeEdgeRepo) FlipEdge(_ context.Context, _ domain.EdgeKey) (domain.FlipResult, error) {
	f.flipCalls++
	if len(f.flipErrs) > 0 {
		err := f.flipErrs[0]
		f.flipErrs = f.flipErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return domain.FlipCreated, nil
}

type denyLimiter struct {
	calls   int
	subject string
	kind    domain.EdgeKind
}

func (d *denyLimiter) Allow(_ context.Context, subjectID string, kind domain.EdgeKind) (time.Duration, bool) {
	d.calls++
	d.subject, d.kind = subjectID, kind
	return 2 * time.Second, false
}

func seedToggleStore() *repository.MemoryStore {
	store := repository.NewMemoryStore()
	store.Put(
		domain.User{ID: "u1", Username: "alice"},
		domain.User{ID: "u2", Username: "bob"},
		domain.Video{ID: "v1", OwnerID: "u2", Published: true},
		domain.Comment{ID: "c1", VideoID: "v1", OwnerID: "u2"},
		domain.Tweet{ID: "t1", OwnerID: "u2"},
	)
	return store
}

func TestToggleService_ToggleTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	store := seedToggleStore()
	svc := NewToggleService(zap.NewNop(), store, store, nil, nil)

	cases := []struct {
		name   string
		toggle func() (ToggleResult, error)
		key    domain.EdgeKey
	}{
		{"video like", func() (ToggleResult, error) { return svc.ToggleVideoLike(ctx, "u1", "v1") },
			domain.NewEdgeKey("u1", domain.EdgeLike, domain.TargetVideo, "v1")},
		{"comment like", func() (ToggleResult, error) { return svc.ToggleCommentLike(ctx, "u1", "c1") },
			domain.NewEdgeKey("u1", domain.EdgeLike, domain.TargetComment, "c1")},
		{"tweet like", func() (ToggleResult, error) { return svc.ToggleTweetLike(ctx, "u1", "t1") },
			domain.NewEdgeKey("u1", domain.EdgeLike, domain.TargetTweet, "t1")},
		{"subscription", func() (ToggleResult, error) { return svc.ToggleSubscription(ctx, "u1", "u2") },
			domain.NewEdgeKey("u1", domain.EdgeSubscription, domain.TargetChannel, "u2")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.toggle()
			if err != nil || !res.Active {
				t.Fatalf("expected active after first toggle, got %+v %v", res, err)
			}
			if _, ok, _ := store.FindEdge(ctx, tc.key); !ok {
				t.Fatalf("expected edge present")
			}
			res, err = tc.toggle()
			if err != nil || res.Active {
				t.Fatalf("expected inactive after second toggle, got %+v %v", res, err)
			}
			if _, ok, _ := store.FindEdge(ctx, tc.key); ok {
				t.Fatalf("expected edge removed")
			}
		})
	}
}

func TestToggleService_Validation(t *testing.T) {
	ctx := context.Background()
	store := seedToggleStore()
	edges := &fakeEdgeRepo{}
	svc := NewToggleService(zap.NewNop(), store, edges, nil, nil)

	if _, err := svc.ToggleSubscription(ctx, "u1", " U1 "); !errors.Is(err, domain.ErrSelfSubscription) {
		t.Fatalf("expected self subscription rejected, got %v", err)
	}
	if _, err := svc.Toggle(ctx, domain.NewEdgeKey("u1", domain.EdgeLike, domain.TargetChannel, "u2")); !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation for liking a channel, got %v", err)
	}
	if _, err := svc.Toggle(ctx, domain.NewEdgeKey("u1", domain.EdgeSubscription, domain.TargetVideo, "v1")); !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation for subscribing to a video, got %v", err)
	}
	if _, err := svc.ToggleVideoLike(ctx, "", "v1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty subject, got %v", err)
	}
	if _, err := svc.ToggleVideoLike(ctx, "u1", "missing"); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected target not found, got %v", err)
	}
	if edges.flipCalls != 0 {
		t.Fatalf("expected no edge store writes, got %d", edges.flipCalls)
	}
}

func TestToggleService_ConflictRetry(t *testing.T) {
	ctx := context.Background()
	store := seedToggleStore()

	t.Run("retry once then succeed", func(t *testing.T) {
		edges := &fakeEdgeRepo{flipErrs: []error{repository.ErrEdgeConflict}}
		svc := NewToggleService(zap.NewNop(), store, edges, nil, nil)
		res, err := svc.ToggleVideoLike(ctx, "u1", "v1")
		if err != nil || !res.Active {
			t.Fatalf("expected success after retry, got %+v %v", res, err)
		}
		if edges.flipCalls != 2 {
			t.Fatalf("expected 2 flip calls, got %d", edges.flipCalls)
		}
	})

	t.Run("second conflict surfaces", func(t *testing.T) {
		edges := &fakeEdgeRepo{flipErrs: []error{repository.ErrEdgeConflict, repository.ErrEdgeConflict}}
		svc := NewToggleService(zap.NewNop(), store, edges, nil, nil)
		if _, err := svc.ToggleVideoLike(ctx, "u1", "v1"); !errors.Is(err, domain.ErrToggleConflict) {
			t.Fatalf("expected ErrToggleConflict, got %v", err)
		}
		if edges.flipCalls != 2 {
			t.Fatalf("expected exactly one retry, got %d calls", edges.flipCalls)
		}
	})

	t.Run("store failure is internal", func(t *testing.T) {
		edges := &fakeEdgeRepo{flipErrs: []error{errors.New("connection reset")}}
		svc := NewToggleService(zap.NewNop(), store, edges, nil, nil)
		if _, err := svc.ToggleVideoLike(ctx, "u1", "v1"); !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
		if edges.flipCalls != 1 {
			t.Fatalf("expected no retry on store failure, got %d calls", edges.flipCalls)
		}
	})
}

func TestToggleService_RateLimited(t *testing.T) {
	store := seedToggleStore()
	edges := &fakeEdgeRepo{}
	limiter := &denyLimiter{}
	svc := NewToggleService(zap.NewNop(), store, edges, limiter, nil)
	_, err := svc.ToggleVideoLike(context.Background(), "u1", "v1")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	var derr *domain.Error
	if !errors.As(err, &derr) || derr.RetryAfter != 2*time.Second {
		t.Fatalf("expected retry hint from the limiter, got %v", err)
	}
	if limiter.subject != "u1" || limiter.kind != domain.EdgeLike {
		t.Fatalf("expected limiter keyed by subject and kind, got %q %q", limiter.subject, limiter.kind)
	}
	if limiter.calls != 1 || edges.flipCalls != 0 {
		t.Fatalf("expected limiter consulted before any flip, calls=%d flips=%d", limiter.calls, edges.flipCalls)
	}
}

func TestToggleService_ConcurrentTogglesStayConsistent(t *testing.T) {
	ctx := context.Background()
	store := seedToggleStore()
	svc := NewToggleService(zap.NewNop(), store, store, nil, nil)

	const workers = 51
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ToggleVideoLike(ctx, "u1", "v1")
			if err != nil {
				t.Errorf("toggle: %v", err)
				return
			}
			if res.Active {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	count, err := store.CountEdges(ctx, domain.EdgeFilter{Kind: domain.EdgeLike, TargetType: domain.TargetVideo, TargetID: "v1"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one like after an odd number of toggles, got %d", count)
	}
	if created != workers/2+1 {
		t.Fatalf("expected %d creations, got %d", workers/2+1, created)
	}
}
