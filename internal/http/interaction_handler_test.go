package http

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"videotube/internal/domain"
	"videotube/internal/service"
)

func TestInteractionHandler_ToggleVideoLike(t *testing.T) {
	srv := newTestServer(t)
	aliceID, alice, _ := registerAndLogin(t, srv, "alice")
	srv.store.Put(domain.Video{ID: "v1", OwnerID: aliceID, Title: "hello", Published: true, CreatedAt: time.Now().UTC()})

	rec := performRequest(srv.router, http.MethodPost, "/likes/toggle/v/v1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	for i, want := range []bool{true, false} {
		rec = performRequest(srv.router, http.MethodPost, "/likes/toggle/v/v1", nil, withBearer(alice.Tokens.AccessToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
		var body struct {
			Active bool `json:"active"`
		}
		decodeBody(t, rec, &body)
		if body.Active != want {
			t.Fatalf("toggle %d: expected active=%v", i, want)
		}
	}

	rec = performRequest(srv.router, http.MethodPost, "/likes/toggle/v/missing", nil, withBearer(alice.Tokens.AccessToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing video, got %d", rec.Code)
	}
}

func TestInteractionHandler_Subscriptions(t *testing.T) {
	srv := newTestServer(t)
	aliceID, alice, _ := registerAndLogin(t, srv, "alice")
	bobID, bob, _ := registerAndLogin(t, srv, "bob")

	rec := performRequest(srv.router, http.MethodPost, "/subscriptions/c/"+aliceID, nil, withBearer(alice.Tokens.AccessToken))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on self subscription, got %d", rec.Code)
	}

	rec = performRequest(srv.router, http.MethodPost, "/subscriptions/c/"+aliceID, nil, withBearer(bob.Tokens.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = performRequest(srv.router, http.MethodGet, "/subscriptions/c/"+aliceID+"/count", nil)
	var count struct {
		SubscribersCount int64 `json:"subscribers_count"`
	}
	decodeBody(t, rec, &count)
	if rec.Code != http.StatusOK || count.SubscribersCount != 1 {
		t.Fatalf("expected one subscriber, got %d %+v", rec.Code, count)
	}

	rec = performRequest(srv.router, http.MethodGet, "/subscriptions/channels", nil, withBearer(bob.Tokens.AccessToken))
	var page struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	decodeBody(t, rec, &page)
	if rec.Code != http.StatusOK || page.Total != 1 || page.Items[0].ID != aliceID {
		t.Fatalf("unexpected subscriptions page: %d %+v", rec.Code, page)
	}

	// Alice no ve la lista de suscripciones de Bob: solo la propia.
	rec = performRequest(srv.router, http.MethodGet, fmt.Sprintf("/subscriptions/channels?user=%s", bobID), nil, withBearer(alice.Tokens.AccessToken))
	decodeBody(t, rec, &page)
	if page.Total != 0 {
		t.Fatalf("expected viewer-scoped list, got %+v", page)
	}
}

func TestInteractionHandler_RateLimitedSetsRetryAfter(t *testing.T) {
	srv := newTestServer(t, withToggleLimiter(service.NewToggleRateLimiter(time.Hour, 1)))
	aliceID, alice, _ := registerAndLogin(t, srv, "alice")
	srv.store.Put(domain.Video{ID: "v1", OwnerID: aliceID, Title: "hello", Published: true, CreatedAt: time.Now().UTC()})

	rec := performRequest(srv.router, http.MethodPost, "/likes/toggle/v/v1", nil, withBearer(alice.Tokens.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first toggle allowed, got %d", rec.Code)
	}
	rec = performRequest(srv.router, http.MethodPost, "/likes/toggle/v/v1", nil, withBearer(alice.Tokens.AccessToken))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry < 3500 || retry > 3600 {
		t.Fatalf("expected Retry-After close to one hour, got %q", rec.Header().Get("Retry-After"))
	}

	// Las suscripciones tienen su propio cupo.
	bobID, _, _ := registerAndLogin(t, srv, "bob")
	rec = performRequest(srv.router, http.MethodPost, "/subscriptions/c/"+bobID, nil, withBearer(alice.Tokens.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected subscription allowed while likes are limited, got %d", rec.Code)
	}
}
