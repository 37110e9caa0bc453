package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"videotube/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidOperation.Withf("cannot like a channel"), http.StatusBadRequest},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrTargetNotFound, http.StatusNotFound},
		{domain.ErrSelfSubscription, http.StatusConflict},
		{domain.ErrToggleConflict, http.StatusConflict},
		{fmt.Errorf("rotate: %w", domain.ErrTokenReuse), http.StatusUnauthorized},
		{domain.ErrAggregationTimeout.With(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{domain.ErrStore.With(errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	cases := map[time.Duration]int{
		1500 * time.Millisecond: 2,
		2 * time.Second:         2,
		time.Millisecond:        1,
	}
	for d, want := range cases {
		if got := retryAfterSeconds(d); got != want {
			t.Fatalf("retryAfterSeconds(%v) = %d, want %d", d, got, want)
		}
	}
}
