package callback

import (
	"testing"
	"time"
)

func TestRetryBackoffDoubles(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
	}
	for _, tc := range cases {
		if got := retryBackoff(tc.attempt); got != tc.want {
			t.Errorf("retryBackoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryBackoffCapped(t *testing.T) {
	if got := retryBackoff(20); got != maxRetryDelay {
		t.Fatalf("retryBackoff(20) = %s, want cap %s", got, maxRetryDelay)
	}
}
