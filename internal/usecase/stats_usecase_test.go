package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

func newStatsFixture(repo *fakeStatsRepo) (*DefaultStatsUsecase, *time.Time) {
	uc := NewDefaultStatsUsecase(repo, 0, testLogger())
	clock := time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC)
	uc.now = func() time.Time { return clock }
	return uc, &clock
}

func TestStatsServedFromCacheInsideTTL(t *testing.T) {
	repo := &fakeStatsRepo{snapshot: domain.AdminStats{ActiveEscrows: 7, PendingCashouts: 2}}
	uc, clock := newStatsFixture(repo)

	first, err := uc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if first.ActiveEscrows != 7 {
		t.Fatalf("active escrows = %d, want 7", first.ActiveEscrows)
	}
	if repo.calls != 1 {
		t.Fatalf("collect calls = %d, want 1", repo.calls)
	}

	*clock = clock.Add(90 * time.Second)
	second, err := uc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("collect calls = %d after cached read, want 1", repo.calls)
	}
	if second != first {
		t.Error("cached read returned a different snapshot")
	}
}

func TestStatsRebuiltAfterTTL(t *testing.T) {
	repo := &fakeStatsRepo{}
	uc, clock := newStatsFixture(repo)

	if _, err := uc.GetStats(context.Background()); err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	*clock = clock.Add(2*time.Minute + time.Second)
	if _, err := uc.GetStats(context.Background()); err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("collect calls = %d, want 2 after the TTL lapsed", repo.calls)
	}
}

func TestRefreshStatsIgnoresTTL(t *testing.T) {
	repo := &fakeStatsRepo{}
	uc, _ := newStatsFixture(repo)

	if _, err := uc.GetStats(context.Background()); err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if _, err := uc.RefreshStats(context.Background()); err != nil {
		t.Fatalf("RefreshStats: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("collect calls = %d, want 2: refresh must not serve the cache", repo.calls)
	}
}

func TestStatsWindowStartsAtUTCMidnight(t *testing.T) {
	repo := &fakeStatsRepo{}
	uc, _ := newStatsFixture(repo)

	if _, err := uc.GetStats(context.Background()); err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !repo.lastSince.Equal(want) {
		t.Errorf("since = %s, want %s", repo.lastSince, want)
	}
}

func TestStatsServesStaleSnapshotWhenCollectFails(t *testing.T) {
	repo := &fakeStatsRepo{snapshot: domain.AdminStats{OpenDisputes: 3}}
	uc, clock := newStatsFixture(repo)

	good, err := uc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	repo.fail = true
	*clock = clock.Add(10 * time.Minute)

	stale, err := uc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats must degrade to the stale snapshot, got %v", err)
	}
	if stale != good {
		t.Error("expected the previous snapshot while collection is failing")
	}
	if stale.OpenDisputes != 3 {
		t.Errorf("open disputes = %d, want 3", stale.OpenDisputes)
	}
}

func TestStatsFailsWithoutAnySnapshot(t *testing.T) {
	repo := &fakeStatsRepo{fail: true}
	uc, _ := newStatsFixture(repo)

	if _, err := uc.GetStats(context.Background()); err == nil {
		t.Fatal("expected an error with no snapshot to fall back on")
	}
}
