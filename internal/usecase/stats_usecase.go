package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

const defaultStatsCacheTTL = 2 * time.Minute

type StatsUsecase interface {
	GetStats(ctx context.Context) (*domain.AdminStats, error)
	RefreshStats(ctx context.Context) (*domain.AdminStats, error)
}

// DefaultStatsUsecase caches the admin dashboard snapshot. The aggregate
// queries behind it are too heavy to run per request, so GetStats serves the
// cached snapshot while it is younger than the TTL and a scheduled refresh
// keeps it warm. The clock is a field so tests can move time.
type DefaultStatsUsecase struct {
	stats domain.StatsRepository
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger

	mu        sync.Mutex
	snapshot  *domain.AdminStats
	fetchedAt time.Time
}

func NewDefaultStatsUsecase(stats domain.StatsRepository, ttl time.Duration, log *slog.Logger) *DefaultStatsUsecase {
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}
	return &DefaultStatsUsecase{
		stats: stats,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// GetStats returns the cached snapshot, rebuilding it first when stale.
func (uc *DefaultStatsUsecase) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.snapshot != nil && uc.now().Sub(uc.fetchedAt) < uc.ttl {
		return uc.snapshot, nil
	}
	return uc.refreshLocked(ctx)
}

// RefreshStats rebuilds the snapshot unconditionally. The scheduler calls it
// on the TTL interval so interactive requests almost always hit the cache.
func (uc *DefaultStatsUsecase) RefreshStats(ctx context.Context) (*domain.AdminStats, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.refreshLocked(ctx)
}

func (uc *DefaultStatsUsecase) refreshLocked(ctx context.Context) (*domain.AdminStats, error) {
	started := uc.now()
	since := startOfDayUTC(started)

	snapshot, err := uc.stats.CollectAdminStats(ctx, since)
	if err != nil {
		// A stale snapshot beats an empty dashboard while the DB hiccups.
		if uc.snapshot != nil {
			uc.log.Warn("admin stats refresh failed, serving stale snapshot",
				"age", uc.now().Sub(uc.fetchedAt), "error", err)
			return uc.snapshot, nil
		}
		return nil, err
	}

	uc.snapshot = snapshot
	uc.fetchedAt = uc.now()
	uc.log.Info("admin stats refreshed",
		"active_escrows", snapshot.ActiveEscrows,
		"held_funds", snapshot.HeldFunds,
		"pending_cashouts", snapshot.PendingCashouts,
		"open_disputes", snapshot.OpenDisputes,
		"took", uc.now().Sub(started))
	return snapshot, nil
}

// startOfDayUTC truncates t to UTC midnight. "Today's" settlement and fee
// volumes are measured from here.
func startOfDayUTC(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
