package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AdminStats is the snapshot served to admin dashboards. It is rebuilt at
// most once per cache TTL, never per request.
type AdminStats struct {
	ActiveEscrows      int64
	ActiveEscrowVolume decimal.Decimal
	HeldFunds          decimal.Decimal
	PendingCashouts    int64
	OpenDisputes       int64
	SettledTodayVolume decimal.Decimal
	FeesTodayVolume    decimal.Decimal
	WalletAvailable    decimal.Decimal
	WalletFrozen       decimal.Decimal
	GeneratedAt        time.Time
}

type StatsRepository interface {
	CollectAdminStats(ctx context.Context, since time.Time) (*AdminStats, error)
}
