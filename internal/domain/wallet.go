package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-user, per-currency balance pair. AvailableBalance and
// FrozenBalance never go negative; a settlement consumes from frozen when a
// prior hold exists and from available otherwise, never both for the same
// amount.
type Wallet struct {
	ID               string
	UserID           int64
	Currency         string
	AvailableBalance decimal.Decimal
	FrozenBalance    decimal.Decimal
	TradingCredit    decimal.Decimal
	UpdatedAt        time.Time
}

type WalletRepository interface {
	GetWallet(ctx context.Context, userID int64, currency string) (*Wallet, error)
	GetWalletsByUserID(ctx context.Context, userID int64) ([]*Wallet, error)
}
