package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeOrderStatus string

const (
	ExchangeQuoted         ExchangeOrderStatus = "quoted"
	ExchangePendingPayment ExchangeOrderStatus = "pending_payment"
	ExchangePaid           ExchangeOrderStatus = "paid"
	ExchangeProcessing     ExchangeOrderStatus = "processing"
	ExchangeCompleted      ExchangeOrderStatus = "completed"
	ExchangeFailed         ExchangeOrderStatus = "failed"
	ExchangeCancelled      ExchangeOrderStatus = "cancelled"
	ExchangeExpired        ExchangeOrderStatus = "expired"
)

// ExchangeOrder is a single-party currency conversion. The quoted rate is
// only honored until RateLockedUntil; expired quotes are swept to "expired"
// with no fund movement.
type ExchangeOrder struct {
	ID              string
	UserID          int64
	FromCurrency    string
	ToCurrency      string
	FromAmount      decimal.Decimal
	ToAmount        decimal.Decimal
	Rate            decimal.Decimal
	RateLockedUntil time.Time
	Status          ExchangeOrderStatus
	Provider        string
	CreatedAt       time.Time
	PaidAt          *time.Time
	CompletedAt     *time.Time
}

// Paid reports whether the order was ever funded from the user's wallet.
func (o *ExchangeOrder) Paid() bool {
	return o.PaidAt != nil
}

type ExchangeOrderRepository interface {
	CreateExchangeOrder(ctx context.Context, order *ExchangeOrder) error
	GetExchangeOrderByID(ctx context.Context, orderID string) (*ExchangeOrder, error)
	UpdateExchangeOrderStatus(ctx context.Context, orderID string, status ExchangeOrderStatus) error
	FindExpiredRateLocks(ctx context.Context, now time.Time) ([]*ExchangeOrder, error)
	FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*ExchangeOrder, error)
	FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]*ExchangeOrder, error)
}
