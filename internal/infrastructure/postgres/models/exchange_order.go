package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type ExchangeOrderModel struct {
	ID              string                     `gorm:"primaryKey;type:uuid"`
	UserID          int64                      `gorm:"index:idx_exchange_user;not null"`
	FromCurrency    string                     `gorm:"not null"`
	ToCurrency      string                     `gorm:"not null"`
	FromAmount      decimal.Decimal            `gorm:"type:numeric(30,10);not null"`
	ToAmount        decimal.Decimal            `gorm:"type:numeric(30,10);not null"`
	Rate            decimal.Decimal            `gorm:"type:numeric(30,10);not null"`
	RateLockedUntil time.Time                  `gorm:"index:idx_exchange_rate_lock"`
	Status          domain.ExchangeOrderStatus `gorm:"index:idx_exchange_status;not null"`
	Provider        string
	CreatedAt       time.Time
	PaidAt          *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

func (ExchangeOrderModel) TableName() string {
	return "exchange_orders"
}
