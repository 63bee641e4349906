package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type EscrowModel struct {
	ID                 string              `gorm:"primaryKey;type:uuid"`
	TradeRef           string              `gorm:"uniqueIndex:idx_escrow_trade_ref;not null"`
	BuyerID            int64               `gorm:"index:idx_escrow_buyer;not null"`
	SellerID           *int64              `gorm:"index:idx_escrow_seller"`
	Amount             decimal.Decimal     `gorm:"type:numeric(30,10);not null"`
	Currency           string              `gorm:"not null"`
	FeePercent         decimal.Decimal     `gorm:"type:numeric(10,4)"`
	ExpectedTotal      decimal.Decimal     `gorm:"type:numeric(30,10);not null"`
	Status             domain.EscrowStatus `gorm:"index:idx_escrow_status_expires;not null"`
	CryptoAmount       decimal.Decimal     `gorm:"type:numeric(30,10)"`
	CryptoCurrency     string
	TxHash             string
	CallbackURL        string
	CreatedAt          time.Time `gorm:"index:idx_escrow_created_at"`
	ExpiresAt          time.Time `gorm:"index:idx_escrow_status_expires"`
	ResponseDeadline   *time.Time
	PaymentConfirmedAt *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	UpdatedAt          time.Time
}

func (EscrowModel) TableName() string {
	return "escrows"
}

type EscrowHoldingModel struct {
	ID         string               `gorm:"primaryKey;type:uuid"`
	EscrowID   string               `gorm:"type:uuid;not null;index:idx_holding_escrow;uniqueIndex:idx_one_live_holding,where:status = 'held'"`
	Amount     decimal.Decimal      `gorm:"type:numeric(30,10);not null"`
	Currency   string               `gorm:"not null"`
	Status     domain.HoldingStatus `gorm:"not null"`
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

func (EscrowHoldingModel) TableName() string {
	return "escrow_holdings"
}
