package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionModel struct {
	ID              string                   `gorm:"primaryKey;type:uuid"`
	UserID          int64                    `gorm:"index:idx_txn_user;not null"`
	Type            domain.TransactionType   `gorm:"not null"`
	Amount          decimal.Decimal          `gorm:"type:numeric(30,10);not null;check:amount > 0"`
	Currency        string                   `gorm:"not null"`
	Status          domain.TransactionStatus `gorm:"index:idx_txn_status;not null"`
	EscrowID        *string                  `gorm:"type:uuid;index:idx_txn_escrow"`
	CashoutID       *string                  `gorm:"type:uuid"`
	ExchangeOrderID *string                  `gorm:"type:uuid"`
	Reference       string                   `gorm:"index:idx_txn_reference"`
	MetadataJSON    string                   `gorm:"type:jsonb"`
	CreatedAt       time.Time                `gorm:"index:idx_txn_created_at"`
	UpdatedAt       time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}

type WalletModel struct {
	ID               string          `gorm:"primaryKey;type:uuid"`
	UserID           int64           `gorm:"uniqueIndex:idx_wallet_user_currency;not null"`
	Currency         string          `gorm:"uniqueIndex:idx_wallet_user_currency;not null"`
	AvailableBalance decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0;check:available_balance >= 0"`
	FrozenBalance    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0;check:frozen_balance >= 0"`
	TradingCredit    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (WalletModel) TableName() string {
	return "wallets"
}
