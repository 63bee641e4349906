package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type CashoutModel struct {
	ID          string               `gorm:"primaryKey;type:uuid"`
	UserID      int64                `gorm:"index:idx_cashout_user;not null"`
	Amount      decimal.Decimal      `gorm:"type:numeric(30,10);not null"`
	Currency    string               `gorm:"not null"`
	Destination string               `gorm:"not null"`
	Status      domain.CashoutStatus `gorm:"index:idx_cashout_status;not null"`
	ApprovedBy  string
	ApprovedAt  *time.Time
	ExecutedAt  *time.Time
	Attempts    int `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CashoutModel) TableName() string {
	return "cashouts"
}
