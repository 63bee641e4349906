package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CashoutStatus string

const (
	CashoutPending              CashoutStatus = "pending"
	CashoutOTPPending           CashoutStatus = "otp_pending"
	CashoutAdminPending         CashoutStatus = "admin_pending"
	CashoutApproved             CashoutStatus = "approved"
	CashoutExecuting            CashoutStatus = "executing"
	CashoutSuccess              CashoutStatus = "success"
	CashoutFailed               CashoutStatus = "failed"
	CashoutCancelled            CashoutStatus = "cancelled"
	CashoutPendingAddressConfig CashoutStatus = "pending_address_config"
)

// Cashout is a withdrawal request. Destination is colon-encoded: either
// "bank:{bank_code}:{account_number}" or "crypto:{currency}:{address}".
type Cashout struct {
	ID          string
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Destination string
	Status      CashoutStatus
	ApprovedBy  string
	ApprovedAt  *time.Time
	ExecutedAt  *time.Time
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CashoutRepository covers reads and single-statement status flips. Writes
// that must move wallet balances in the same transaction live on
// SettlementStore instead.
type CashoutRepository interface {
	GetCashoutByID(ctx context.Context, cashoutID string) (*Cashout, error)
	UpdateCashoutStatus(ctx context.Context, cashoutID string, status CashoutStatus) error
	ApproveCashout(ctx context.Context, cashoutID, admin string) error
	FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]*Cashout, error)
	CountByStatus(ctx context.Context, status CashoutStatus) (int64, error)
}
