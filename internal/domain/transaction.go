package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionConfirmed TransactionStatus = "CONFIRMED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCancelled TransactionStatus = "CANCELLED"
)

type TransactionType string

const (
	TransactionDeposit           TransactionType = "deposit"
	TransactionWithdrawal        TransactionType = "withdrawal"
	TransactionFee               TransactionType = "fee"
	TransactionAdjustment        TransactionType = "adjustment"
	TransactionReversal          TransactionType = "reversal"
	TransactionOverpaymentCredit TransactionType = "overpayment_credit"
	TransactionRefund            TransactionType = "refund"
	TransactionEscrowRelease     TransactionType = "escrow_release"
	TransactionExchangeDebit     TransactionType = "exchange_debit"
	TransactionExchangeCredit    TransactionType = "exchange_credit"
)

// Transaction is an immutable ledger entry. Amount is always positive; the
// direction is encoded in Type. Reversals are new rows, never edits. Only the
// status field may change after insert.
type Transaction struct {
	ID              string
	UserID          int64
	Type            TransactionType
	Amount          decimal.Decimal
	Currency        string
	Status          TransactionStatus
	EscrowID        *string
	CashoutID       *string
	ExchangeOrderID *string
	Reference       string
	MetadataJSON    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TransactionRepository interface {
	GetTransactionByID(ctx context.Context, txID string) (*Transaction, error)
	GetTransactionsByEscrowID(ctx context.Context, escrowID string) ([]*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txID string, status TransactionStatus) error
}
