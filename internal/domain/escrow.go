package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowPendingPayment   EscrowStatus = "pending_payment"
	EscrowPaymentConfirmed EscrowStatus = "payment_confirmed"
	EscrowActive           EscrowStatus = "active"
	EscrowDisputed         EscrowStatus = "disputed"
	EscrowCompleted        EscrowStatus = "completed"
	EscrowCancelled        EscrowStatus = "cancelled"
	EscrowRefunded         EscrowStatus = "refunded"
)

type Escrow struct {
	ID                 string
	TradeRef           string
	BuyerID            int64
	SellerID           *int64
	Amount             decimal.Decimal
	Currency           string
	FeePercent         decimal.Decimal
	ExpectedTotal      decimal.Decimal
	Status             EscrowStatus
	CryptoAmount       decimal.Decimal
	CryptoCurrency     string
	TxHash             string
	CallbackURL        string
	CreatedAt          time.Time
	ExpiresAt          time.Time
	ResponseDeadline   *time.Time
	PaymentConfirmedAt *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
}

// Paid reports whether funds were ever confirmed for this escrow. The sweeper
// uses it to decide between a bare cancel and a refund.
func (e *Escrow) Paid() bool {
	return e.PaymentConfirmedAt != nil
}

// PastPaymentConfirmed reports whether the escrow already advanced beyond the
// payment_confirmed stage. A settlement replay for such an escrow recreates
// the custody rows but must not touch the status.
func (e *Escrow) PastPaymentConfirmed() bool {
	switch e.Status {
	case EscrowActive, EscrowDisputed, EscrowCompleted:
		return true
	}
	return false
}

type HoldingStatus string

const (
	HoldingHeld     HoldingStatus = "held"
	HoldingReleased HoldingStatus = "released"
)

// EscrowHolding is the custody record for a settled escrow. At most one live
// ("held") holding may exist per escrow; its presence is the settlement
// idempotency marker.
type EscrowHolding struct {
	ID         string
	EscrowID   string
	Amount     decimal.Decimal
	Currency   string
	Status     HoldingStatus
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

type EscrowRepository interface {
	CreateEscrow(ctx context.Context, escrow *Escrow) error
	GetEscrowByID(ctx context.Context, escrowID string) (*Escrow, error)
	GetEscrowByTradeRef(ctx context.Context, tradeRef string) (*Escrow, error)
	UpdateEscrowStatus(ctx context.Context, escrowID string, status EscrowStatus) error
	FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*Escrow, error)
	FindStalePaymentConfirmed(ctx context.Context, olderThan time.Time) ([]*Escrow, error)
	FindOrphanedEscrows(ctx context.Context) ([]*Escrow, error)
	GetLiveHolding(ctx context.Context, escrowID string) (*EscrowHolding, error)
}
