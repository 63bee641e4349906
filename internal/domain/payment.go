package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord is the canonical form every provider payload is normalized
// into before the settlement pipeline sees it.
type PaymentRecord struct {
	Provider     string
	ExternalTxID string
	ReferenceID  string
	UserID       int64
	Amount       decimal.Decimal
	Currency     string
	Confirmed    bool
	RawPayload   []byte
}

// ProcessedWebhookEvent is the idempotency key row: one per
// (provider, external_txid), inserted inside the settlement transaction so a
// redelivered webhook can never settle twice.
type ProcessedWebhookEvent struct {
	ID           string
	Provider     string
	ExternalTxID string
	ReferenceID  string
	Amount       decimal.Decimal
	Currency     string
	ProcessedAt  time.Time
}

// PaymentLease is a held payment lock. Release is a no-op when the lease
// already expired or was taken over; only the owner token can delete or
// extend the key.
type PaymentLease interface {
	Token() string
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// PaymentLocker provides mutual exclusion per (provider, external_txid).
// Acquire returns ErrLockHeld when another delivery of the same event is in
// flight (expected contention, not an error condition for the caller) and
// ErrLockUnavailable when the lock backend itself fails. Callers must treat
// backend failure as not acquired and refuse to process (fail closed).
type PaymentLocker interface {
	Acquire(ctx context.Context, provider, externalTxID string) (PaymentLease, error)
}
