package domain

import (
	"context"
	"time"
)

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
)

// Dispute resolutions. Each maps to exactly one fund movement.
const (
	ResolutionRefundBuyer   = "refund_buyer"
	ResolutionReleaseSeller = "release_seller"
)

type Dispute struct {
	ID          string
	EscrowID    string
	InitiatorID int64
	Reason      string
	Status      DisputeStatus
	ResolvedBy  string
	Resolution  string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// DisputeRepository covers reads and the review flip. Opening and resolving
// a dispute always touch the escrow in the same transaction, so those writes
// live on SettlementStore.
type DisputeRepository interface {
	GetDisputeByID(ctx context.Context, disputeID string) (*Dispute, error)
	GetDisputeByEscrowID(ctx context.Context, escrowID string) (*Dispute, error)
	UpdateDisputeStatus(ctx context.Context, disputeID string, status DisputeStatus) error
	CountByStatus(ctx context.Context, status DisputeStatus) (int64, error)
}
