package domain

import (
	"context"
	"time"
)

// OTPCode and EmailVerification are ephemeral rows with no financial impact.
// The sweeper deletes them once expired (cleanup-resource).

type OTPCode struct {
	ID         string
	UserID     int64
	Purpose    string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type EmailVerification struct {
	ID         string
	UserID     int64
	Email      string
	Token      string
	ExpiresAt  time.Time
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

type OTPRepository interface {
	CreateOTPCode(ctx context.Context, code *OTPCode) error
	// GetLiveOTPCode returns the newest unconsumed, unexpired code for the
	// user and purpose.
	GetLiveOTPCode(ctx context.Context, userID int64, purpose string, now time.Time) (*OTPCode, error)
	ConsumeOTPCode(ctx context.Context, codeID string) error
}

type CleanupRepository interface {
	CountExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error)
	CountExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error)
}
