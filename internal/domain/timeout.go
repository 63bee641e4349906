package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeoutType string

const (
	TimeoutEscrowPayment      TimeoutType = "escrow-payment"
	TimeoutEscrowResponse     TimeoutType = "escrow-response"
	TimeoutExchangePayment    TimeoutType = "exchange-payment"
	TimeoutExchangeProcessing TimeoutType = "exchange-processing"
	TimeoutRateLock           TimeoutType = "rate-lock"
	TimeoutEmailVerification  TimeoutType = "email-verification"
	TimeoutOTP                TimeoutType = "otp"
	TimeoutCashoutProcessing  TimeoutType = "cashout-processing"
	TimeoutWebhookRetry       TimeoutType = "webhook-retry"
)

type TimeoutAction string

const (
	ActionCancelOrder      TimeoutAction = "cancel-order"
	ActionRefundPayment    TimeoutAction = "refund-payment"
	ActionSendReminder     TimeoutAction = "send-reminder"
	ActionEscalateToManual TimeoutAction = "escalate-to-manual"
	ActionRetryOperation   TimeoutAction = "retry-operation"
	ActionCleanupResource  TimeoutAction = "cleanup-resource"
	ActionMarkExpired      TimeoutAction = "mark-expired"
)

// TimeoutRule is one row of the static sweep configuration: which entities
// time out, after how long, and what remediation applies.
type TimeoutRule struct {
	Type             TimeoutType
	Duration         time.Duration
	WarningThreshold time.Duration
	Action           TimeoutAction
	RetryCount       int
	EscalateAfter    time.Duration
	Enabled          bool
}

// TimeoutEvent is one stale entity found during the scan phase.
type TimeoutEvent struct {
	Type       TimeoutType
	EntityType string
	EntityID   string
	UserID     int64
	Amount     decimal.Decimal
	Currency   string
	TimedOutAt time.Time
	Context    map[string]string
}
