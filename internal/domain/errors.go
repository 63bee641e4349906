package domain

import "errors"

var (
	ErrEscrowNotFound        = errors.New("escrow not found")
	ErrHoldingNotFound       = errors.New("holding not found")
	ErrHoldingExists         = errors.New("escrow already has a live holding")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrCashoutNotFound       = errors.New("cashout not found")
	ErrExchangeOrderNotFound = errors.New("exchange order not found")
	ErrDisputeNotFound       = errors.New("dispute not found")
	ErrDeliveryNotFound      = errors.New("webhook delivery not found")
	ErrOTPNotFound           = errors.New("no live otp code")
	ErrOTPMismatch           = errors.New("otp code does not match")

	ErrUnderpayment        = errors.New("underpayment: received amount below expected total")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrInsufficientFrozen  = errors.New("insufficient frozen balance")

	ErrDuplicateWebhookEvent = errors.New("webhook event already processed")
	ErrMalformedPayload      = errors.New("malformed webhook payload")
	ErrMalformedReference    = errors.New("malformed payment reference")
	ErrUnknownProvider       = errors.New("unknown payment provider")
	ErrInvalidSignature      = errors.New("invalid webhook signature")

	ErrLockHeld        = errors.New("payment lock already held")
	ErrLockUnavailable = errors.New("payment lock backend unavailable")
	ErrLockNotOwned    = errors.New("payment lock not owned by this lease")
)
