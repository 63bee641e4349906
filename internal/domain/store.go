package domain

import "context"

// SettlementStore is the transactional write surface shared by every flow
// that moves money: the fund manager, the webhook pipeline, the wallet
// ledger, cashouts, exchanges and dispute resolution. WithinTx runs fn
// against a store bound to one database transaction: fn returning nil commits,
// any error rolls the whole unit back. Code holding a bound store must never
// commit on its own; the WithinTx caller owns the commit.
type SettlementStore interface {
	WithinTx(ctx context.Context, fn func(txStore SettlementStore) error) error

	GetEscrowForUpdate(ctx context.Context, escrowID string) (*Escrow, error)
	SaveEscrow(ctx context.Context, escrow *Escrow) error

	GetLiveHolding(ctx context.Context, escrowID string) (*EscrowHolding, error)
	CreateHolding(ctx context.Context, holding *EscrowHolding) error
	ReleaseHolding(ctx context.Context, holdingID string) error

	CreateTransaction(ctx context.Context, txn *Transaction) error

	// GetWalletForUpdate takes a row-level lock on the wallet, creating a
	// zero-balance row first when the user has none for that currency.
	GetWalletForUpdate(ctx context.Context, userID int64, currency string) (*Wallet, error)
	SaveWallet(ctx context.Context, wallet *Wallet) error

	IsWebhookProcessed(ctx context.Context, provider, externalTxID string) (bool, error)
	MarkWebhookProcessed(ctx context.Context, event *ProcessedWebhookEvent) error

	CreateCashout(ctx context.Context, cashout *Cashout) error
	GetCashoutForUpdate(ctx context.Context, cashoutID string) (*Cashout, error)
	SaveCashout(ctx context.Context, cashout *Cashout) error

	GetExchangeOrderForUpdate(ctx context.Context, orderID string) (*ExchangeOrder, error)
	SaveExchangeOrder(ctx context.Context, order *ExchangeOrder) error

	CreateDispute(ctx context.Context, dispute *Dispute) error
	ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution string) error

	CreateAuditEvent(ctx context.Context, event *AuditEvent) error
}
