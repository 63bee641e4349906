package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// settlementTolerance absorbs provider rounding on the received amount.
// Anything short by more than this is an underpayment and is rejected whole.
var settlementTolerance = decimal.RequireFromString("0.01")

type SettlementInput struct {
	EscrowID       string
	ReceivedAmount decimal.Decimal
	ExpectedAmount decimal.Decimal
	CryptoAmount   decimal.Decimal
	CryptoCurrency string
	TxHash         string
}

// SettlementResult reports the money split of a successful settlement.
// HoldingID doubles as proof that the custody row exists.
type SettlementResult struct {
	Success          bool
	AlreadySettled   bool
	EscrowHeld       decimal.Decimal
	BaseAmount       decimal.Decimal
	Overpayment      decimal.Decimal
	PlatformFee      decimal.Decimal
	SegregatedAmount decimal.Decimal
	HoldingID        string
}

type SettlementUsecase interface {
	Settle(ctx context.Context, in SettlementInput) (*SettlementResult, error)
	SettleInTx(ctx context.Context, store domain.SettlementStore, in SettlementInput) (*SettlementResult, error)
	CancelEscrow(ctx context.Context, escrowID, actor, reason string) error
	RefundEscrow(ctx context.Context, escrowID, actor, reason string) error
	RefundEscrowInTx(ctx context.Context, store domain.SettlementStore, escrowID, actor, reason string) error
	ReleaseEscrow(ctx context.Context, escrowID, actor, reason string) error
	ReleaseEscrowInTx(ctx context.Context, store domain.SettlementStore, escrowID, actor, reason string) error
}

// DefaultSettlementUsecase is the fund manager: it performs the atomic
// fund-segregation step for confirmed payments and the reverse paths
// (cancel, refund) used by sweeps, disputes and admins.
type DefaultSettlementUsecase struct {
	store domain.SettlementStore
	log   *slog.Logger
}

func NewDefaultSettlementUsecase(store domain.SettlementStore, log *slog.Logger) *DefaultSettlementUsecase {
	return &DefaultSettlementUsecase{store: store, log: log}
}

// Settle opens its own transaction. Use SettleInTx when the caller already
// holds one (the webhook pipeline does, so the idempotency row and the fund
// movement commit together).
func (uc *DefaultSettlementUsecase) Settle(ctx context.Context, in SettlementInput) (*SettlementResult, error) {
	var result *SettlementResult
	err := uc.store.WithinTx(ctx, func(txStore domain.SettlementStore) error {
		r, err := uc.SettleInTx(ctx, txStore, in)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SettleInTx runs against a caller-bound store and never commits; the
// caller owns the commit. Any returned error must roll the whole unit back.
func (uc *DefaultSettlementUsecase) SettleInTx(ctx context.Context, store domain.SettlementStore, in SettlementInput) (*SettlementResult, error) {
	escrow, err := store.GetEscrowForUpdate(ctx, in.EscrowID)
	if err != nil {
		return nil, err
	}

	// A live holding means a prior delivery already settled this escrow.
	existing, err := store.GetLiveHolding(ctx, in.EscrowID)
	if err != nil && !errors.Is(err, domain.ErrHoldingNotFound) {
		return nil, err
	}
	if existing != nil {
		uc.log.Warn("settlement skipped: escrow already holds funds",
			"escrow_id", escrow.ID, "holding_id", existing.ID)
		return &SettlementResult{
			Success:        true,
			AlreadySettled: true,
			EscrowHeld:     existing.Amount,
			BaseAmount:     existing.Amount,
			HoldingID:      existing.ID,
		}, nil
	}

	expected := in.ExpectedAmount
	if expected.IsZero() {
		expected = escrow.ExpectedTotal
	}
	received := in.ReceivedAmount

	if received.LessThan(expected.Sub(settlementTolerance)) {
		return nil, fmt.Errorf("%w: received %s, expected %s for escrow %s",
			domain.ErrUnderpayment, received.String(), expected.String(), escrow.ID)
	}

	base := escrow.Amount
	fee := expected.Sub(base)
	if fee.IsNegative() {
		fee = decimal.Zero
	}
	overpayment := decimal.Zero
	if received.GreaterThan(expected.Add(settlementTolerance)) {
		overpayment = received.Sub(expected)
	}

	// Escrows already past payment_confirmed (recovery replays, late webhook
	// after an admin advanced the trade) keep their status: the replay only
	// recreates the missing custody rows. Everything else must pass the table,
	// which keeps cancelled and refunded escrows from being resurrected.
	if !escrow.PastPaymentConfirmed() {
		if ok, reason := domain.EscrowTransitions.Validate(escrow.Status, domain.EscrowPaymentConfirmed, false); !ok {
			return nil, domain.NewStateTransitionError("escrow", escrow.Status, domain.EscrowPaymentConfirmed, reason)
		}
	}

	now := time.Now()

	holding := &domain.EscrowHolding{
		EscrowID:  escrow.ID,
		Amount:    base,
		Currency:  escrow.Currency,
		Status:    domain.HoldingHeld,
		CreatedAt: now,
	}
	if err := store.CreateHolding(ctx, holding); err != nil {
		return nil, fmt.Errorf("create holding for escrow %s: %w", escrow.ID, err)
	}

	metadata, _ := json.Marshal(map[string]string{
		"tx_hash":         in.TxHash,
		"crypto_amount":   in.CryptoAmount.String(),
		"crypto_currency": in.CryptoCurrency,
	})

	deposit := &domain.Transaction{
		UserID:       escrow.BuyerID,
		Type:         domain.TransactionDeposit,
		Amount:       base,
		Currency:     escrow.Currency,
		Status:       domain.TransactionConfirmed,
		EscrowID:     &escrow.ID,
		Reference:    escrow.TradeRef,
		MetadataJSON: string(metadata),
	}
	if err := store.CreateTransaction(ctx, deposit); err != nil {
		return nil, fmt.Errorf("create deposit transaction: %w", err)
	}

	if fee.IsPositive() {
		feeTxn := &domain.Transaction{
			UserID:    escrow.BuyerID,
			Type:      domain.TransactionFee,
			Amount:    fee,
			Currency:  escrow.Currency,
			Status:    domain.TransactionConfirmed,
			EscrowID:  &escrow.ID,
			Reference: escrow.TradeRef,
		}
		if err := store.CreateTransaction(ctx, feeTxn); err != nil {
			return nil, fmt.Errorf("create fee transaction: %w", err)
		}
	}

	if overpayment.IsPositive() {
		wallet, err := store.GetWalletForUpdate(ctx, escrow.BuyerID, escrow.Currency)
		if err != nil {
			return nil, fmt.Errorf("lock wallet for overpayment credit: %w", err)
		}
		wallet.AvailableBalance = wallet.AvailableBalance.Add(overpayment)
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("credit overpayment: %w", err)
		}
		overTxn := &domain.Transaction{
			UserID:    escrow.BuyerID,
			Type:      domain.TransactionOverpaymentCredit,
			Amount:    overpayment,
			Currency:  escrow.Currency,
			Status:    domain.TransactionConfirmed,
			EscrowID:  &escrow.ID,
			Reference: escrow.TradeRef,
		}
		if err := store.CreateTransaction(ctx, overTxn); err != nil {
			return nil, fmt.Errorf("create overpayment transaction: %w", err)
		}
	}

	if !escrow.PastPaymentConfirmed() {
		escrow.Status = domain.EscrowPaymentConfirmed
	}
	if escrow.PaymentConfirmedAt == nil {
		escrow.PaymentConfirmedAt = &now
	}
	escrow.CryptoAmount = in.CryptoAmount
	escrow.CryptoCurrency = in.CryptoCurrency
	escrow.TxHash = in.TxHash
	if err := store.SaveEscrow(ctx, escrow); err != nil {
		return nil, fmt.Errorf("save escrow %s: %w", escrow.ID, err)
	}

	uc.log.Info("escrow settled",
		"escrow_id", escrow.ID,
		"base_amount", base.String(),
		"platform_fee", fee.String(),
		"overpayment", overpayment.String(),
		"holding_id", holding.ID)

	return &SettlementResult{
		Success:          true,
		EscrowHeld:       base,
		BaseAmount:       base,
		Overpayment:      overpayment,
		PlatformFee:      fee,
		SegregatedAmount: base.Add(fee),
		HoldingID:        holding.ID,
	}, nil
}

// CancelEscrow closes an escrow that was never funded. It refuses to run
// when a live holding exists; that case must go through RefundEscrow.
func (uc *DefaultSettlementUsecase) CancelEscrow(ctx context.Context, escrowID, actor, reason string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		escrow, err := store.GetEscrowForUpdate(ctx, escrowID)
		if err != nil {
			return err
		}

		if _, err := store.GetLiveHolding(ctx, escrowID); err == nil {
			return fmt.Errorf("escrow %s holds funds, cancel refused: use refund", escrowID)
		} else if !errors.Is(err, domain.ErrHoldingNotFound) {
			return err
		}

		if ok, why := domain.EscrowTransitions.Validate(escrow.Status, domain.EscrowCancelled, false); !ok {
			return domain.NewStateTransitionError("escrow", escrow.Status, domain.EscrowCancelled, why)
		}

		now := time.Now()
		oldStatus := escrow.Status
		escrow.Status = domain.EscrowCancelled
		escrow.CancelledAt = &now
		if err := store.SaveEscrow(ctx, escrow); err != nil {
			return err
		}

		if err := store.CreateAuditEvent(ctx, &domain.AuditEvent{
			Actor:      actor,
			Action:     "escrow_cancelled",
			EntityType: "escrow",
			EntityID:   escrow.ID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(domain.EscrowCancelled),
			Detail:     reason,
		}); err != nil {
			return err
		}

		uc.log.Info("escrow cancelled", "escrow_id", escrow.ID, "actor", actor, "reason", reason)
		return nil
	})
}

// RefundEscrow releases the holding and returns the base amount to the
// buyer's available balance. This is the paid-but-stuck path; calling it on
// an unfunded escrow fails.
func (uc *DefaultSettlementUsecase) RefundEscrow(ctx context.Context, escrowID, actor, reason string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		return uc.RefundEscrowInTx(ctx, store, escrowID, actor, reason)
	})
}

// RefundEscrowInTx is the caller-owns-commit variant used by dispute
// resolution, which flips the dispute row in the same transaction.
func (uc *DefaultSettlementUsecase) RefundEscrowInTx(ctx context.Context, store domain.SettlementStore, escrowID, actor, reason string) error {
	escrow, err := store.GetEscrowForUpdate(ctx, escrowID)
	if err != nil {
		return err
	}

	holding, err := store.GetLiveHolding(ctx, escrowID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return fmt.Errorf("escrow %s has no live holding, nothing to refund", escrowID)
		}
		return err
	}

	if ok, why := domain.EscrowTransitions.Validate(escrow.Status, domain.EscrowRefunded, false); !ok {
		return domain.NewStateTransitionError("escrow", escrow.Status, domain.EscrowRefunded, why)
	}

	if err := store.ReleaseHolding(ctx, holding.ID); err != nil {
		return err
	}

	wallet, err := store.GetWalletForUpdate(ctx, escrow.BuyerID, escrow.Currency)
	if err != nil {
		return err
	}
	wallet.AvailableBalance = wallet.AvailableBalance.Add(holding.Amount)
	if err := store.SaveWallet(ctx, wallet); err != nil {
		return err
	}

	refund := &domain.Transaction{
		UserID:    escrow.BuyerID,
		Type:      domain.TransactionRefund,
		Amount:    holding.Amount,
		Currency:  holding.Currency,
		Status:    domain.TransactionConfirmed,
		EscrowID:  &escrow.ID,
		Reference: escrow.TradeRef,
	}
	if err := store.CreateTransaction(ctx, refund); err != nil {
		return err
	}

	oldStatus := escrow.Status
	escrow.Status = domain.EscrowRefunded
	if err := store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	if err := store.CreateAuditEvent(ctx, &domain.AuditEvent{
		Actor:      actor,
		Action:     "escrow_refunded",
		EntityType: "escrow",
		EntityID:   escrow.ID,
		OldStatus:  string(oldStatus),
		NewStatus:  string(domain.EscrowRefunded),
		Detail:     fmt.Sprintf("refunded %s %s to buyer %d: %s", holding.Amount.String(), holding.Currency, escrow.BuyerID, reason),
	}); err != nil {
		return err
	}

	uc.log.Info("escrow refunded",
		"escrow_id", escrow.ID,
		"amount", holding.Amount.String(),
		"buyer_id", escrow.BuyerID,
		"actor", actor,
		"reason", reason)
	return nil
}

// ReleaseEscrow completes the trade: the holding is released and the base
// amount lands in the seller's available balance.
func (uc *DefaultSettlementUsecase) ReleaseEscrow(ctx context.Context, escrowID, actor, reason string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		return uc.ReleaseEscrowInTx(ctx, store, escrowID, actor, reason)
	})
}

func (uc *DefaultSettlementUsecase) ReleaseEscrowInTx(ctx context.Context, store domain.SettlementStore, escrowID, actor, reason string) error {
	escrow, err := store.GetEscrowForUpdate(ctx, escrowID)
	if err != nil {
		return err
	}
	if escrow.SellerID == nil {
		return fmt.Errorf("escrow %s has no seller, cannot release", escrowID)
	}

	holding, err := store.GetLiveHolding(ctx, escrowID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return fmt.Errorf("escrow %s has no live holding, nothing to release", escrowID)
		}
		return err
	}

	if ok, why := domain.EscrowTransitions.Validate(escrow.Status, domain.EscrowCompleted, false); !ok {
		return domain.NewStateTransitionError("escrow", escrow.Status, domain.EscrowCompleted, why)
	}

	if err := store.ReleaseHolding(ctx, holding.ID); err != nil {
		return err
	}

	wallet, err := store.GetWalletForUpdate(ctx, *escrow.SellerID, escrow.Currency)
	if err != nil {
		return err
	}
	wallet.AvailableBalance = wallet.AvailableBalance.Add(holding.Amount)
	if err := store.SaveWallet(ctx, wallet); err != nil {
		return err
	}

	release := &domain.Transaction{
		UserID:    *escrow.SellerID,
		Type:      domain.TransactionEscrowRelease,
		Amount:    holding.Amount,
		Currency:  holding.Currency,
		Status:    domain.TransactionConfirmed,
		EscrowID:  &escrow.ID,
		Reference: escrow.TradeRef,
	}
	if err := store.CreateTransaction(ctx, release); err != nil {
		return err
	}

	now := time.Now()
	oldStatus := escrow.Status
	escrow.Status = domain.EscrowCompleted
	escrow.CompletedAt = &now
	if err := store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	if err := store.CreateAuditEvent(ctx, &domain.AuditEvent{
		Actor:      actor,
		Action:     "escrow_released",
		EntityType: "escrow",
		EntityID:   escrow.ID,
		OldStatus:  string(oldStatus),
		NewStatus:  string(domain.EscrowCompleted),
		Detail:     fmt.Sprintf("released %s %s to seller %d: %s", holding.Amount.String(), holding.Currency, *escrow.SellerID, reason),
	}); err != nil {
		return err
	}

	uc.log.Info("escrow released",
		"escrow_id", escrow.ID,
		"amount", holding.Amount.String(),
		"seller_id", *escrow.SellerID,
		"actor", actor)
	return nil
}
