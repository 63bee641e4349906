package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type WalletUsecase interface {
	GetBalance(ctx context.Context, userID int64, currency string) (*domain.Wallet, error)
	GetWallets(ctx context.Context, userID int64) ([]*domain.Wallet, error)
	Freeze(ctx context.Context, userID int64, currency string, amount decimal.Decimal) error
	Unfreeze(ctx context.Context, userID int64, currency string, amount decimal.Decimal) error
	ManualAdjustment(ctx context.Context, userID int64, currency string, amount decimal.Decimal, actor, reason string) error
}

// DefaultWalletUsecase owns the available/frozen pair. Freeze moves value
// between the two columns without a ledger row; only value entering or
// leaving the platform writes transactions.
type DefaultWalletUsecase struct {
	wallets domain.WalletRepository
	store   domain.SettlementStore
	log     *slog.Logger
}

func NewDefaultWalletUsecase(wallets domain.WalletRepository, store domain.SettlementStore, log *slog.Logger) *DefaultWalletUsecase {
	return &DefaultWalletUsecase{wallets: wallets, store: store, log: log}
}

func (uc *DefaultWalletUsecase) GetBalance(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	return uc.wallets.GetWallet(ctx, userID, currency)
}

func (uc *DefaultWalletUsecase) GetWallets(ctx context.Context, userID int64) ([]*domain.Wallet, error) {
	return uc.wallets.GetWalletsByUserID(ctx, userID)
}

// Freeze moves amount from available to frozen, failing when available is
// short. Used when a cashout or exchange order reserves funds.
func (uc *DefaultWalletUsecase) Freeze(ctx context.Context, userID int64, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("freeze amount must be positive, got %s", amount.String())
	}
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		wallet, err := store.GetWalletForUpdate(ctx, userID, currency)
		if err != nil {
			return err
		}
		if wallet.AvailableBalance.LessThan(amount) {
			return fmt.Errorf("%w: available %s, need %s",
				domain.ErrInsufficientBalance, wallet.AvailableBalance.String(), amount.String())
		}
		wallet.AvailableBalance = wallet.AvailableBalance.Sub(amount)
		wallet.FrozenBalance = wallet.FrozenBalance.Add(amount)
		return store.SaveWallet(ctx, wallet)
	})
}

func (uc *DefaultWalletUsecase) Unfreeze(ctx context.Context, userID int64, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("unfreeze amount must be positive, got %s", amount.String())
	}
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		wallet, err := store.GetWalletForUpdate(ctx, userID, currency)
		if err != nil {
			return err
		}
		if wallet.FrozenBalance.LessThan(amount) {
			return fmt.Errorf("%w: frozen %s, need %s",
				domain.ErrInsufficientFrozen, wallet.FrozenBalance.String(), amount.String())
		}
		wallet.FrozenBalance = wallet.FrozenBalance.Sub(amount)
		wallet.AvailableBalance = wallet.AvailableBalance.Add(amount)
		return store.SaveWallet(ctx, wallet)
	})
}

// ManualAdjustment credits (positive) or debits (negative) available balance
// with a ledger row and an audit event naming the admin.
func (uc *DefaultWalletUsecase) ManualAdjustment(ctx context.Context, userID int64, currency string, amount decimal.Decimal, actor, reason string) error {
	if amount.IsZero() {
		return fmt.Errorf("adjustment amount must not be zero")
	}
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		wallet, err := store.GetWalletForUpdate(ctx, userID, currency)
		if err != nil {
			return err
		}
		next := wallet.AvailableBalance.Add(amount)
		if next.IsNegative() {
			return fmt.Errorf("%w: available %s, adjustment %s",
				domain.ErrInsufficientBalance, wallet.AvailableBalance.String(), amount.String())
		}
		wallet.AvailableBalance = next
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}

		if err := store.CreateTransaction(ctx, &domain.Transaction{
			UserID:    userID,
			Type:      domain.TransactionAdjustment,
			Amount:    amount.Abs(),
			Currency:  currency,
			Status:    domain.TransactionConfirmed,
			Reference: fmt.Sprintf("ADJUST-%d", userID),
			MetadataJSON: fmt.Sprintf(`{"direction":%q,"actor":%q}`,
				adjustmentDirection(amount), actor),
		}); err != nil {
			return err
		}

		if err := store.CreateAuditEvent(ctx, &domain.AuditEvent{
			Actor:      actor,
			Action:     "manual_adjustment",
			EntityType: "wallet",
			EntityID:   wallet.ID,
			Detail:     fmt.Sprintf("adjusted %s %s for user %d: %s", amount.String(), currency, userID, reason),
		}); err != nil {
			return err
		}

		uc.log.Info("manual wallet adjustment",
			"user_id", userID, "currency", currency, "amount", amount.String(), "actor", actor)
		return nil
	})
}

func adjustmentDirection(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "debit"
	}
	return "credit"
}
