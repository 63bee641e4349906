package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

// errDryRun aborts a recovery transaction after the settlement ran, so the
// operator sees exactly what a real run would write without committing it.
var errDryRun = errors.New("dry run rollback")

// RecoverySummary reports a bulk recovery pass.
type RecoverySummary struct {
	Total     int
	Recovered int
	Failed    int
	DryRun    bool
}

type RecoveryUsecase interface {
	ListOrphanedEscrows(ctx context.Context) ([]*domain.Escrow, error)
	RecoverEscrow(ctx context.Context, escrowID string, dryRun bool) (*SettlementResult, error)
	RecoverAll(ctx context.Context, dryRun bool) (*RecoverySummary, error)
}

// DefaultRecoveryUsecase repairs escrows whose settlement never finished:
// payment confirmed, but no custody row and no deposit on the ledger. It
// replays the regular settlement with received == the recorded expected
// total, so a recovered escrow is indistinguishable from one settled by the
// webhook pipeline. Escrows that turn out to be settled after all come back
// AlreadySettled and nothing is written.
type DefaultRecoveryUsecase struct {
	escrows    domain.EscrowRepository
	store      domain.SettlementStore
	settlement SettlementUsecase
	log        *slog.Logger
}

func NewDefaultRecoveryUsecase(
	escrows domain.EscrowRepository,
	store domain.SettlementStore,
	settlement SettlementUsecase,
	log *slog.Logger,
) *DefaultRecoveryUsecase {
	return &DefaultRecoveryUsecase{
		escrows:    escrows,
		store:      store,
		settlement: settlement,
		log:        log,
	}
}

func (uc *DefaultRecoveryUsecase) ListOrphanedEscrows(ctx context.Context) ([]*domain.Escrow, error) {
	return uc.escrows.FindOrphanedEscrows(ctx)
}

// RecoverEscrow replays settlement for one escrow. With dryRun the full
// settlement executes and is then rolled back, so validation and the money
// split are real but no row survives.
func (uc *DefaultRecoveryUsecase) RecoverEscrow(ctx context.Context, escrowID string, dryRun bool) (*SettlementResult, error) {
	escrow, err := uc.escrows.GetEscrowByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	// Only escrows that actually reached payment_confirmed are recoverable.
	// Replaying settlement for an unpaid escrow would invent money.
	if escrow.Status != domain.EscrowPaymentConfirmed && !escrow.PastPaymentConfirmed() {
		return nil, fmt.Errorf("escrow %s is %s, nothing to recover", escrow.ID, escrow.Status)
	}

	in := SettlementInput{
		EscrowID:       escrow.ID,
		ReceivedAmount: escrow.ExpectedTotal,
		ExpectedAmount: escrow.ExpectedTotal,
		CryptoAmount:   escrow.CryptoAmount,
		CryptoCurrency: escrow.CryptoCurrency,
		TxHash:         escrow.TxHash,
	}

	var result *SettlementResult
	err = uc.store.WithinTx(ctx, func(txStore domain.SettlementStore) error {
		r, err := uc.settlement.SettleInTx(ctx, txStore, in)
		if err != nil {
			return err
		}
		result = r
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	uc.log.Info("escrow recovery replayed",
		"escrow_id", escrow.ID,
		"trade_ref", escrow.TradeRef,
		"already_settled", result.AlreadySettled,
		"escrow_held", result.EscrowHeld,
		"platform_fee", result.PlatformFee,
		"dry_run", dryRun)
	return result, nil
}

// RecoverAll runs RecoverEscrow over every orphan. Per-escrow failures are
// logged and counted; they never stop the pass.
func (uc *DefaultRecoveryUsecase) RecoverAll(ctx context.Context, dryRun bool) (*RecoverySummary, error) {
	orphans, err := uc.escrows.FindOrphanedEscrows(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RecoverySummary{Total: len(orphans), DryRun: dryRun}
	for _, escrow := range orphans {
		if _, err := uc.RecoverEscrow(ctx, escrow.ID, dryRun); err != nil {
			summary.Failed++
			uc.log.Error("escrow recovery failed",
				"escrow_id", escrow.ID, "trade_ref", escrow.TradeRef, "error", err)
			continue
		}
		summary.Recovered++
	}

	uc.log.Info("escrow recovery pass finished",
		"total", summary.Total,
		"recovered", summary.Recovered,
		"failed", summary.Failed,
		"dry_run", dryRun)
	return summary, nil
}
