package usecase

import (
	"context"
	"log/slog"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
)

type TransitionUsecase interface {
	UpdateTransactionStatus(ctx context.Context, txID string, to domain.TransactionStatus, actor string, force bool) error
	UpdateEscrowStatus(ctx context.Context, escrowID string, to domain.EscrowStatus, actor string, force bool) error
	UpdateCashoutStatus(ctx context.Context, cashoutID string, to domain.CashoutStatus, actor string, force bool) error
	UpdateExchangeOrderStatus(ctx context.Context, orderID string, to domain.ExchangeOrderStatus, actor string, force bool) error
}

// DefaultTransitionUsecase applies status changes through the transition
// tables. force bypasses the table but never the audit trail: every forced
// override writes an audit_events row and logs at error level with the actor
// identity before the status moves.
type DefaultTransitionUsecase struct {
	transactions domain.TransactionRepository
	escrows      domain.EscrowRepository
	cashouts     domain.CashoutRepository
	exchanges    domain.ExchangeOrderRepository
	audit        domain.AuditRepository
	metrics      *metrics.PaymentMetrics
	log          *slog.Logger
}

func NewDefaultTransitionUsecase(
	transactions domain.TransactionRepository,
	escrows domain.EscrowRepository,
	cashouts domain.CashoutRepository,
	exchanges domain.ExchangeOrderRepository,
	audit domain.AuditRepository,
	m *metrics.PaymentMetrics,
	log *slog.Logger,
) *DefaultTransitionUsecase {
	return &DefaultTransitionUsecase{
		transactions: transactions,
		escrows:      escrows,
		cashouts:     cashouts,
		exchanges:    exchanges,
		audit:        audit,
		metrics:      m,
		log:          log,
	}
}

func (uc *DefaultTransitionUsecase) UpdateTransactionStatus(ctx context.Context, txID string, to domain.TransactionStatus, actor string, force bool) error {
	txn, err := uc.transactions.GetTransactionByID(ctx, txID)
	if err != nil {
		return err
	}
	if txn.Status == to && !force {
		return nil
	}
	if ok, reason := domain.TransactionTransitions.Validate(txn.Status, to, force); !ok {
		return domain.NewStateTransitionError("transaction", txn.Status, to, reason)
	}
	if force {
		if err := uc.recordForced(ctx, actor, "transaction", txID, string(txn.Status), string(to)); err != nil {
			return err
		}
	}
	return uc.transactions.UpdateTransactionStatus(ctx, txID, to)
}

func (uc *DefaultTransitionUsecase) UpdateEscrowStatus(ctx context.Context, escrowID string, to domain.EscrowStatus, actor string, force bool) error {
	escrow, err := uc.escrows.GetEscrowByID(ctx, escrowID)
	if err != nil {
		return err
	}
	if escrow.Status == to && !force {
		return nil
	}
	if ok, reason := domain.EscrowTransitions.Validate(escrow.Status, to, force); !ok {
		return domain.NewStateTransitionError("escrow", escrow.Status, to, reason)
	}
	if force {
		if err := uc.recordForced(ctx, actor, "escrow", escrowID, string(escrow.Status), string(to)); err != nil {
			return err
		}
	}
	return uc.escrows.UpdateEscrowStatus(ctx, escrowID, to)
}

func (uc *DefaultTransitionUsecase) UpdateCashoutStatus(ctx context.Context, cashoutID string, to domain.CashoutStatus, actor string, force bool) error {
	cashout, err := uc.cashouts.GetCashoutByID(ctx, cashoutID)
	if err != nil {
		return err
	}
	if cashout.Status == to && !force {
		return nil
	}
	if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, to, force); !ok {
		return domain.NewStateTransitionError("cashout", cashout.Status, to, reason)
	}
	if force {
		if err := uc.recordForced(ctx, actor, "cashout", cashoutID, string(cashout.Status), string(to)); err != nil {
			return err
		}
	}
	return uc.cashouts.UpdateCashoutStatus(ctx, cashoutID, to)
}

func (uc *DefaultTransitionUsecase) UpdateExchangeOrderStatus(ctx context.Context, orderID string, to domain.ExchangeOrderStatus, actor string, force bool) error {
	order, err := uc.exchanges.GetExchangeOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == to && !force {
		return nil
	}
	if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, to, force); !ok {
		return domain.NewStateTransitionError("exchange_order", order.Status, to, reason)
	}
	if force {
		if err := uc.recordForced(ctx, actor, "exchange_order", orderID, string(order.Status), string(to)); err != nil {
			return err
		}
	}
	return uc.exchanges.UpdateExchangeOrderStatus(ctx, orderID, to)
}

// recordForced writes the audit row and screams into the log before the
// override lands. If the audit write fails the override does not happen.
func (uc *DefaultTransitionUsecase) recordForced(ctx context.Context, actor, entityType, entityID, from, to string) error {
	uc.log.Error("forced status transition",
		"actor", actor,
		"entity_type", entityType,
		"entity_id", entityID,
		"from", from,
		"to", to)
	uc.metrics.RecordForcedTransition(entityType)
	return uc.audit.CreateAuditEvent(ctx, &domain.AuditEvent{
		Actor:      actor,
		Action:     "forced_status_transition",
		EntityType: entityType,
		EntityID:   entityID,
		OldStatus:  from,
		NewStatus:  to,
		Forced:     true,
	})
}
