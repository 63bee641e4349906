package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// rateLockWindow is how long a quoted rate stays honored.
const rateLockWindow = 15 * time.Minute

type CreateQuoteInput struct {
	UserID       int64
	FromCurrency string
	ToCurrency   string
	FromAmount   decimal.Decimal
	Rate         decimal.Decimal
	Provider     string
}

type ExchangeUsecase interface {
	CreateQuote(ctx context.Context, in CreateQuoteInput) (*domain.ExchangeOrder, error)
	InitiateOrder(ctx context.Context, orderID string) error
	PayOrder(ctx context.Context, orderID string) error
	StartProcessing(ctx context.Context, orderID string) error
	CompleteOrder(ctx context.Context, orderID string) error
	CancelOrder(ctx context.Context, orderID, actor, reason string) error
	MarkExpired(ctx context.Context, orderID string) error
}

// DefaultExchangeUsecase drives single-party currency conversions funded
// from the user's wallet. Quotes expire; paid orders that stall are refunded
// by the sweeper through CancelOrder.
type DefaultExchangeUsecase struct {
	exchanges domain.ExchangeOrderRepository
	store     domain.SettlementStore
	log       *slog.Logger
}

func NewDefaultExchangeUsecase(exchanges domain.ExchangeOrderRepository, store domain.SettlementStore, log *slog.Logger) *DefaultExchangeUsecase {
	return &DefaultExchangeUsecase{exchanges: exchanges, store: store, log: log}
}

func (uc *DefaultExchangeUsecase) CreateQuote(ctx context.Context, in CreateQuoteInput) (*domain.ExchangeOrder, error) {
	if !in.FromAmount.IsPositive() {
		return nil, fmt.Errorf("exchange amount must be positive, got %s", in.FromAmount.String())
	}
	if !in.Rate.IsPositive() {
		return nil, fmt.Errorf("exchange rate must be positive, got %s", in.Rate.String())
	}

	order := &domain.ExchangeOrder{
		UserID:          in.UserID,
		FromCurrency:    in.FromCurrency,
		ToCurrency:      in.ToCurrency,
		FromAmount:      in.FromAmount,
		ToAmount:        in.FromAmount.Mul(in.Rate),
		Rate:            in.Rate,
		RateLockedUntil: time.Now().Add(rateLockWindow),
		Status:          domain.ExchangeQuoted,
		Provider:        in.Provider,
	}
	if err := uc.exchanges.CreateExchangeOrder(ctx, order); err != nil {
		return nil, err
	}
	uc.log.Info("exchange quote created",
		"order_id", order.ID,
		"user_id", in.UserID,
		"pair", in.FromCurrency+"/"+in.ToCurrency,
		"rate", in.Rate.String())
	return order, nil
}

func (uc *DefaultExchangeUsecase) InitiateOrder(ctx context.Context, orderID string) error {
	order, err := uc.exchanges.GetExchangeOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if time.Now().After(order.RateLockedUntil) {
		return fmt.Errorf("rate lock expired for order %s", orderID)
	}
	if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangePendingPayment, false); !ok {
		return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangePendingPayment, reason)
	}
	return uc.exchanges.UpdateExchangeOrderStatus(ctx, orderID, domain.ExchangePendingPayment)
}

// PayOrder debits the from-amount from the user's available balance and
// marks the order paid, atomically.
func (uc *DefaultExchangeUsecase) PayOrder(ctx context.Context, orderID string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		order, err := store.GetExchangeOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if time.Now().After(order.RateLockedUntil) {
			return fmt.Errorf("rate lock expired for order %s", orderID)
		}
		if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangePaid, false); !ok {
			return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangePaid, reason)
		}

		wallet, err := store.GetWalletForUpdate(ctx, order.UserID, order.FromCurrency)
		if err != nil {
			return err
		}
		if wallet.AvailableBalance.LessThan(order.FromAmount) {
			return fmt.Errorf("%w: available %s, need %s",
				domain.ErrInsufficientBalance, wallet.AvailableBalance.String(), order.FromAmount.String())
		}
		wallet.AvailableBalance = wallet.AvailableBalance.Sub(order.FromAmount)
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}

		if err := store.CreateTransaction(ctx, &domain.Transaction{
			UserID:          order.UserID,
			Type:            domain.TransactionExchangeDebit,
			Amount:          order.FromAmount,
			Currency:        order.FromCurrency,
			Status:          domain.TransactionConfirmed,
			ExchangeOrderID: &order.ID,
			Reference:       fmt.Sprintf("EXCHANGE-%s", order.ID),
		}); err != nil {
			return err
		}

		now := time.Now()
		order.Status = domain.ExchangePaid
		order.PaidAt = &now
		if err := store.SaveExchangeOrder(ctx, order); err != nil {
			return err
		}
		uc.log.Info("exchange order paid",
			"order_id", orderID, "user_id", order.UserID, "amount", order.FromAmount.String())
		return nil
	})
}

func (uc *DefaultExchangeUsecase) StartProcessing(ctx context.Context, orderID string) error {
	order, err := uc.exchanges.GetExchangeOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangeProcessing, false); !ok {
		return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangeProcessing, reason)
	}
	return uc.exchanges.UpdateExchangeOrderStatus(ctx, orderID, domain.ExchangeProcessing)
}

// CompleteOrder credits the converted amount to the user's to-currency
// wallet and closes the order.
func (uc *DefaultExchangeUsecase) CompleteOrder(ctx context.Context, orderID string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		order, err := store.GetExchangeOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangeCompleted, false); !ok {
			return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangeCompleted, reason)
		}

		wallet, err := store.GetWalletForUpdate(ctx, order.UserID, order.ToCurrency)
		if err != nil {
			return err
		}
		wallet.AvailableBalance = wallet.AvailableBalance.Add(order.ToAmount)
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}

		if err := store.CreateTransaction(ctx, &domain.Transaction{
			UserID:          order.UserID,
			Type:            domain.TransactionExchangeCredit,
			Amount:          order.ToAmount,
			Currency:        order.ToCurrency,
			Status:          domain.TransactionConfirmed,
			ExchangeOrderID: &order.ID,
			Reference:       fmt.Sprintf("EXCHANGE-%s", order.ID),
		}); err != nil {
			return err
		}

		now := time.Now()
		order.Status = domain.ExchangeCompleted
		order.CompletedAt = &now
		if err := store.SaveExchangeOrder(ctx, order); err != nil {
			return err
		}
		uc.log.Info("exchange order completed",
			"order_id", orderID, "user_id", order.UserID, "credited", order.ToAmount.String())
		return nil
	})
}

// CancelOrder closes an order that will not complete. Paid orders get their
// from-amount back; never-paid orders just flip status. The distinction is
// the same financial-safety rule the escrow sweep follows.
func (uc *DefaultExchangeUsecase) CancelOrder(ctx context.Context, orderID, actor, reason string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		order, err := store.GetExchangeOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ok, why := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangeCancelled, false); !ok {
			return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangeCancelled, why)
		}

		if order.Paid() {
			wallet, err := store.GetWalletForUpdate(ctx, order.UserID, order.FromCurrency)
			if err != nil {
				return err
			}
			wallet.AvailableBalance = wallet.AvailableBalance.Add(order.FromAmount)
			if err := store.SaveWallet(ctx, wallet); err != nil {
				return err
			}
			if err := store.CreateTransaction(ctx, &domain.Transaction{
				UserID:          order.UserID,
				Type:            domain.TransactionRefund,
				Amount:          order.FromAmount,
				Currency:        order.FromCurrency,
				Status:          domain.TransactionConfirmed,
				ExchangeOrderID: &order.ID,
				Reference:       fmt.Sprintf("EXCHANGE-%s", order.ID),
			}); err != nil {
				return err
			}
			uc.log.Info("exchange order refunded on cancel",
				"order_id", orderID, "user_id", order.UserID, "amount", order.FromAmount.String())
		}

		oldStatus := order.Status
		order.Status = domain.ExchangeCancelled
		if err := store.SaveExchangeOrder(ctx, order); err != nil {
			return err
		}
		return store.CreateAuditEvent(ctx, &domain.AuditEvent{
			Actor:      actor,
			Action:     "exchange_order_cancelled",
			EntityType: "exchange_order",
			EntityID:   orderID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(domain.ExchangeCancelled),
			Detail:     reason,
		})
	})
}

// MarkExpired is the no-money expiry for abandoned quotes.
func (uc *DefaultExchangeUsecase) MarkExpired(ctx context.Context, orderID string) error {
	order, err := uc.exchanges.GetExchangeOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if ok, reason := domain.ExchangeOrderTransitions.Validate(order.Status, domain.ExchangeExpired, false); !ok {
		return domain.NewStateTransitionError("exchange_order", order.Status, domain.ExchangeExpired, reason)
	}
	return uc.exchanges.UpdateExchangeOrderStatus(ctx, orderID, domain.ExchangeExpired)
}
