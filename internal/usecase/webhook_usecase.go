package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/kafka"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/providers"
)

const (
	WebhookStatusSuccess  = "success"
	WebhookStatusReceived = "received"
)

// WebhookOutcome is what a webhook sender gets back on HTTP 200. Anything
// not yet actionable (unconfirmed, in-flight elsewhere, already processed)
// is still a 200 so the provider does not keep retrying.
type WebhookOutcome struct {
	Status     string
	Message    string
	Settlement *SettlementResult
}

type ProcessWebhookInput struct {
	Provider  string
	RawBody   []byte
	Query     url.Values
	Signature string

	// ReferenceID is the reference embedded in the webhook URL path. It is
	// only a fallback: a reference inside the provider payload wins.
	ReferenceID string
}

type PaymentEventPublisher interface {
	PublishPayment(event kafka.PaymentEvent) error
}

type CallbackEnqueuer interface {
	Enqueue(ctx context.Context, url, eventType string, payload any) error
}

type WebhookUsecase interface {
	ProcessWebhook(ctx context.Context, in ProcessWebhookInput) (*WebhookOutcome, error)
}

// DefaultWebhookUsecase runs the full inbound pipeline: signature check,
// normalization, user resolution, payment lock, idempotency, settlement,
// and post-commit fan-out.
type DefaultWebhookUsecase struct {
	registry   *providers.Registry
	locker     domain.PaymentLocker
	store      domain.SettlementStore
	escrows    domain.EscrowRepository
	settlement SettlementUsecase
	publisher  PaymentEventPublisher
	callbacks  CallbackEnqueuer
	metrics    *metrics.PaymentMetrics
	log        *slog.Logger
}

func NewDefaultWebhookUsecase(
	registry *providers.Registry,
	locker domain.PaymentLocker,
	store domain.SettlementStore,
	escrows domain.EscrowRepository,
	settlement SettlementUsecase,
	publisher PaymentEventPublisher,
	callbacks CallbackEnqueuer,
	m *metrics.PaymentMetrics,
	log *slog.Logger,
) *DefaultWebhookUsecase {
	return &DefaultWebhookUsecase{
		registry:   registry,
		locker:     locker,
		store:      store,
		escrows:    escrows,
		settlement: settlement,
		publisher:  publisher,
		callbacks:  callbacks,
		metrics:    m,
		log:        log,
	}
}

func (uc *DefaultWebhookUsecase) ProcessWebhook(ctx context.Context, in ProcessWebhookInput) (*WebhookOutcome, error) {
	start := time.Now()
	uc.metrics.RecordWebhookReceived(in.Provider)

	outcome, err := uc.process(ctx, in)

	label := "error"
	if err == nil && outcome != nil {
		label = outcome.Status
	}
	uc.metrics.RecordWebhookDuration(in.Provider, label, time.Since(start).Seconds())
	return outcome, err
}

func (uc *DefaultWebhookUsecase) process(ctx context.Context, in ProcessWebhookInput) (*WebhookOutcome, error) {
	provider, secret, err := uc.registry.Lookup(in.Provider)
	if err != nil {
		uc.metrics.RecordWebhookRejected(in.Provider, "unknown_provider")
		return nil, err
	}

	if !providers.VerifySignature(secret, in.RawBody, in.Signature) {
		uc.metrics.RecordWebhookRejected(in.Provider, "bad_signature")
		uc.log.Warn("webhook signature rejected", "provider", in.Provider)
		return nil, domain.ErrInvalidSignature
	}

	record, err := provider.Normalize(in.RawBody, in.Query)
	if err != nil {
		uc.metrics.RecordWebhookRejected(in.Provider, "malformed_payload")
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if record.ReferenceID == "" {
		record.ReferenceID = in.ReferenceID
	}

	kind, userID, refErr := domain.ParsePaymentReference(record.ReferenceID)
	if refErr != nil {
		if record.UserID <= 0 {
			uc.metrics.RecordWebhookRejected(in.Provider, "bad_reference")
			return nil, refErr
		}
		// Reference is opaque but the provider metadata names the user; the
		// payment can only be treated as a wallet top-up.
		kind, userID = domain.ReferenceWallet, record.UserID
	}
	record.UserID = userID

	if !record.Confirmed {
		uc.log.Info("webhook deferred: payment not confirmed",
			"provider", record.Provider, "external_txid", record.ExternalTxID)
		return &WebhookOutcome{Status: WebhookStatusReceived, Message: "payment not confirmed yet"}, nil
	}

	var escrow *domain.Escrow
	if kind == domain.ReferenceEscrow {
		escrow, err = uc.escrows.GetEscrowByTradeRef(ctx, record.ReferenceID)
		if err != nil {
			if errors.Is(err, domain.ErrEscrowNotFound) {
				uc.metrics.RecordWebhookRejected(in.Provider, "bad_reference")
				return nil, fmt.Errorf("%w: no escrow for reference %q", domain.ErrMalformedReference, record.ReferenceID)
			}
			return nil, err
		}
		if escrow.BuyerID != userID {
			uc.metrics.RecordWebhookRejected(in.Provider, "bad_reference")
			return nil, fmt.Errorf("%w: reference user %d does not match escrow buyer %d",
				domain.ErrMalformedReference, userID, escrow.BuyerID)
		}
	}

	lease, err := uc.locker.Acquire(ctx, record.Provider, record.ExternalTxID)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			uc.metrics.RecordLockContention(in.Provider)
			uc.log.Info("webhook already in flight",
				"provider", record.Provider, "external_txid", record.ExternalTxID)
			return &WebhookOutcome{Status: WebhookStatusReceived, Message: "payment is already being processed"}, nil
		}
		// Lock backend down: fail closed, let the provider retry.
		uc.metrics.RecordLockFailure(in.Provider)
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			uc.log.Warn("payment lock release failed",
				"provider", record.Provider, "external_txid", record.ExternalTxID, "err", err)
		}
	}()

	var (
		result    *SettlementResult
		duplicate bool
	)
	err = uc.store.WithinTx(ctx, func(txStore domain.SettlementStore) error {
		processed, err := txStore.IsWebhookProcessed(ctx, record.Provider, record.ExternalTxID)
		if err != nil {
			return err
		}
		if processed {
			duplicate = true
			return nil
		}

		if err := txStore.MarkWebhookProcessed(ctx, &domain.ProcessedWebhookEvent{
			Provider:     record.Provider,
			ExternalTxID: record.ExternalTxID,
			ReferenceID:  record.ReferenceID,
			Amount:       record.Amount,
			Currency:     record.Currency,
		}); err != nil {
			return err
		}

		if kind == domain.ReferenceEscrow {
			result, err = uc.settlement.SettleInTx(ctx, txStore, SettlementInput{
				EscrowID:       escrow.ID,
				ReceivedAmount: record.Amount,
				CryptoAmount:   record.Amount,
				CryptoCurrency: record.Currency,
				TxHash:         record.ExternalTxID,
			})
			return err
		}
		return uc.creditWallet(ctx, txStore, record)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateWebhookEvent) {
			duplicate = true
		} else if errors.Is(err, domain.ErrUnderpayment) {
			uc.metrics.RecordUnderpayment(in.Provider)
			uc.metrics.RecordSettlement(in.Provider, "underpayment", record.Currency, 0, 0, 0)
			return nil, err
		} else {
			uc.metrics.RecordSettlement(in.Provider, "error", record.Currency, 0, 0, 0)
			return nil, err
		}
	}

	if duplicate {
		uc.metrics.RecordWebhookDuplicate(in.Provider)
		uc.log.Info("webhook duplicate dropped",
			"provider", record.Provider, "external_txid", record.ExternalTxID)
		return &WebhookOutcome{Status: WebhookStatusSuccess, Message: "event already processed"}, nil
	}

	if kind == domain.ReferenceWallet {
		uc.log.Info("wallet top-up credited",
			"provider", record.Provider, "user_id", record.UserID, "amount", record.Amount.String())
		uc.publishPaymentEvent(record, "", "wallet_credited", nil)
		return &WebhookOutcome{Status: WebhookStatusSuccess, Message: "wallet credited"}, nil
	}

	if result.AlreadySettled {
		uc.metrics.RecordSettlement(in.Provider, "already_settled", record.Currency, 0, 0, 0)
		return &WebhookOutcome{
			Status:     WebhookStatusSuccess,
			Message:    "escrow already settled",
			Settlement: result,
		}, nil
	}

	uc.metrics.RecordSettlement(in.Provider, "settled", escrow.Currency,
		result.BaseAmount.InexactFloat64(),
		result.PlatformFee.InexactFloat64(),
		result.Overpayment.InexactFloat64())
	uc.publishPaymentEvent(record, escrow.ID, "settled", result)
	uc.enqueueSettlementCallback(ctx, escrow, result)

	return &WebhookOutcome{
		Status:     WebhookStatusSuccess,
		Message:    "escrow settled",
		Settlement: result,
	}, nil
}

// creditWallet applies a confirmed wallet top-up inside the pipeline's
// transaction: lock the wallet row, add to available, write the ledger row.
func (uc *DefaultWebhookUsecase) creditWallet(ctx context.Context, store domain.SettlementStore, record *domain.PaymentRecord) error {
	wallet, err := store.GetWalletForUpdate(ctx, record.UserID, record.Currency)
	if err != nil {
		return err
	}
	wallet.AvailableBalance = wallet.AvailableBalance.Add(record.Amount)
	if err := store.SaveWallet(ctx, wallet); err != nil {
		return err
	}

	metadata, _ := json.Marshal(map[string]string{
		"provider":      record.Provider,
		"external_txid": record.ExternalTxID,
	})
	return store.CreateTransaction(ctx, &domain.Transaction{
		UserID:       record.UserID,
		Type:         domain.TransactionDeposit,
		Amount:       record.Amount,
		Currency:     record.Currency,
		Status:       domain.TransactionConfirmed,
		Reference:    record.ReferenceID,
		MetadataJSON: string(metadata),
	})
}

func (uc *DefaultWebhookUsecase) publishPaymentEvent(record *domain.PaymentRecord, escrowID, status string, result *SettlementResult) {
	event := kafka.PaymentEvent{
		EscrowID:     escrowID,
		UserID:       record.UserID,
		Provider:     record.Provider,
		ExternalTxID: record.ExternalTxID,
		Status:       status,
		Currency:     record.Currency,
	}
	if result != nil {
		event.BaseAmount = result.BaseAmount.String()
		event.PlatformFee = result.PlatformFee.String()
		event.Overpayment = result.Overpayment.String()
	} else {
		event.BaseAmount = record.Amount.String()
	}
	if err := uc.publisher.PublishPayment(event); err != nil {
		uc.log.Error("payment event publish failed",
			"provider", record.Provider, "external_txid", record.ExternalTxID, "err", err)
	}
}

func (uc *DefaultWebhookUsecase) enqueueSettlementCallback(ctx context.Context, escrow *domain.Escrow, result *SettlementResult) {
	if escrow.CallbackURL == "" {
		return
	}
	payload := map[string]any{
		"escrow_id":         escrow.ID,
		"trade_ref":         escrow.TradeRef,
		"status":            string(domain.EscrowPaymentConfirmed),
		"base_amount":       result.BaseAmount.String(),
		"platform_fee":      result.PlatformFee.String(),
		"overpayment":       result.Overpayment.String(),
		"segregated_amount": result.SegregatedAmount.String(),
		"currency":          escrow.Currency,
	}
	if err := uc.callbacks.Enqueue(ctx, escrow.CallbackURL, "escrow.settled", payload); err != nil {
		uc.log.Error("settlement callback enqueue failed", "escrow_id", escrow.ID, "err", err)
	}
}
