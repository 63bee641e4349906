package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/kafka"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
)

// Timeout types the sweeper knows how to scan for.
const (
	TimeoutEscrowPayment      = "escrow-payment"
	TimeoutEscrowResponse     = "escrow-response"
	TimeoutExchangePayment    = "exchange-payment"
	TimeoutExchangeProcessing = "exchange-processing"
	TimeoutRateLock           = "rate-lock"
	TimeoutEmailVerification  = "email-verification"
	TimeoutOTP                = "otp"
	TimeoutCashoutProcessing  = "cashout-processing"
	TimeoutWebhookRetry       = "webhook-retry"
)

// Remediation actions a rule can prescribe.
const (
	ActionCancelOrder      = "cancel-order"
	ActionRefundPayment    = "refund-payment"
	ActionSendReminder     = "send-reminder"
	ActionEscalateToManual = "escalate-to-manual"
	ActionRetryOperation   = "retry-operation"
	ActionCleanupResource  = "cleanup-resource"
	ActionMarkExpired      = "mark-expired"
)

const (
	sweepConcurrency    = 10
	sweepBatchPause     = 100 * time.Millisecond
	sweepPublishBatch   = 100
	sweepPublishRetries = 3
	sweeperActor        = "sweeper"
)

// TimeoutRule binds one timeout type to its deadline and remediation.
// WarningThreshold, when set, produces a reminder before the hard deadline.
// EscalateAfter caps retry-operation rules: past that many attempts the item
// is escalated instead of retried.
type TimeoutRule struct {
	Type             string
	Duration         time.Duration
	WarningThreshold time.Duration
	Action           string
	EscalateAfter    int
	Enabled          bool
}

// DefaultTimeoutRules is the production rule table. For cleanup rules the
// per-row deadline lives on the row itself (expires_at), so Duration is
// informational only.
func DefaultTimeoutRules() []TimeoutRule {
	return []TimeoutRule{
		{Type: TimeoutEscrowPayment, Duration: 30 * time.Minute, WarningThreshold: 20 * time.Minute, Action: ActionCancelOrder, Enabled: true},
		{Type: TimeoutEscrowResponse, Duration: 24 * time.Hour, WarningThreshold: 20 * time.Hour, Action: ActionRefundPayment, Enabled: true},
		{Type: TimeoutExchangePayment, Duration: 30 * time.Minute, Action: ActionCancelOrder, Enabled: true},
		{Type: TimeoutExchangeProcessing, Duration: 2 * time.Hour, Action: ActionEscalateToManual, Enabled: true},
		{Type: TimeoutRateLock, Duration: 15 * time.Minute, Action: ActionMarkExpired, Enabled: true},
		{Type: TimeoutEmailVerification, Duration: 24 * time.Hour, Action: ActionCleanupResource, Enabled: true},
		{Type: TimeoutOTP, Duration: 10 * time.Minute, Action: ActionCleanupResource, Enabled: true},
		{Type: TimeoutCashoutProcessing, Duration: time.Hour, Action: ActionEscalateToManual, Enabled: true},
		{Type: TimeoutWebhookRetry, Duration: time.Hour, Action: ActionRetryOperation, EscalateAfter: 8, Enabled: true},
	}
}

// SweepSummary reports one sweep run. Handled+Failed always equals Total:
// every scanned item is accounted for even when the run is cut short.
type SweepSummary struct {
	Total   int
	Handled int
	Failed  int
	Elapsed time.Duration
}

type TimeoutEventPublisher interface {
	BatchPublishTimeoutsWithRetry(events []kafka.TimeoutEvent, batchSize, maxRetries int) error
}

type SweeperUsecase interface {
	RunSweep(ctx context.Context) (*SweepSummary, error)
}

// timeoutItem is one overdue entity with its effective action resolved at
// scan time (reminders and retry-exhaustion downgrades happen there, so the
// handler is a plain dispatch).
type timeoutItem struct {
	timeoutType string
	action      string
	entityType  string
	entityID    string
	userID      int64
	amount      decimal.Decimal
	currency    string
	context     string
	paid        bool
}

// DefaultSweeperUsecase periodically scans every entity class with a
// deadline and remediates the overdue ones. Items are processed in small
// concurrent batches with a pause between batches to keep the DB load flat.
type DefaultSweeperUsecase struct {
	escrows    domain.EscrowRepository
	exchanges  domain.ExchangeOrderRepository
	cashouts   domain.CashoutRepository
	deliveries domain.WebhookDeliveryRepository
	cleanup    domain.CleanupRepository
	settlement SettlementUsecase
	exchange   ExchangeUsecase
	publisher  TimeoutEventPublisher
	metrics    *metrics.PaymentMetrics
	rules      []TimeoutRule
	log        *slog.Logger

	concurrency int
	batchPause  time.Duration
}

func NewDefaultSweeperUsecase(
	escrows domain.EscrowRepository,
	exchanges domain.ExchangeOrderRepository,
	cashouts domain.CashoutRepository,
	deliveries domain.WebhookDeliveryRepository,
	cleanup domain.CleanupRepository,
	settlement SettlementUsecase,
	exchange ExchangeUsecase,
	publisher TimeoutEventPublisher,
	m *metrics.PaymentMetrics,
	rules []TimeoutRule,
	log *slog.Logger,
) *DefaultSweeperUsecase {
	if rules == nil {
		rules = DefaultTimeoutRules()
	}
	return &DefaultSweeperUsecase{
		escrows:     escrows,
		exchanges:   exchanges,
		cashouts:    cashouts,
		deliveries:  deliveries,
		cleanup:     cleanup,
		settlement:  settlement,
		exchange:    exchange,
		publisher:   publisher,
		metrics:     m,
		rules:       rules,
		log:         log,
		concurrency: sweepConcurrency,
		batchPause:  sweepBatchPause,
	}
}

func (uc *DefaultSweeperUsecase) RunSweep(ctx context.Context) (*SweepSummary, error) {
	started := time.Now()
	items := uc.scan(ctx, started)

	summary := &SweepSummary{Total: len(items)}
	events := make([]kafka.TimeoutEvent, 0, len(items))
	timedOutAt := started.UTC().Format(time.RFC3339)
	var mu sync.Mutex

	record := func(item timeoutItem, outcome string, failed bool) {
		mu.Lock()
		defer mu.Unlock()
		if failed {
			summary.Failed++
			uc.metrics.RecordSweepEvent(item.timeoutType, "failed")
		} else {
			summary.Handled++
			uc.metrics.RecordSweepEvent(item.timeoutType, "handled")
		}
		events = append(events, kafka.TimeoutEvent{
			TimeoutType: item.timeoutType,
			Action:      item.action,
			EntityType:  item.entityType,
			EntityID:    item.entityID,
			UserID:      item.userID,
			Amount:      item.amount.String(),
			Currency:    item.currency,
			TimedOutAt:  timedOutAt,
			Context:     item.context,
			Outcome:     outcome,
		})
	}

	cancelled := false
	for start := 0; start < len(items) && !cancelled; start += uc.concurrency {
		end := start + uc.concurrency
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item timeoutItem) {
				defer wg.Done()
				outcome, err := uc.remediate(ctx, item)
				if err != nil {
					uc.log.Error("sweep remediation failed",
						"timeout_type", item.timeoutType,
						"action", item.action,
						"entity_type", item.entityType,
						"entity_id", item.entityID,
						"error", err)
					record(item, "failed: "+err.Error(), true)
					return
				}
				record(item, outcome, false)
			}(item)
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-time.After(uc.batchPause):
			case <-ctx.Done():
				// Account for the unprocessed tail so the summary
				// still adds up.
				for _, item := range items[end:] {
					record(item, "failed: sweep cancelled", true)
				}
				cancelled = true
			}
		}
	}

	summary.Elapsed = time.Since(started)
	uc.metrics.RecordSweepDuration(summary.Elapsed.Seconds())

	if len(events) > 0 && uc.publisher != nil {
		if err := uc.publisher.BatchPublishTimeoutsWithRetry(events, sweepPublishBatch, sweepPublishRetries); err != nil {
			uc.log.Error("timeout event publish failed", "events", len(events), "error", err)
		}
	}

	uc.log.Info("timeout sweep finished",
		"total", summary.Total,
		"handled", summary.Handled,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// scan walks the rule table and collects every overdue item. A failed scan
// for one rule is logged and skipped; the other rules still run.
func (uc *DefaultSweeperUsecase) scan(ctx context.Context, now time.Time) []timeoutItem {
	var items []timeoutItem
	for _, rule := range uc.rules {
		if !rule.Enabled {
			continue
		}
		found, err := uc.scanRule(ctx, rule, now)
		if err != nil {
			uc.log.Error("sweep scan failed", "timeout_type", rule.Type, "error", err)
			continue
		}
		items = append(items, found...)
	}
	return items
}

func (uc *DefaultSweeperUsecase) scanRule(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	switch rule.Type {
	case TimeoutEscrowPayment:
		return uc.scanEscrowPayment(ctx, rule, now)
	case TimeoutEscrowResponse:
		return uc.scanEscrowResponse(ctx, rule, now)
	case TimeoutExchangePayment:
		return uc.scanExchangePayment(ctx, rule, now)
	case TimeoutExchangeProcessing:
		return uc.scanExchangeProcessing(ctx, rule, now)
	case TimeoutRateLock:
		return uc.scanRateLocks(ctx, rule, now)
	case TimeoutEmailVerification, TimeoutOTP:
		return uc.scanCleanup(ctx, rule, now)
	case TimeoutCashoutProcessing:
		return uc.scanStuckCashouts(ctx, rule, now)
	case TimeoutWebhookRetry:
		return uc.scanWebhookRetries(ctx, rule, now)
	default:
		return nil, fmt.Errorf("unknown timeout type %q", rule.Type)
	}
}

// scanEscrowPayment finds escrows still waiting for buyer payment. Past the
// warning threshold the buyer gets a reminder; past the full duration the
// escrow is remediated per the rule.
func (uc *DefaultSweeperUsecase) scanEscrowPayment(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	scanCutoff := now.Add(-rule.Duration)
	if rule.WarningThreshold > 0 {
		scanCutoff = now.Add(-rule.WarningThreshold)
	}
	escrows, err := uc.escrows.FindExpiredPendingPayment(ctx, scanCutoff)
	if err != nil {
		return nil, err
	}

	items := make([]timeoutItem, 0, len(escrows))
	hardCutoff := now.Add(-rule.Duration)
	for _, escrow := range escrows {
		item := timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "escrow",
			entityID:    escrow.ID,
			userID:      escrow.BuyerID,
			amount:      escrow.ExpectedTotal,
			currency:    escrow.Currency,
			paid:        escrow.Paid(),
		}
		if escrow.CreatedAt.After(hardCutoff) {
			item.action = ActionSendReminder
			item.context = fmt.Sprintf("payment due by %s", escrow.CreatedAt.Add(rule.Duration).UTC().Format(time.RFC3339))
		}
		items = append(items, item)
	}
	return items, nil
}

// scanEscrowResponse finds settled escrows whose seller never responded.
// The buyer's funds are in custody, so the terminal action is a refund.
func (uc *DefaultSweeperUsecase) scanEscrowResponse(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	scanCutoff := now.Add(-rule.Duration)
	if rule.WarningThreshold > 0 {
		scanCutoff = now.Add(-rule.WarningThreshold)
	}
	escrows, err := uc.escrows.FindStalePaymentConfirmed(ctx, scanCutoff)
	if err != nil {
		return nil, err
	}

	items := make([]timeoutItem, 0, len(escrows))
	hardCutoff := now.Add(-rule.Duration)
	for _, escrow := range escrows {
		confirmedAt := escrow.CreatedAt
		if escrow.PaymentConfirmedAt != nil {
			confirmedAt = *escrow.PaymentConfirmedAt
		}
		item := timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "escrow",
			entityID:    escrow.ID,
			userID:      escrow.BuyerID,
			amount:      escrow.Amount,
			currency:    escrow.Currency,
			paid:        escrow.Paid(),
		}
		if confirmedAt.After(hardCutoff) {
			item.action = ActionSendReminder
			item.context = fmt.Sprintf("seller response due by %s", confirmedAt.Add(rule.Duration).UTC().Format(time.RFC3339))
		}
		items = append(items, item)
	}
	return items, nil
}

func (uc *DefaultSweeperUsecase) scanExchangePayment(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	orders, err := uc.exchanges.FindExpiredPendingPayment(ctx, now.Add(-rule.Duration))
	if err != nil {
		return nil, err
	}
	items := make([]timeoutItem, 0, len(orders))
	for _, order := range orders {
		items = append(items, timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "exchange_order",
			entityID:    order.ID,
			userID:      order.UserID,
			amount:      order.FromAmount,
			currency:    order.FromCurrency,
			paid:        order.Paid(),
		})
	}
	return items, nil
}

func (uc *DefaultSweeperUsecase) scanExchangeProcessing(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	orders, err := uc.exchanges.FindStuckProcessing(ctx, now.Add(-rule.Duration))
	if err != nil {
		return nil, err
	}
	items := make([]timeoutItem, 0, len(orders))
	for _, order := range orders {
		items = append(items, timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "exchange_order",
			entityID:    order.ID,
			userID:      order.UserID,
			amount:      order.FromAmount,
			currency:    order.FromCurrency,
			context:     fmt.Sprintf("stuck in %s since %s", order.Status, order.CreatedAt.UTC().Format(time.RFC3339)),
			paid:        order.Paid(),
		})
	}
	return items, nil
}

func (uc *DefaultSweeperUsecase) scanRateLocks(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	orders, err := uc.exchanges.FindExpiredRateLocks(ctx, now)
	if err != nil {
		return nil, err
	}
	items := make([]timeoutItem, 0, len(orders))
	for _, order := range orders {
		items = append(items, timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "exchange_order",
			entityID:    order.ID,
			userID:      order.UserID,
			amount:      order.FromAmount,
			currency:    order.FromCurrency,
			context:     fmt.Sprintf("rate lock expired at %s", order.RateLockedUntil.UTC().Format(time.RFC3339)),
		})
	}
	return items, nil
}

// scanCleanup emits at most one aggregate item per rule; the row count goes
// into the event context after deletion. Expiry lives on the rows
// themselves, so the scan only has to count.
func (uc *DefaultSweeperUsecase) scanCleanup(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	var (
		count int64
		err   error
	)
	switch rule.Type {
	case TimeoutOTP:
		count, err = uc.cleanup.CountExpiredOTPCodes(ctx, now)
	default:
		count, err = uc.cleanup.CountExpiredEmailVerifications(ctx, now)
	}
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return []timeoutItem{{
		timeoutType: rule.Type,
		action:      rule.Action,
		entityType:  rule.Type,
		entityID:    "batch",
		context:     fmt.Sprintf("%d expired rows", count),
	}}, nil
}

func (uc *DefaultSweeperUsecase) scanStuckCashouts(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	cashouts, err := uc.cashouts.FindStuckExecuting(ctx, now.Add(-rule.Duration))
	if err != nil {
		return nil, err
	}
	items := make([]timeoutItem, 0, len(cashouts))
	for _, cashout := range cashouts {
		items = append(items, timeoutItem{
			timeoutType: rule.Type,
			action:      rule.Action,
			entityType:  "cashout",
			entityID:    cashout.ID,
			userID:      cashout.UserID,
			amount:      cashout.Amount,
			currency:    cashout.Currency,
			context:     fmt.Sprintf("executing since %s, %d attempts", cashout.UpdatedAt.UTC().Format(time.RFC3339), cashout.Attempts),
		})
	}
	return items, nil
}

// scanWebhookRetries covers two delivery failure modes: rows whose retry
// slot passed long ago (the redelivery loop missed them) and rows out of
// attempts. Missed rows get re-armed; exhausted rows are escalated.
func (uc *DefaultSweeperUsecase) scanWebhookRetries(ctx context.Context, rule TimeoutRule, now time.Time) ([]timeoutItem, error) {
	stalled, err := uc.deliveries.FindStalledRetries(ctx, now.Add(-rule.Duration))
	if err != nil {
		return nil, err
	}
	exhausted, err := uc.deliveries.FindExhausted(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stalled)+len(exhausted))
	items := make([]timeoutItem, 0, len(stalled)+len(exhausted))
	add := func(delivery *domain.WebhookDelivery, action, detail string) {
		if seen[delivery.ID] {
			return
		}
		seen[delivery.ID] = true
		items = append(items, timeoutItem{
			timeoutType: rule.Type,
			action:      action,
			entityType:  "webhook_delivery",
			entityID:    delivery.ID,
			context:     fmt.Sprintf("%s, attempts %d/%d", detail, delivery.Attempts, delivery.MaxAttempts),
		})
	}

	for _, delivery := range stalled {
		action := ActionRetryOperation
		if rule.EscalateAfter > 0 && delivery.Attempts >= rule.EscalateAfter {
			action = ActionEscalateToManual
		}
		add(delivery, action, "stalled retry for "+delivery.EventType)
	}
	for _, delivery := range exhausted {
		add(delivery, ActionEscalateToManual, "retries exhausted for "+delivery.EventType)
	}
	return items, nil
}

// remediate applies the item's action and returns a short outcome string for
// the published event. Escalations deliberately mutate nothing.
func (uc *DefaultSweeperUsecase) remediate(ctx context.Context, item timeoutItem) (string, error) {
	reason := fmt.Sprintf("timeout sweep: %s", item.timeoutType)

	switch item.action {
	case ActionSendReminder:
		uc.log.Info("timeout reminder",
			"timeout_type", item.timeoutType,
			"entity_type", item.entityType,
			"entity_id", item.entityID,
			"user_id", item.userID,
			"detail", item.context)
		return "reminder sent", nil

	case ActionCancelOrder:
		return uc.cancelEntity(ctx, item, reason)

	case ActionRefundPayment:
		if err := uc.settlement.RefundEscrow(ctx, item.entityID, sweeperActor, reason); err != nil {
			return "", err
		}
		return "refunded", nil

	case ActionEscalateToManual:
		uc.log.Warn("timeout escalated to manual review",
			"timeout_type", item.timeoutType,
			"entity_type", item.entityType,
			"entity_id", item.entityID,
			"user_id", item.userID,
			"amount", item.amount,
			"currency", item.currency,
			"detail", item.context)
		return "escalated", nil

	case ActionRetryOperation:
		return uc.rearmDelivery(ctx, item.entityID)

	case ActionCleanupResource:
		return uc.cleanupResource(ctx, item)

	case ActionMarkExpired:
		if err := uc.exchange.MarkExpired(ctx, item.entityID); err != nil {
			return "", err
		}
		return "expired", nil

	default:
		return "", fmt.Errorf("unknown remediation action %q", item.action)
	}
}

// cancelEntity is the money-safe cancel: an entity that was ever paid is
// refunded, never silently cancelled. The paid flag comes from scan time;
// a payment landing between scan and handle is caught again inside
// CancelEscrow, which refuses to cancel an escrow with a live holding.
func (uc *DefaultSweeperUsecase) cancelEntity(ctx context.Context, item timeoutItem, reason string) (string, error) {
	switch item.entityType {
	case "escrow":
		if item.paid {
			if err := uc.settlement.RefundEscrow(ctx, item.entityID, sweeperActor, reason); err != nil {
				return "", err
			}
			return "refunded", nil
		}
		if err := uc.settlement.CancelEscrow(ctx, item.entityID, sweeperActor, reason); err != nil {
			return "", err
		}
		return "cancelled", nil
	case "exchange_order":
		if err := uc.exchange.CancelOrder(ctx, item.entityID, sweeperActor, reason); err != nil {
			return "", err
		}
		return "cancelled", nil
	default:
		return "", fmt.Errorf("cannot cancel entity type %q", item.entityType)
	}
}

// rearmDelivery moves a missed retry slot to now so the redelivery loop
// picks the row up on its next pass.
func (uc *DefaultSweeperUsecase) rearmDelivery(ctx context.Context, deliveryID string) (string, error) {
	delivery, err := uc.deliveries.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		return "", err
	}
	now := time.Now()
	delivery.Status = domain.DeliveryRetrying
	delivery.NextRetryAt = &now
	if err := uc.deliveries.UpdateDelivery(ctx, delivery); err != nil {
		return "", err
	}
	return "retry re-armed", nil
}

func (uc *DefaultSweeperUsecase) cleanupResource(ctx context.Context, item timeoutItem) (string, error) {
	now := time.Now()
	var (
		deleted int64
		err     error
	)
	switch item.timeoutType {
	case TimeoutOTP:
		deleted, err = uc.cleanup.DeleteExpiredOTPCodes(ctx, now)
	case TimeoutEmailVerification:
		deleted, err = uc.cleanup.DeleteExpiredEmailVerifications(ctx, now)
	default:
		return "", fmt.Errorf("no cleanup for timeout type %q", item.timeoutType)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("deleted %d rows", deleted), nil
}
