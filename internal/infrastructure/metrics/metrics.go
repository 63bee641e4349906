package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics covers the webhook pipeline, settlement outcomes and the
// timeout sweeper.
type PaymentMetrics struct {
	// Inbound webhooks
	WebhooksReceivedTotal  prometheus.CounterVec
	WebhooksRejectedTotal  prometheus.CounterVec
	WebhooksDuplicateTotal prometheus.CounterVec

	// Settlement outcomes
	SettlementsTotal        prometheus.CounterVec
	SettledAmountTotal      prometheus.CounterVec
	PlatformFeeTotal        prometheus.CounterVec
	OverpaymentCreditTotal  prometheus.CounterVec
	UnderpaymentRejectTotal prometheus.CounterVec

	// Payment lock behavior
	LockContentionTotal prometheus.CounterVec
	LockFailuresTotal   prometheus.CounterVec

	// Processing time
	WebhookProcessingDuration prometheus.HistogramVec

	// Timeout sweeper
	SweepEventsTotal prometheus.CounterVec
	SweepDuration    prometheus.Histogram

	// Outbound platform callbacks
	CallbackDeliveriesTotal prometheus.CounterVec

	// Admin escape hatch
	ForcedTransitionsTotal prometheus.CounterVec
}

func NewPaymentMetrics() *PaymentMetrics {
	return &PaymentMetrics{
		WebhooksReceivedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_received_total",
				Help: "Inbound provider webhooks, before any validation",
			},
			[]string{"provider"},
		),

		WebhooksRejectedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_rejected_total",
				Help: "Webhooks rejected before settlement, by reason",
			},
			[]string{"provider", "reason"},
		),

		WebhooksDuplicateTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_duplicate_total",
				Help: "Redelivered webhooks dropped by the idempotency check",
			},
			[]string{"provider"},
		),

		SettlementsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlements_total",
				Help: "Settlement attempts by final outcome",
			},
			[]string{"provider", "outcome"},
		),

		SettledAmountTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settled_amount_total",
				Help: "Total base amount taken into custody",
			},
			[]string{"currency"},
		),

		PlatformFeeTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "platform_fee_total",
				Help: "Total platform fee recorded at settlement",
			},
			[]string{"currency"},
		),

		OverpaymentCreditTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overpayment_credit_total",
				Help: "Total overage credited back to buyer wallets",
			},
			[]string{"currency"},
		),

		UnderpaymentRejectTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underpayment_reject_total",
				Help: "Settlements refused because the received amount was short",
			},
			[]string{"provider"},
		),

		LockContentionTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_lock_contention_total",
				Help: "Acquire attempts that found the lock already held",
			},
			[]string{"provider"},
		),

		LockFailuresTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_lock_failures_total",
				Help: "Acquire attempts that failed because the lock backend was down",
			},
			[]string{"provider"},
		),

		WebhookProcessingDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhook_processing_duration_seconds",
				Help:    "End-to-end webhook handling time",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"provider", "outcome"},
		),

		SweepEventsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_events_total",
				Help: "Timeout events processed by the sweeper, by outcome",
			},
			[]string{"timeout_type", "outcome"},
		),

		SweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sweep_duration_seconds",
				Help:    "Wall time of one full sweep across all rules",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),

		CallbackDeliveriesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callback_deliveries_total",
				Help: "Outbound platform callback attempts by result",
			},
			[]string{"status"},
		),

		ForcedTransitionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forced_transitions_total",
				Help: "Status overrides performed with force by an admin",
			},
			[]string{"entity_type"},
		),
	}
}

func (m *PaymentMetrics) RecordWebhookReceived(provider string) {
	m.WebhooksReceivedTotal.WithLabelValues(provider).Inc()
}

func (m *PaymentMetrics) RecordWebhookRejected(provider, reason string) {
	m.WebhooksRejectedTotal.WithLabelValues(provider, reason).Inc()
}

func (m *PaymentMetrics) RecordWebhookDuplicate(provider string) {
	m.WebhooksDuplicateTotal.WithLabelValues(provider).Inc()
}

// RecordSettlement records one settlement outcome with its money split.
func (m *PaymentMetrics) RecordSettlement(provider, outcome, currency string, baseAmount, platformFee, overpayment float64) {
	m.SettlementsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == "settled" {
		m.SettledAmountTotal.WithLabelValues(currency).Add(baseAmount)
		m.PlatformFeeTotal.WithLabelValues(currency).Add(platformFee)
		if overpayment > 0 {
			m.OverpaymentCreditTotal.WithLabelValues(currency).Add(overpayment)
		}
	}
}

func (m *PaymentMetrics) RecordUnderpayment(provider string) {
	m.UnderpaymentRejectTotal.WithLabelValues(provider).Inc()
}

func (m *PaymentMetrics) RecordLockContention(provider string) {
	m.LockContentionTotal.WithLabelValues(provider).Inc()
}

func (m *PaymentMetrics) RecordLockFailure(provider string) {
	m.LockFailuresTotal.WithLabelValues(provider).Inc()
}

func (m *PaymentMetrics) RecordWebhookDuration(provider, outcome string, durationSeconds float64) {
	m.WebhookProcessingDuration.WithLabelValues(provider, outcome).Observe(durationSeconds)
}

func (m *PaymentMetrics) RecordSweepEvent(timeoutType, outcome string) {
	m.SweepEventsTotal.WithLabelValues(timeoutType, outcome).Inc()
}

func (m *PaymentMetrics) RecordSweepDuration(durationSeconds float64) {
	m.SweepDuration.Observe(durationSeconds)
}

func (m *PaymentMetrics) RecordCallbackDelivery(status string) {
	m.CallbackDeliveriesTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) RecordForcedTransition(entityType string) {
	m.ForcedTransitionsTotal.WithLabelValues(entityType).Inc()
}
