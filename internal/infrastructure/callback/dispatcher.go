package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/providers"
)

const (
	defaultMaxAttempts = 8
	baseRetryDelay     = 30 * time.Second
	maxRetryDelay      = time.Hour
)

// Dispatcher delivers signed event callbacks to platform-registered URLs.
// Every delivery is persisted first, so a crash between enqueue and POST
// loses nothing; the retry job picks the row up again.
type Dispatcher struct {
	deliveries  domain.WebhookDeliveryRepository
	client      *http.Client
	secret      string
	maxAttempts int
	metrics     *metrics.PaymentMetrics
}

func NewDispatcher(deliveries domain.WebhookDeliveryRepository, secret string, maxAttempts int, m *metrics.PaymentMetrics) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Dispatcher{
		deliveries: deliveries,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		secret:      secret,
		maxAttempts: maxAttempts,
		metrics:     m,
	}
}

// Enqueue persists the delivery and fires the first attempt in the
// background. The caller's transaction must already be committed; callbacks
// must never announce state that could still roll back.
func (d *Dispatcher) Enqueue(ctx context.Context, url, eventType string, payload any) error {
	if url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	delivery := &domain.WebhookDelivery{
		URL:         url,
		EventType:   eventType,
		PayloadJSON: string(body),
		Signature:   providers.Sign(d.secret, body),
		Status:      domain.DeliveryPending,
		MaxAttempts: d.maxAttempts,
	}
	if err := d.deliveries.CreateDelivery(ctx, delivery); err != nil {
		return fmt.Errorf("persist callback delivery: %w", err)
	}

	go d.attempt(context.Background(), delivery)
	return nil
}

// RunDueRetries is the scheduler entrypoint: it loads deliveries whose retry
// time has come and attempts each one. Returns how many were attempted.
func (d *Dispatcher) RunDueRetries(ctx context.Context, limit int) (int, error) {
	due, err := d.deliveries.FindDueRetries(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}
	for _, delivery := range due {
		d.attempt(ctx, delivery)
	}
	return len(due), nil
}

func (d *Dispatcher) attempt(ctx context.Context, delivery *domain.WebhookDelivery) {
	now := time.Now()
	if delivery.FirstAttemptAt == nil {
		delivery.FirstAttemptAt = &now
	}
	delivery.Attempts++

	err := d.post(ctx, delivery)
	if err == nil {
		delivery.Status = domain.DeliveryDelivered
		delivery.DeliveredAt = &now
		delivery.NextRetryAt = nil
		d.metrics.RecordCallbackDelivery("delivered")
		log.Printf("Callback %s delivered to %s (attempt %d)", delivery.EventType, delivery.URL, delivery.Attempts)
	} else if delivery.Attempts >= delivery.MaxAttempts {
		delivery.Status = domain.DeliveryExpired
		delivery.NextRetryAt = nil
		d.metrics.RecordCallbackDelivery("expired")
		log.Printf("Callback %s to %s exhausted after %d attempts: %v", delivery.EventType, delivery.URL, delivery.Attempts, err)
	} else {
		delivery.Status = domain.DeliveryRetrying
		next := now.Add(retryBackoff(delivery.Attempts))
		delivery.NextRetryAt = &next
		d.metrics.RecordCallbackDelivery("retrying")
		log.Printf("Callback %s to %s failed (attempt %d/%d), retry at %s: %v",
			delivery.EventType, delivery.URL, delivery.Attempts, delivery.MaxAttempts, next.Format(time.RFC3339), err)
	}

	if err := d.deliveries.UpdateDelivery(ctx, delivery); err != nil {
		log.Printf("Failed to update callback delivery %s: %v", delivery.ID, err)
	}
}

func (d *Dispatcher) post(ctx context.Context, delivery *domain.WebhookDelivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.URL, bytes.NewBufferString(delivery.PayloadJSON))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", delivery.Signature)
	req.Header.Set("X-Event-Type", delivery.EventType)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// retryBackoff doubles per attempt from baseRetryDelay, capped at an hour.
func retryBackoff(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
