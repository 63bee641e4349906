package domain

import (
	"context"
	"time"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRetrying  DeliveryStatus = "retrying"
	DeliveryExpired   DeliveryStatus = "expired"
)

// WebhookDelivery is one outbound callback to a platform-registered URL.
// Failed deliveries are retried with exponential backoff until MaxAttempts;
// exhausted rows are escalated by the timeout sweeper.
type WebhookDelivery struct {
	ID             string
	URL            string
	EventType      string
	PayloadJSON    string
	Signature      string
	Status         DeliveryStatus
	Attempts       int
	MaxAttempts    int
	NextRetryAt    *time.Time
	FirstAttemptAt *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
}

type WebhookDeliveryRepository interface {
	CreateDelivery(ctx context.Context, delivery *WebhookDelivery) error
	GetDeliveryByID(ctx context.Context, deliveryID string) (*WebhookDelivery, error)
	UpdateDelivery(ctx context.Context, delivery *WebhookDelivery) error
	FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*WebhookDelivery, error)
	// FindStalledRetries returns undelivered rows whose retry slot passed
	// longer ago than olderThan, meaning the redelivery loop missed them.
	FindStalledRetries(ctx context.Context, olderThan time.Time) ([]*WebhookDelivery, error)
	FindExhausted(ctx context.Context) ([]*WebhookDelivery, error)
}
