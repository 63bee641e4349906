package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// ProcessedWebhookEventModel is the idempotency-key table. The composite
// unique index is what makes duplicate settlement impossible at the database
// level, whatever the application layer does.
type ProcessedWebhookEventModel struct {
	ID           string          `gorm:"primaryKey;type:uuid"`
	Provider     string          `gorm:"uniqueIndex:idx_provider_txid;not null"`
	ExternalTxID string          `gorm:"uniqueIndex:idx_provider_txid;not null"`
	ReferenceID  string          `gorm:"index:idx_webhook_reference"`
	Amount       decimal.Decimal `gorm:"type:numeric(30,10)"`
	Currency     string
	ProcessedAt  time.Time
}

func (ProcessedWebhookEventModel) TableName() string {
	return "processed_webhook_events"
}

type WebhookDeliveryModel struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	URL            string `gorm:"not null"`
	EventType      string `gorm:"not null"`
	PayloadJSON    string `gorm:"type:jsonb"`
	Signature      string
	Status         domain.DeliveryStatus `gorm:"index:idx_delivery_status;not null"`
	Attempts       int                   `gorm:"default:0"`
	MaxAttempts    int                   `gorm:"default:5"`
	NextRetryAt    *time.Time            `gorm:"index:idx_delivery_next_retry"`
	FirstAttemptAt *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (WebhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}
