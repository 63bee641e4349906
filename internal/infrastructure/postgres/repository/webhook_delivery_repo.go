package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultWebhookDeliveryRepository struct {
	db *gorm.DB
}

func NewDefaultWebhookDeliveryRepository(db *gorm.DB) *DefaultWebhookDeliveryRepository {
	return &DefaultWebhookDeliveryRepository{db: db}
}

func (r *DefaultWebhookDeliveryRepository) CreateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	deliveryModel := mappers.ToGORMWebhookDelivery(delivery)
	if deliveryModel.ID == "" {
		deliveryModel.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(deliveryModel).Error; err != nil {
		return err
	}
	delivery.ID = deliveryModel.ID
	return nil
}

func (r *DefaultWebhookDeliveryRepository) GetDeliveryByID(ctx context.Context, deliveryID string) (*domain.WebhookDelivery, error) {
	var deliveryModel models.WebhookDeliveryModel
	if err := r.db.WithContext(ctx).Where("id = ?", deliveryID).First(&deliveryModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}
	return mappers.ToDomainWebhookDelivery(&deliveryModel), nil
}

func (r *DefaultWebhookDeliveryRepository) UpdateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	deliveryModel := mappers.ToGORMWebhookDelivery(delivery)
	result := r.db.WithContext(ctx).
		Model(&models.WebhookDeliveryModel{}).
		Where("id = ?", delivery.ID).
		Updates(map[string]interface{}{
			"status":           deliveryModel.Status,
			"attempts":         deliveryModel.Attempts,
			"next_retry_at":    deliveryModel.NextRetryAt,
			"first_attempt_at": deliveryModel.FirstAttemptAt,
			"delivered_at":     deliveryModel.DeliveredAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
}

func (r *DefaultWebhookDeliveryRepository) FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*domain.WebhookDelivery, error) {
	var deliveryModels []models.WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			[]domain.DeliveryStatus{domain.DeliveryPending, domain.DeliveryRetrying}, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&deliveryModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainDeliveries(deliveryModels), nil
}

func (r *DefaultWebhookDeliveryRepository) FindStalledRetries(ctx context.Context, olderThan time.Time) ([]*domain.WebhookDelivery, error) {
	var deliveryModels []models.WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_retry_at IS NOT NULL AND next_retry_at < ?",
			[]domain.DeliveryStatus{domain.DeliveryPending, domain.DeliveryRetrying}, olderThan).
		Order("next_retry_at ASC").
		Find(&deliveryModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainDeliveries(deliveryModels), nil
}

func (r *DefaultWebhookDeliveryRepository) FindExhausted(ctx context.Context) ([]*domain.WebhookDelivery, error) {
	var deliveryModels []models.WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts >= max_attempts", domain.DeliveryRetrying).
		Find(&deliveryModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainDeliveries(deliveryModels), nil
}

func toDomainDeliveries(deliveryModels []models.WebhookDeliveryModel) []*domain.WebhookDelivery {
	deliveries := make([]*domain.WebhookDelivery, len(deliveryModels))
	for i := range deliveryModels {
		deliveries[i] = mappers.ToDomainWebhookDelivery(&deliveryModels[i])
	}
	return deliveries
}
