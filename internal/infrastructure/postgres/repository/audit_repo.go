package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultAuditRepository struct {
	db *gorm.DB
}

func NewDefaultAuditRepository(db *gorm.DB) *DefaultAuditRepository {
	return &DefaultAuditRepository{db: db}
}

func (r *DefaultAuditRepository) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	eventModel := mappers.ToGORMAuditEvent(event)
	if eventModel.ID == "" {
		eventModel.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(eventModel).Error; err != nil {
		return err
	}
	event.ID = eventModel.ID
	return nil
}

func (r *DefaultAuditRepository) GetAuditEventsByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	var eventModels []models.AuditEventModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&eventModels).Error
	if err != nil {
		return nil, err
	}
	events := make([]*domain.AuditEvent, len(eventModels))
	for i := range eventModels {
		events[i] = mappers.ToDomainAuditEvent(&eventModels[i])
	}
	return events, nil
}
