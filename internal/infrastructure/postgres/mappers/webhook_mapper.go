package mappers

import (
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
)

func ToDomainWebhookEvent(model *models.ProcessedWebhookEventModel) *domain.ProcessedWebhookEvent {
	return &domain.ProcessedWebhookEvent{
		ID:           model.ID,
		Provider:     model.Provider,
		ExternalTxID: model.ExternalTxID,
		ReferenceID:  model.ReferenceID,
		Amount:       model.Amount,
		Currency:     model.Currency,
		ProcessedAt:  model.ProcessedAt,
	}
}

func ToGORMWebhookEvent(event *domain.ProcessedWebhookEvent) *models.ProcessedWebhookEventModel {
	return &models.ProcessedWebhookEventModel{
		ID:           event.ID,
		Provider:     event.Provider,
		ExternalTxID: event.ExternalTxID,
		ReferenceID:  event.ReferenceID,
		Amount:       event.Amount,
		Currency:     event.Currency,
		ProcessedAt:  event.ProcessedAt,
	}
}

func ToDomainWebhookDelivery(model *models.WebhookDeliveryModel) *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		ID:             model.ID,
		URL:            model.URL,
		EventType:      model.EventType,
		PayloadJSON:    model.PayloadJSON,
		Signature:      model.Signature,
		Status:         model.Status,
		Attempts:       model.Attempts,
		MaxAttempts:    model.MaxAttempts,
		NextRetryAt:    model.NextRetryAt,
		FirstAttemptAt: model.FirstAttemptAt,
		DeliveredAt:    model.DeliveredAt,
		CreatedAt:      model.CreatedAt,
	}
}

func ToGORMWebhookDelivery(delivery *domain.WebhookDelivery) *models.WebhookDeliveryModel {
	return &models.WebhookDeliveryModel{
		ID:             delivery.ID,
		URL:            delivery.URL,
		EventType:      delivery.EventType,
		PayloadJSON:    delivery.PayloadJSON,
		Signature:      delivery.Signature,
		Status:         delivery.Status,
		Attempts:       delivery.Attempts,
		MaxAttempts:    delivery.MaxAttempts,
		NextRetryAt:    delivery.NextRetryAt,
		FirstAttemptAt: delivery.FirstAttemptAt,
		DeliveredAt:    delivery.DeliveredAt,
		CreatedAt:      delivery.CreatedAt,
	}
}

func ToDomainAuditEvent(model *models.AuditEventModel) *domain.AuditEvent {
	return &domain.AuditEvent{
		ID:         model.ID,
		Actor:      model.Actor,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		OldStatus:  model.OldStatus,
		NewStatus:  model.NewStatus,
		Forced:     model.Forced,
		Detail:     model.Detail,
		CreatedAt:  model.CreatedAt,
	}
}

func ToGORMAuditEvent(event *domain.AuditEvent) *models.AuditEventModel {
	return &models.AuditEventModel{
		ID:         event.ID,
		Actor:      event.Actor,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		OldStatus:  event.OldStatus,
		NewStatus:  event.NewStatus,
		Forced:     event.Forced,
		Detail:     event.Detail,
		CreatedAt:  event.CreatedAt,
	}
}
