package repository

import (
	"context"
	"errors"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultDisputeRepository struct {
	db *gorm.DB
}

func NewDefaultDisputeRepository(db *gorm.DB) *DefaultDisputeRepository {
	return &DefaultDisputeRepository{db: db}
}

func (r *DefaultDisputeRepository) GetDisputeByID(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	var disputeModel models.DisputeModel
	if err := r.db.WithContext(ctx).Where("id = ?", disputeID).First(&disputeModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, err
	}
	return mappers.ToDomainDispute(&disputeModel), nil
}

func (r *DefaultDisputeRepository) GetDisputeByEscrowID(ctx context.Context, escrowID string) (*domain.Dispute, error) {
	var disputeModel models.DisputeModel
	err := r.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("created_at DESC").
		First(&disputeModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, err
	}
	return mappers.ToDomainDispute(&disputeModel), nil
}

func (r *DefaultDisputeRepository) UpdateDisputeStatus(ctx context.Context, disputeID string, status domain.DisputeStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.DisputeModel{}).
		Where("id = ?", disputeID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDisputeNotFound
	}
	return nil
}

func (r *DefaultDisputeRepository) CountByStatus(ctx context.Context, status domain.DisputeStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DisputeModel{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
