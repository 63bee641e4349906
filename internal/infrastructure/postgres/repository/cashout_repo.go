package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultCashoutRepository struct {
	db *gorm.DB
}

func NewDefaultCashoutRepository(db *gorm.DB) *DefaultCashoutRepository {
	return &DefaultCashoutRepository{db: db}
}

func (r *DefaultCashoutRepository) GetCashoutByID(ctx context.Context, cashoutID string) (*domain.Cashout, error) {
	var cashoutModel models.CashoutModel
	if err := r.db.WithContext(ctx).Where("id = ?", cashoutID).First(&cashoutModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCashoutNotFound
		}
		return nil, err
	}
	return mappers.ToDomainCashout(&cashoutModel), nil
}

func (r *DefaultCashoutRepository) UpdateCashoutStatus(ctx context.Context, cashoutID string, status domain.CashoutStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.CashoutModel{}).
		Where("id = ?", cashoutID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCashoutNotFound
	}
	return nil
}

func (r *DefaultCashoutRepository) ApproveCashout(ctx context.Context, cashoutID, admin string) error {
	result := r.db.WithContext(ctx).
		Model(&models.CashoutModel{}).
		Where("id = ?", cashoutID).
		Updates(map[string]interface{}{
			"status":      domain.CashoutApproved,
			"approved_by": admin,
			"approved_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCashoutNotFound
	}
	return nil
}

func (r *DefaultCashoutRepository) FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]*domain.Cashout, error) {
	var cashoutModels []models.CashoutModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.CashoutExecuting, olderThan).
		Find(&cashoutModels).Error
	if err != nil {
		return nil, err
	}
	cashouts := make([]*domain.Cashout, len(cashoutModels))
	for i := range cashoutModels {
		cashouts[i] = mappers.ToDomainCashout(&cashoutModels[i])
	}
	return cashouts, nil
}

func (r *DefaultCashoutRepository) CountByStatus(ctx context.Context, status domain.CashoutStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CashoutModel{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
