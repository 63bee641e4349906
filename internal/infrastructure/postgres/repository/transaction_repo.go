package repository

import (
	"context"
	"errors"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultTransactionRepository struct {
	db *gorm.DB
}

func NewDefaultTransactionRepository(db *gorm.DB) *DefaultTransactionRepository {
	return &DefaultTransactionRepository{db: db}
}

func (r *DefaultTransactionRepository) GetTransactionByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	var txModel models.TransactionModel
	if err := r.db.WithContext(ctx).Where("id = ?", txID).First(&txModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTransaction(&txModel), nil
}

func (r *DefaultTransactionRepository) GetTransactionsByEscrowID(ctx context.Context, escrowID string) ([]*domain.Transaction, error) {
	var txModels []models.TransactionModel
	err := r.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("created_at ASC").
		Find(&txModels).Error
	if err != nil {
		return nil, err
	}
	txs := make([]*domain.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = mappers.ToDomainTransaction(&txModels[i])
	}
	return txs, nil
}

// UpdateTransactionStatus writes the status column only. Callers are expected
// to have validated the transition first; ledger rows are otherwise immutable.
func (r *DefaultTransactionRepository) UpdateTransactionStatus(ctx context.Context, txID string, status domain.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id = ?", txID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}
