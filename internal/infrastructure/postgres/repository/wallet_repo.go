package repository

import (
	"context"
	"errors"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultWalletRepository struct {
	db *gorm.DB
}

func NewDefaultWalletRepository(db *gorm.DB) *DefaultWalletRepository {
	return &DefaultWalletRepository{db: db}
}

func (r *DefaultWalletRepository) GetWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	var walletModel models.WalletModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&walletModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return mappers.ToDomainWallet(&walletModel), nil
}

func (r *DefaultWalletRepository) GetWalletsByUserID(ctx context.Context, userID int64) ([]*domain.Wallet, error) {
	var walletModels []models.WalletModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("currency ASC").
		Find(&walletModels).Error
	if err != nil {
		return nil, err
	}
	wallets := make([]*domain.Wallet, len(walletModels))
	for i := range walletModels {
		wallets[i] = mappers.ToDomainWallet(&walletModels[i])
	}
	return wallets, nil
}
