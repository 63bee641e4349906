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

type DefaultEscrowRepository struct {
	db *gorm.DB
}

func NewDefaultEscrowRepository(db *gorm.DB) *DefaultEscrowRepository {
	return &DefaultEscrowRepository{db: db}
}

func (r *DefaultEscrowRepository) CreateEscrow(ctx context.Context, escrow *domain.Escrow) error {
	escrowModel := mappers.ToGORMEscrow(escrow)
	if escrowModel.ID == "" {
		escrowModel.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(escrowModel).Error; err != nil {
		return err
	}
	escrow.ID = escrowModel.ID
	return nil
}

func (r *DefaultEscrowRepository) GetEscrowByID(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	var escrowModel models.EscrowModel
	if err := r.db.WithContext(ctx).Where("id = ?", escrowID).First(&escrowModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, err
	}
	return mappers.ToDomainEscrow(&escrowModel), nil
}

func (r *DefaultEscrowRepository) GetEscrowByTradeRef(ctx context.Context, tradeRef string) (*domain.Escrow, error) {
	var escrowModel models.EscrowModel
	if err := r.db.WithContext(ctx).Where("trade_ref = ?", tradeRef).First(&escrowModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, err
	}
	return mappers.ToDomainEscrow(&escrowModel), nil
}

func (r *DefaultEscrowRepository) UpdateEscrowStatus(ctx context.Context, escrowID string, status domain.EscrowStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.EscrowModel{}).
		Where("id = ?", escrowID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEscrowNotFound
	}
	return nil
}

func (r *DefaultEscrowRepository) FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*domain.Escrow, error) {
	var escrowModels []models.EscrowModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.EscrowPendingPayment, olderThan).
		Find(&escrowModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainEscrows(escrowModels), nil
}

func (r *DefaultEscrowRepository) FindStalePaymentConfirmed(ctx context.Context, olderThan time.Time) ([]*domain.Escrow, error) {
	var escrowModels []models.EscrowModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_confirmed_at < ?", domain.EscrowPaymentConfirmed, olderThan).
		Find(&escrowModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainEscrows(escrowModels), nil
}

// FindOrphanedEscrows returns escrows whose payment was confirmed but which
// have neither a holding (live or released) nor a deposit transaction: the
// settlement never landed. The recovery CLI replays settlement for these.
func (r *DefaultEscrowRepository) FindOrphanedEscrows(ctx context.Context) ([]*domain.Escrow, error) {
	var escrowModels []models.EscrowModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.EscrowStatus{domain.EscrowPaymentConfirmed, domain.EscrowActive, domain.EscrowCompleted}).
		Where("NOT EXISTS (SELECT 1 FROM escrow_holdings WHERE escrow_holdings.escrow_id = escrows.id)").
		Where("NOT EXISTS (SELECT 1 FROM transactions WHERE transactions.escrow_id = escrows.id AND transactions.type = ?)", domain.TransactionDeposit).
		Order("created_at ASC").
		Find(&escrowModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainEscrows(escrowModels), nil
}

func (r *DefaultEscrowRepository) GetLiveHolding(ctx context.Context, escrowID string) (*domain.EscrowHolding, error) {
	var holdingModel models.EscrowHoldingModel
	err := r.db.WithContext(ctx).
		Where("escrow_id = ? AND status = ?", escrowID, domain.HoldingHeld).
		First(&holdingModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHoldingNotFound
		}
		return nil, err
	}
	return mappers.ToDomainHolding(&holdingModel), nil
}

func toDomainEscrows(escrowModels []models.EscrowModel) []*domain.Escrow {
	escrows := make([]*domain.Escrow, len(escrowModels))
	for i := range escrowModels {
		escrows[i] = mappers.ToDomainEscrow(&escrowModels[i])
	}
	return escrows
}
