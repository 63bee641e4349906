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

type DefaultExchangeOrderRepository struct {
	db *gorm.DB
}

func NewDefaultExchangeOrderRepository(db *gorm.DB) *DefaultExchangeOrderRepository {
	return &DefaultExchangeOrderRepository{db: db}
}

func (r *DefaultExchangeOrderRepository) CreateExchangeOrder(ctx context.Context, order *domain.ExchangeOrder) error {
	orderModel := mappers.ToGORMExchangeOrder(order)
	if orderModel.ID == "" {
		orderModel.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(orderModel).Error; err != nil {
		return err
	}
	order.ID = orderModel.ID
	return nil
}

func (r *DefaultExchangeOrderRepository) GetExchangeOrderByID(ctx context.Context, orderID string) (*domain.ExchangeOrder, error) {
	var orderModel models.ExchangeOrderModel
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&orderModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExchangeOrderNotFound
		}
		return nil, err
	}
	return mappers.ToDomainExchangeOrder(&orderModel), nil
}

func (r *DefaultExchangeOrderRepository) UpdateExchangeOrderStatus(ctx context.Context, orderID string, status domain.ExchangeOrderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.ExchangeOrderModel{}).
		Where("id = ?", orderID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrExchangeOrderNotFound
	}
	return nil
}

func (r *DefaultExchangeOrderRepository) FindExpiredRateLocks(ctx context.Context, now time.Time) ([]*domain.ExchangeOrder, error) {
	var orderModels []models.ExchangeOrderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND rate_locked_until < ?", domain.ExchangeQuoted, now).
		Find(&orderModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainExchangeOrders(orderModels), nil
}

func (r *DefaultExchangeOrderRepository) FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*domain.ExchangeOrder, error) {
	var orderModels []models.ExchangeOrderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.ExchangePendingPayment, olderThan).
		Find(&orderModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainExchangeOrders(orderModels), nil
}

func (r *DefaultExchangeOrderRepository) FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]*domain.ExchangeOrder, error) {
	var orderModels []models.ExchangeOrderModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []domain.ExchangeOrderStatus{domain.ExchangePaid, domain.ExchangeProcessing}, olderThan).
		Find(&orderModels).Error
	if err != nil {
		return nil, err
	}
	return toDomainExchangeOrders(orderModels), nil
}

func toDomainExchangeOrders(orderModels []models.ExchangeOrderModel) []*domain.ExchangeOrder {
	orders := make([]*domain.ExchangeOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = mappers.ToDomainExchangeOrder(&orderModels[i])
	}
	return orders
}
