package repository

import (
	"context"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultStatsRepository runs the aggregate queries behind the admin
// dashboard snapshot. Callers cache the result; nothing here is cheap.
type DefaultStatsRepository struct {
	db *gorm.DB
}

func NewDefaultStatsRepository(db *gorm.DB) *DefaultStatsRepository {
	return &DefaultStatsRepository{db: db}
}

var liveEscrowStatuses = []domain.EscrowStatus{
	domain.EscrowPaymentConfirmed,
	domain.EscrowActive,
	domain.EscrowDisputed,
}

var openCashoutStatuses = []domain.CashoutStatus{
	domain.CashoutPending,
	domain.CashoutOTPPending,
	domain.CashoutAdminPending,
	domain.CashoutApproved,
	domain.CashoutExecuting,
}

func (r *DefaultStatsRepository) CollectAdminStats(ctx context.Context, since time.Time) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{}
	db := r.db.WithContext(ctx)

	err := db.Model(&models.EscrowModel{}).
		Where("status IN ?", liveEscrowStatuses).
		Count(&stats.ActiveEscrows).Error
	if err != nil {
		return nil, err
	}

	stats.ActiveEscrowVolume, err = sumColumn(db.Model(&models.EscrowModel{}).
		Where("status IN ?", liveEscrowStatuses), "amount")
	if err != nil {
		return nil, err
	}

	stats.HeldFunds, err = sumColumn(db.Model(&models.EscrowHoldingModel{}).
		Where("status = ?", domain.HoldingHeld), "amount")
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.CashoutModel{}).
		Where("status IN ?", openCashoutStatuses).
		Count(&stats.PendingCashouts).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.DisputeModel{}).
		Where("status <> ?", domain.DisputeResolved).
		Count(&stats.OpenDisputes).Error
	if err != nil {
		return nil, err
	}

	stats.SettledTodayVolume, err = sumColumn(db.Model(&models.TransactionModel{}).
		Where("type = ? AND status = ? AND created_at >= ?", domain.TransactionDeposit, domain.TransactionConfirmed, since), "amount")
	if err != nil {
		return nil, err
	}

	stats.FeesTodayVolume, err = sumColumn(db.Model(&models.TransactionModel{}).
		Where("type = ? AND status = ? AND created_at >= ?", domain.TransactionFee, domain.TransactionConfirmed, since), "amount")
	if err != nil {
		return nil, err
	}

	stats.WalletAvailable, err = sumColumn(db.Model(&models.WalletModel{}), "available_balance")
	if err != nil {
		return nil, err
	}

	stats.WalletFrozen, err = sumColumn(db.Model(&models.WalletModel{}), "frozen_balance")
	if err != nil {
		return nil, err
	}

	stats.GeneratedAt = time.Now()
	return stats, nil
}

func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := query.Select("COALESCE(SUM(" + column + "), 0)").Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
