package repository

import (
	"context"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

// DefaultCleanupRepository deletes expired verification artifacts. Consumed
// rows are kept until their expiry passes so audits can still see them.
type DefaultCleanupRepository struct {
	db *gorm.DB
}

func NewDefaultCleanupRepository(db *gorm.DB) *DefaultCleanupRepository {
	return &DefaultCleanupRepository{db: db}
}

func (r *DefaultCleanupRepository) CountExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OTPCodeModel{}).
		Where("expires_at < ?", now).
		Count(&count).Error
	return count, err
}

func (r *DefaultCleanupRepository) DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.OTPCodeModel{})
	return result.RowsAffected, result.Error
}

func (r *DefaultCleanupRepository) CountExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EmailVerificationModel{}).
		Where("expires_at < ? AND verified_at IS NULL", now).
		Count(&count).Error
	return count, err
}

func (r *DefaultCleanupRepository) DeleteExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? AND verified_at IS NULL", now).
		Delete(&models.EmailVerificationModel{})
	return result.RowsAffected, result.Error
}
