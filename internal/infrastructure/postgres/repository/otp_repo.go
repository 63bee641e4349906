package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultOTPRepository struct {
	db *gorm.DB
}

func NewDefaultOTPRepository(db *gorm.DB) *DefaultOTPRepository {
	return &DefaultOTPRepository{db: db}
}

func (r *DefaultOTPRepository) CreateOTPCode(ctx context.Context, code *domain.OTPCode) error {
	codeModel := models.OTPCodeModel{
		ID:        code.ID,
		UserID:    code.UserID,
		Purpose:   code.Purpose,
		CodeHash:  code.CodeHash,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: code.CreatedAt,
	}
	if codeModel.ID == "" {
		codeModel.ID = uuid.NewString()
	}
	if codeModel.CreatedAt.IsZero() {
		codeModel.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&codeModel).Error; err != nil {
		return err
	}
	code.ID = codeModel.ID
	return nil
}

func (r *DefaultOTPRepository) GetLiveOTPCode(ctx context.Context, userID int64, purpose string, now time.Time) (*domain.OTPCode, error) {
	var codeModel models.OTPCodeModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL AND expires_at > ?", userID, purpose, now).
		Order("created_at DESC").
		First(&codeModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, err
	}
	return &domain.OTPCode{
		ID:         codeModel.ID,
		UserID:     codeModel.UserID,
		Purpose:    codeModel.Purpose,
		CodeHash:   codeModel.CodeHash,
		ExpiresAt:  codeModel.ExpiresAt,
		ConsumedAt: codeModel.ConsumedAt,
		CreatedAt:  codeModel.CreatedAt,
	}, nil
}

func (r *DefaultOTPRepository) ConsumeOTPCode(ctx context.Context, codeID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.OTPCodeModel{}).
		Where("id = ? AND consumed_at IS NULL", codeID).
		Update("consumed_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOTPNotFound
	}
	return nil
}
