package models

import (
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

type DisputeModel struct {
	ID          string               `gorm:"primaryKey;type:uuid"`
	EscrowID    string               `gorm:"type:uuid;not null;index:idx_dispute_escrow"`
	InitiatorID int64                `gorm:"not null"`
	Reason      string               `gorm:"not null"`
	Status      domain.DisputeStatus `gorm:"index:idx_dispute_status;not null"`
	ResolvedBy  string
	Resolution  string
	Escrow      EscrowModel `gorm:"foreignKey:EscrowID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	UpdatedAt   time.Time
}

func (DisputeModel) TableName() string {
	return "disputes"
}
