package models

import "time"

type AuditEventModel struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	Actor      string `gorm:"not null"`
	Action     string `gorm:"not null"`
	EntityType string `gorm:"index:idx_audit_entity;not null"`
	EntityID   string `gorm:"index:idx_audit_entity;not null"`
	OldStatus  string
	NewStatus  string
	Forced     bool `gorm:"default:false"`
	Detail     string
	CreatedAt  time.Time `gorm:"index:idx_audit_created_at"`
}

func (AuditEventModel) TableName() string {
	return "audit_events"
}

type OTPCodeModel struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	UserID     int64     `gorm:"index:idx_otp_user;not null"`
	Purpose    string    `gorm:"not null"`
	CodeHash   string    `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index:idx_otp_expires"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (OTPCodeModel) TableName() string {
	return "otp_codes"
}

type EmailVerificationModel struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	UserID     int64     `gorm:"index:idx_email_verification_user;not null"`
	Email      string    `gorm:"not null"`
	Token      string    `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index:idx_email_verification_expires"`
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

func (EmailVerificationModel) TableName() string {
	return "email_verifications"
}
