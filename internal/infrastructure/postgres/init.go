package postgres

import (
	"log"

	"github.com/lockbay/lockbay-payment-service/internal/config"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.PaymentConfig) *gorm.DB {
	dsn := cfg.PaymentDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	db.AutoMigrate(
		&models.EscrowModel{},
		&models.EscrowHoldingModel{},
		&models.TransactionModel{},
		&models.WalletModel{},
		&models.CashoutModel{},
		&models.ExchangeOrderModel{},
		&models.DisputeModel{},
		&models.ProcessedWebhookEventModel{},
		&models.WebhookDeliveryModel{},
		&models.AuditEventModel{},
		&models.OTPCodeModel{},
		&models.EmailVerificationModel{},
	)

	return db
}
