package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettlementStore implements domain.SettlementStore over gorm. WithinTx
// rebinds the store to the transaction handle, so every method works the same
// inside and outside a transaction.
type GormSettlementStore struct {
	db *gorm.DB
}

func NewGormSettlementStore(db *gorm.DB) *GormSettlementStore {
	return &GormSettlementStore{db: db}
}

func (s *GormSettlementStore) WithinTx(ctx context.Context, fn func(txStore domain.SettlementStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormSettlementStore{db: tx})
	})
}

func (s *GormSettlementStore) GetEscrowForUpdate(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	var escrowModel models.EscrowModel
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", escrowID).
		First(&escrowModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, err
	}
	return mappers.ToDomainEscrow(&escrowModel), nil
}

func (s *GormSettlementStore) SaveEscrow(ctx context.Context, escrow *domain.Escrow) error {
	return s.db.WithContext(ctx).Save(mappers.ToGORMEscrow(escrow)).Error
}

func (s *GormSettlementStore) GetLiveHolding(ctx context.Context, escrowID string) (*domain.EscrowHolding, error) {
	var holdingModel models.EscrowHoldingModel
	err := s.db.WithContext(ctx).
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

func (s *GormSettlementStore) CreateHolding(ctx context.Context, holding *domain.EscrowHolding) error {
	holdingModel := mappers.ToGORMHolding(holding)
	if holdingModel.ID == "" {
		holdingModel.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(holdingModel).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHoldingExists
		}
		return err
	}
	holding.ID = holdingModel.ID
	return nil
}

func (s *GormSettlementStore) ReleaseHolding(ctx context.Context, holdingID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.EscrowHoldingModel{}).
		Where("id = ? AND status = ?", holdingID, domain.HoldingHeld).
		Updates(map[string]interface{}{
			"status":      domain.HoldingReleased,
			"released_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrHoldingNotFound
	}
	return nil
}

func (s *GormSettlementStore) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	txnModel := mappers.ToGORMTransaction(txn)
	if txnModel.ID == "" {
		txnModel.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(txnModel).Error; err != nil {
		return err
	}
	txn.ID = txnModel.ID
	return nil
}

// GetWalletForUpdate locks the wallet row for the rest of the transaction,
// creating a zero-balance row first when none exists. A concurrent create
// loses on the unique (user_id, currency) index and falls through to the
// locked read.
func (s *GormSettlementStore) GetWalletForUpdate(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	var walletModel models.WalletModel
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&walletModel).Error
	if err == nil {
		return mappers.ToDomainWallet(&walletModel), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	walletModel = models.WalletModel{
		ID:       uuid.NewString(),
		UserID:   userID,
		Currency: currency,
	}
	if err := s.db.WithContext(ctx).Create(&walletModel).Error; err != nil && !isUniqueViolation(err) {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&walletModel).Error
	if err != nil {
		return nil, err
	}
	return mappers.ToDomainWallet(&walletModel), nil
}

func (s *GormSettlementStore) SaveWallet(ctx context.Context, wallet *domain.Wallet) error {
	return s.db.WithContext(ctx).Save(mappers.ToGORMWallet(wallet)).Error
}

func (s *GormSettlementStore) IsWebhookProcessed(ctx context.Context, provider, externalTxID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ProcessedWebhookEventModel{}).
		Where("provider = ? AND external_tx_id = ?", provider, externalTxID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormSettlementStore) MarkWebhookProcessed(ctx context.Context, event *domain.ProcessedWebhookEvent) error {
	eventModel := mappers.ToGORMWebhookEvent(event)
	if eventModel.ID == "" {
		eventModel.ID = uuid.NewString()
	}
	if eventModel.ProcessedAt.IsZero() {
		eventModel.ProcessedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(eventModel).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateWebhookEvent
		}
		return err
	}
	event.ID = eventModel.ID
	return nil
}

func (s *GormSettlementStore) CreateCashout(ctx context.Context, cashout *domain.Cashout) error {
	cashoutModel := mappers.ToGORMCashout(cashout)
	if cashoutModel.ID == "" {
		cashoutModel.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(cashoutModel).Error; err != nil {
		return err
	}
	cashout.ID = cashoutModel.ID
	return nil
}

func (s *GormSettlementStore) GetCashoutForUpdate(ctx context.Context, cashoutID string) (*domain.Cashout, error) {
	var cashoutModel models.CashoutModel
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cashoutID).
		First(&cashoutModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCashoutNotFound
		}
		return nil, err
	}
	return mappers.ToDomainCashout(&cashoutModel), nil
}

func (s *GormSettlementStore) SaveCashout(ctx context.Context, cashout *domain.Cashout) error {
	return s.db.WithContext(ctx).Save(mappers.ToGORMCashout(cashout)).Error
}

func (s *GormSettlementStore) GetExchangeOrderForUpdate(ctx context.Context, orderID string) (*domain.ExchangeOrder, error) {
	var orderModel models.ExchangeOrderModel
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&orderModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExchangeOrderNotFound
		}
		return nil, err
	}
	return mappers.ToDomainExchangeOrder(&orderModel), nil
}

func (s *GormSettlementStore) SaveExchangeOrder(ctx context.Context, order *domain.ExchangeOrder) error {
	return s.db.WithContext(ctx).Save(mappers.ToGORMExchangeOrder(order)).Error
}

func (s *GormSettlementStore) CreateDispute(ctx context.Context, dispute *domain.Dispute) error {
	disputeModel := mappers.ToGORMDispute(dispute)
	if disputeModel.ID == "" {
		disputeModel.ID = uuid.NewString()
	}
	if disputeModel.CreatedAt.IsZero() {
		disputeModel.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(disputeModel).Error; err != nil {
		return err
	}
	dispute.ID = disputeModel.ID
	return nil
}

func (s *GormSettlementStore) ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.DisputeModel{}).
		Where("id = ?", disputeID).
		Updates(map[string]interface{}{
			"status":      domain.DisputeResolved,
			"resolved_by": resolvedBy,
			"resolution":  resolution,
			"resolved_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDisputeNotFound
	}
	return nil
}

func (s *GormSettlementStore) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	eventModel := mappers.ToGORMAuditEvent(event)
	if eventModel.ID == "" {
		eventModel.ID = uuid.NewString()
	}
	if eventModel.CreatedAt.IsZero() {
		eventModel.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(eventModel).Error; err != nil {
		return err
	}
	event.ID = eventModel.ID
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
