package mappers

import (
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
)

func ToDomainTransaction(model *models.TransactionModel) *domain.Transaction {
	return &domain.Transaction{
		ID:              model.ID,
		UserID:          model.UserID,
		Type:            model.Type,
		Amount:          model.Amount,
		Currency:        model.Currency,
		Status:          model.Status,
		EscrowID:        model.EscrowID,
		CashoutID:       model.CashoutID,
		ExchangeOrderID: model.ExchangeOrderID,
		Reference:       model.Reference,
		MetadataJSON:    model.MetadataJSON,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func ToGORMTransaction(txn *domain.Transaction) *models.TransactionModel {
	return &models.TransactionModel{
		ID:              txn.ID,
		UserID:          txn.UserID,
		Type:            txn.Type,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		Status:          txn.Status,
		EscrowID:        txn.EscrowID,
		CashoutID:       txn.CashoutID,
		ExchangeOrderID: txn.ExchangeOrderID,
		Reference:       txn.Reference,
		MetadataJSON:    txn.MetadataJSON,
		CreatedAt:       txn.CreatedAt,
		UpdatedAt:       txn.UpdatedAt,
	}
}

func ToDomainWallet(model *models.WalletModel) *domain.Wallet {
	return &domain.Wallet{
		ID:               model.ID,
		UserID:           model.UserID,
		Currency:         model.Currency,
		AvailableBalance: model.AvailableBalance,
		FrozenBalance:    model.FrozenBalance,
		TradingCredit:    model.TradingCredit,
		UpdatedAt:        model.UpdatedAt,
	}
}

func ToGORMWallet(wallet *domain.Wallet) *models.WalletModel {
	return &models.WalletModel{
		ID:               wallet.ID,
		UserID:           wallet.UserID,
		Currency:         wallet.Currency,
		AvailableBalance: wallet.AvailableBalance,
		FrozenBalance:    wallet.FrozenBalance,
		TradingCredit:    wallet.TradingCredit,
		UpdatedAt:        wallet.UpdatedAt,
	}
}
