package mappers

import (
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
)

func ToDomainEscrow(model *models.EscrowModel) *domain.Escrow {
	return &domain.Escrow{
		ID:                 model.ID,
		TradeRef:           model.TradeRef,
		BuyerID:            model.BuyerID,
		SellerID:           model.SellerID,
		Amount:             model.Amount,
		Currency:           model.Currency,
		FeePercent:         model.FeePercent,
		ExpectedTotal:      model.ExpectedTotal,
		Status:             model.Status,
		CryptoAmount:       model.CryptoAmount,
		CryptoCurrency:     model.CryptoCurrency,
		TxHash:             model.TxHash,
		CallbackURL:        model.CallbackURL,
		CreatedAt:          model.CreatedAt,
		ExpiresAt:          model.ExpiresAt,
		ResponseDeadline:   model.ResponseDeadline,
		PaymentConfirmedAt: model.PaymentConfirmedAt,
		CompletedAt:        model.CompletedAt,
		CancelledAt:        model.CancelledAt,
	}
}

func ToGORMEscrow(escrow *domain.Escrow) *models.EscrowModel {
	return &models.EscrowModel{
		ID:                 escrow.ID,
		TradeRef:           escrow.TradeRef,
		BuyerID:            escrow.BuyerID,
		SellerID:           escrow.SellerID,
		Amount:             escrow.Amount,
		Currency:           escrow.Currency,
		FeePercent:         escrow.FeePercent,
		ExpectedTotal:      escrow.ExpectedTotal,
		Status:             escrow.Status,
		CryptoAmount:       escrow.CryptoAmount,
		CryptoCurrency:     escrow.CryptoCurrency,
		TxHash:             escrow.TxHash,
		CallbackURL:        escrow.CallbackURL,
		CreatedAt:          escrow.CreatedAt,
		ExpiresAt:          escrow.ExpiresAt,
		ResponseDeadline:   escrow.ResponseDeadline,
		PaymentConfirmedAt: escrow.PaymentConfirmedAt,
		CompletedAt:        escrow.CompletedAt,
		CancelledAt:        escrow.CancelledAt,
	}
}

func ToDomainHolding(model *models.EscrowHoldingModel) *domain.EscrowHolding {
	return &domain.EscrowHolding{
		ID:         model.ID,
		EscrowID:   model.EscrowID,
		Amount:     model.Amount,
		Currency:   model.Currency,
		Status:     model.Status,
		CreatedAt:  model.CreatedAt,
		ReleasedAt: model.ReleasedAt,
	}
}

func ToGORMHolding(holding *domain.EscrowHolding) *models.EscrowHoldingModel {
	return &models.EscrowHoldingModel{
		ID:         holding.ID,
		EscrowID:   holding.EscrowID,
		Amount:     holding.Amount,
		Currency:   holding.Currency,
		Status:     holding.Status,
		CreatedAt:  holding.CreatedAt,
		ReleasedAt: holding.ReleasedAt,
	}
}
