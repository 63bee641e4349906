package mappers

import (
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/postgres/models"
)

func ToDomainCashout(model *models.CashoutModel) *domain.Cashout {
	return &domain.Cashout{
		ID:          model.ID,
		UserID:      model.UserID,
		Amount:      model.Amount,
		Currency:    model.Currency,
		Destination: model.Destination,
		Status:      model.Status,
		ApprovedBy:  model.ApprovedBy,
		ApprovedAt:  model.ApprovedAt,
		ExecutedAt:  model.ExecutedAt,
		Attempts:    model.Attempts,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func ToGORMCashout(cashout *domain.Cashout) *models.CashoutModel {
	return &models.CashoutModel{
		ID:          cashout.ID,
		UserID:      cashout.UserID,
		Amount:      cashout.Amount,
		Currency:    cashout.Currency,
		Destination: cashout.Destination,
		Status:      cashout.Status,
		ApprovedBy:  cashout.ApprovedBy,
		ApprovedAt:  cashout.ApprovedAt,
		ExecutedAt:  cashout.ExecutedAt,
		Attempts:    cashout.Attempts,
		CreatedAt:   cashout.CreatedAt,
		UpdatedAt:   cashout.UpdatedAt,
	}
}

func ToDomainExchangeOrder(model *models.ExchangeOrderModel) *domain.ExchangeOrder {
	return &domain.ExchangeOrder{
		ID:              model.ID,
		UserID:          model.UserID,
		FromCurrency:    model.FromCurrency,
		ToCurrency:      model.ToCurrency,
		FromAmount:      model.FromAmount,
		ToAmount:        model.ToAmount,
		Rate:            model.Rate,
		RateLockedUntil: model.RateLockedUntil,
		Status:          model.Status,
		Provider:        model.Provider,
		CreatedAt:       model.CreatedAt,
		PaidAt:          model.PaidAt,
		CompletedAt:     model.CompletedAt,
	}
}

func ToGORMExchangeOrder(order *domain.ExchangeOrder) *models.ExchangeOrderModel {
	return &models.ExchangeOrderModel{
		ID:              order.ID,
		UserID:          order.UserID,
		FromCurrency:    order.FromCurrency,
		ToCurrency:      order.ToCurrency,
		FromAmount:      order.FromAmount,
		ToAmount:        order.ToAmount,
		Rate:            order.Rate,
		RateLockedUntil: order.RateLockedUntil,
		Status:          order.Status,
		Provider:        order.Provider,
		CreatedAt:       order.CreatedAt,
		PaidAt:          order.PaidAt,
		CompletedAt:     order.CompletedAt,
	}
}

func ToDomainDispute(model *models.DisputeModel) *domain.Dispute {
	return &domain.Dispute{
		ID:          model.ID,
		EscrowID:    model.EscrowID,
		InitiatorID: model.InitiatorID,
		Reason:      model.Reason,
		Status:      model.Status,
		ResolvedBy:  model.ResolvedBy,
		Resolution:  model.Resolution,
		CreatedAt:   model.CreatedAt,
		ResolvedAt:  model.ResolvedAt,
	}
}

func ToGORMDispute(dispute *domain.Dispute) *models.DisputeModel {
	return &models.DisputeModel{
		ID:          dispute.ID,
		EscrowID:    dispute.EscrowID,
		InitiatorID: dispute.InitiatorID,
		Reason:      dispute.Reason,
		Status:      dispute.Status,
		ResolvedBy:  dispute.ResolvedBy,
		Resolution:  dispute.Resolution,
		CreatedAt:   dispute.CreatedAt,
		ResolvedAt:  dispute.ResolvedAt,
	}
}
