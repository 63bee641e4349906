package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Trade references end up in support threads and provider dashboards, so the
// suffix alphabet drops lookalike characters (0/O, 1/I/L).
const (
	tradeRefAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	tradeRefLength   = 10
)

const defaultEscrowPaymentWindow = 30 * time.Minute

type CreateEscrowInput struct {
	BuyerID     int64
	SellerID    *int64
	Amount      decimal.Decimal
	Currency    string
	FeePercent  decimal.Decimal
	CallbackURL string
}

type EscrowUsecase interface {
	CreateEscrow(ctx context.Context, in CreateEscrowInput) (*domain.Escrow, error)
	GetEscrow(ctx context.Context, escrowID string) (*domain.Escrow, error)
}

// DefaultEscrowUsecase opens escrows in pending_payment. The minted trade
// reference is what the buyer attaches to their payment; the webhook pipeline
// routes the confirmation back through it.
type DefaultEscrowUsecase struct {
	escrows domain.EscrowRepository
	log     *slog.Logger
}

func NewDefaultEscrowUsecase(escrows domain.EscrowRepository, log *slog.Logger) *DefaultEscrowUsecase {
	return &DefaultEscrowUsecase{escrows: escrows, log: log}
}

func (uc *DefaultEscrowUsecase) CreateEscrow(ctx context.Context, in CreateEscrowInput) (*domain.Escrow, error) {
	if in.BuyerID <= 0 {
		return nil, fmt.Errorf("buyer id must be positive, got %d", in.BuyerID)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("escrow amount must be positive, got %s", in.Amount.String())
	}
	if in.FeePercent.IsNegative() {
		return nil, fmt.Errorf("fee percent must not be negative, got %s", in.FeePercent.String())
	}
	if in.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	generate, err := nanoid.CustomASCII(tradeRefAlphabet, tradeRefLength)
	if err != nil {
		return nil, fmt.Errorf("init trade ref generator: %w", err)
	}

	fee := in.Amount.Mul(in.FeePercent).Div(decimal.NewFromInt(100)).Round(2)
	now := time.Now()
	escrow := &domain.Escrow{
		TradeRef:      fmt.Sprintf("ESCROW-%d-%s", in.BuyerID, generate()),
		BuyerID:       in.BuyerID,
		SellerID:      in.SellerID,
		Amount:        in.Amount,
		Currency:      strings.ToUpper(in.Currency),
		FeePercent:    in.FeePercent,
		ExpectedTotal: in.Amount.Add(fee),
		Status:        domain.EscrowPendingPayment,
		CallbackURL:   in.CallbackURL,
		CreatedAt:     now,
		ExpiresAt:     now.Add(defaultEscrowPaymentWindow),
	}
	if err := uc.escrows.CreateEscrow(ctx, escrow); err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}

	uc.log.Info("escrow opened",
		"escrow_id", escrow.ID,
		"trade_ref", escrow.TradeRef,
		"buyer_id", escrow.BuyerID,
		"amount", escrow.Amount.String(),
		"expected_total", escrow.ExpectedTotal.String())
	return escrow, nil
}

func (uc *DefaultEscrowUsecase) GetEscrow(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	return uc.escrows.GetEscrowByID(ctx, escrowID)
}
