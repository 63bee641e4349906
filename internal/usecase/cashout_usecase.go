package usecase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	cashoutOTPTTL    = 10 * time.Minute
	cashoutOTPLength = 6
)

type CreateCashoutInput struct {
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Destination string
}

type CashoutUsecase interface {
	CreateCashout(ctx context.Context, in CreateCashoutInput) (*domain.Cashout, error)
	RequestOTP(ctx context.Context, cashoutID string) (string, error)
	VerifyOTP(ctx context.Context, cashoutID, code string) error
	ApproveCashout(ctx context.Context, cashoutID, admin string) error
	ExecuteCashout(ctx context.Context, cashoutID string) error
	FinishCashout(ctx context.Context, cashoutID string, succeeded bool, detail string) error
	CancelCashout(ctx context.Context, cashoutID, actor, reason string) error
}

// DefaultCashoutUsecase reserves funds at request time (available -> frozen)
// and only burns them once the external payout actually succeeded. A failed
// execution thaws the reservation instead of losing it.
type DefaultCashoutUsecase struct {
	cashouts domain.CashoutRepository
	otps     domain.OTPRepository
	store    domain.SettlementStore
	log      *slog.Logger
}

func NewDefaultCashoutUsecase(cashouts domain.CashoutRepository, otps domain.OTPRepository, store domain.SettlementStore, log *slog.Logger) *DefaultCashoutUsecase {
	return &DefaultCashoutUsecase{cashouts: cashouts, otps: otps, store: store, log: log}
}

func (uc *DefaultCashoutUsecase) CreateCashout(ctx context.Context, in CreateCashoutInput) (*domain.Cashout, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("cashout amount must be positive, got %s", in.Amount.String())
	}
	if err := validateDestination(in.Destination); err != nil {
		return nil, err
	}

	cashout := &domain.Cashout{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Destination: in.Destination,
		Status:      domain.CashoutPending,
	}
	err := uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		wallet, err := store.GetWalletForUpdate(ctx, in.UserID, in.Currency)
		if err != nil {
			return err
		}
		if wallet.AvailableBalance.LessThan(in.Amount) {
			return fmt.Errorf("%w: available %s, need %s",
				domain.ErrInsufficientBalance, wallet.AvailableBalance.String(), in.Amount.String())
		}
		wallet.AvailableBalance = wallet.AvailableBalance.Sub(in.Amount)
		wallet.FrozenBalance = wallet.FrozenBalance.Add(in.Amount)
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		return store.CreateCashout(ctx, cashout)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("cashout requested",
		"cashout_id", cashout.ID, "user_id", in.UserID, "amount", in.Amount.String())
	return cashout, nil
}

// RequestOTP issues a one-time code the user must echo back before the
// cashout reaches admin review. The plain code is returned to the caller for
// delivery; only its hash is stored.
func (uc *DefaultCashoutUsecase) RequestOTP(ctx context.Context, cashoutID string) (string, error) {
	cashout, err := uc.cashouts.GetCashoutByID(ctx, cashoutID)
	if err != nil {
		return "", err
	}
	if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, domain.CashoutOTPPending, false); !ok {
		return "", domain.NewStateTransitionError("cashout", cashout.Status, domain.CashoutOTPPending, reason)
	}

	generate, err := nanoid.CustomASCII("0123456789", cashoutOTPLength)
	if err != nil {
		return "", err
	}
	code := generate()

	if err := uc.otps.CreateOTPCode(ctx, &domain.OTPCode{
		UserID:    cashout.UserID,
		Purpose:   cashoutOTPPurpose(cashoutID),
		CodeHash:  hashOTPCode(code),
		ExpiresAt: time.Now().Add(cashoutOTPTTL),
	}); err != nil {
		return "", err
	}
	if err := uc.cashouts.UpdateCashoutStatus(ctx, cashoutID, domain.CashoutOTPPending); err != nil {
		return "", err
	}

	uc.log.Info("cashout otp issued", "cashout_id", cashoutID, "user_id", cashout.UserID)
	return code, nil
}

// VerifyOTP consumes the live code and moves the cashout to admin review.
func (uc *DefaultCashoutUsecase) VerifyOTP(ctx context.Context, cashoutID, code string) error {
	cashout, err := uc.cashouts.GetCashoutByID(ctx, cashoutID)
	if err != nil {
		return err
	}
	if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, domain.CashoutAdminPending, false); !ok {
		return domain.NewStateTransitionError("cashout", cashout.Status, domain.CashoutAdminPending, reason)
	}

	live, err := uc.otps.GetLiveOTPCode(ctx, cashout.UserID, cashoutOTPPurpose(cashoutID), time.Now())
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(live.CodeHash), []byte(hashOTPCode(code))) != 1 {
		return domain.ErrOTPMismatch
	}
	if err := uc.otps.ConsumeOTPCode(ctx, live.ID); err != nil {
		return err
	}
	if err := uc.cashouts.UpdateCashoutStatus(ctx, cashoutID, domain.CashoutAdminPending); err != nil {
		return err
	}

	uc.log.Info("cashout otp verified", "cashout_id", cashoutID, "user_id", cashout.UserID)
	return nil
}

func (uc *DefaultCashoutUsecase) ApproveCashout(ctx context.Context, cashoutID, admin string) error {
	cashout, err := uc.cashouts.GetCashoutByID(ctx, cashoutID)
	if err != nil {
		return err
	}
	if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, domain.CashoutApproved, false); !ok {
		return domain.NewStateTransitionError("cashout", cashout.Status, domain.CashoutApproved, reason)
	}
	if err := uc.cashouts.ApproveCashout(ctx, cashoutID, admin); err != nil {
		return err
	}
	uc.log.Info("cashout approved", "cashout_id", cashoutID, "admin", admin)
	return nil
}

func (uc *DefaultCashoutUsecase) ExecuteCashout(ctx context.Context, cashoutID string) error {
	cashout, err := uc.cashouts.GetCashoutByID(ctx, cashoutID)
	if err != nil {
		return err
	}
	if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, domain.CashoutExecuting, false); !ok {
		return domain.NewStateTransitionError("cashout", cashout.Status, domain.CashoutExecuting, reason)
	}
	return uc.cashouts.UpdateCashoutStatus(ctx, cashoutID, domain.CashoutExecuting)
}

// FinishCashout records the external payout result. Success burns the frozen
// reservation and writes the withdrawal; failure returns it to available.
func (uc *DefaultCashoutUsecase) FinishCashout(ctx context.Context, cashoutID string, succeeded bool, detail string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		cashout, err := store.GetCashoutForUpdate(ctx, cashoutID)
		if err != nil {
			return err
		}

		target := domain.CashoutSuccess
		if !succeeded {
			target = domain.CashoutFailed
		}
		if ok, reason := domain.CashoutTransitions.Validate(cashout.Status, target, false); !ok {
			return domain.NewStateTransitionError("cashout", cashout.Status, target, reason)
		}

		wallet, err := store.GetWalletForUpdate(ctx, cashout.UserID, cashout.Currency)
		if err != nil {
			return err
		}
		if wallet.FrozenBalance.LessThan(cashout.Amount) {
			return fmt.Errorf("%w: frozen %s, cashout %s",
				domain.ErrInsufficientFrozen, wallet.FrozenBalance.String(), cashout.Amount.String())
		}
		wallet.FrozenBalance = wallet.FrozenBalance.Sub(cashout.Amount)
		if !succeeded {
			wallet.AvailableBalance = wallet.AvailableBalance.Add(cashout.Amount)
		}
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}

		if succeeded {
			if err := store.CreateTransaction(ctx, &domain.Transaction{
				UserID:       cashout.UserID,
				Type:         domain.TransactionWithdrawal,
				Amount:       cashout.Amount,
				Currency:     cashout.Currency,
				Status:       domain.TransactionConfirmed,
				CashoutID:    &cashout.ID,
				Reference:    fmt.Sprintf("CASHOUT-%s", cashout.ID),
				MetadataJSON: fmt.Sprintf(`{"destination":%q,"detail":%q}`, cashout.Destination, detail),
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		cashout.Status = target
		cashout.ExecutedAt = &now
		cashout.Attempts++
		if err := store.SaveCashout(ctx, cashout); err != nil {
			return err
		}

		uc.log.Info("cashout finished",
			"cashout_id", cashoutID, "status", string(target), "detail", detail)
		return nil
	})
}

func (uc *DefaultCashoutUsecase) CancelCashout(ctx context.Context, cashoutID, actor, reason string) error {
	return uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		cashout, err := store.GetCashoutForUpdate(ctx, cashoutID)
		if err != nil {
			return err
		}
		if ok, why := domain.CashoutTransitions.Validate(cashout.Status, domain.CashoutCancelled, false); !ok {
			return domain.NewStateTransitionError("cashout", cashout.Status, domain.CashoutCancelled, why)
		}

		wallet, err := store.GetWalletForUpdate(ctx, cashout.UserID, cashout.Currency)
		if err != nil {
			return err
		}
		if wallet.FrozenBalance.LessThan(cashout.Amount) {
			return fmt.Errorf("%w: frozen %s, cashout %s",
				domain.ErrInsufficientFrozen, wallet.FrozenBalance.String(), cashout.Amount.String())
		}
		wallet.FrozenBalance = wallet.FrozenBalance.Sub(cashout.Amount)
		wallet.AvailableBalance = wallet.AvailableBalance.Add(cashout.Amount)
		if err := store.SaveWallet(ctx, wallet); err != nil {
			return err
		}

		oldStatus := cashout.Status
		cashout.Status = domain.CashoutCancelled
		if err := store.SaveCashout(ctx, cashout); err != nil {
			return err
		}

		return store.CreateAuditEvent(ctx, &domain.AuditEvent{
			Actor:      actor,
			Action:     "cashout_cancelled",
			EntityType: "cashout",
			EntityID:   cashoutID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(domain.CashoutCancelled),
			Detail:     reason,
		})
	})
}

func cashoutOTPPurpose(cashoutID string) string {
	return "cashout:" + cashoutID
}

func hashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// validateDestination accepts "bank:{bank_code}:{account_number}" or
// "crypto:{currency}:{address}".
func validateDestination(destination string) error {
	parts := strings.SplitN(destination, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("malformed cashout destination %q", destination)
	}
	switch parts[0] {
	case "bank", "crypto":
		return nil
	}
	return fmt.Errorf("unsupported cashout destination kind %q", parts[0])
}
