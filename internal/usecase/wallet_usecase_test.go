package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

func newWalletFixture() (*fakeStore, *DefaultWalletUsecase) {
	store := newFakeStore()
	uc := NewDefaultWalletUsecase(&fakeWalletRepo{store: store}, store, testLogger())
	return store, uc
}

func TestFreezeMovesAvailableToFrozen(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{UserID: 1001, Currency: "USD", AvailableBalance: dec("100")})

	if err := uc.Freeze(context.Background(), 1001, "USD", dec("30")); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	wallet := store.wallet(1001, "USD")
	if !wallet.AvailableBalance.Equal(dec("70")) || !wallet.FrozenBalance.Equal(dec("30")) {
		t.Errorf("wallet = available %s frozen %s, want 70/30", wallet.AvailableBalance, wallet.FrozenBalance)
	}
	// Freeze is an internal move, never a ledger entry.
	if n := len(store.txns); n != 0 {
		t.Errorf("ledger rows = %d, want 0", n)
	}
}

func TestFreezeRejectsOverdraw(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{UserID: 1001, Currency: "USD", AvailableBalance: dec("20")})

	err := uc.Freeze(context.Background(), 1001, "USD", dec("30"))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	wallet := store.wallet(1001, "USD")
	if !wallet.AvailableBalance.Equal(dec("20")) || !wallet.FrozenBalance.IsZero() {
		t.Errorf("wallet = %+v, rejection must not move funds", wallet)
	}
}

func TestUnfreezeRoundTrips(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{UserID: 1001, Currency: "USD", AvailableBalance: dec("100")})

	if err := uc.Freeze(context.Background(), 1001, "USD", dec("30")); err != nil {
		t.Fatal(err)
	}
	if err := uc.Unfreeze(context.Background(), 1001, "USD", dec("30")); err != nil {
		t.Fatalf("Unfreeze: %v", err)
	}

	wallet := store.wallet(1001, "USD")
	if !wallet.AvailableBalance.Equal(dec("100")) || !wallet.FrozenBalance.IsZero() {
		t.Errorf("wallet = available %s frozen %s, want 100/0", wallet.AvailableBalance, wallet.FrozenBalance)
	}
}

func TestUnfreezeRejectsMoreThanFrozen(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{UserID: 1001, Currency: "USD", AvailableBalance: dec("70"), FrozenBalance: dec("30")})

	err := uc.Unfreeze(context.Background(), 1001, "USD", dec("31"))
	if !errors.Is(err, domain.ErrInsufficientFrozen) {
		t.Fatalf("err = %v, want ErrInsufficientFrozen", err)
	}
}

func TestFreezeRejectsNonPositiveAmount(t *testing.T) {
	_, uc := newWalletFixture()

	if err := uc.Freeze(context.Background(), 1001, "USD", dec("0")); err == nil {
		t.Error("zero freeze accepted")
	}
	if err := uc.Unfreeze(context.Background(), 1001, "USD", dec("-5")); err == nil {
		t.Error("negative unfreeze accepted")
	}
}

func TestManualAdjustmentCredits(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{ID: "wal-1", UserID: 1001, Currency: "USD", AvailableBalance: dec("10")})

	if err := uc.ManualAdjustment(context.Background(), 1001, "USD", dec("25"), "admin:7", "support ticket 4411"); err != nil {
		t.Fatalf("ManualAdjustment: %v", err)
	}

	if w := store.wallet(1001, "USD"); !w.AvailableBalance.Equal(dec("35")) {
		t.Errorf("available = %s, want 35", w.AvailableBalance)
	}

	adjustments := store.transactionsOfType(domain.TransactionAdjustment)
	if len(adjustments) != 1 {
		t.Fatalf("adjustment rows = %d, want 1", len(adjustments))
	}
	txn := adjustments[0]
	if txn.Reference != "ADJUST-1001" || !txn.Amount.Equal(dec("25")) {
		t.Errorf("adjustment = %+v, want ADJUST-1001 for 25", txn)
	}
	if !strings.Contains(txn.MetadataJSON, `"credit"`) {
		t.Errorf("metadata = %s, want the credit direction", txn.MetadataJSON)
	}

	actions := store.auditActions()
	if len(actions) != 1 || actions[0] != "manual_adjustment" {
		t.Errorf("audit actions = %v, want [manual_adjustment]", actions)
	}
}

func TestManualAdjustmentDebits(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{ID: "wal-1", UserID: 1001, Currency: "USD", AvailableBalance: dec("40")})

	if err := uc.ManualAdjustment(context.Background(), 1001, "USD", dec("-15"), "admin:7", "chargeback recovery"); err != nil {
		t.Fatalf("ManualAdjustment: %v", err)
	}

	if w := store.wallet(1001, "USD"); !w.AvailableBalance.Equal(dec("25")) {
		t.Errorf("available = %s, want 25", w.AvailableBalance)
	}
	adjustments := store.transactionsOfType(domain.TransactionAdjustment)
	if len(adjustments) != 1 || !adjustments[0].Amount.Equal(dec("15")) {
		t.Fatalf("adjustments = %+v, want one row for abs(15)", adjustments)
	}
	if !strings.Contains(adjustments[0].MetadataJSON, `"debit"`) {
		t.Errorf("metadata = %s, want the debit direction", adjustments[0].MetadataJSON)
	}
}

func TestManualAdjustmentRefusesOverdraw(t *testing.T) {
	store, uc := newWalletFixture()
	store.putWallet(domain.Wallet{ID: "wal-1", UserID: 1001, Currency: "USD", AvailableBalance: dec("10")})

	err := uc.ManualAdjustment(context.Background(), 1001, "USD", dec("-15"), "admin:7", "typo")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance: balances never go negative", err)
	}
	if w := store.wallet(1001, "USD"); !w.AvailableBalance.Equal(dec("10")) {
		t.Errorf("available = %s, want untouched 10", w.AvailableBalance)
	}
	if n := len(store.txns); n != 0 {
		t.Errorf("ledger rows = %d, rejection must not write", n)
	}
}

func TestManualAdjustmentRejectsZero(t *testing.T) {
	_, uc := newWalletFixture()
	if err := uc.ManualAdjustment(context.Background(), 1001, "USD", dec("0"), "admin:7", ""); err == nil {
		t.Fatal("zero adjustment accepted")
	}
}

func TestGetBalanceUnknownWallet(t *testing.T) {
	_, uc := newWalletFixture()
	if _, err := uc.GetBalance(context.Background(), 42, "USD"); !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}
