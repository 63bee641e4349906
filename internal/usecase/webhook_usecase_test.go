package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/providers"
)

const webhookTestSecret = "test-secret"

type webhookFixture struct {
	store     *fakeStore
	locker    *fakeLocker
	publisher *fakePaymentPublisher
	callbacks *fakeCallbacks
	uc        *DefaultWebhookUsecase
}

func newWebhookFixture() *webhookFixture {
	store := newFakeStore()
	locker := newFakeLocker()
	publisher := &fakePaymentPublisher{}
	callbacks := &fakeCallbacks{}

	registry := providers.NewRegistry()
	registry.Register(providers.NewDynopay(), webhookTestSecret)

	settlement := NewDefaultSettlementUsecase(store, testLogger())
	uc := NewDefaultWebhookUsecase(
		registry,
		locker,
		store,
		&fakeEscrowRepo{store: store},
		settlement,
		publisher,
		callbacks,
		testMetrics,
		testLogger(),
	)
	return &webhookFixture{
		store:     store,
		locker:    locker,
		publisher: publisher,
		callbacks: callbacks,
		uc:        uc,
	}
}

func dynopayBody(t *testing.T, txID, reference, status, amount string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"transaction_id": txID,
		"reference":      reference,
		"status":         status,
		"amount":         amount,
		"currency":       "USD",
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func signedInput(body []byte) ProcessWebhookInput {
	return ProcessWebhookInput{
		Provider:  "dynopay",
		RawBody:   body,
		Signature: providers.Sign(webhookTestSecret, body),
	}
}

func TestProcessWebhookUnknownProvider(t *testing.T) {
	f := newWebhookFixture()
	_, err := f.uc.ProcessWebhook(context.Background(), ProcessWebhookInput{
		Provider: "nobody",
		RawBody:  []byte("{}"),
	})
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestProcessWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	body := dynopayBody(t, "dp-1", "ESCROW-1001-x", "completed", "105")

	_, err := f.uc.ProcessWebhook(context.Background(), ProcessWebhookInput{
		Provider:  "dynopay",
		RawBody:   body,
		Signature: providers.Sign("wrong-secret", body),
	})
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Errorf("error = %v, want ErrInvalidSignature", err)
	}
}

func TestProcessWebhookRejectsMalformedPayload(t *testing.T) {
	f := newWebhookFixture()
	body := []byte("not json at all")

	_, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Errorf("error = %v, want ErrMalformedPayload", err)
	}
}

func TestProcessWebhookRejectsUnparseableReference(t *testing.T) {
	f := newWebhookFixture()
	body := dynopayBody(t, "dp-2", "garbage-ref", "completed", "105")

	_, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if !errors.Is(err, domain.ErrMalformedReference) {
		t.Errorf("error = %v, want ErrMalformedReference", err)
	}
}

func TestProcessWebhookFallsBackToPathReference(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	// Payload carries no reference; the one embedded in the webhook URL is
	// the only way to route the payment.
	body := dynopayBody(t, "dp-11", "", "completed", "105")

	in := signedInput(body)
	in.ReferenceID = "ESCROW-1001-esc-1"
	outcome, err := f.uc.ProcessWebhook(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if outcome.Status != WebhookStatusSuccess {
		t.Errorf("status = %q, want success", outcome.Status)
	}
	if n := len(f.store.holdingsForEscrow("esc-1")); n != 1 {
		t.Errorf("holdings = %d, want 1", n)
	}
}

func TestProcessWebhookDefersUnconfirmedPayment(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	body := dynopayBody(t, "dp-3", "ESCROW-1001-esc-1", "pending", "105")

	outcome, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if outcome.Status != WebhookStatusReceived {
		t.Errorf("status = %q, want received", outcome.Status)
	}
	// Deferred payments write nothing, not even the idempotency row: the
	// provider will redeliver once the payment confirms.
	if processed, _ := f.store.IsWebhookProcessed(context.Background(), "dynopay", "dp-3"); processed {
		t.Error("unconfirmed payment marked processed")
	}
	if len(f.store.holdingsForEscrow("esc-1")) != 0 {
		t.Error("unconfirmed payment settled")
	}
}

func TestProcessWebhookSettlesEscrow(t *testing.T) {
	f := newWebhookFixture()
	escrow := newPendingEscrow("esc-1", 1001, "100", "105")
	escrow.CallbackURL = "https://platform.example/hooks"
	f.store.putEscrow(escrow)
	body := dynopayBody(t, "dp-4", "ESCROW-1001-esc-1", "completed", "105")

	outcome, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if outcome.Status != WebhookStatusSuccess {
		t.Errorf("status = %q, want success", outcome.Status)
	}
	if outcome.Settlement == nil || !outcome.Settlement.BaseAmount.Equal(dec("100")) {
		t.Errorf("settlement = %+v, want base 100", outcome.Settlement)
	}

	if processed, _ := f.store.IsWebhookProcessed(context.Background(), "dynopay", "dp-4"); !processed {
		t.Error("idempotency row missing after settlement")
	}
	if got := f.store.escrow("esc-1").Status; got != domain.EscrowPaymentConfirmed {
		t.Errorf("escrow status = %s, want payment_confirmed", got)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Status != "settled" {
		t.Errorf("payment events = %+v, want one settled", f.publisher.events)
	}
	if len(f.callbacks.enqueued) != 1 || f.callbacks.enqueued[0] != "escrow.settled" {
		t.Errorf("callbacks = %v, want [escrow.settled]", f.callbacks.enqueued)
	}
	// The lease must be released once processing finishes.
	if len(f.locker.held) != 0 {
		t.Error("payment lock still held after processing")
	}
}

func TestProcessWebhookRedeliveryIsDuplicate(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	body := dynopayBody(t, "dp-5", "ESCROW-1001-esc-1", "completed", "105")

	if _, err := f.uc.ProcessWebhook(context.Background(), signedInput(body)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if outcome.Status != WebhookStatusSuccess {
		t.Errorf("status = %q, want success for duplicate", outcome.Status)
	}

	if n := len(f.store.holdingsForEscrow("esc-1")); n != 1 {
		t.Errorf("holdings after redelivery = %d, want 1", n)
	}
	if n := len(f.store.transactionsOfType(domain.TransactionDeposit)); n != 1 {
		t.Errorf("deposits after redelivery = %d, want 1", n)
	}
}

func TestProcessWebhookLockContention(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	body := dynopayBody(t, "dp-6", "ESCROW-1001-esc-1", "completed", "105")

	// Another delivery of the same event is mid-flight.
	if _, err := f.locker.Acquire(context.Background(), "dynopay", "dp-6"); err != nil {
		t.Fatal(err)
	}

	outcome, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if outcome.Status != WebhookStatusReceived {
		t.Errorf("status = %q, want received while contended", outcome.Status)
	}
	if len(f.store.holdingsForEscrow("esc-1")) != 0 {
		t.Error("contended delivery settled anyway")
	}
}

func TestProcessWebhookFailsClosedWhenLockBackendDown(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	f.locker.down = true
	body := dynopayBody(t, "dp-7", "ESCROW-1001-esc-1", "completed", "105")

	_, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if !errors.Is(err, domain.ErrLockUnavailable) {
		t.Errorf("error = %v, want ErrLockUnavailable", err)
	}
	if len(f.store.holdingsForEscrow("esc-1")) != 0 {
		t.Error("settled without mutual exclusion")
	}
}

func TestProcessWebhookUnderpaymentRollsBackIdempotencyRow(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "150", "157.50"))
	body := dynopayBody(t, "dp-8", "ESCROW-1001-esc-1", "completed", "140.00")

	_, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if !errors.Is(err, domain.ErrUnderpayment) {
		t.Fatalf("error = %v, want ErrUnderpayment", err)
	}
	// The idempotency row must roll back with the settlement, or a corrected
	// redelivery would be dropped as a duplicate.
	if processed, _ := f.store.IsWebhookProcessed(context.Background(), "dynopay", "dp-8"); processed {
		t.Error("underpaid delivery left the processed marker behind")
	}
}

func TestProcessWebhookCreditsWalletTopUp(t *testing.T) {
	f := newWebhookFixture()
	body := dynopayBody(t, "dp-9", "WALLET-20240110-093000-4242", "completed", "50")

	outcome, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if outcome.Status != WebhookStatusSuccess {
		t.Errorf("status = %q, want success", outcome.Status)
	}

	wallet := f.store.wallet(4242, "USD")
	if !wallet.AvailableBalance.Equal(dec("50")) {
		t.Errorf("wallet available = %s, want 50", wallet.AvailableBalance)
	}
	deposits := f.store.transactionsOfType(domain.TransactionDeposit)
	if len(deposits) != 1 || deposits[0].UserID != 4242 {
		t.Errorf("deposits = %v, want one for user 4242", deposits)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Status != "wallet_credited" {
		t.Errorf("payment events = %+v, want wallet_credited", f.publisher.events)
	}
}

func TestProcessWebhookRejectsForeignBuyerReference(t *testing.T) {
	f := newWebhookFixture()
	f.store.putEscrow(newPendingEscrow("esc-1", 1001, "100", "105"))
	// Reference claims user 9999 but the escrow belongs to buyer 1001.
	escrow := f.store.escrow("esc-1")
	escrow.TradeRef = "ESCROW-9999-esc-1"
	f.store.putEscrow(escrow)
	body := dynopayBody(t, "dp-10", "ESCROW-9999-esc-1", "completed", "105")

	_, err := f.uc.ProcessWebhook(context.Background(), signedInput(body))
	if !errors.Is(err, domain.ErrMalformedReference) {
		t.Errorf("error = %v, want ErrMalformedReference", err)
	}
}
