package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/kafka"
	"github.com/lockbay/lockbay-payment-service/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
)

// Prometheus collectors register on the process-global default registry, so
// every test shares this single instance.
var testMetrics = metrics.NewPaymentMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func walletKey(userID int64, currency string) string {
	return fmt.Sprintf("%d:%s", userID, currency)
}

func webhookKey(provider, externalTxID string) string {
	return provider + ":" + externalTxID
}

// fakeStore is an in-memory SettlementStore. WithinTx snapshots the state up
// front and restores it when fn fails, mirroring the rollback the real store
// gets from the database. Entities are stored by value; reads hand out
// copies, so mutations only land through the Save/Create methods.
// txMu serializes whole transactions the way row locks do in Postgres;
// without it a concurrent rollback could clobber another caller's commit.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	escrows   map[string]domain.Escrow
	holdings  map[string]domain.EscrowHolding
	wallets   map[string]domain.Wallet
	txns      []domain.Transaction
	processed map[string]domain.ProcessedWebhookEvent
	cashouts  map[string]domain.Cashout
	orders    map[string]domain.ExchangeOrder
	disputes  map[string]domain.Dispute
	audits    []domain.AuditEvent

	seq int

	failCreateTransaction bool
	failCreateHolding     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		escrows:   make(map[string]domain.Escrow),
		holdings:  make(map[string]domain.EscrowHolding),
		wallets:   make(map[string]domain.Wallet),
		processed: make(map[string]domain.ProcessedWebhookEvent),
		cashouts:  make(map[string]domain.Cashout),
		orders:    make(map[string]domain.ExchangeOrder),
		disputes:  make(map[string]domain.Dispute),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type storeSnapshot struct {
	escrows   map[string]domain.Escrow
	holdings  map[string]domain.EscrowHolding
	wallets   map[string]domain.Wallet
	txns      []domain.Transaction
	processed map[string]domain.ProcessedWebhookEvent
	cashouts  map[string]domain.Cashout
	orders    map[string]domain.ExchangeOrder
	disputes  map[string]domain.Dispute
	audits    []domain.AuditEvent
	seq       int
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		escrows:   make(map[string]domain.Escrow, len(s.escrows)),
		holdings:  make(map[string]domain.EscrowHolding, len(s.holdings)),
		wallets:   make(map[string]domain.Wallet, len(s.wallets)),
		txns:      append([]domain.Transaction(nil), s.txns...),
		processed: make(map[string]domain.ProcessedWebhookEvent, len(s.processed)),
		cashouts:  make(map[string]domain.Cashout, len(s.cashouts)),
		orders:    make(map[string]domain.ExchangeOrder, len(s.orders)),
		disputes:  make(map[string]domain.Dispute, len(s.disputes)),
		audits:    append([]domain.AuditEvent(nil), s.audits...),
		seq:       s.seq,
	}
	for k, v := range s.escrows {
		snap.escrows[k] = v
	}
	for k, v := range s.holdings {
		snap.holdings[k] = v
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.processed {
		snap.processed[k] = v
	}
	for k, v := range s.cashouts {
		snap.cashouts[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.disputes {
		snap.disputes[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.escrows = snap.escrows
	s.holdings = snap.holdings
	s.wallets = snap.wallets
	s.txns = snap.txns
	s.processed = snap.processed
	s.cashouts = snap.cashouts
	s.orders = snap.orders
	s.disputes = snap.disputes
	s.audits = snap.audits
	s.seq = snap.seq
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(txStore domain.SettlementStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) GetEscrowForUpdate(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	escrow, ok := s.escrows[escrowID]
	if !ok {
		return nil, domain.ErrEscrowNotFound
	}
	return &escrow, nil
}

func (s *fakeStore) SaveEscrow(ctx context.Context, escrow *domain.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.escrows[escrow.ID]; !ok {
		return domain.ErrEscrowNotFound
	}
	s.escrows[escrow.ID] = *escrow
	return nil
}

func (s *fakeStore) GetLiveHolding(ctx context.Context, escrowID string) (*domain.EscrowHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, holding := range s.holdings {
		if holding.EscrowID == escrowID && holding.Status == domain.HoldingHeld {
			h := holding
			return &h, nil
		}
	}
	return nil, domain.ErrHoldingNotFound
}

func (s *fakeStore) CreateHolding(ctx context.Context, holding *domain.EscrowHolding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateHolding {
		return fmt.Errorf("induced holding failure")
	}
	for _, existing := range s.holdings {
		if existing.EscrowID == holding.EscrowID && existing.Status == domain.HoldingHeld {
			return domain.ErrHoldingExists
		}
	}
	if holding.ID == "" {
		holding.ID = s.nextID("hold")
	}
	s.holdings[holding.ID] = *holding
	return nil
}

func (s *fakeStore) ReleaseHolding(ctx context.Context, holdingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	holding, ok := s.holdings[holdingID]
	if !ok {
		return domain.ErrHoldingNotFound
	}
	now := time.Now()
	holding.Status = domain.HoldingReleased
	holding.ReleasedAt = &now
	s.holdings[holdingID] = holding
	return nil
}

func (s *fakeStore) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateTransaction {
		return fmt.Errorf("induced transaction failure")
	}
	if txn.ID == "" {
		txn.ID = s.nextID("txn")
	}
	s.txns = append(s.txns, *txn)
	return nil
}

func (s *fakeStore) GetWalletForUpdate(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := walletKey(userID, currency)
	wallet, ok := s.wallets[key]
	if !ok {
		wallet = domain.Wallet{
			ID:       s.nextID("wal"),
			UserID:   userID,
			Currency: currency,
		}
		s.wallets[key] = wallet
	}
	return &wallet, nil
}

func (s *fakeStore) SaveWallet(ctx context.Context, wallet *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[walletKey(wallet.UserID, wallet.Currency)] = *wallet
	return nil
}

func (s *fakeStore) IsWebhookProcessed(ctx context.Context, provider, externalTxID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[webhookKey(provider, externalTxID)]
	return ok, nil
}

func (s *fakeStore) MarkWebhookProcessed(ctx context.Context, event *domain.ProcessedWebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := webhookKey(event.Provider, event.ExternalTxID)
	if _, ok := s.processed[key]; ok {
		return domain.ErrDuplicateWebhookEvent
	}
	if event.ID == "" {
		event.ID = s.nextID("pwe")
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	s.processed[key] = *event
	return nil
}

func (s *fakeStore) CreateCashout(ctx context.Context, cashout *domain.Cashout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cashout.ID == "" {
		cashout.ID = s.nextID("cash")
	}
	s.cashouts[cashout.ID] = *cashout
	return nil
}

func (s *fakeStore) GetCashoutForUpdate(ctx context.Context, cashoutID string) (*domain.Cashout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cashout, ok := s.cashouts[cashoutID]
	if !ok {
		return nil, domain.ErrCashoutNotFound
	}
	return &cashout, nil
}

func (s *fakeStore) SaveCashout(ctx context.Context, cashout *domain.Cashout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cashouts[cashout.ID]; !ok {
		return domain.ErrCashoutNotFound
	}
	s.cashouts[cashout.ID] = *cashout
	return nil
}

func (s *fakeStore) GetExchangeOrderForUpdate(ctx context.Context, orderID string) (*domain.ExchangeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrExchangeOrderNotFound
	}
	return &order, nil
}

func (s *fakeStore) SaveExchangeOrder(ctx context.Context, order *domain.ExchangeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrExchangeOrderNotFound
	}
	s.orders[order.ID] = *order
	return nil
}

func (s *fakeStore) CreateDispute(ctx context.Context, dispute *domain.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dispute.ID == "" {
		dispute.ID = s.nextID("disp")
	}
	if dispute.CreatedAt.IsZero() {
		dispute.CreatedAt = time.Now()
	}
	s.disputes[dispute.ID] = *dispute
	return nil
}

func (s *fakeStore) ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispute, ok := s.disputes[disputeID]
	if !ok {
		return domain.ErrDisputeNotFound
	}
	now := time.Now()
	dispute.Status = domain.DisputeResolved
	dispute.ResolvedBy = resolvedBy
	dispute.Resolution = resolution
	dispute.ResolvedAt = &now
	s.disputes[disputeID] = dispute
	return nil
}

func (s *fakeStore) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = s.nextID("audit")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.audits = append(s.audits, *event)
	return nil
}

// test helpers, not part of the interface

func (s *fakeStore) putEscrow(escrow domain.Escrow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escrows[escrow.ID] = escrow
}

func (s *fakeStore) putWallet(wallet domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[walletKey(wallet.UserID, wallet.Currency)] = wallet
}

func (s *fakeStore) putOrder(order domain.ExchangeOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
}

func (s *fakeStore) putCashout(cashout domain.Cashout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cashouts[cashout.ID] = cashout
}

func (s *fakeStore) wallet(userID int64, currency string) domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[walletKey(userID, currency)]
}

func (s *fakeStore) escrow(id string) domain.Escrow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escrows[id]
}

func (s *fakeStore) order(id string) domain.ExchangeOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *fakeStore) cashout(id string) domain.Cashout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cashouts[id]
}

func (s *fakeStore) transactionsOfType(tt domain.TransactionType) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, txn := range s.txns {
		if txn.Type == tt {
			out = append(out, txn)
		}
	}
	return out
}

func (s *fakeStore) holdingsForEscrow(escrowID string) []domain.EscrowHolding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EscrowHolding
	for _, holding := range s.holdings {
		if holding.EscrowID == escrowID {
			out = append(out, holding)
		}
	}
	return out
}

func (s *fakeStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.audits))
	for i, event := range s.audits {
		out[i] = event.Action
	}
	return out
}

// fakeEscrowRepo is the read/scan side over the same fakeStore state.
type fakeEscrowRepo struct {
	store *fakeStore
}

func (r *fakeEscrowRepo) CreateEscrow(ctx context.Context, escrow *domain.Escrow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if escrow.ID == "" {
		escrow.ID = r.store.nextID("esc")
	}
	r.store.escrows[escrow.ID] = *escrow
	return nil
}

func (r *fakeEscrowRepo) GetEscrowByID(ctx context.Context, escrowID string) (*domain.Escrow, error) {
	return r.store.GetEscrowForUpdate(ctx, escrowID)
}

func (r *fakeEscrowRepo) GetEscrowByTradeRef(ctx context.Context, tradeRef string) (*domain.Escrow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, escrow := range r.store.escrows {
		if escrow.TradeRef == tradeRef {
			e := escrow
			return &e, nil
		}
	}
	return nil, domain.ErrEscrowNotFound
}

func (r *fakeEscrowRepo) UpdateEscrowStatus(ctx context.Context, escrowID string, status domain.EscrowStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	escrow, ok := r.store.escrows[escrowID]
	if !ok {
		return domain.ErrEscrowNotFound
	}
	escrow.Status = status
	r.store.escrows[escrowID] = escrow
	return nil
}

func (r *fakeEscrowRepo) FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*domain.Escrow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Escrow
	for _, escrow := range r.store.escrows {
		if escrow.Status == domain.EscrowPendingPayment && escrow.CreatedAt.Before(olderThan) {
			e := escrow
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *fakeEscrowRepo) FindStalePaymentConfirmed(ctx context.Context, olderThan time.Time) ([]*domain.Escrow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Escrow
	for _, escrow := range r.store.escrows {
		if escrow.Status == domain.EscrowPaymentConfirmed &&
			escrow.PaymentConfirmedAt != nil && escrow.PaymentConfirmedAt.Before(olderThan) {
			e := escrow
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *fakeEscrowRepo) FindOrphanedEscrows(ctx context.Context) ([]*domain.Escrow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Escrow
	for _, escrow := range r.store.escrows {
		switch escrow.Status {
		case domain.EscrowPaymentConfirmed, domain.EscrowActive, domain.EscrowCompleted:
		default:
			continue
		}
		hasHolding := false
		for _, holding := range r.store.holdings {
			if holding.EscrowID == escrow.ID {
				hasHolding = true
				break
			}
		}
		hasDeposit := false
		for _, txn := range r.store.txns {
			if txn.Type == domain.TransactionDeposit && txn.EscrowID != nil && *txn.EscrowID == escrow.ID {
				hasDeposit = true
				break
			}
		}
		if !hasHolding && !hasDeposit {
			e := escrow
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *fakeEscrowRepo) GetLiveHolding(ctx context.Context, escrowID string) (*domain.EscrowHolding, error) {
	return r.store.GetLiveHolding(ctx, escrowID)
}

type fakeExchangeRepo struct {
	store *fakeStore
}

func (r *fakeExchangeRepo) CreateExchangeOrder(ctx context.Context, order *domain.ExchangeOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if order.ID == "" {
		order.ID = r.store.nextID("exo")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	r.store.orders[order.ID] = *order
	return nil
}

func (r *fakeExchangeRepo) GetExchangeOrderByID(ctx context.Context, orderID string) (*domain.ExchangeOrder, error) {
	return r.store.GetExchangeOrderForUpdate(ctx, orderID)
}

func (r *fakeExchangeRepo) UpdateExchangeOrderStatus(ctx context.Context, orderID string, status domain.ExchangeOrderStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[orderID]
	if !ok {
		return domain.ErrExchangeOrderNotFound
	}
	order.Status = status
	r.store.orders[orderID] = order
	return nil
}

func (r *fakeExchangeRepo) FindExpiredRateLocks(ctx context.Context, now time.Time) ([]*domain.ExchangeOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.ExchangeOrder
	for _, order := range r.store.orders {
		if order.Status == domain.ExchangeQuoted && order.RateLockedUntil.Before(now) {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *fakeExchangeRepo) FindExpiredPendingPayment(ctx context.Context, olderThan time.Time) ([]*domain.ExchangeOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.ExchangeOrder
	for _, order := range r.store.orders {
		if order.Status == domain.ExchangePendingPayment && order.CreatedAt.Before(olderThan) {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *fakeExchangeRepo) FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]*domain.ExchangeOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.ExchangeOrder
	for _, order := range r.store.orders {
		if (order.Status == domain.ExchangePaid || order.Status == domain.ExchangeProcessing) &&
			order.CreatedAt.Before(olderThan) {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

type fakeCashoutRepo struct {
	store *fakeStore
}

func (r *fakeCashoutRepo) GetCashoutByID(ctx context.Context, cashoutID string) (*domain.Cashout, error) {
	return r.store.GetCashoutForUpdate(ctx, cashoutID)
}

func (r *fakeCashoutRepo) UpdateCashoutStatus(ctx context.Context, cashoutID string, status domain.CashoutStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cashout, ok := r.store.cashouts[cashoutID]
	if !ok {
		return domain.ErrCashoutNotFound
	}
	cashout.Status = status
	cashout.UpdatedAt = time.Now()
	r.store.cashouts[cashoutID] = cashout
	return nil
}

func (r *fakeCashoutRepo) ApproveCashout(ctx context.Context, cashoutID, admin string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cashout, ok := r.store.cashouts[cashoutID]
	if !ok {
		return domain.ErrCashoutNotFound
	}
	now := time.Now()
	cashout.Status = domain.CashoutApproved
	cashout.ApprovedBy = admin
	cashout.ApprovedAt = &now
	r.store.cashouts[cashoutID] = cashout
	return nil
}

func (r *fakeCashoutRepo) FindStuckExecuting(ctx context.Context, olderThan time.Time) ([]*domain.Cashout, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Cashout
	for _, cashout := range r.store.cashouts {
		if cashout.Status == domain.CashoutExecuting && cashout.UpdatedAt.Before(olderThan) {
			c := cashout
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeCashoutRepo) CountByStatus(ctx context.Context, status domain.CashoutStatus) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, cashout := range r.store.cashouts {
		if cashout.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeDisputeRepo struct {
	store *fakeStore
}

func (r *fakeDisputeRepo) GetDisputeByID(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute, ok := r.store.disputes[disputeID]
	if !ok {
		return nil, domain.ErrDisputeNotFound
	}
	return &dispute, nil
}

func (r *fakeDisputeRepo) GetDisputeByEscrowID(ctx context.Context, escrowID string) (*domain.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, dispute := range r.store.disputes {
		if dispute.EscrowID == escrowID {
			d := dispute
			return &d, nil
		}
	}
	return nil, domain.ErrDisputeNotFound
}

func (r *fakeDisputeRepo) UpdateDisputeStatus(ctx context.Context, disputeID string, status domain.DisputeStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute, ok := r.store.disputes[disputeID]
	if !ok {
		return domain.ErrDisputeNotFound
	}
	dispute.Status = status
	r.store.disputes[disputeID] = dispute
	return nil
}

func (r *fakeDisputeRepo) CountByStatus(ctx context.Context, status domain.DisputeStatus) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, dispute := range r.store.disputes {
		if dispute.Status == status {
			n++
		}
	}
	return n, nil
}

// fakeOTPRepo keeps codes in a slice, newest last.
type fakeOTPRepo struct {
	mu    sync.Mutex
	codes []domain.OTPCode
	seq   int
}

func (r *fakeOTPRepo) CreateOTPCode(ctx context.Context, code *domain.OTPCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if code.ID == "" {
		code.ID = fmt.Sprintf("otp-%d", r.seq)
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	r.codes = append(r.codes, *code)
	return nil
}

func (r *fakeOTPRepo) GetLiveOTPCode(ctx context.Context, userID int64, purpose string, now time.Time) (*domain.OTPCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.codes) - 1; i >= 0; i-- {
		code := r.codes[i]
		if code.UserID == userID && code.Purpose == purpose &&
			code.ConsumedAt == nil && code.ExpiresAt.After(now) {
			return &code, nil
		}
	}
	return nil, domain.ErrOTPNotFound
}

func (r *fakeOTPRepo) ConsumeOTPCode(ctx context.Context, codeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.codes {
		if r.codes[i].ID == codeID && r.codes[i].ConsumedAt == nil {
			now := time.Now()
			r.codes[i].ConsumedAt = &now
			return nil
		}
	}
	return domain.ErrOTPNotFound
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[string]domain.WebhookDelivery
	seq        int
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: make(map[string]domain.WebhookDelivery)}
}

func (r *fakeDeliveryRepo) put(delivery domain.WebhookDelivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[delivery.ID] = delivery
}

func (r *fakeDeliveryRepo) get(id string) domain.WebhookDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliveries[id]
}

func (r *fakeDeliveryRepo) CreateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if delivery.ID == "" {
		delivery.ID = fmt.Sprintf("del-%d", r.seq)
	}
	r.deliveries[delivery.ID] = *delivery
	return nil
}

func (r *fakeDeliveryRepo) GetDeliveryByID(ctx context.Context, deliveryID string) (*domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivery, ok := r.deliveries[deliveryID]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	return &delivery, nil
}

func (r *fakeDeliveryRepo) UpdateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliveries[delivery.ID]; !ok {
		return domain.ErrDeliveryNotFound
	}
	r.deliveries[delivery.ID] = *delivery
	return nil
}

func (r *fakeDeliveryRepo) FindDueRetries(ctx context.Context, now time.Time, limit int) ([]*domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WebhookDelivery
	for _, delivery := range r.deliveries {
		if len(out) >= limit {
			break
		}
		if (delivery.Status == domain.DeliveryPending || delivery.Status == domain.DeliveryRetrying) &&
			delivery.Attempts < delivery.MaxAttempts &&
			(delivery.NextRetryAt == nil || delivery.NextRetryAt.Before(now)) {
			d := delivery
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) FindStalledRetries(ctx context.Context, olderThan time.Time) ([]*domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WebhookDelivery
	for _, delivery := range r.deliveries {
		if (delivery.Status == domain.DeliveryPending || delivery.Status == domain.DeliveryRetrying) &&
			delivery.NextRetryAt != nil && delivery.NextRetryAt.Before(olderThan) {
			d := delivery
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) FindExhausted(ctx context.Context) ([]*domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WebhookDelivery
	for _, delivery := range r.deliveries {
		if (delivery.Status == domain.DeliveryPending || delivery.Status == domain.DeliveryRetrying) &&
			delivery.Attempts >= delivery.MaxAttempts {
			d := delivery
			out = append(out, &d)
		}
	}
	return out, nil
}

type fakeCleanupRepo struct {
	mu           sync.Mutex
	expiredOTP   int64
	expiredVerif int64
	deletedOTP   int64
	deletedVerif int64
}

func (r *fakeCleanupRepo) CountExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expiredOTP, nil
}

func (r *fakeCleanupRepo) DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.expiredOTP
	r.deletedOTP += n
	r.expiredOTP = 0
	return n, nil
}

func (r *fakeCleanupRepo) CountExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expiredVerif, nil
}

func (r *fakeCleanupRepo) DeleteExpiredEmailVerifications(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.expiredVerif
	r.deletedVerif += n
	r.expiredVerif = 0
	return n, nil
}

// fakeLocker hands out leases unless told the key is contended or the
// backend is down.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	down     bool
	acquired []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, provider, externalTxID string) (domain.PaymentLease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down {
		return nil, domain.ErrLockUnavailable
	}
	key := provider + ":" + externalTxID
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return &fakeLease{locker: l, key: key}, nil
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (f *fakeLease) Token() string { return f.key }

func (f *fakeLease) Refresh(ctx context.Context, ttl time.Duration) error { return nil }

func (f *fakeLease) Release(ctx context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.key)
	return nil
}

type fakePaymentPublisher struct {
	mu     sync.Mutex
	events []kafka.PaymentEvent
}

func (p *fakePaymentPublisher) PublishPayment(event kafka.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fakeTimeoutPublisher struct {
	mu     sync.Mutex
	events []kafka.TimeoutEvent
}

func (p *fakeTimeoutPublisher) BatchPublishTimeoutsWithRetry(events []kafka.TimeoutEvent, batchSize, maxRetries int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

type fakeCallbacks struct {
	mu       sync.Mutex
	enqueued []string
}

func (c *fakeCallbacks) Enqueue(ctx context.Context, url, eventType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enqueued = append(c.enqueued, eventType)
	return nil
}

type fakeStatsRepo struct {
	mu        sync.Mutex
	snapshot  domain.AdminStats
	calls     int
	lastSince time.Time
	fail      bool
}

func (r *fakeStatsRepo) CollectAdminStats(ctx context.Context, since time.Time) (*domain.AdminStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, fmt.Errorf("induced stats failure")
	}
	r.calls++
	r.lastSince = since
	snap := r.snapshot
	snap.GeneratedAt = time.Now()
	return &snap, nil
}

type fakeTransactionRepo struct {
	store *fakeStore
}

func (r *fakeTransactionRepo) GetTransactionByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, txn := range r.store.txns {
		if txn.ID == txID {
			t := txn
			return &t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeTransactionRepo) GetTransactionsByEscrowID(ctx context.Context, escrowID string) ([]*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Transaction
	for _, txn := range r.store.txns {
		if txn.EscrowID != nil && *txn.EscrowID == escrowID {
			t := txn
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) UpdateTransactionStatus(ctx context.Context, txID string, status domain.TransactionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.txns {
		if r.store.txns[i].ID == txID {
			r.store.txns[i].Status = status
			return nil
		}
	}
	return domain.ErrTransactionNotFound
}

type fakeAuditRepo struct {
	store *fakeStore
}

func (r *fakeAuditRepo) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	return r.store.CreateAuditEvent(ctx, event)
}

func (r *fakeAuditRepo) GetAuditEventsByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.AuditEvent
	for _, event := range r.store.audits {
		if event.EntityType == entityType && event.EntityID == entityID {
			e := event
			out = append(out, &e)
		}
	}
	return out, nil
}

type fakeWalletRepo struct {
	store *fakeStore
}

func (r *fakeWalletRepo) GetWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wallet, ok := r.store.wallets[walletKey(userID, currency)]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &wallet, nil
}

func (r *fakeWalletRepo) GetWalletsByUserID(ctx context.Context, userID int64) ([]*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Wallet
	for _, wallet := range r.store.wallets {
		if wallet.UserID == userID {
			w := wallet
			out = append(out, &w)
		}
	}
	return out, nil
}
