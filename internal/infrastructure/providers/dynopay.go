package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Dynopay is a crypto payment gateway. It reports both the native paid
// amount and a USD base amount; the USD figure wins when it is flagged USD,
// since settlement accounting runs in USD.
type Dynopay struct{}

func NewDynopay() *Dynopay { return &Dynopay{} }

func (d *Dynopay) Name() string { return "dynopay" }

var dynopayConfirmedStatuses = map[string]struct{}{
	"completed": {},
	"confirmed": {},
	"paid":      {},
}

var dynopayConfirmedEvents = map[string]struct{}{
	"payment.completed": {},
	"payment.confirmed": {},
}

type dynopayPayload struct {
	Event         string            `json:"event"`
	TransactionID string            `json:"transaction_id"`
	Reference     string            `json:"reference"`
	Status        string            `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	BaseAmount    decimal.Decimal   `json:"base_amount"`
	BaseCurrency  string            `json:"base_currency"`
	Metadata      map[string]string `json:"metadata"`
}

func (d *Dynopay) Normalize(raw []byte, _ url.Values) (*domain.PaymentRecord, error) {
	var payload dynopayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("dynopay: decode payload: %w", err)
	}
	if payload.TransactionID == "" {
		return nil, fmt.Errorf("dynopay: payload carries no transaction id")
	}

	amount := payload.Amount
	currency := strings.ToUpper(payload.Currency)
	if strings.EqualFold(payload.BaseCurrency, "USD") && !payload.BaseAmount.IsZero() {
		amount = payload.BaseAmount
		currency = "USD"
	}

	_, statusConfirmed := dynopayConfirmedStatuses[strings.ToLower(payload.Status)]
	_, eventConfirmed := dynopayConfirmedEvents[strings.ToLower(payload.Event)]

	record := &domain.PaymentRecord{
		Provider:     d.Name(),
		ExternalTxID: payload.TransactionID,
		ReferenceID:  payload.Reference,
		Amount:       amount,
		Currency:     currency,
		Confirmed:    statusConfirmed || eventConfirmed,
		RawPayload:   raw,
	}
	if uid, ok := payload.Metadata["user_id"]; ok {
		if parsed, err := strconv.ParseInt(uid, 10, 64); err == nil {
			record.UserID = parsed
		}
	}
	return record, nil
}
