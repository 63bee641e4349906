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

// Fincra delivers NGN bank-transfer and card collections as JSON webhooks.
type Fincra struct{}

func NewFincra() *Fincra { return &Fincra{} }

func (f *Fincra) Name() string { return "fincra" }

var fincraConfirmedStatuses = map[string]struct{}{
	"success":    {},
	"successful": {},
	"approved":   {},
}

var fincraConfirmedEvents = map[string]struct{}{
	"charge.successful":     {},
	"collection.successful": {},
	"payout.successful":     {},
}

type fincraPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID             json.Number       `json:"id"`
		FincraRef      string            `json:"fincraReference"`
		Reference      string            `json:"reference"`
		Amount         decimal.Decimal   `json:"amount"`
		AmountReceived decimal.Decimal   `json:"amountReceived"`
		Currency       string            `json:"currency"`
		Status         string            `json:"status"`
		Metadata       map[string]string `json:"metadata"`
	} `json:"data"`
}

func (f *Fincra) Normalize(raw []byte, _ url.Values) (*domain.PaymentRecord, error) {
	var payload fincraPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("fincra: decode payload: %w", err)
	}

	externalTxID := payload.Data.FincraRef
	if externalTxID == "" {
		externalTxID = payload.Data.ID.String()
	}
	if externalTxID == "" {
		return nil, fmt.Errorf("fincra: payload carries no transaction id")
	}

	amount := payload.Data.AmountReceived
	if amount.IsZero() {
		amount = payload.Data.Amount
	}

	_, statusConfirmed := fincraConfirmedStatuses[strings.ToLower(payload.Data.Status)]
	_, eventConfirmed := fincraConfirmedEvents[strings.ToLower(payload.Event)]

	record := &domain.PaymentRecord{
		Provider:     f.Name(),
		ExternalTxID: externalTxID,
		ReferenceID:  payload.Data.Reference,
		Amount:       amount,
		Currency:     strings.ToUpper(payload.Data.Currency),
		Confirmed:    statusConfirmed || eventConfirmed,
		RawPayload:   raw,
	}
	if uid, ok := payload.Data.Metadata["user_id"]; ok {
		if parsed, err := strconv.ParseInt(uid, 10, 64); err == nil {
			record.UserID = parsed
		}
	}
	return record, nil
}
