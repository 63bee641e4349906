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

// BlockBee notifies via GET callbacks with everything in the query string;
// a JSON body only appears on its newer POST flavor. A payment counts as
// confirmed once the gateway stops reporting it as pending.
type BlockBee struct{}

func NewBlockBee() *BlockBee { return &BlockBee{} }

func (b *BlockBee) Name() string { return "blockbee" }

type blockbeePayload struct {
	TxIDIn        string          `json:"txid_in"`
	Reference     string          `json:"reference"`
	UserID        json.Number     `json:"user_id"`
	ValueCoin     decimal.Decimal `json:"value_coin"`
	ValueUSD      decimal.Decimal `json:"value_usd"`
	Coin          string          `json:"coin"`
	Pending       json.Number     `json:"pending"`
	Confirmations json.Number     `json:"confirmations"`
}

func (b *BlockBee) Normalize(raw []byte, query url.Values) (*domain.PaymentRecord, error) {
	var payload blockbeePayload
	if len(query) > 0 {
		payload = blockbeePayload{
			TxIDIn:        query.Get("txid_in"),
			Reference:     query.Get("reference"),
			UserID:        json.Number(query.Get("user_id")),
			Coin:          query.Get("coin"),
			Pending:       json.Number(query.Get("pending")),
			Confirmations: json.Number(query.Get("confirmations")),
		}
		var err error
		if payload.ValueCoin, err = parseQueryDecimal(query, "value_coin"); err != nil {
			return nil, fmt.Errorf("blockbee: %w", err)
		}
		if payload.ValueUSD, err = parseQueryDecimal(query, "value_usd"); err != nil {
			return nil, fmt.Errorf("blockbee: %w", err)
		}
	} else {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("blockbee: decode payload: %w", err)
		}
	}
	if payload.TxIDIn == "" {
		return nil, fmt.Errorf("blockbee: payload carries no txid_in")
	}

	amount := payload.ValueCoin
	currency := strings.ToUpper(payload.Coin)
	if !payload.ValueUSD.IsZero() {
		amount = payload.ValueUSD
		currency = "USD"
	}

	pending := payload.Pending.String() != "" && payload.Pending.String() != "0"
	confirmations, _ := payload.Confirmations.Int64()

	record := &domain.PaymentRecord{
		Provider:     b.Name(),
		ExternalTxID: payload.TxIDIn,
		ReferenceID:  payload.Reference,
		Amount:       amount,
		Currency:     currency,
		Confirmed:    !pending && confirmations >= 1,
		RawPayload:   raw,
	}
	if parsed, err := strconv.ParseInt(payload.UserID.String(), 10, 64); err == nil {
		record.UserID = parsed
	}
	return record, nil
}

func parseQueryDecimal(query url.Values, key string) (decimal.Decimal, error) {
	v := query.Get(key)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s value %q", key, v)
	}
	return d, nil
}
