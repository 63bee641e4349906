package providers

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"charge.successful"}`)
	good := Sign(secret, body)

	cases := []struct {
		name   string
		header string
		secret string
		want   bool
	}{
		{"valid", good, secret, true},
		{"valid with prefix", "sha256=" + good, secret, true},
		{"valid with surrounding spaces", "  " + good + " ", secret, true},
		{"wrong secret", Sign("other", body), secret, false},
		{"not hex", "zzzz", secret, false},
		{"empty", "", secret, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifySignature(tc.secret, body, tc.header); got != tc.want {
				t.Fatalf("VerifySignature(%q) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"amount":100}`)
	header := Sign(secret, body)
	tampered := []byte(`{"amount":999}`)
	if VerifySignature(secret, tampered, header) {
		t.Fatal("tampered body must not verify")
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewFincra(), "s1")
	reg.Register(NewDynopay(), "s2")

	p, secret, err := reg.Lookup("FINCRA")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Name() != "fincra" || secret != "s1" {
		t.Fatalf("got %s/%s", p.Name(), secret)
	}

	if _, _, err := reg.Lookup("stripe"); err == nil {
		t.Fatal("unknown provider must error")
	}
}

func TestFincraNormalize(t *testing.T) {
	raw := []byte(`{
		"event": "charge.successful",
		"data": {
			"id": 88231,
			"fincraReference": "fcr-9911",
			"reference": "ESCROW-555001-a1b2c3",
			"amount": 105000,
			"amountReceived": 105000,
			"currency": "ngn",
			"status": "success",
			"metadata": {"user_id": "555001"}
		}
	}`)
	record, err := NewFincra().Normalize(raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if record.Provider != "fincra" {
		t.Errorf("provider = %s", record.Provider)
	}
	if record.ExternalTxID != "fcr-9911" {
		t.Errorf("external txid = %s", record.ExternalTxID)
	}
	if record.ReferenceID != "ESCROW-555001-a1b2c3" {
		t.Errorf("reference = %s", record.ReferenceID)
	}
	if !record.Confirmed {
		t.Error("status success must confirm")
	}
	if record.Currency != "NGN" {
		t.Errorf("currency = %s", record.Currency)
	}
	if !record.Amount.Equal(decimal.NewFromInt(105000)) {
		t.Errorf("amount = %s", record.Amount)
	}
	if record.UserID != 555001 {
		t.Errorf("user id = %d", record.UserID)
	}
}

func TestFincraNormalizeEventOnlyConfirms(t *testing.T) {
	raw := []byte(`{
		"event": "collection.successful",
		"data": {"id": 7, "reference": "x", "amount": 10, "currency": "NGN", "status": "processing"}
	}`)
	record, err := NewFincra().Normalize(raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !record.Confirmed {
		t.Fatal("confirmed event set must confirm even with non-final status")
	}
	if record.ExternalTxID != "7" {
		t.Fatalf("fallback txid = %s", record.ExternalTxID)
	}
}

func TestFincraNormalizeRejectsMissingTxID(t *testing.T) {
	raw := []byte(`{"event":"charge.successful","data":{"reference":"r","amount":1,"currency":"NGN","status":"success"}}`)
	if _, err := NewFincra().Normalize(raw, nil); err == nil {
		t.Fatal("missing transaction id must fail normalization")
	}
}

func TestDynopayNormalizePrefersUSDBase(t *testing.T) {
	raw := []byte(`{
		"event": "payment.completed",
		"transaction_id": "dyn-001",
		"reference": "WALLET-20250812-143055-987654",
		"status": "completed",
		"amount": "0.0031",
		"currency": "BTC",
		"base_amount": "210.00",
		"base_currency": "usd"
	}`)
	record, err := NewDynopay().Normalize(raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if record.Currency != "USD" {
		t.Errorf("currency = %s, want USD base preferred", record.Currency)
	}
	if !record.Amount.Equal(decimal.RequireFromString("210.00")) {
		t.Errorf("amount = %s", record.Amount)
	}
	if !record.Confirmed {
		t.Error("completed status must confirm")
	}
}

func TestDynopayNormalizeNativeFallback(t *testing.T) {
	raw := []byte(`{
		"transaction_id": "dyn-002",
		"reference": "r",
		"status": "pending",
		"amount": "0.5",
		"currency": "eth"
	}`)
	record, err := NewDynopay().Normalize(raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if record.Currency != "ETH" {
		t.Errorf("currency = %s", record.Currency)
	}
	if !record.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("amount = %s", record.Amount)
	}
	if record.Confirmed {
		t.Error("pending status must not confirm")
	}
}

func TestBlockBeeNormalizeFromQuery(t *testing.T) {
	query := url.Values{}
	query.Set("txid_in", "0xabc123")
	query.Set("reference", "ESCROW-42-trade9")
	query.Set("user_id", "42")
	query.Set("coin", "usdt")
	query.Set("value_coin", "105.0")
	query.Set("value_usd", "105.0")
	query.Set("pending", "0")
	query.Set("confirmations", "3")

	record, err := NewBlockBee().Normalize(nil, query)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if record.ExternalTxID != "0xabc123" {
		t.Errorf("external txid = %s", record.ExternalTxID)
	}
	if !record.Confirmed {
		t.Error("pending=0 with confirmations must confirm")
	}
	if record.Currency != "USD" {
		t.Errorf("currency = %s, want USD preferred", record.Currency)
	}
	if record.UserID != 42 {
		t.Errorf("user id = %d", record.UserID)
	}
}

func TestBlockBeeNormalizePendingNotConfirmed(t *testing.T) {
	query := url.Values{}
	query.Set("txid_in", "0xdef")
	query.Set("coin", "btc")
	query.Set("value_coin", "0.001")
	query.Set("pending", "1")
	query.Set("confirmations", "0")

	record, err := NewBlockBee().Normalize(nil, query)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if record.Confirmed {
		t.Error("pending callback must not confirm")
	}
	if record.Currency != "BTC" {
		t.Errorf("currency = %s", record.Currency)
	}
}

func TestBlockBeeNormalizeJSONBody(t *testing.T) {
	raw := []byte(`{"txid_in":"0x9","reference":"r","value_coin":"1.5","coin":"ltc","pending":0,"confirmations":2}`)
	record, err := NewBlockBee().Normalize(raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !record.Confirmed {
		t.Error("json flavor with pending=0 must confirm")
	}
	if !strings.EqualFold(record.Currency, "LTC") {
		t.Errorf("currency = %s", record.Currency)
	}
}

func TestBlockBeeNormalizeBadDecimal(t *testing.T) {
	query := url.Values{}
	query.Set("txid_in", "0x1")
	query.Set("value_coin", "not-a-number")
	if _, err := NewBlockBee().Normalize(nil, query); err == nil {
		t.Fatal("malformed decimal must fail normalization")
	}
}
