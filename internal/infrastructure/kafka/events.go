package kafka

// Topic names the service publishes to.
const (
	TopicPaymentEvents = "payment-events"
	TopicTimeoutEvents = "timeout-events"
)

// PaymentEvent announces a settlement outcome to downstream consumers
// (notification bot, accounting export).
type PaymentEvent struct {
	EscrowID     string `json:"escrow_id"`
	UserID       int64  `json:"user_id"`
	Provider     string `json:"provider"`
	ExternalTxID string `json:"external_txid"`
	Status       string `json:"status"`
	BaseAmount   string `json:"base_amount"`
	PlatformFee  string `json:"platform_fee"`
	Overpayment  string `json:"overpayment"`
	Currency     string `json:"currency"`
}

// TimeoutEvent mirrors one sweeper remediation, including escalations that
// mutate nothing and exist only to page an operator.
type TimeoutEvent struct {
	TimeoutType string `json:"timeout_type"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	UserID      int64  `json:"user_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	TimedOutAt  string `json:"timed_out_at"`
	Context     string `json:"context,omitempty"`
	Outcome     string `json:"outcome"`
}
