package models

import (
	// External Packages
	"github.com/shopspring/decimal"
)

type Record struct {
	Key   []byte
	Value []byte
	Topic string
}

type ConsumerConfig struct {
	Brokers        []string
	Name           string
	Topic          string
	RecordsPerPoll int
}

// SplitTask is one enqueued sub-payment release, carried on the split topic.
type SplitTask struct {
	TransactionID string          `json:"transaction_id"`
	RecipientID   string          `json:"recipient_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// StatusEvent is a gateway-originated status change (webhook intake),
// applied through the state machine like any other transition.
type StatusEvent struct {
	TransactionID string            `json:"transaction_id"`
	GatewayTxID   string            `json:"gateway_transaction_id,omitempty"`
	Status        TransactionStatus `json:"status"`
}
