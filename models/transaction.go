package models

import (
	// Go Internal Packages
	"time"

	// External Packages
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending           TransactionStatus = "pending"
	StatusProcessing        TransactionStatus = "processing"
	StatusRequiresAction    TransactionStatus = "requires_action"
	StatusSucceeded         TransactionStatus = "succeeded"
	StatusFailed            TransactionStatus = "failed"
	StatusCancelled         TransactionStatus = "cancelled"
	StatusRefunded          TransactionStatus = "refunded"
	StatusPartiallyRefunded TransactionStatus = "partially_refunded"
	StatusDisputed          TransactionStatus = "disputed"
	StatusExpired           TransactionStatus = "expired"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

type SplitStatus string

const (
	SplitPending   SplitStatus = "pending"
	SplitSucceeded SplitStatus = "succeeded"
	SplitFailed    SplitStatus = "failed"
)

// Transaction is the durable financial record. It is created by the
// orchestrator, mutated only by the orchestrator, and never deleted.
type Transaction struct {
	ID          string `json:"id" bson:"_id"`
	InternalRef string `json:"internal_reference" bson:"internal_reference"`

	Amount      decimal.Decimal  `json:"amount" bson:"amount"`
	Currency    string           `json:"currency" bson:"currency"`
	PlatformFee *decimal.Decimal `json:"platform_fee,omitempty" bson:"platform_fee,omitempty"`
	GatewayFee  *decimal.Decimal `json:"gateway_fee,omitempty" bson:"gateway_fee,omitempty"`

	UserID          string `json:"user_id" bson:"user_id"`
	MerchantID      string `json:"merchant_id,omitempty" bson:"merchant_id,omitempty"`
	VendorID        string `json:"vendor_id,omitempty" bson:"vendor_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id" bson:"payment_method_id"`

	// GatewayID and GatewayTxID are mutable: failover reassigns them when a
	// fallback gateway takes over the operation.
	GatewayID   string `json:"gateway_id,omitempty" bson:"gateway_id,omitempty"`
	GatewayTxID string `json:"gateway_transaction_id,omitempty" bson:"gateway_transaction_id,omitempty"`

	Status TransactionStatus `json:"status" bson:"status"`

	RiskScore  float64  `json:"risk_score,omitempty" bson:"risk_score,omitempty"`
	FraudFlags []string `json:"fraud_flags,omitempty" bson:"fraud_flags,omitempty"`

	Refunds  []Refund `json:"refunds,omitempty" bson:"refunds,omitempty"`
	Splits   []Split  `json:"splits,omitempty" bson:"splits,omitempty"`
	ParentID string   `json:"parent_id,omitempty" bson:"parent_id,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	SettledAt   *time.Time `json:"settled_at,omitempty" bson:"settled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`

	// Version backs optimistic concurrency on full-document updates.
	Version int64 `json:"-" bson:"version"`
}

// Refund is immutable once it reaches a terminal status.
type Refund struct {
	ID              string          `json:"id" bson:"id"`
	TransactionID   string          `json:"transaction_id" bson:"transaction_id"`
	Amount          decimal.Decimal `json:"amount" bson:"amount"`
	Reason          string          `json:"reason,omitempty" bson:"reason,omitempty"`
	Status          RefundStatus    `json:"status" bson:"status"`
	GatewayRefundID string          `json:"gateway_refund_id,omitempty" bson:"gateway_refund_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// Split is a sub-payment to another recipient, settled asynchronously
// through the split task queue after the parent transaction succeeds.
type Split struct {
	RecipientID string          `json:"recipient_id" bson:"recipient_id"`
	Amount      decimal.Decimal `json:"amount" bson:"amount"`
	Status      SplitStatus     `json:"status" bson:"status"`
	ReleasedAt  *time.Time      `json:"released_at,omitempty" bson:"released_at,omitempty"`
}

// RefundedAmount sums the successful refunds.
func (t *Transaction) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Refunds {
		if r.Status == RefundSucceeded {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// RemainingRefundable is the amount still available to refund. The invariant
// sum(successful refunds) <= amount keeps this non-negative.
func (t *Transaction) RemainingRefundable() decimal.Decimal {
	return t.Amount.Sub(t.RefundedAmount())
}
