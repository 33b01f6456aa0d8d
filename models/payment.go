package models

import (
	// Go Internal Packages
	"time"

	// External Packages
	"github.com/shopspring/decimal"
)

// PaymentRequest is the input to processPayment.
type PaymentRequest struct {
	UserID          string            `json:"user_id"`
	MerchantID      string            `json:"merchant_id,omitempty"`
	VendorID        string            `json:"vendor_id,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentMethodID string            `json:"payment_method_id"`
	IdempotencyKey  string            `json:"idempotency_key,omitempty"`
	Splits          []Split           `json:"splits,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// PaymentResponse is keyed by our transaction id, never the gateway's.
type PaymentResponse struct {
	TransactionID string            `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	GatewayID     string            `json:"gateway_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// FraudAssessment is produced by the external fraud collaborator.
type FraudAssessment struct {
	RiskScore      float64  `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"`
	Recommendation string   `json:"recommendation"` // allow, review, decline
	Flags          []string `json:"flags,omitempty"`
}

const (
	FraudAllow   = "allow"
	FraudReview  = "review"
	FraudDecline = "decline"
)

// TxFilter narrows a transaction query. Zero values mean "any".
type TxFilter struct {
	UserID     string
	MerchantID string
	GatewayID  string
	Status     TransactionStatus
	Currency   string
	From       time.Time
	To         time.Time
}

// Pagination describes the page of a query result.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
}

// TxPage is one page of transactions.
type TxPage struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// AuditEvent is handed to the fire-and-forget audit collaborator.
type AuditEvent struct {
	TransactionID string            `json:"transaction_id"`
	Operation     string            `json:"operation"`
	Outcome       string            `json:"outcome"`
	Detail        map[string]string `json:"detail,omitempty"`
	At            time.Time         `json:"at"`
}
