package models

import (
	// External Packages
	"github.com/shopspring/decimal"
)

type GatewayStatus string

const (
	GatewayActive   GatewayStatus = "active"
	GatewayInactive GatewayStatus = "inactive"
)

// GatewayConfig is static gateway metadata loaded at process start. The
// orchestration core reads it at runtime; only Status flips on health
// signals.
type GatewayConfig struct {
	ID                  string          `json:"id" koanf:"id"`
	Type                string          `json:"type" koanf:"type"`
	Priority            int             `json:"priority" koanf:"priority"`
	Status              GatewayStatus   `json:"status" koanf:"status"`
	BaseURL             string          `json:"base_url" koanf:"base_url"`
	APIKey              string          `json:"-" koanf:"api_key"`
	SupportedCurrencies []string        `json:"supported_currencies" koanf:"supported_currencies"`
	SupportedCountries  []string        `json:"supported_countries" koanf:"supported_countries"`
	MinAmount           decimal.Decimal `json:"min_amount" koanf:"min_amount"`
	MaxAmount           decimal.Decimal `json:"max_amount" koanf:"max_amount"`
	Fallbacks           []string        `json:"fallbacks" koanf:"fallbacks"`
	RequestsPerMinute   int             `json:"requests_per_minute" koanf:"requests_per_minute"`
}

// SupportsCurrency reports whether the gateway accepts the given currency.
func (c GatewayConfig) SupportsCurrency(currency string) bool {
	for _, cur := range c.SupportedCurrencies {
		if cur == currency {
			return true
		}
	}
	return false
}

// AcceptsAmount reports whether amount falls inside the gateway's limits.
// A zero MaxAmount means no upper bound.
func (c GatewayConfig) AcceptsAmount(amount decimal.Decimal) bool {
	if amount.LessThan(c.MinAmount) {
		return false
	}
	if !c.MaxAmount.IsZero() && amount.GreaterThan(c.MaxAmount) {
		return false
	}
	return true
}

// GatewayPaymentRequest is the normalized request handed to an adapter.
// The idempotency key is forwarded to providers that support it, so a
// timed-out attempt replayed on the same gateway cannot double-charge.
type GatewayPaymentRequest struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	IdempotencyKey  string
	Metadata        map[string]string
}

// GatewayResult is the normalized outcome of any adapter operation.
type GatewayResult struct {
	ExternalID string
	Status     TransactionStatus
	Amount     decimal.Decimal
	Currency   string
	Metadata   map[string]string
}

// HealthRecord is the rolling per-gateway health snapshot consulted by the
// selector and the failover coordinator.
type HealthRecord struct {
	SuccessCount int64
	FailureCount int64
	TotalMillis  int64
}

func (h HealthRecord) Attempts() int64 {
	return h.SuccessCount + h.FailureCount
}

// SuccessRate is in [0, 1]. A gateway with no recorded attempts scores a
// full 1.0 so fresh gateways are not starved of traffic.
func (h HealthRecord) SuccessRate() float64 {
	total := h.Attempts()
	if total == 0 {
		return 1.0
	}
	return float64(h.SuccessCount) / float64(total)
}

func (h HealthRecord) ErrorRate() float64 {
	total := h.Attempts()
	if total == 0 {
		return 0.0
	}
	return float64(h.FailureCount) / float64(total)
}

// AvgResponseMillis is the mean attempt latency in milliseconds.
func (h HealthRecord) AvgResponseMillis() float64 {
	total := h.Attempts()
	if total == 0 {
		return 0.0
	}
	return float64(h.TotalMillis) / float64(total)
}
