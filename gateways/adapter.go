package gateways

import (
	// Go Internal Packages
	"context"

	// Local Packages
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
)

// Adapter is the capability contract every payment provider implements. The
// orchestration core depends only on this interface and never branches on a
// concrete provider type.
type Adapter interface {
	ID() string
	Type() string
	Config() models.GatewayConfig

	ProcessPayment(ctx context.Context, req models.GatewayPaymentRequest) (*models.GatewayResult, error)
	// CapturePayment captures a previously authorized payment. A nil amount
	// captures the full authorized amount.
	CapturePayment(ctx context.Context, gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error)
	CancelPayment(ctx context.Context, gatewayTxID string) (*models.GatewayResult, error)
	RefundPayment(ctx context.Context, gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error)
}
