package gateways

import (
	// Go Internal Packages
	"context"
	"fmt"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StripeAdapter speaks a Stripe-flavored payment-intents API.
type StripeAdapter struct {
	cfg    models.GatewayConfig
	http   *httpClient
	logger *zap.Logger
}

func NewStripeAdapter(cfg models.GatewayConfig, logger *zap.Logger) *StripeAdapter {
	return &StripeAdapter{cfg: cfg, http: newHTTPClient(cfg.BaseURL, cfg.APIKey, logger), logger: logger}
}

func (a *StripeAdapter) ID() string                   { return a.cfg.ID }
func (a *StripeAdapter) Type() string                 { return "stripe" }
func (a *StripeAdapter) Config() models.GatewayConfig { return a.cfg }

type stripeIntent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	DeclineCode string `json:"decline_code,omitempty"`
}

func (a *StripeAdapter) ProcessPayment(ctx context.Context, req models.GatewayPaymentRequest) (*models.GatewayResult, error) {
	body := map[string]any{
		"amount":         minorUnits(req.Amount),
		"currency":       req.Currency,
		"payment_method": req.PaymentMethodID,
		"confirm":        true,
		"metadata":       req.Metadata,
	}

	var intent stripeIntent
	if err := a.http.post(ctx, "/v1/payment_intents", req.IdempotencyKey, body, &intent); err != nil {
		return nil, err
	}
	return a.result(intent, req.Currency)
}

func (a *StripeAdapter) CapturePayment(ctx context.Context, gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error) {
	body := map[string]any{}
	if amount != nil {
		body["amount_to_capture"] = minorUnits(*amount)
	}

	var intent stripeIntent
	path := fmt.Sprintf("/v1/payment_intents/%s/capture", gatewayTxID)
	if err := a.http.post(ctx, path, "", body, &intent); err != nil {
		return nil, err
	}
	return a.result(intent, intent.Currency)
}

func (a *StripeAdapter) CancelPayment(ctx context.Context, gatewayTxID string) (*models.GatewayResult, error) {
	var intent stripeIntent
	path := fmt.Sprintf("/v1/payment_intents/%s/cancel", gatewayTxID)
	if err := a.http.post(ctx, path, "", map[string]any{}, &intent); err != nil {
		return nil, err
	}
	return a.result(intent, intent.Currency)
}

func (a *StripeAdapter) RefundPayment(ctx context.Context, gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	body := map[string]any{
		"payment_intent": gatewayTxID,
		"amount":         minorUnits(amount),
	}
	if reason != "" {
		body["reason"] = reason
	}

	var refund struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
	}
	if err := a.http.post(ctx, "/v1/refunds", "", body, &refund); err != nil {
		return nil, err
	}
	if refund.Status == "failed" {
		return nil, errors.E(errors.Unavailable, "stripe refund failed", nil)
	}
	return &models.GatewayResult{ExternalID: refund.ID, Status: models.StatusSucceeded, Amount: amount, Currency: refund.Currency}, nil
}

func (a *StripeAdapter) result(intent stripeIntent, currency string) (*models.GatewayResult, error) {
	res := &models.GatewayResult{
		ExternalID: intent.ID,
		Amount:     fromMinorUnits(intent.Amount),
		Currency:   currency,
	}

	switch intent.Status {
	case "succeeded":
		res.Status = models.StatusSucceeded
	case "processing":
		res.Status = models.StatusProcessing
	case "requires_action", "requires_confirmation":
		res.Status = models.StatusRequiresAction
	case "canceled":
		res.Status = models.StatusCancelled
	default:
		kind := declineKind(intent.DeclineCode)
		return nil, errors.E(kind, fmt.Sprintf("stripe declined: %s", intent.DeclineCode), nil)
	}
	return res, nil
}

// minorUnits converts a decimal major-unit amount to the integer minor units
// the provider wire format uses. Decimal in, integer out; no floats.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func fromMinorUnits(units int64) decimal.Decimal {
	return decimal.NewFromInt(units).Shift(-2)
}
