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

// PaystackAdapter speaks a Paystack-flavored charge API.
type PaystackAdapter struct {
	cfg    models.GatewayConfig
	http   *httpClient
	logger *zap.Logger
}

func NewPaystackAdapter(cfg models.GatewayConfig, logger *zap.Logger) *PaystackAdapter {
	return &PaystackAdapter{cfg: cfg, http: newHTTPClient(cfg.BaseURL, cfg.APIKey, logger), logger: logger}
}

func (a *PaystackAdapter) ID() string                   { return a.cfg.ID }
func (a *PaystackAdapter) Type() string                 { return "paystack" }
func (a *PaystackAdapter) Config() models.GatewayConfig { return a.cfg }

type paystackEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference     string `json:"reference"`
		Status        string `json:"status"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		GatewayResult string `json:"gateway_response"`
	} `json:"data"`
}

func (a *PaystackAdapter) ProcessPayment(ctx context.Context, req models.GatewayPaymentRequest) (*models.GatewayResult, error) {
	body := map[string]any{
		"amount":             minorUnits(req.Amount),
		"currency":           req.Currency,
		"authorization_code": req.PaymentMethodID,
		"reference":          req.IdempotencyKey,
		"metadata":           req.Metadata,
	}

	var env paystackEnvelope
	if err := a.http.post(ctx, "/transaction/charge_authorization", req.IdempotencyKey, body, &env); err != nil {
		return nil, err
	}
	return a.result(env)
}

func (a *PaystackAdapter) CapturePayment(ctx context.Context, gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error) {
	// Paystack charges are captured at authorization time; a capture call
	// verifies the charge landed and reports its settled state.
	var env paystackEnvelope
	path := fmt.Sprintf("/transaction/verify/%s", gatewayTxID)
	if err := a.http.post(ctx, path, "", map[string]any{}, &env); err != nil {
		return nil, err
	}
	return a.result(env)
}

func (a *PaystackAdapter) CancelPayment(ctx context.Context, gatewayTxID string) (*models.GatewayResult, error) {
	var env paystackEnvelope
	body := map[string]any{"reference": gatewayTxID}
	if err := a.http.post(ctx, "/transaction/void", "", body, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, errors.E(errors.Unavailable, fmt.Sprintf("paystack void failed: %s", env.Message), nil)
	}
	return &models.GatewayResult{ExternalID: env.Data.Reference, Status: models.StatusCancelled,
		Amount: fromMinorUnits(env.Data.Amount), Currency: env.Data.Currency}, nil
}

func (a *PaystackAdapter) RefundPayment(ctx context.Context, gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	body := map[string]any{
		"transaction":   gatewayTxID,
		"amount":        minorUnits(amount),
		"merchant_note": reason,
	}

	var env paystackEnvelope
	if err := a.http.post(ctx, "/refund", "", body, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, errors.E(errors.Unavailable, fmt.Sprintf("paystack refund failed: %s", env.Message), nil)
	}
	return &models.GatewayResult{ExternalID: env.Data.Reference, Status: models.StatusSucceeded,
		Amount: amount, Currency: env.Data.Currency}, nil
}

func (a *PaystackAdapter) result(env paystackEnvelope) (*models.GatewayResult, error) {
	res := &models.GatewayResult{
		ExternalID: env.Data.Reference,
		Amount:     fromMinorUnits(env.Data.Amount),
		Currency:   env.Data.Currency,
		Metadata:   map[string]string{"gateway_response": env.Data.GatewayResult},
	}

	switch env.Data.Status {
	case "success":
		res.Status = models.StatusSucceeded
	case "pending", "ongoing", "queued":
		res.Status = models.StatusProcessing
	case "send_otp", "pay_offline":
		res.Status = models.StatusRequiresAction
	default:
		if env.Data.GatewayResult == "Insufficient Funds" {
			return nil, errors.E(errors.InsufficientFunds, "paystack: insufficient funds", nil)
		}
		return nil, errors.E(errors.Declined, fmt.Sprintf("paystack declined: %s", env.Data.GatewayResult), nil)
	}
	return res, nil
}
