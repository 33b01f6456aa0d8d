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

// FlutterwaveAdapter speaks a Flutterwave-flavored charge API. Unlike the
// others, this provider moves major-unit decimal amounts on the wire.
type FlutterwaveAdapter struct {
	cfg    models.GatewayConfig
	http   *httpClient
	logger *zap.Logger
}

func NewFlutterwaveAdapter(cfg models.GatewayConfig, logger *zap.Logger) *FlutterwaveAdapter {
	return &FlutterwaveAdapter{cfg: cfg, http: newHTTPClient(cfg.BaseURL, cfg.APIKey, logger), logger: logger}
}

func (a *FlutterwaveAdapter) ID() string                   { return a.cfg.ID }
func (a *FlutterwaveAdapter) Type() string                 { return "flutterwave" }
func (a *FlutterwaveAdapter) Config() models.GatewayConfig { return a.cfg }

type flwEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID             int64           `json:"id"`
		FlwRef         string          `json:"flw_ref"`
		Status         string          `json:"status"`
		Amount         decimal.Decimal `json:"amount"`
		Currency       string          `json:"currency"`
		ProcessorError string          `json:"processor_response,omitempty"`
	} `json:"data"`
}

func (a *FlutterwaveAdapter) ProcessPayment(ctx context.Context, req models.GatewayPaymentRequest) (*models.GatewayResult, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"token":    req.PaymentMethodID,
		"tx_ref":   req.IdempotencyKey,
		"meta":     req.Metadata,
	}

	var env flwEnvelope
	if err := a.http.post(ctx, "/v3/tokenized-charges", req.IdempotencyKey, body, &env); err != nil {
		return nil, err
	}
	return a.result(env)
}

func (a *FlutterwaveAdapter) CapturePayment(ctx context.Context, gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error) {
	body := map[string]any{}
	if amount != nil {
		body["amount"] = *amount
	}

	var env flwEnvelope
	path := fmt.Sprintf("/v3/charges/%s/capture", gatewayTxID)
	if err := a.http.post(ctx, path, "", body, &env); err != nil {
		return nil, err
	}
	return a.result(env)
}

func (a *FlutterwaveAdapter) CancelPayment(ctx context.Context, gatewayTxID string) (*models.GatewayResult, error) {
	var env flwEnvelope
	path := fmt.Sprintf("/v3/charges/%s/void", gatewayTxID)
	if err := a.http.post(ctx, path, "", map[string]any{}, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, errors.E(errors.Unavailable, fmt.Sprintf("flutterwave void failed: %s", env.Message), nil)
	}
	return &models.GatewayResult{ExternalID: env.Data.FlwRef, Status: models.StatusCancelled,
		Amount: env.Data.Amount, Currency: env.Data.Currency}, nil
}

func (a *FlutterwaveAdapter) RefundPayment(ctx context.Context, gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	body := map[string]any{
		"amount":   amount,
		"comments": reason,
	}

	var env flwEnvelope
	path := fmt.Sprintf("/v3/transactions/%s/refund", gatewayTxID)
	if err := a.http.post(ctx, path, "", body, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, errors.E(errors.Unavailable, fmt.Sprintf("flutterwave refund failed: %s", env.Message), nil)
	}
	return &models.GatewayResult{ExternalID: env.Data.FlwRef, Status: models.StatusSucceeded,
		Amount: amount, Currency: env.Data.Currency}, nil
}

func (a *FlutterwaveAdapter) result(env flwEnvelope) (*models.GatewayResult, error) {
	res := &models.GatewayResult{
		ExternalID: env.Data.FlwRef,
		Amount:     env.Data.Amount,
		Currency:   env.Data.Currency,
	}

	switch env.Data.Status {
	case "successful":
		res.Status = models.StatusSucceeded
	case "pending":
		res.Status = models.StatusProcessing
	case "requires_auth":
		res.Status = models.StatusRequiresAction
	default:
		kind := declineKind(env.Data.ProcessorError)
		return nil, errors.E(kind, fmt.Sprintf("flutterwave declined: %s", env.Data.ProcessorError), nil)
	}
	return res, nil
}
