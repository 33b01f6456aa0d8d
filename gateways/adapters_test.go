package gateways

import (
	// Go Internal Packages
	"context"
	"net/http"
	"testing"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func paymentRequest() models.GatewayPaymentRequest {
	return models.GatewayPaymentRequest{
		Amount:          decimal.RequireFromString("10.99"),
		Currency:        "USD",
		PaymentMethodID: "pm-1",
		IdempotencyKey:  "idem-1",
	}
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// ---- stripe ----

func newStripe(t *testing.T, handler http.HandlerFunc) *StripeAdapter {
	srv := newTestServer(t, handler)
	return NewStripeAdapter(models.GatewayConfig{ID: "stripe-1", BaseURL: srv.URL}, zap.NewNop())
}

func TestStripeProcessPaymentSucceeded(t *testing.T) {
	a := newStripe(t, jsonHandler(`{"id":"pi_1","status":"succeeded","amount":1099,"currency":"usd"}`))

	res, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", res.ExternalID)
	assert.Equal(t, models.StatusSucceeded, res.Status)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("10.99")))
}

func TestStripeStatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		status   models.TransactionStatus
	}{
		{"succeeded", models.StatusSucceeded},
		{"processing", models.StatusProcessing},
		{"requires_action", models.StatusRequiresAction},
		{"requires_confirmation", models.StatusRequiresAction},
		{"canceled", models.StatusCancelled},
	}
	for _, tc := range cases {
		a := newStripe(t, jsonHandler(`{"id":"pi_1","status":"`+tc.provider+`","amount":1099}`))
		res, err := a.ProcessPayment(context.Background(), paymentRequest())
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.status, res.Status, tc.provider)
	}
}

func TestStripeDeclineCodeMapping(t *testing.T) {
	a := newStripe(t, jsonHandler(`{"id":"pi_1","status":"requires_payment_method","decline_code":"insufficient_funds"}`))
	_, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.InsufficientFunds, err))

	a = newStripe(t, jsonHandler(`{"id":"pi_1","status":"requires_payment_method","decline_code":"generic_decline"}`))
	_, err = a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Declined, err))
}

func TestStripeCardErrorStatusIsDeclined(t *testing.T) {
	a := newStripe(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})
	_, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Declined, err))
}

// ---- paystack ----

func newPaystack(t *testing.T, handler http.HandlerFunc) *PaystackAdapter {
	srv := newTestServer(t, handler)
	return NewPaystackAdapter(models.GatewayConfig{ID: "paystack-1", BaseURL: srv.URL}, zap.NewNop())
}

func TestPaystackProcessPaymentSucceeded(t *testing.T) {
	a := newPaystack(t, jsonHandler(`{"status":true,"data":{"reference":"r1","status":"success","amount":500000,"currency":"NGN","gateway_response":"Approved"}}`))

	res, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ExternalID)
	assert.Equal(t, models.StatusSucceeded, res.Status)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("5000")))
}

func TestPaystackPendingAndActionStatuses(t *testing.T) {
	a := newPaystack(t, jsonHandler(`{"status":true,"data":{"reference":"r1","status":"pending","amount":1000}}`))
	res, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, res.Status)

	a = newPaystack(t, jsonHandler(`{"status":true,"data":{"reference":"r1","status":"send_otp","amount":1000}}`))
	res, err = a.ProcessPayment(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequiresAction, res.Status)
}

func TestPaystackDeclineMapping(t *testing.T) {
	a := newPaystack(t, jsonHandler(`{"status":true,"data":{"reference":"r1","status":"failed","gateway_response":"Insufficient Funds"}}`))
	_, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.InsufficientFunds, err))

	a = newPaystack(t, jsonHandler(`{"status":true,"data":{"reference":"r1","status":"failed","gateway_response":"Declined"}}`))
	_, err = a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Declined, err))
}

// ---- flutterwave ----

func newFlutterwave(t *testing.T, handler http.HandlerFunc) *FlutterwaveAdapter {
	srv := newTestServer(t, handler)
	return NewFlutterwaveAdapter(models.GatewayConfig{ID: "flw-1", BaseURL: srv.URL}, zap.NewNop())
}

func TestFlutterwaveProcessPaymentSucceeded(t *testing.T) {
	a := newFlutterwave(t, jsonHandler(`{"status":"success","data":{"flw_ref":"f1","status":"successful","amount":25.5,"currency":"NGN"}}`))

	res, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "f1", res.ExternalID)
	assert.Equal(t, models.StatusSucceeded, res.Status)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("25.5")))
}

func TestFlutterwaveDeclineMapping(t *testing.T) {
	a := newFlutterwave(t, jsonHandler(`{"status":"success","data":{"flw_ref":"f1","status":"failed","processor_response":"insufficient_funds"}}`))
	_, err := a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.InsufficientFunds, err))

	a = newFlutterwave(t, jsonHandler(`{"status":"success","data":{"flw_ref":"f1","status":"failed","processor_response":"do not honor"}}`))
	_, err = a.ProcessPayment(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Declined, err))
}

func TestFlutterwaveRefundFailureIsUnavailable(t *testing.T) {
	a := newFlutterwave(t, jsonHandler(`{"status":"error","message":"refund not allowed"}`))
	_, err := a.RefundPayment(context.Background(), "f1", decimal.RequireFromString("5"), "requested")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Unavailable, err))
}
