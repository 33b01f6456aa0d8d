package gateways

import (
	// Go Internal Packages
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	// Local Packages
	errors "payflow/errors"

	// External Packages
	"go.uber.org/zap"
)

// httpClient is the JSON client shared by the provider adapters. It maps
// transport failures and HTTP status classes onto error kinds so retry and
// failover decisions never depend on message text.
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func newHTTPClient(baseURL, apiKey string, logger *zap.Logger) *httpClient {
	return &httpClient{baseURL: baseURL, apiKey: apiKey, client: &http.Client{}, logger: logger}
}

// post sends a JSON body and decodes the JSON response into out. A non-empty
// idemKey is forwarded as the provider idempotency header.
func (h *httpClient) post(ctx context.Context, path, idemKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.E(errors.Internal, "marshal gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.E(errors.Internal, "build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.E(errors.Timeout, "gateway call timed out", err)
		}
		return errors.E(errors.Unavailable, "gateway unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.E(errors.Unavailable, "read gateway response", err)
	}

	if resp.StatusCode >= 400 {
		return h.statusErr(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.E(errors.Unavailable, "decode gateway response", err)
		}
	}
	return nil
}

func (h *httpClient) statusErr(code int, raw []byte) error {
	msg := fmt.Sprintf("gateway responded %d", code)
	cause := fmt.Errorf("%s", truncate(raw, 256))

	switch {
	case code == http.StatusPaymentRequired:
		return errors.E(errors.Declined, msg, cause)
	case code == http.StatusNotFound:
		return errors.E(errors.NotFound, msg, cause)
	case code == http.StatusRequestTimeout:
		return errors.E(errors.Timeout, msg, cause)
	case code == http.StatusTooManyRequests:
		return errors.E(errors.RateLimited, msg, cause)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.E(errors.Config, msg, cause)
	case code >= 500:
		return errors.E(errors.Unavailable, msg, cause)
	}
	return errors.E(errors.Invalid, msg, cause)
}

// declineKind maps a provider decline code to a terminal error kind.
// Definitive business decisions must not look like infrastructure failures.
func declineKind(code string) errors.Kind {
	if code == "insufficient_funds" {
		return errors.InsufficientFunds
	}
	return errors.Declined
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
