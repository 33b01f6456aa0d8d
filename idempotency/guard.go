package idempotency

import (
	// Go Internal Packages
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"go.uber.org/zap"
)

// DefaultTTL is the window inside which a replayed key returns the cached
// response instead of creating a new transaction.
const DefaultTTL = 24 * time.Hour

// keyBucket is the time bucket used when deriving a key for requests that
// did not supply one: identical requests inside one bucket deduplicate.
const keyBucket = 5 * time.Minute

// KV is the TTL key-value store behind the guard. It must be durable and
// shared across instances (redis in production) so duplicates landing on a
// different process still deduplicate.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Outcome is the recorded result of a processed key: the response on
// success, or the classified error the original call returned. A replay
// must reproduce whichever one the first call produced.
type Outcome struct {
	Response     *models.PaymentResponse `json:"response,omitempty"`
	ErrorKind    errors.Kind             `json:"error_kind,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

// Err reconstructs the recorded failure, or nil for a success outcome.
func (o *Outcome) Err() error {
	if o.ErrorMessage == "" {
		return nil
	}
	return errors.E(o.ErrorKind, o.ErrorMessage, nil)
}

// Guard deduplicates repeated processPayment calls carrying the same
// idempotency key. The cache is not part of the durable financial record.
type Guard struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewGuard(kv KV, ttl time.Duration, logger *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{kv: kv, ttl: ttl, logger: logger}
}

// Key returns the request's idempotency key, deriving one deterministically
// from the request identity and a short time bucket when none was supplied.
func (g *Guard) Key(req models.PaymentRequest, now time.Time) string {
	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}

	bucket := now.Truncate(keyBucket).Unix()
	seed := fmt.Sprintf("%s|%s|%s|%s|%d",
		req.UserID, req.Amount.String(), req.Currency, req.PaymentMethodID, bucket)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached outcome for a key, if any. A hit means the
// caller must reproduce the prior outcome and do no further work.
func (g *Guard) Lookup(ctx context.Context, key string) (*Outcome, bool, error) {
	raw, ok, err := g.kv.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var out Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		// A corrupt cache entry must not block the payment; treat as a miss.
		g.logger.Warn("dropping corrupt idempotency entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if out.Response == nil && out.ErrorMessage == "" {
		// An outcome holds a response or an error; an entry with neither is
		// corrupt, same as unparseable JSON.
		g.logger.Warn("dropping corrupt idempotency entry", zap.String("key", key))
		return nil, false, nil
	}
	return &out, true, nil
}

// Store caches a successful response under the key for the TTL window.
func (g *Guard) Store(ctx context.Context, key string, resp *models.PaymentResponse) error {
	return g.store(ctx, key, Outcome{Response: resp})
}

// StoreFailure caches a failed outcome so a replay within the TTL returns
// the recorded error instead of re-dispatching the payment.
func (g *Guard) StoreFailure(ctx context.Context, key string, cause error) error {
	return g.store(ctx, key, Outcome{
		ErrorKind:    errors.KindOf(cause),
		ErrorMessage: errors.MessageOf(cause),
	})
}

func (g *Guard) store(ctx context.Context, key string, out Outcome) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, cacheKey(key), raw, g.ttl)
}

func cacheKey(key string) string {
	return "idem:" + key
}
