package retry

import (
	// Go Internal Packages
	"context"
	"math"
	"math/rand"
	"time"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"go.uber.org/zap"
)

// Policy bounds the retry loop for a single gateway operation.
type Policy struct {
	MaxRetries     int           // additional attempts after the first
	BaseDelay      time.Duration // first backoff delay
	MaxDelay       time.Duration // backoff cap
	Multiplier     float64       // exponential factor
	AttemptTimeout time.Duration // per-attempt deadline
}

// DefaultPolicy mirrors the configured defaults: 3 retries, 200ms base,
// doubling, capped at 5s, 10s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 10 * time.Second,
	}
}

// Operation is one gateway call under retry.
type Operation func(ctx context.Context) (*models.GatewayResult, error)

// Executor runs a gateway operation with bounded attempts, exponential
// backoff with jitter and a per-attempt timeout. Only errors classified as
// transient infrastructure failures are retried; definitive gateway
// decisions propagate immediately.
type Executor struct {
	policy Policy
	logger *zap.Logger
}

func NewExecutor(policy Policy, logger *zap.Logger) *Executor {
	if policy.Multiplier <= 1 {
		policy.Multiplier = 2.0
	}
	return &Executor{policy: policy, logger: logger}
}

// Do runs op up to 1+MaxRetries times on the same gateway.
func (e *Executor) Do(ctx context.Context, name string, op Operation) (*models.GatewayResult, error) {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxRetries+1; attempt++ {
		res, err := e.Once(ctx, op)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !errors.Retryable(err) {
			return nil, err
		}
		if attempt > e.policy.MaxRetries {
			break
		}

		delay := e.backoff(attempt)
		e.logger.Warn("retrying gateway operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.E(errors.Timeout, "operation abandoned", ctx.Err())
		}
	}
	return nil, lastErr
}

// Once runs a single attempt under the per-attempt timeout. The attempt
// races its deadline: a slow gateway call is abandoned, though the gateway
// may still have applied the charge, which is why the idempotency key is
// forwarded on the wire.
func (e *Executor) Once(ctx context.Context, op Operation) (*models.GatewayResult, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.policy.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, e.policy.AttemptTimeout)
	}
	defer cancel()

	type outcome struct {
		res *models.GatewayResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := op(attemptCtx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-attemptCtx.Done():
		return nil, errors.E(errors.Timeout, "gateway attempt timed out", attemptCtx.Err())
	}
}

// backoff is baseDelay * multiplier^(attempt-1) capped at maxDelay, with
// half-range jitter so synchronized clients spread out.
func (e *Executor) backoff(attempt int) time.Duration {
	d := float64(e.policy.BaseDelay) * math.Pow(e.policy.Multiplier, float64(attempt-1))
	if max := float64(e.policy.MaxDelay); e.policy.MaxDelay > 0 && d > max {
		d = max
	}

	half := d / 2
	return time.Duration(half + rand.Float64()*half)
}
