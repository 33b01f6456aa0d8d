package payments

import (
	// Go Internal Packages
	"context"
	"fmt"
	"time"

	// Local Packages
	errors "payflow/errors"
	gateways "payflow/gateways"
	idempotency "payflow/idempotency"
	lifecycle "payflow/lifecycle"
	metrics "payflow/metrics"
	models "payflow/models"
	registry "payflow/registry"
	retry "payflow/retry"

	// External Packages
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TxStore is the durable transaction store contract. UpdateStatus is
// conditional on the expected current status and Update is conditional on
// the read version, so concurrent writers lose with a Conflict instead of
// overwriting each other.
type TxStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error)
	Query(ctx context.Context, f models.TxFilter, page, limit int64) (*models.TxPage, error)
}

// FraudChecker is the external fraud collaborator, consulted before any
// gateway dispatch when configured.
type FraudChecker interface {
	Analyze(ctx context.Context, tx *models.Transaction) (*models.FraudAssessment, error)
}

// Auditor records audit events fire-and-forget; its failures never fail the
// primary operation.
type Auditor interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

// SplitEnqueuer hands split sub-payments to the background task queue.
type SplitEnqueuer interface {
	Enqueue(ctx context.Context, task models.SplitTask) error
}

// Orchestrator drives the transaction lifecycle across unreliable gateways:
// one retry-then-failover pipeline shared by every operation, idempotent
// request handling, and the state machine guarding every status change.
type Orchestrator struct {
	store    TxStore
	registry *registry.Registry
	failover *registry.Coordinator
	retrier  *retry.Executor
	guard    *idempotency.Guard
	metrics  *metrics.Recorder
	logger   *zap.Logger

	fraud   FraudChecker
	auditor Auditor
	splits  SplitEnqueuer
}

func NewOrchestrator(store TxStore, reg *registry.Registry, failover *registry.Coordinator,
	retrier *retry.Executor, guard *idempotency.Guard, rec *metrics.Recorder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: reg,
		failover: failover,
		retrier:  retrier,
		guard:    guard,
		metrics:  rec,
		logger:   logger,
	}
}

func (o *Orchestrator) WithFraudChecker(f FraudChecker) *Orchestrator { o.fraud = f; return o }
func (o *Orchestrator) WithAuditor(a Auditor) *Orchestrator           { o.auditor = a; return o }
func (o *Orchestrator) WithSplitEnqueuer(s SplitEnqueuer) *Orchestrator {
	o.splits = s
	return o
}

// ProcessPayment validates, deduplicates, selects a gateway and dispatches
// the charge through the retry-then-failover pipeline. The response is
// keyed by our transaction id, never the gateway's.
func (o *Orchestrator) ProcessPayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentResponse, error) {
	if err := validatePaymentRequest(req); err != nil {
		o.logger.Error("payment request rejected", zap.String("operation", "process_payment"), zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	key := o.guard.Key(req, now)

	cached, hit, err := o.guard.Lookup(ctx, key)
	if err != nil {
		// A cache outage must not block payments; the store's unique
		// reference index still catches true duplicates.
		o.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		if rerr := cached.Err(); rerr != nil {
			o.logger.Info("idempotent replay of failed outcome", zap.String("key", key), zap.Error(rerr))
			return nil, rerr
		}
		o.logger.Info("idempotent replay", zap.String("key", key),
			zap.String("transaction_id", cached.Response.TransactionID))
		return cached.Response, nil
	}

	gw, err := o.registry.SelectBest(ctx, req.Amount, req.Currency)
	if err != nil {
		o.logger.Error("gateway selection failed",
			zap.String("operation", "process_payment"), zap.Error(err))
		return nil, err
	}

	tx := &models.Transaction{
		ID:              uuid.NewString(),
		InternalRef:     key,
		Amount:          req.Amount,
		Currency:        req.Currency,
		UserID:          req.UserID,
		MerchantID:      req.MerchantID,
		VendorID:        req.VendorID,
		PaymentMethodID: req.PaymentMethodID,
		GatewayID:       gw.ID(),
		Status:          models.StatusPending,
		Splits:          pendingSplits(req.Splits),
		Metadata:        req.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := o.store.Create(ctx, tx); err != nil {
		o.logger.Error("transaction create failed",
			zap.String("transaction_id", tx.ID),
			zap.String("operation", "process_payment"), zap.Error(err))
		return nil, err
	}

	if err := o.screenFraud(ctx, tx); err != nil {
		return nil, err
	}

	processing, err := o.store.UpdateStatus(ctx, tx.ID, models.StatusPending, models.StatusProcessing)
	if err != nil {
		return nil, err
	}
	// Carry the fraud assessment over the store round-trip; it is persisted
	// with the dispatch outcome below.
	processing.RiskScore = tx.RiskScore
	processing.FraudFlags = tx.FraudFlags
	processing.Metadata = tx.Metadata
	tx = processing

	gwReq := models.GatewayPaymentRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethodID: req.PaymentMethodID,
		IdempotencyKey:  key,
		Metadata:        req.Metadata,
	}
	result, used, dispatchErr := o.dispatch(ctx, "process_payment", tx.ID, gw,
		func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error) {
			return g.ProcessPayment(ctx, gwReq)
		})

	if dispatchErr != nil {
		o.failTransaction(ctx, tx, used)
		o.logger.Error("payment dispatch failed",
			zap.String("transaction_id", tx.ID),
			zap.String("operation", "process_payment"), zap.Error(dispatchErr))
		o.cacheFailure(ctx, key, dispatchErr)
		o.audit(ctx, tx.ID, "process_payment", "failed")
		return nil, dispatchErr
	}

	tx.GatewayID = used.ID()
	tx.GatewayTxID = result.ExternalID
	if result.Status != tx.Status {
		if err := lifecycle.Transition(tx, result.Status, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if err := o.store.Update(ctx, tx); err != nil {
		return nil, err
	}

	if tx.Status == models.StatusSucceeded {
		o.enqueueSplits(ctx, tx)
	}

	resp := o.response(tx)
	o.cacheResponse(ctx, key, resp)
	o.audit(ctx, tx.ID, "process_payment", string(tx.Status))
	return resp, nil
}

// CapturePayment captures a pending or processing payment on the gateway
// that owns it. The amount is validated against the transaction before any
// status check so an oversized capture always fails as invalid.
func (o *Orchestrator) CapturePayment(ctx context.Context, txID string, amount *decimal.Decimal) (*models.Transaction, error) {
	tx, err := o.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	if amount != nil {
		if !amount.IsPositive() {
			return nil, errors.E(errors.Invalid, "capture amount must be positive", nil)
		}
		if amount.GreaterThan(tx.Amount) {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("capture amount %s exceeds transaction amount %s", amount, tx.Amount), nil)
		}
	}
	if tx.Status != models.StatusPending && tx.Status != models.StatusProcessing {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("transaction %s is %s, not capturable", tx.ID, tx.Status), nil)
	}

	gw, err := o.registry.Gateway(tx.GatewayID)
	if err != nil {
		return nil, err
	}

	result, used, err := o.dispatch(ctx, "capture_payment", tx.ID, gw,
		func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error) {
			return g.CapturePayment(ctx, tx.GatewayTxID, amount)
		})
	if err != nil {
		o.logger.Error("capture dispatch failed",
			zap.String("transaction_id", tx.ID),
			zap.String("operation", "capture_payment"), zap.Error(err))
		return nil, err
	}

	tx.GatewayID = used.ID()
	if result.ExternalID != "" {
		tx.GatewayTxID = result.ExternalID
	}
	if result.Status != tx.Status {
		if err := lifecycle.Transition(tx, result.Status, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if err := o.store.Update(ctx, tx); err != nil {
		return nil, err
	}

	o.audit(ctx, tx.ID, "capture_payment", string(tx.Status))
	return tx, nil
}

// CancelPayment cancels a pending or processing payment.
func (o *Orchestrator) CancelPayment(ctx context.Context, txID string) (*models.Transaction, error) {
	tx, err := o.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.StatusPending && tx.Status != models.StatusProcessing {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("transaction %s is %s, not cancellable", tx.ID, tx.Status), nil)
	}

	// Nothing was ever dispatched to the gateway for a pending transaction
	// with no external id; cancel locally.
	if tx.GatewayTxID != "" {
		gw, err := o.registry.Gateway(tx.GatewayID)
		if err != nil {
			return nil, err
		}
		if _, _, err := o.dispatch(ctx, "cancel_payment", tx.ID, gw,
			func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error) {
				return g.CancelPayment(ctx, tx.GatewayTxID)
			}); err != nil {
			o.logger.Error("cancel dispatch failed",
				zap.String("transaction_id", tx.ID),
				zap.String("operation", "cancel_payment"), zap.Error(err))
			return nil, err
		}
	}

	if err := lifecycle.Transition(tx, models.StatusCancelled, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := o.store.Update(ctx, tx); err != nil {
		return nil, err
	}

	o.audit(ctx, tx.ID, "cancel_payment", string(tx.Status))
	return tx, nil
}

// RefundPayment refunds part or all of a succeeded payment. The refund
// invariant sum(successful refunds) <= amount is enforced before dispatch.
func (o *Orchestrator) RefundPayment(ctx context.Context, txID string, amount *decimal.Decimal, reason string) (*models.Refund, error) {
	tx, err := o.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.StatusSucceeded && tx.Status != models.StatusPartiallyRefunded {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("transaction %s is %s, not refundable", tx.ID, tx.Status), nil)
	}

	remaining := tx.RemainingRefundable()
	amt := remaining
	if amount != nil {
		amt = *amount
	}
	if !amt.IsPositive() {
		return nil, errors.E(errors.Invalid, "refund amount must be positive", nil)
	}
	if amt.GreaterThan(remaining) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("refund amount %s exceeds refundable remainder %s", amt, remaining), nil)
	}

	gw, err := o.registry.Gateway(tx.GatewayID)
	if err != nil {
		return nil, err
	}

	result, _, dispatchErr := o.dispatch(ctx, "refund_payment", tx.ID, gw,
		func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error) {
			return g.RefundPayment(ctx, tx.GatewayTxID, amt, reason)
		})

	now := time.Now().UTC()
	refund := models.Refund{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		Amount:        amt,
		Reason:        reason,
		Status:        models.RefundSucceeded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if dispatchErr != nil {
		// Keep the failed attempt on the record; it does not count against
		// the refundable remainder.
		refund.Status = models.RefundFailed
		tx.Refunds = append(tx.Refunds, refund)
		if err := o.store.Update(ctx, tx); err != nil {
			o.logger.Warn("failed refund not recorded",
				zap.String("transaction_id", tx.ID), zap.Error(err))
		}
		o.logger.Error("refund dispatch failed",
			zap.String("transaction_id", tx.ID),
			zap.String("operation", "refund_payment"), zap.Error(dispatchErr))
		return nil, dispatchErr
	}

	refund.GatewayRefundID = result.ExternalID
	tx.Refunds = append(tx.Refunds, refund)

	next := models.StatusPartiallyRefunded
	if tx.RemainingRefundable().IsZero() {
		next = models.StatusRefunded
	}
	if next != tx.Status {
		if err := lifecycle.Transition(tx, next, now); err != nil {
			return nil, err
		}
	}
	if err := o.store.Update(ctx, tx); err != nil {
		return nil, err
	}

	o.audit(ctx, tx.ID, "refund_payment", string(tx.Status))
	return &refund, nil
}

// UpdateTransactionStatus applies an externally-driven status change (for
// example a webhook) through the state machine.
func (o *Orchestrator) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	tx, err := o.store.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.Known(status) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown status %q", status), nil)
	}
	if !lifecycle.CanTransition(tx.Status, status) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("invalid transition %s -> %s for transaction %s", tx.Status, status, tx.ID), nil)
	}

	updated, err := o.store.UpdateStatus(ctx, tx.ID, tx.Status, status)
	if err != nil {
		o.logger.Error("status update failed",
			zap.String("transaction_id", txID),
			zap.String("operation", "update_status"), zap.Error(err))
		return nil, err
	}

	o.audit(ctx, txID, "update_status", string(status))
	return updated, nil
}

func (o *Orchestrator) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	return o.store.GetByID(ctx, txID)
}

func (o *Orchestrator) GetTransactions(ctx context.Context, f models.TxFilter, page, limit int64) (*models.TxPage, error) {
	return o.store.Query(ctx, f, page, limit)
}

type gatewayCall func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error)

// dispatch is the single retry-then-failover pipeline. Retry repeats the
// same gateway on transient failures; once retries are exhausted the
// failover coordinator supplies one alternate gateway, attempted once.
// Definitive gateway decisions (declines) propagate immediately and never
// consume a failover. Every attempt records metrics and health.
func (o *Orchestrator) dispatch(ctx context.Context, op, txID string, gw gateways.Adapter, call gatewayCall) (*models.GatewayResult, gateways.Adapter, error) {
	run := func(ctx context.Context, g gateways.Adapter) (*models.GatewayResult, error) {
		start := time.Now()
		res, err := call(ctx, g)
		elapsed := time.Since(start)

		o.metrics.Attempt(g.ID(), op, err == nil, elapsed)
		if herr := o.registry.Health().Record(ctx, g.ID(), err == nil, elapsed); herr != nil {
			o.logger.Warn("health record failed", zap.String("gateway_id", g.ID()), zap.Error(herr))
		}
		return res, err
	}

	res, err := o.retrier.Do(ctx, op, func(ctx context.Context) (*models.GatewayResult, error) {
		return run(ctx, gw)
	})
	if err == nil {
		return res, gw, nil
	}
	if !errors.Retryable(err) {
		return nil, gw, err
	}

	fallback, ok := o.failover.HandleFailure(ctx, gw.ID(), err)
	if !ok {
		return nil, gw, err
	}

	o.logger.Info("dispatching on fallback gateway",
		zap.String("transaction_id", txID),
		zap.String("operation", op),
		zap.String("gateway_id", fallback.ID()))

	res, err = o.retrier.Once(ctx, func(ctx context.Context) (*models.GatewayResult, error) {
		return run(ctx, fallback)
	})
	if err != nil {
		return nil, fallback, err
	}
	return res, fallback, nil
}

// screenFraud consults the fraud collaborator. A decline recommendation
// fails the transaction before any gateway contact; review flags it and
// lets processing proceed.
func (o *Orchestrator) screenFraud(ctx context.Context, tx *models.Transaction) error {
	if o.fraud == nil {
		return nil
	}

	assessment, err := o.fraud.Analyze(ctx, tx)
	if err != nil {
		o.logger.Warn("fraud analysis unavailable",
			zap.String("transaction_id", tx.ID), zap.Error(err))
		return nil
	}

	tx.RiskScore = assessment.RiskScore
	tx.FraudFlags = assessment.Flags

	switch assessment.Recommendation {
	case models.FraudDecline:
		if _, serr := o.store.UpdateStatus(ctx, tx.ID, models.StatusPending, models.StatusFailed); serr != nil {
			o.logger.Warn("fraud decline not persisted",
				zap.String("transaction_id", tx.ID), zap.Error(serr))
		}
		o.audit(ctx, tx.ID, "process_payment", "fraud_declined")
		return errors.E(errors.Fraud,
			fmt.Sprintf("transaction %s declined by fraud screening", tx.ID), nil)
	case models.FraudReview:
		if tx.Metadata == nil {
			tx.Metadata = make(map[string]string)
		}
		tx.Metadata["fraud_review"] = "true"
	}
	return nil
}

// failTransaction moves the transaction to failed after dispatch
// exhaustion, keeping whichever gateway last owned the attempt.
func (o *Orchestrator) failTransaction(ctx context.Context, tx *models.Transaction, lastGateway gateways.Adapter) {
	if lastGateway != nil {
		tx.GatewayID = lastGateway.ID()
	}
	if err := lifecycle.Transition(tx, models.StatusFailed, time.Now().UTC()); err != nil {
		o.logger.Warn("fail transition rejected", zap.String("transaction_id", tx.ID), zap.Error(err))
		return
	}
	if err := o.store.Update(ctx, tx); err != nil {
		o.logger.Warn("failed status not persisted", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}

func (o *Orchestrator) cacheResponse(ctx context.Context, key string, resp *models.PaymentResponse) {
	if err := o.guard.Store(ctx, key, resp); err != nil {
		o.logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
	}
}

func (o *Orchestrator) cacheFailure(ctx context.Context, key string, cause error) {
	if err := o.guard.StoreFailure(ctx, key, cause); err != nil {
		o.logger.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
	}
}

func (o *Orchestrator) response(tx *models.Transaction) *models.PaymentResponse {
	return &models.PaymentResponse{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		GatewayID:     tx.GatewayID,
		CreatedAt:     tx.CreatedAt,
	}
}

func (o *Orchestrator) audit(ctx context.Context, txID, op, outcome string) {
	if o.auditor == nil {
		return
	}
	event := models.AuditEvent{
		TransactionID: txID,
		Operation:     op,
		Outcome:       outcome,
		At:            time.Now().UTC(),
	}
	if err := o.auditor.Record(ctx, event); err != nil {
		o.logger.Warn("audit record failed", zap.String("transaction_id", txID), zap.Error(err))
	}
}

func (o *Orchestrator) enqueueSplits(ctx context.Context, tx *models.Transaction) {
	if o.splits == nil || len(tx.Splits) == 0 {
		return
	}
	for _, split := range tx.Splits {
		task := models.SplitTask{
			TransactionID: tx.ID,
			RecipientID:   split.RecipientID,
			Amount:        split.Amount,
			Currency:      tx.Currency,
		}
		if err := o.splits.Enqueue(ctx, task); err != nil {
			o.logger.Error("split enqueue failed",
				zap.String("transaction_id", tx.ID),
				zap.String("recipient_id", split.RecipientID), zap.Error(err))
		}
	}
}

func pendingSplits(splits []models.Split) []models.Split {
	out := make([]models.Split, len(splits))
	for i, s := range splits {
		s.Status = models.SplitPending
		out[i] = s
	}
	return out
}

func validatePaymentRequest(req models.PaymentRequest) error {
	ve := errors.ValidationErrs()

	if req.UserID == "" {
		ve.Add("user_id", "cannot be empty")
	}
	if req.PaymentMethodID == "" {
		ve.Add("payment_method_id", "cannot be empty")
	}
	if !req.Amount.IsPositive() {
		ve.Add("amount", "must be positive")
	}

	// Validation checks the currency's shape only. Whether any configured
	// gateway can take it is a capability question, answered at selection
	// time with a Config error.
	if !models.ValidCurrency(req.Currency) {
		ve.Add("currency", "must be an uppercase ISO-4217 code")
	} else if req.Amount.LessThan(models.MinimumCharge(req.Currency)) {
		ve.Add("amount", fmt.Sprintf("below the %s minimum of %s",
			req.Currency, models.MinimumCharge(req.Currency)))
	}

	splitTotal := decimal.Zero
	for i, s := range req.Splits {
		if !s.Amount.IsPositive() {
			ve.Add(fmt.Sprintf("splits[%d].amount", i), "must be positive")
		}
		if s.RecipientID == "" {
			ve.Add(fmt.Sprintf("splits[%d].recipient_id", i), "cannot be empty")
		}
		splitTotal = splitTotal.Add(s.Amount)
	}
	if splitTotal.GreaterThan(req.Amount) {
		ve.Add("splits", "total exceeds transaction amount")
	}

	return ve.Err()
}
