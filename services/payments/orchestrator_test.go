package payments

import (
	// Go Internal Packages
	"context"
	"maps"
	"sync"
	"testing"
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes ----

type fakeStore struct {
	mu   sync.Mutex
	txs  map[string]*models.Transaction
	refs map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: make(map[string]*models.Transaction), refs: make(map[string]bool)}
}

func cloneTx(tx *models.Transaction) *models.Transaction {
	cp := *tx
	cp.Refunds = append([]models.Refund(nil), tx.Refunds...)
	cp.Splits = append([]models.Split(nil), tx.Splits...)
	cp.FraudFlags = append([]string(nil), tx.FraudFlags...)
	if tx.Metadata != nil {
		cp.Metadata = maps.Clone(tx.Metadata)
	}
	return &cp
}

func (s *fakeStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.InternalRef != "" && s.refs[tx.InternalRef] {
		return errors.DuplicateTransactionErr(tx.InternalRef, nil)
	}
	s.refs[tx.InternalRef] = true
	s.txs[tx.ID] = cloneTx(tx)
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, errors.TransactionNotFoundErr(id)
	}
	return cloneTx(tx), nil
}

func (s *fakeStore) Update(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.txs[tx.ID]
	if !ok || existing.Version != tx.Version {
		return errors.ConflictErr(tx.ID, nil)
	}
	tx.Version++
	s.txs[tx.ID] = cloneTx(tx)
	return nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.Status != from {
		return nil, errors.ConflictErr(id, nil)
	}

	now := time.Now().UTC()
	stamps := lifecycle.StampsFor(to, now)
	if stamps.ProcessedAt != nil && tx.ProcessedAt == nil {
		tx.ProcessedAt = stamps.ProcessedAt
	}
	if stamps.SettledAt != nil && tx.SettledAt == nil {
		tx.SettledAt = stamps.SettledAt
	}
	tx.Status = to
	tx.UpdatedAt = now
	tx.Version++
	return cloneTx(tx), nil
}

func (s *fakeStore) Query(_ context.Context, f models.TxFilter, page, limit int64) (*models.TxPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []models.Transaction
	for _, tx := range s.txs {
		if f.UserID != "" && tx.UserID != f.UserID {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		data = append(data, *cloneTx(tx))
	}
	return &models.TxPage{
		Data:       data,
		Pagination: models.Pagination{Page: page, Limit: limit, Total: int64(len(data))},
	}, nil
}

func (s *fakeStore) seed(tx *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = cloneTx(tx)
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

type fakeAdapter struct {
	cfg models.GatewayConfig

	mu           sync.Mutex
	processCalls int
	captureCalls int
	cancelCalls  int
	refundCalls  int

	processFn func(req models.GatewayPaymentRequest) (*models.GatewayResult, error)
	captureFn func(gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error)
	cancelFn  func(gatewayTxID string) (*models.GatewayResult, error)
	refundFn  func(gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error)
}

func newFakeAdapter(id string, priority int) *fakeAdapter {
	return &fakeAdapter{cfg: models.GatewayConfig{
		ID:                  id,
		Type:                "stripe",
		Priority:            priority,
		Status:              models.GatewayActive,
		SupportedCurrencies: []string{"USD", "NGN"},
	}}
}

func (a *fakeAdapter) ID() string                   { return a.cfg.ID }
func (a *fakeAdapter) Type() string                 { return a.cfg.Type }
func (a *fakeAdapter) Config() models.GatewayConfig { return a.cfg }

func (a *fakeAdapter) ProcessPayment(_ context.Context, req models.GatewayPaymentRequest) (*models.GatewayResult, error) {
	a.mu.Lock()
	a.processCalls++
	a.mu.Unlock()
	if a.processFn != nil {
		return a.processFn(req)
	}
	return &models.GatewayResult{
		ExternalID: "ext-" + a.cfg.ID,
		Status:     models.StatusSucceeded,
		Amount:     req.Amount,
		Currency:   req.Currency,
	}, nil
}

func (a *fakeAdapter) CapturePayment(_ context.Context, gatewayTxID string, amount *decimal.Decimal) (*models.GatewayResult, error) {
	a.mu.Lock()
	a.captureCalls++
	a.mu.Unlock()
	if a.captureFn != nil {
		return a.captureFn(gatewayTxID, amount)
	}
	return &models.GatewayResult{ExternalID: gatewayTxID, Status: models.StatusSucceeded}, nil
}

func (a *fakeAdapter) CancelPayment(_ context.Context, gatewayTxID string) (*models.GatewayResult, error) {
	a.mu.Lock()
	a.cancelCalls++
	a.mu.Unlock()
	if a.cancelFn != nil {
		return a.cancelFn(gatewayTxID)
	}
	return &models.GatewayResult{ExternalID: gatewayTxID, Status: models.StatusCancelled}, nil
}

func (a *fakeAdapter) RefundPayment(_ context.Context, gatewayTxID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	a.mu.Lock()
	a.refundCalls++
	a.mu.Unlock()
	if a.refundFn != nil {
		return a.refundFn(gatewayTxID, amount, reason)
	}
	return &models.GatewayResult{ExternalID: "re-" + gatewayTxID, Status: models.StatusSucceeded, Amount: amount}, nil
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (m *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return raw, ok, nil
}

func (m *fakeKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeFraud struct {
	assessment models.FraudAssessment
}

func (f *fakeFraud) Analyze(_ context.Context, _ *models.Transaction) (*models.FraudAssessment, error) {
	a := f.assessment
	return &a, nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []models.SplitTask
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, task models.SplitTask) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return nil
}

// ---- fixture ----

type fixture struct {
	store   *fakeStore
	primary *fakeAdapter
	backup  *fakeAdapter
	health  *registry.MemHealthStore
	promReg *prometheus.Registry
	orch    *Orchestrator
}

func newFixture(t *testing.T, chains map[string][]string) *fixture {
	t.Helper()

	store := newFakeStore()
	primary := newFakeAdapter("primary", 1)
	backup := newFakeAdapter("backup", 2)

	health := registry.NewMemHealthStore()
	reg := registry.New(health, zap.NewNop())
	require.NoError(t, reg.Register(primary))
	require.NoError(t, reg.Register(backup))

	coordinator := registry.NewCoordinator(reg, chains, zap.NewNop())
	retrier := retry.NewExecutor(retry.Policy{
		MaxRetries:     0,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		Multiplier:     2.0,
		AttemptTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	guard := idempotency.NewGuard(newFakeKV(), time.Hour, zap.NewNop())

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promReg)

	orch := NewOrchestrator(store, reg, coordinator, retrier, guard, recorder, zap.NewNop())
	return &fixture{store: store, primary: primary, backup: backup, health: health, promReg: promReg, orch: orch}
}

func defaultChains() map[string][]string {
	return map[string][]string{"primary": {"backup"}}
}

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func paymentReq() models.PaymentRequest {
	return models.PaymentRequest{
		UserID:          "user-1",
		Amount:          usd("100.00"),
		Currency:        "USD",
		PaymentMethodID: "pm-123",
	}
}

// attemptCount sums payflow_gateway_attempts_total for a gateway+outcome.
func attemptCount(t *testing.T, reg *prometheus.Registry, gateway, outcome string) float64 {
	t.Helper()
	fams, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, f := range fams {
		if f.GetName() != "payflow_gateway_attempts_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["gateway"] == gateway && labels["outcome"] == outcome {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

// ---- process ----

func TestProcessPaymentSucceeds(t *testing.T) {
	f := newFixture(t, defaultChains())

	resp, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, models.StatusSucceeded, resp.Status)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "primary", resp.GatewayID)

	tx, err := f.store.GetByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, tx.Status)
	assert.Equal(t, "ext-primary", tx.GatewayTxID)
	assert.NotNil(t, tx.ProcessedAt)
	assert.NotNil(t, tx.SettledAt)

	assert.Equal(t, 1.0, attemptCount(t, f.promReg, "primary", "success"))
}

func TestProcessPaymentIdempotentReplay(t *testing.T) {
	f := newFixture(t, defaultChains())
	req := paymentReq()
	req.IdempotencyKey = "idem-1"

	first, err := f.orch.ProcessPayment(context.Background(), req)
	require.NoError(t, err)

	second, err := f.orch.ProcessPayment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.Equal(t, first.Currency, second.Currency)
	assert.Equal(t, first.GatewayID, second.GatewayID)
	assert.Equal(t, 1, f.primary.processCalls)
	assert.Equal(t, 1, f.store.count())
}

func TestProcessPaymentReplaysFailedOutcome(t *testing.T) {
	f := newFixture(t, defaultChains())
	f.primary.processFn = func(models.GatewayPaymentRequest) (*models.GatewayResult, error) {
		return nil, errors.E(errors.Declined, "card declined", nil)
	}
	req := paymentReq()
	req.IdempotencyKey = "idem-declined"

	resp, firstErr := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, firstErr)
	assert.Nil(t, resp)

	// the replay reproduces the recorded failure without touching the
	// gateway or creating another transaction
	resp, replayErr := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, replayErr)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(errors.Declined, replayErr))
	assert.Equal(t, firstErr.Error(), replayErr.Error())
	assert.Equal(t, 1, f.primary.processCalls)
	assert.Equal(t, 1, f.store.count())
}

func TestProcessPaymentValidationNeverReachesGateway(t *testing.T) {
	f := newFixture(t, defaultChains())
	req := paymentReq()
	req.Currency = "INVALID"

	_, err := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))

	assert.Equal(t, 0, f.primary.processCalls)
	assert.Equal(t, 0, f.store.count())
	assert.Equal(t, 0.0, attemptCount(t, f.promReg, "primary", "success"))
	assert.Equal(t, 0.0, attemptCount(t, f.promReg, "primary", "error"))
}

func TestProcessPaymentUnsupportedCurrencyIsSelectionFault(t *testing.T) {
	f := newFixture(t, defaultChains())
	req := paymentReq()
	req.Currency = "ZZZ" // well-formed, no configured gateway takes it

	_, err := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Config, err))
	assert.Equal(t, 0, f.primary.processCalls)
}

func TestProcessPaymentRejectsNonPositiveAndBelowMinimum(t *testing.T) {
	f := newFixture(t, defaultChains())

	req := paymentReq()
	req.Amount = usd("0")
	_, err := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))

	req = paymentReq()
	req.Amount = usd("0.25") // below the USD minimum of 0.50
	_, err = f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))

	assert.Equal(t, 0, f.primary.processCalls)
}

func TestProcessPaymentFailsOverAndSucceeds(t *testing.T) {
	f := newFixture(t, defaultChains())
	f.primary.processFn = func(models.GatewayPaymentRequest) (*models.GatewayResult, error) {
		return nil, errors.E(errors.Unavailable, "connection refused", nil)
	}

	resp, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSucceeded, resp.Status)
	assert.Equal(t, "backup", resp.GatewayID)

	tx, err := f.store.GetByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "backup", tx.GatewayID)
	assert.Equal(t, "ext-backup", tx.GatewayTxID)

	assert.Equal(t, 1.0, attemptCount(t, f.promReg, "primary", "error"))
	assert.Equal(t, 1.0, attemptCount(t, f.promReg, "backup", "success"))

	rec, err := f.health.Health(context.Background(), "primary")
	require.NoError(t, err)
	assert.Greater(t, rec.FailureCount, int64(0))
}

func TestProcessPaymentNoFallbackPropagatesError(t *testing.T) {
	f := newFixture(t, map[string][]string{})
	f.primary.processFn = func(models.GatewayPaymentRequest) (*models.GatewayResult, error) {
		return nil, errors.E(errors.Unavailable, "connection refused", nil)
	}
	f.backup.cfg.Status = models.GatewayInactive

	_, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Unavailable, err))

	page, qerr := f.store.Query(context.Background(), models.TxFilter{UserID: "user-1"}, 1, 10)
	require.NoError(t, qerr)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.StatusFailed, page.Data[0].Status)
}

func TestProcessPaymentDeclineIsTerminal(t *testing.T) {
	f := newFixture(t, defaultChains())
	f.primary.processFn = func(models.GatewayPaymentRequest) (*models.GatewayResult, error) {
		return nil, errors.E(errors.Declined, "card declined", nil)
	}

	_, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Declined, err))

	// a definitive decline is neither retried nor failed over
	assert.Equal(t, 1, f.primary.processCalls)
	assert.Equal(t, 0, f.backup.processCalls)

	page, qerr := f.store.Query(context.Background(), models.TxFilter{UserID: "user-1"}, 1, 10)
	require.NoError(t, qerr)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.StatusFailed, page.Data[0].Status)
}

func TestProcessPaymentFraudDeclineBlocksDispatch(t *testing.T) {
	f := newFixture(t, defaultChains())
	f.orch.WithFraudChecker(&fakeFraud{assessment: models.FraudAssessment{
		RiskScore:      0.97,
		Recommendation: models.FraudDecline,
		Flags:          []string{"velocity"},
	}})

	_, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Fraud, err))
	assert.Equal(t, 0, f.primary.processCalls)

	page, qerr := f.store.Query(context.Background(), models.TxFilter{UserID: "user-1"}, 1, 10)
	require.NoError(t, qerr)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.StatusFailed, page.Data[0].Status)
}

func TestProcessPaymentFraudReviewProceedsFlagged(t *testing.T) {
	f := newFixture(t, defaultChains())
	f.orch.WithFraudChecker(&fakeFraud{assessment: models.FraudAssessment{
		RiskScore:      0.55,
		Recommendation: models.FraudReview,
		Flags:          []string{"new_device"},
	}})

	resp, err := f.orch.ProcessPayment(context.Background(), paymentReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, resp.Status)

	tx, err := f.store.GetByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_device"}, tx.FraudFlags)
	assert.Equal(t, "true", tx.Metadata["fraud_review"])
	assert.InDelta(t, 0.55, tx.RiskScore, 1e-9)
}

func TestProcessPaymentEnqueuesSplits(t *testing.T) {
	f := newFixture(t, defaultChains())
	enq := &fakeEnqueuer{}
	f.orch.WithSplitEnqueuer(enq)

	req := paymentReq()
	req.Splits = []models.Split{
		{RecipientID: "vendor-1", Amount: usd("30.00")},
		{RecipientID: "vendor-2", Amount: usd("20.00")},
	}

	resp, err := f.orch.ProcessPayment(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, enq.tasks, 2)
	assert.Equal(t, resp.TransactionID, enq.tasks[0].TransactionID)
	assert.Equal(t, "vendor-1", enq.tasks[0].RecipientID)
	assert.Equal(t, "USD", enq.tasks[0].Currency)

	tx, err := f.store.GetByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	require.Len(t, tx.Splits, 2)
	assert.Equal(t, models.SplitPending, tx.Splits[0].Status)
}

func TestProcessPaymentRejectsOversizedSplits(t *testing.T) {
	f := newFixture(t, defaultChains())
	req := paymentReq()
	req.Splits = []models.Split{{RecipientID: "vendor-1", Amount: usd("150.00")}}

	_, err := f.orch.ProcessPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

// ---- capture / cancel ----

func seedTx(f *fixture, status models.TransactionStatus) *models.Transaction {
	tx := &models.Transaction{
		ID:              "tx-1",
		InternalRef:     "ref-1",
		Amount:          usd("100.00"),
		Currency:        "USD",
		UserID:          "user-1",
		PaymentMethodID: "pm-123",
		GatewayID:       "primary",
		GatewayTxID:     "ext-1",
		Status:          status,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	f.store.seed(tx)
	return tx
}

func TestCapturePaymentOversizedAmountAlwaysInvalid(t *testing.T) {
	for _, status := range []models.TransactionStatus{
		models.StatusPending, models.StatusProcessing, models.StatusSucceeded, models.StatusFailed,
	} {
		f := newFixture(t, defaultChains())
		seedTx(f, status)

		amt := usd("150.00")
		_, err := f.orch.CapturePayment(context.Background(), "tx-1", &amt)
		require.Error(t, err, string(status))
		assert.True(t, errors.Is(errors.Invalid, err), string(status))
		assert.Equal(t, 0, f.primary.captureCalls, string(status))
	}
}

func TestCapturePaymentSucceeds(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusProcessing)

	amt := usd("80.00")
	tx, err := f.orch.CapturePayment(context.Background(), "tx-1", &amt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, tx.Status)
	assert.Equal(t, 1, f.primary.captureCalls)
	assert.NotNil(t, tx.ProcessedAt)
}

func TestCapturePaymentWrongStatus(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusSucceeded)

	_, err := f.orch.CapturePayment(context.Background(), "tx-1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Equal(t, 0, f.primary.captureCalls)
}

func TestCancelPaymentDispatchesAndTransitions(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusProcessing)

	tx, err := f.orch.CancelPayment(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, tx.Status)
	assert.Equal(t, 1, f.primary.cancelCalls)
	assert.NotNil(t, tx.ProcessedAt)
}

func TestCancelPaymentPendingWithoutDispatchSkipsGateway(t *testing.T) {
	f := newFixture(t, defaultChains())
	tx := seedTx(f, models.StatusPending)
	tx.GatewayTxID = ""
	f.store.seed(tx)

	got, err := f.orch.CancelPayment(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 0, f.primary.cancelCalls)
}

func TestCancelPaymentTerminalStatusRejected(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusFailed)

	_, err := f.orch.CancelPayment(context.Background(), "tx-1")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

// ---- refunds ----

func TestRefundPaymentEnforcesRefundableRemainder(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusSucceeded)

	over := usd("150.00")
	_, err := f.orch.RefundPayment(context.Background(), "tx-1", &over, "")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Equal(t, 0, f.primary.refundCalls)

	partial := usd("50.00")
	refund, err := f.orch.RefundPayment(context.Background(), "tx-1", &partial, "partial")
	require.NoError(t, err)
	assert.True(t, refund.Amount.Equal(usd("50.00")))
	assert.Equal(t, models.RefundSucceeded, refund.Status)
	assert.Equal(t, "partial", refund.Reason)

	tx, err := f.store.GetByID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyRefunded, tx.Status)
	assert.True(t, tx.RemainingRefundable().Equal(usd("50.00")))

	// a second partial refund beyond the remainder is rejected
	tooMuch := usd("60.00")
	_, err = f.orch.RefundPayment(context.Background(), "tx-1", &tooMuch, "")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestRefundPaymentDefaultsToFullRemainder(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusSucceeded)

	refund, err := f.orch.RefundPayment(context.Background(), "tx-1", nil, "full")
	require.NoError(t, err)
	assert.True(t, refund.Amount.Equal(usd("100.00")))

	tx, err := f.store.GetByID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, tx.Status)
	assert.True(t, tx.RemainingRefundable().IsZero())
}

func TestRefundPaymentCompletingRemainderFullyRefunds(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusSucceeded)

	half := usd("50.00")
	_, err := f.orch.RefundPayment(context.Background(), "tx-1", &half, "first half")
	require.NoError(t, err)

	_, err = f.orch.RefundPayment(context.Background(), "tx-1", &half, "second half")
	require.NoError(t, err)

	tx, err := f.store.GetByID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, tx.Status)
	require.Len(t, tx.Refunds, 2)
}

func TestRefundPaymentWrongStatus(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusProcessing)

	_, err := f.orch.RefundPayment(context.Background(), "tx-1", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestRefundPaymentGatewayFailureRecordedNotCounted(t *testing.T) {
	f := newFixture(t, map[string][]string{})
	seedTx(f, models.StatusSucceeded)
	f.primary.refundFn = func(string, decimal.Decimal, string) (*models.GatewayResult, error) {
		return nil, errors.E(errors.Unavailable, "gateway down", nil)
	}

	amt := usd("50.00")
	_, err := f.orch.RefundPayment(context.Background(), "tx-1", &amt, "")
	require.Error(t, err)

	tx, gerr := f.store.GetByID(context.Background(), "tx-1")
	require.NoError(t, gerr)
	require.Len(t, tx.Refunds, 1)
	assert.Equal(t, models.RefundFailed, tx.Refunds[0].Status)
	// failed refunds do not consume the refundable remainder
	assert.True(t, tx.RemainingRefundable().Equal(usd("100.00")))
	assert.Equal(t, models.StatusSucceeded, tx.Status)
}

// ---- status updates / queries ----

func TestUpdateTransactionStatusAppliesTable(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusProcessing)

	tx, err := f.orch.UpdateTransactionStatus(context.Background(), "tx-1", models.StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, tx.Status)
	assert.NotNil(t, tx.ProcessedAt)
	assert.NotNil(t, tx.SettledAt)
}

func TestUpdateTransactionStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusFailed)

	_, err := f.orch.UpdateTransactionStatus(context.Background(), "tx-1", models.StatusSucceeded)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))

	tx, gerr := f.store.GetByID(context.Background(), "tx-1")
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusFailed, tx.Status)
}

func TestGetTransactionNotFound(t *testing.T) {
	f := newFixture(t, defaultChains())
	_, err := f.orch.GetTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotFound, err))
}

func TestGetTransactionsFilters(t *testing.T) {
	f := newFixture(t, defaultChains())
	seedTx(f, models.StatusSucceeded)

	page, err := f.orch.GetTransactions(context.Background(), models.TxFilter{UserID: "user-1"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	page, err = f.orch.GetTransactions(context.Background(), models.TxFilter{UserID: "someone-else"}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

// gateways.Adapter conformance for the test double
var _ gateways.Adapter = (*fakeAdapter)(nil)
