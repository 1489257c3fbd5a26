// Package bridge tracks one privacy bridge deposit from submission to
// withdrawal.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"shadowScope/internal/model"
	"shadowScope/internal/observability"
	"shadowScope/internal/task"
)

const (
	DefaultPollInterval = 2 * time.Second

	statusPollType = "bridge_status"
)

// API is the part of the node client the tracker uses.
type API interface {
	BridgeDeposit(ctx context.Context, req model.DepositRequest) (string, error)
	BridgeStatus(ctx context.Context, bridgeID string) (model.BridgeDeposit, error)
	BridgeWithdraw(ctx context.Context, bridgeID, address string) (string, error)
}

type Config struct {
	PollInterval time.Duration
}

// State is the externally visible view of a tracker.
type State struct {
	BridgeID  string
	Status    model.BridgeStatus
	Deposit   *model.BridgeDeposit
	Stale     bool
	LastError string
}

// Tracker owns the lifecycle of a single deposit. The status is replaced by
// whatever the node reports; nothing is inferred locally except the
// Completed transition after a successful withdrawal.
type Tracker struct {
	api     API
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics
	store   *StateStore

	mu          sync.Mutex
	bridgeID    string
	status      model.BridgeStatus
	deposit     *model.BridgeDeposit
	submitted   bool
	withdrawing bool
	stale       bool
	lastErr     string
	issued      uint64
	applied     uint64
	stopped     bool
	poller      *task.Periodic

	feed event.Feed
}

type Option func(*Tracker)

func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithStateStore remembers every accepted bridge id so a later run can resume it.
func WithStateStore(store *StateStore) Option {
	return func(t *Tracker) { t.store = store }
}

func NewTracker(api API, cfg Config, opts ...Option) *Tracker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	t := &Tracker{
		api:    api,
		cfg:    cfg,
		logger: zap.NewNop(),
		status: model.Depositing(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SubmitDeposit creates the deposit. On success the first status read
// happens before it returns and polling continues in the background until a
// terminal status or Stop. A rejection by the node moves the tracker to
// Failed with the node's reason.
func (t *Tracker) SubmitDeposit(ctx context.Context, depositor string, amount uint64, level PrivacyLevel) error {
	depositor = strings.TrimSpace(depositor)
	if amount == 0 {
		return &model.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if depositor == "" {
		return &model.ValidationError{Field: "depositor", Reason: "must not be empty"}
	}
	if _, ok := level.Config(); !ok {
		return &model.ValidationError{Field: "privacy_level", Reason: fmt.Sprintf("unknown level %q", level)}
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return model.ErrTornDown
	}
	if t.submitted {
		t.mu.Unlock()
		return &model.ValidationError{Field: "deposit", Reason: "already submitted"}
	}
	t.submitted = true
	t.mu.Unlock()

	id, err := t.api.BridgeDeposit(ctx, model.DepositRequest{
		Depositor:    depositor,
		Amount:       amount,
		PrivacyLevel: string(level),
	})

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return model.ErrTornDown
	}
	if err != nil {
		var appErr *model.ApplicationError
		if errors.As(err, &appErr) {
			t.status = model.Failed(appErr.Reason)
			t.lastErr = appErr.Reason
			state := t.stateLocked()
			t.mu.Unlock()
			t.logger.Info("bridge deposit rejected", zap.String("reason", appErr.Reason))
			t.metrics.IncBridgeTransition(model.StatusFailed.String())
			t.feed.Send(state)
			return err
		}
		// the write never reached a verdict; allow an explicit resubmission
		t.submitted = false
		t.stale = true
		t.lastErr = err.Error()
		t.mu.Unlock()
		return fmt.Errorf("submit deposit: %w", err)
	}
	t.bridgeID = id
	t.mu.Unlock()

	t.logger.Info("bridge deposit accepted",
		zap.String("bridge_id", id),
		zap.Uint64("amount", amount),
		zap.String("privacy_level", string(level)),
	)
	if t.store != nil {
		if err := t.store.Save(TrackerState{BridgeID: id, Depositor: depositor, PrivacyLevel: string(level)}); err != nil {
			t.logger.Warn("save tracker state", zap.Error(err))
		}
	}

	if err := t.Poll(ctx); err != nil && !errors.Is(err, model.ErrTornDown) {
		t.logger.Warn("first bridge status read failed", zap.String("bridge_id", id), zap.Error(err))
	}
	t.startPolling(ctx)
	return nil
}

// Resume attaches the tracker to an existing deposit.
func (t *Tracker) Resume(ctx context.Context, bridgeID string) error {
	bridgeID = strings.TrimSpace(bridgeID)
	if bridgeID == "" {
		return &model.ValidationError{Field: "bridge_id", Reason: "must not be empty"}
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return model.ErrTornDown
	}
	if t.submitted {
		t.mu.Unlock()
		return &model.ValidationError{Field: "deposit", Reason: "tracker already owns a deposit"}
	}
	t.submitted = true
	t.bridgeID = bridgeID
	t.mu.Unlock()

	if err := t.Poll(ctx); err != nil {
		// a transport failure is retried by the schedule; anything else is final
		var te *model.TransportError
		if !errors.As(err, &te) {
			return err
		}
		t.logger.Warn("first bridge status read failed", zap.String("bridge_id", bridgeID), zap.Error(err))
	}
	t.startPolling(ctx)
	return nil
}

// Poll reads the deposit's status once and replaces the tracked record with
// the node's. Results older than an already applied read, results arriving
// after Stop and results arriving after a terminal status are discarded.
func (t *Tracker) Poll(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return model.ErrTornDown
	}
	if t.bridgeID == "" {
		t.mu.Unlock()
		return &model.ValidationError{Field: "bridge_id", Reason: "no deposit to poll"}
	}
	if t.status.Terminal() {
		t.mu.Unlock()
		return nil
	}
	t.issued++
	seq := t.issued
	id := t.bridgeID
	t.mu.Unlock()

	dep, err := t.api.BridgeStatus(ctx, id)

	t.mu.Lock()
	switch {
	case t.stopped:
		t.mu.Unlock()
		t.discard(seq, "stopped")
		return model.ErrTornDown
	case seq <= t.applied:
		t.mu.Unlock()
		t.discard(seq, "superseded")
		return nil
	case t.status.Terminal():
		t.mu.Unlock()
		t.discard(seq, "terminal")
		return nil
	}
	if err != nil {
		t.stale = true
		t.lastErr = err.Error()
		t.mu.Unlock()
		return fmt.Errorf("poll bridge %s: %w", id, err)
	}

	t.applied = seq
	prev := t.status
	t.deposit = &dep
	t.status = dep.Status
	t.stale = false
	t.lastErr = ""
	state := t.stateLocked()
	t.mu.Unlock()

	if prev != dep.Status {
		t.logger.Info("bridge status changed",
			zap.String("bridge_id", id),
			zap.String("from", prev.Label()),
			zap.String("to", dep.Status.Label()),
		)
		t.metrics.IncBridgeTransition(dep.Status.Kind.String())
	}
	t.feed.Send(state)
	return nil
}

// Withdraw requests the withdrawal. It is refused without a network call
// unless the last observed status is ReadyToWithdraw. A rejected withdrawal
// leaves the status unchanged and is not retried.
func (t *Tracker) Withdraw(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", &model.ValidationError{Field: "withdrawal_address", Reason: "must not be empty"}
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return "", model.ErrTornDown
	}
	if t.status.Kind != model.StatusReadyToWithdraw {
		label := t.status.Label()
		t.mu.Unlock()
		return "", &model.ValidationError{Field: "status", Reason: "deposit is " + label, Err: model.ErrNotReady}
	}
	if t.withdrawing {
		t.mu.Unlock()
		return "", &model.ValidationError{Field: "status", Reason: "withdrawal already in progress"}
	}
	t.withdrawing = true
	id := t.bridgeID
	t.mu.Unlock()

	msg, err := t.api.BridgeWithdraw(ctx, id, address)

	t.mu.Lock()
	t.withdrawing = false
	if t.stopped {
		t.mu.Unlock()
		return "", model.ErrTornDown
	}
	if err != nil {
		t.lastErr = err.Error()
		t.mu.Unlock()
		return "", err
	}

	t.status = model.Completed()
	if t.deposit != nil {
		dep := *t.deposit
		dep.Status = t.status
		dep.WithdrawalAddress = &address
		t.deposit = &dep
	}
	t.lastErr = ""
	state := t.stateLocked()
	poller := t.poller
	t.mu.Unlock()

	t.logger.Info("bridge withdrawal accepted", zap.String("bridge_id", id))
	t.metrics.IncBridgeTransition(model.StatusCompleted.String())
	if poller != nil {
		poller.Stop()
	}
	t.feed.Send(state)
	return msg, nil
}

// Stop ends polling. Results of reads still in flight are discarded.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	poller := t.poller
	t.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
}

func (t *Tracker) BridgeID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bridgeID
}

func (t *Tracker) Status() model.BridgeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Deposit returns the last record reported by the node, if any.
func (t *Tracker) Deposit() (model.BridgeDeposit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deposit == nil {
		return model.BridgeDeposit{}, false
	}
	return *t.deposit, true
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Tracker) Label() string {
	return t.Status().Label()
}

// ProgressPercent is the mixing progress of the last reported record.
func (t *Tracker) ProgressPercent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deposit == nil {
		return 0
	}
	return t.deposit.ProgressPercent()
}

// Polling reports whether the background status schedule is running.
func (t *Tracker) Polling() bool {
	t.mu.Lock()
	poller := t.poller
	t.mu.Unlock()
	if poller == nil {
		return false
	}
	select {
	case <-poller.Done():
		return false
	default:
		return true
	}
}

// Subscribe delivers every state change to ch.
func (t *Tracker) Subscribe(ch chan<- State) event.Subscription {
	return t.feed.Subscribe(ch)
}

func (t *Tracker) startPolling(ctx context.Context) {
	t.mu.Lock()
	if t.poller != nil || t.stopped || t.status.Terminal() {
		t.mu.Unlock()
		return
	}
	poll := t.metrics.RecordPollDuration(statusPollType, func(ctx context.Context) error {
		err := t.Poll(ctx)
		if errors.Is(err, model.ErrTornDown) || t.Status().Terminal() {
			return task.ErrStop
		}
		return err
	})
	t.poller = task.NewPeriodic("bridge-status", t.cfg.PollInterval, task.Func(poll), task.WithLogger(t.logger))
	poller := t.poller
	t.mu.Unlock()

	poller.Start(ctx)
}

func (t *Tracker) discard(seq uint64, reason string) {
	t.metrics.IncStaleResponse(statusPollType)
	t.logger.Debug("bridge status response discarded", zap.Uint64("seq", seq), zap.String("reason", reason))
}

func (t *Tracker) stateLocked() State {
	var dep *model.BridgeDeposit
	if t.deposit != nil {
		cp := *t.deposit
		dep = &cp
	}
	return State{
		BridgeID:  t.bridgeID,
		Status:    t.status,
		Deposit:   dep,
		Stale:     t.stale,
		LastError: t.lastErr,
	}
}
