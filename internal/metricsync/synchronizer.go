// Package metricsync mirrors the node's chain metrics and keeps a locally
// ticked slot counter between polls.
package metricsync

import (
	"context"
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
	DefaultTickInterval = 2 * time.Second

	staleType = "metrics"
)

// Fetcher reads the raw /shadow/info document.
type Fetcher interface {
	Info(ctx context.Context) (map[string]any, error)
}

// SlotPolicy decides how the local slot counter follows fetched slots.
type SlotPolicy string

const (
	// SeedOnce seeds the counter from the first successful fetch only; after
	// that it advances purely on ticks.
	SeedOnce SlotPolicy = "seed-once"
	// Reseed resets the counter to the fetched slot on every applied fetch.
	Reseed SlotPolicy = "reseed"
)

func ParseSlotPolicy(value string) (SlotPolicy, error) {
	switch SlotPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case SeedOnce, "":
		return SeedOnce, nil
	case Reseed:
		return Reseed, nil
	default:
		return "", fmt.Errorf("unknown slot policy %q (expected %s or %s)", value, SeedOnce, Reseed)
	}
}

type Config struct {
	PollInterval time.Duration
	TickInterval time.Duration
	SlotPolicy   SlotPolicy
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = c.PollInterval
	}
	if c.SlotPolicy == "" {
		c.SlotPolicy = SeedOnce
	}
	return c
}

// Synchronizer owns one ChainMetrics record. The visible slot is the maximum
// of every fetched slot and the local counter ever observed, so it never
// decreases for the lifetime of the instance.
type Synchronizer struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics

	mu          sync.Mutex
	record      model.ChainMetrics
	fetchedSlot uint64
	counter     uint64
	visible     uint64
	seeded      bool
	loaded      bool
	stale       bool
	lastErr     string
	updatedAt   time.Time
	issued      uint64
	applied     uint64
	started     bool
	stopped     bool
	tasks       *task.Group

	feed event.Feed
}

type Option func(*Synchronizer)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

func New(fetcher Fetcher, cfg Config, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh performs one read of the metrics endpoint. Each call is stamped
// with a sequence number and its result is applied only if no later-issued
// call has been applied already. A failed read keeps the previous record and
// is reported through the returned error and the snapshot's stale flag.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return model.ErrTornDown
	}
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	info, err := s.fetcher.Info(ctx)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.metrics.IncStaleResponse(staleType)
		s.logger.Debug("metrics response discarded after stop", zap.Uint64("seq", seq))
		return model.ErrTornDown
	}
	if seq <= s.applied {
		applied := s.applied
		s.mu.Unlock()
		s.metrics.IncStaleResponse(staleType)
		s.logger.Debug("stale metrics response discarded", zap.Uint64("seq", seq), zap.Uint64("applied", applied))
		return nil
	}
	if err != nil {
		s.stale = true
		s.lastErr = err.Error()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(snap)
		return fmt.Errorf("refresh metrics: %w", err)
	}

	s.applied = seq
	s.record = model.MapChainMetrics(info)
	s.fetchedSlot = s.record.Slot
	switch s.cfg.SlotPolicy {
	case Reseed:
		s.counter = s.fetchedSlot
	default:
		if !s.seeded && s.fetchedSlot > s.counter {
			s.counter = s.fetchedSlot
		}
	}
	s.seeded = true
	s.loaded = true
	s.stale = false
	s.lastErr = ""
	s.updatedAt = time.Now()
	s.advanceVisibleLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// Tick advances the local slot counter by one.
func (s *Synchronizer) Tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.counter++
	s.advanceVisibleLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

func (s *Synchronizer) Snapshot() model.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe delivers every new snapshot to ch. Delivery blocks the
// synchronizer until ch accepts the value, so ch should be buffered and drained.
func (s *Synchronizer) Subscribe(ch chan<- model.MetricsSnapshot) event.Subscription {
	return s.feed.Subscribe(ch)
}

// Start runs Refresh immediately and then on the poll interval, and Tick on
// the tick interval, until Stop or ctx is done.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	poll := s.metrics.RecordPollDuration(staleType, s.Refresh)
	s.tasks = task.NewGroup(
		task.NewPeriodic("metrics-poll", s.cfg.PollInterval, task.Func(poll), task.Immediate(), task.WithLogger(s.logger)),
		task.NewPeriodic("slot-tick", s.cfg.TickInterval, func(context.Context) error {
			s.Tick()
			return nil
		}, task.WithLogger(s.logger)),
	)
	tasks := s.tasks
	s.mu.Unlock()

	s.logger.Info("metrics synchronizer started",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Duration("tick_interval", s.cfg.TickInterval),
		zap.String("slot_policy", string(s.cfg.SlotPolicy)),
	)
	tasks.Start(ctx)
}

// Stop cancels both timers and discards any result still in flight. It is
// safe to call more than once.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	tasks := s.tasks
	s.mu.Unlock()

	if tasks != nil {
		tasks.Stop()
	}
	s.logger.Info("metrics synchronizer stopped")
}

func (s *Synchronizer) advanceVisibleLocked() {
	if s.fetchedSlot > s.visible {
		s.visible = s.fetchedSlot
	}
	if s.counter > s.visible {
		s.visible = s.counter
	}
}

func (s *Synchronizer) snapshotLocked() model.MetricsSnapshot {
	metrics := s.record
	metrics.Slot = s.visible
	return model.MetricsSnapshot{
		Metrics:     metrics,
		FetchedSlot: s.fetchedSlot,
		Loaded:      s.loaded,
		Stale:       s.stale,
		LastError:   s.lastErr,
		UpdatedAt:   s.updatedAt,
	}
}

func (s *Synchronizer) publish(snap model.MetricsSnapshot) {
	s.metrics.SetDisplayedSlot(snap.Metrics.Slot)
	s.feed.Send(snap)
}
