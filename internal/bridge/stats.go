package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shadowScope/internal/model"
	"shadowScope/internal/observability"
	"shadowScope/internal/task"
)

const (
	DefaultStatsInterval = 5 * time.Second

	statsPollType = "bridge_stats"
)

type StatsAPI interface {
	BridgeStats(ctx context.Context) (model.BridgeStats, error)
}

// StatsSnapshot is the last applied aggregate read.
type StatsSnapshot struct {
	Stats     model.BridgeStats
	Loaded    bool
	Stale     bool
	LastError string
}

// StatsWatcher polls the bridge aggregate statistics.
type StatsWatcher struct {
	api      StatsAPI
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	snap    StatsSnapshot
	issued  uint64
	applied uint64
	stopped bool
	poller  *task.Periodic
}

func NewStatsWatcher(api StatsAPI, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *StatsWatcher {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsWatcher{api: api, interval: interval, logger: logger, metrics: metrics}
}

func (w *StatsWatcher) Refresh(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return model.ErrTornDown
	}
	w.issued++
	seq := w.issued
	w.mu.Unlock()

	stats, err := w.api.BridgeStats(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.metrics.IncStaleResponse(statsPollType)
		return model.ErrTornDown
	}
	if seq <= w.applied {
		w.metrics.IncStaleResponse(statsPollType)
		return nil
	}
	if err != nil {
		w.snap.Stale = true
		w.snap.LastError = err.Error()
		return fmt.Errorf("refresh bridge stats: %w", err)
	}
	w.applied = seq
	w.snap = StatsSnapshot{Stats: stats, Loaded: true}
	return nil
}

func (w *StatsWatcher) Snapshot() StatsSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

func (w *StatsWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.poller != nil || w.stopped {
		w.mu.Unlock()
		return
	}
	poll := w.metrics.RecordPollDuration(statsPollType, w.Refresh)
	w.poller = task.NewPeriodic("bridge-stats", w.interval, task.Func(poll), task.Immediate(), task.WithLogger(w.logger))
	poller := w.poller
	w.mu.Unlock()

	poller.Start(ctx)
}

func (w *StatsWatcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	poller := w.poller
	w.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
}
