// Package feed keeps the bounded, newest-first log of network events.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"shadowScope/internal/model"
	"shadowScope/internal/observability"
)

// Capacity is the maximum number of events the feed keeps.
const Capacity = 100

// SourceKind tells callers where the events in a feed come from.
type SourceKind string

const (
	Push        SourceKind = "push"
	Synthesized SourceKind = "synthesized"
)

// Source produces events until ctx is done. Run returns nil when it ends
// because of ctx.
type Source interface {
	Kind() SourceKind
	Run(ctx context.Context, emit func(model.NetworkEvent)) error
}

var errAlreadyStarted = errors.New("event feed already started")

type Feed struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu      sync.Mutex
	events  []model.NetworkEvent
	kind    SourceKind
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error

	subs event.Feed
}

type Option func(*Feed)

func WithLogger(logger *zap.Logger) Option {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(f *Feed) { f.metrics = m }
}

func New(opts ...Option) *Feed {
	f := &Feed{
		logger: zap.NewNop(),
		now:    time.Now,
		events: make([]model.NetworkEvent, 0, Capacity),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins populating the feed from src. A feed runs at most one source
// over its lifetime.
func (f *Feed) Start(ctx context.Context, src Source) error {
	if src == nil {
		return fmt.Errorf("start event feed: nil source")
	}
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return model.ErrTornDown
	}
	if f.started {
		f.mu.Unlock()
		return errAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.started = true
	f.kind = src.Kind()
	f.cancel = cancel
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	f.logger.Info("event feed started", zap.String("source", string(src.Kind())))
	go func() {
		defer close(done)
		err := src.Run(runCtx, func(ev model.NetworkEvent) { f.insert(ev) })
		if err != nil {
			f.logger.Warn("event source ended", zap.String("source", string(src.Kind())), zap.Error(err))
		}
		f.mu.Lock()
		f.runErr = err
		f.mu.Unlock()
	}()
	return nil
}

// Stop ends the subscription or timer and waits for the source to return. No
// event is inserted once Stop has been called.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	f.logger.Info("event feed stopped")
}

// Append inserts ev at the front. It reports false when the feed is stopped.
func (f *Feed) Append(ev model.NetworkEvent) bool {
	return f.insert(ev)
}

func (f *Feed) insert(ev model.NetworkEvent) bool {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return false
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = f.now()
	}
	if len(f.events) < Capacity {
		f.events = append(f.events, model.NetworkEvent{})
	}
	copy(f.events[1:], f.events[:len(f.events)-1])
	f.events[0] = ev
	kind := f.kind
	f.mu.Unlock()

	f.metrics.IncFeedEvent(string(kind))
	f.subs.Send(ev)
	return true
}

// Events returns a copy of the log, newest first.
func (f *Feed) Events() []model.NetworkEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.NetworkEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Source reports which kind of source populates the feed; empty before Start.
func (f *Feed) Source() SourceKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kind
}

// Done is closed when the source has returned. It is nil before Start.
func (f *Feed) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Err is the error the source ended with, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runErr
}

// Subscribe delivers every inserted event to ch. Delivery blocks insertion
// until ch accepts the value.
func (f *Feed) Subscribe(ch chan<- model.NetworkEvent) event.Subscription {
	return f.subs.Subscribe(ch)
}
