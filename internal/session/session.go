// Package session mounts the reconciling components of one view and tears
// them down as a unit.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"shadowScope/internal/bridge"
	"shadowScope/internal/feed"
	"shadowScope/internal/metricsync"
	"shadowScope/internal/model"
	"shadowScope/internal/storage"
)

const recordBuffer = 32

// Session is one mounted view. Producers (synchronizer, feed, tracker) are
// stopped before the recorders that drain them.
type Session struct {
	id      string
	logger  *zap.Logger
	metrics *metricsync.Synchronizer
	feed    *feed.Feed
	source  feed.Source
	tracker *bridge.Tracker
	sink    storage.Storage

	mu        sync.Mutex
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	subs      []event.Subscription
	recorders conc.WaitGroup
}

type Option func(*Session)

func WithSynchronizer(s *metricsync.Synchronizer) Option {
	return func(sess *Session) { sess.metrics = s }
}

func WithFeed(f *feed.Feed, src feed.Source) Option {
	return func(sess *Session) {
		sess.feed = f
		sess.source = src
	}
}

func WithTracker(tr *bridge.Tracker) Option {
	return func(sess *Session) { sess.tracker = tr }
}

// WithSink records every published value to sink.
func WithSink(sink storage.Storage) Option {
	return func(sess *Session) { sess.sink = sink }
}

func WithLogger(logger *zap.Logger) Option {
	return func(sess *Session) {
		if logger != nil {
			sess.logger = logger
		}
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(sess *Session) {
		if id != "" {
			sess.id = id
		}
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	return s
}

func (s *Session) ID() string { return s.id }

// Mount starts the recorders and then every configured component.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return model.ErrTornDown
	}
	if s.mounted {
		s.mu.Unlock()
		return fmt.Errorf("session %s already mounted", s.id)
	}
	s.mounted = true
	recCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.sink != nil {
		s.startRecordersLocked(recCtx)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Start(ctx)
	}
	if s.feed != nil && s.source != nil {
		if err := s.feed.Start(ctx, s.source); err != nil {
			s.Unmount()
			return fmt.Errorf("mount session: %w", err)
		}
	}
	s.logger.Info("session mounted")
	return nil
}

// Unmount stops every component exactly once. Safe to call more than once.
func (s *Session) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	cancel := s.cancel
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Stop()
	}
	if s.feed != nil {
		s.feed.Stop()
	}
	if s.tracker != nil {
		s.tracker.Stop()
	}

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	s.recorders.Wait()
	s.logger.Info("session unmounted")
}

func (s *Session) startRecordersLocked(ctx context.Context) {
	if s.metrics != nil {
		ch := make(chan model.MetricsSnapshot, recordBuffer)
		sub := s.metrics.Subscribe(ch)
		s.subs = append(s.subs, sub)
		s.recorders.Go(func() {
			record(ctx, s, ch, sub, func(snap model.MetricsSnapshot) error {
				return s.sink.PutMetricsSnapshot(ctx, snap)
			})
		})
	}
	if s.feed != nil {
		ch := make(chan model.NetworkEvent, recordBuffer)
		sub := s.feed.Subscribe(ch)
		s.subs = append(s.subs, sub)
		s.recorders.Go(func() {
			record(ctx, s, ch, sub, func(ev model.NetworkEvent) error {
				return s.sink.PutEvents(ctx, []model.NetworkEvent{ev})
			})
		})
	}
	if s.tracker != nil {
		ch := make(chan bridge.State, recordBuffer)
		sub := s.tracker.Subscribe(ch)
		s.subs = append(s.subs, sub)
		s.recorders.Go(func() {
			record(ctx, s, ch, sub, func(st bridge.State) error {
				if st.Deposit == nil {
					return nil
				}
				return s.sink.PutBridgeDeposit(ctx, *st.Deposit)
			})
		})
	}
}

// record drains ch into put until the subscription ends or ctx is done. A
// failing sink is logged and never stalls the producer.
func record[T any](ctx context.Context, s *Session, ch <-chan T, sub event.Subscription, put func(T) error) {
	for {
		select {
		case v := <-ch:
			if err := put(v); err != nil {
				s.logger.Warn("record value", zap.Error(err))
			}
		case <-sub.Err():
			return
		case <-ctx.Done():
			return
		}
	}
}
