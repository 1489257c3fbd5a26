package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStop may be returned by a task function to end its own schedule.
var ErrStop = errors.New("stop periodic task")

// Func is one run of a periodic task.
type Func func(ctx context.Context) error

// Periodic runs a function on a fixed interval until stopped. Runs never
// overlap: ticks that fire while a run is in progress are dropped.
type Periodic struct {
	name      string
	interval  time.Duration
	fn        Func
	immediate bool
	logger    *zap.Logger

	mu       sync.Mutex
	started  bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Periodic.
type Option func(*Periodic)

// Immediate makes the first run happen on Start instead of after one interval.
func Immediate() Option {
	return func(p *Periodic) { p.immediate = true }
}

// WithLogger sets the logger used for run failures.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Periodic) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPeriodic(name string, interval time.Duration, fn Func, opts ...Option) *Periodic {
	p := &Periodic{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   zap.NewNop(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the schedule in its own goroutine. A second call is a no-op.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.run(ctx)
}

// Stop ends the schedule and waits for an in-progress run to return. It is
// safe to call more than once and before Start. It must not be called from
// inside the task function; return ErrStop there instead.
func (p *Periodic) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	started := p.started
	p.started = true
	p.mu.Unlock()

	if started {
		<-p.done
	} else {
		close(p.done)
	}
}

// Done is closed once the schedule has ended for any reason.
func (p *Periodic) Done() <-chan struct{} {
	return p.done
}

func (p *Periodic) run(ctx context.Context) {
	defer close(p.done)

	interval := p.interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Debug("periodic task started", zap.String("task", p.name), zap.Duration("interval", interval))

	if p.immediate {
		if !p.once(ctx) {
			return
		}
	}

	for {
		select {
		case <-ticker.C:
			if !p.once(ctx) {
				return
			}
		case <-ctx.Done():
			p.logger.Debug("periodic task stopped by context", zap.String("task", p.name))
			return
		case <-p.quit:
			p.logger.Debug("periodic task stopped", zap.String("task", p.name))
			return
		}
	}
}

// once runs the function unless the task was stopped meanwhile and reports
// whether the schedule should continue.
func (p *Periodic) once(ctx context.Context) bool {
	select {
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	err := p.fn(ctx)
	if errors.Is(err, ErrStop) {
		p.logger.Debug("periodic task finished", zap.String("task", p.name))
		return false
	}
	if err != nil {
		p.logger.Warn("periodic task failed", zap.String("task", p.name), zap.Error(err))
	}
	return true
}

// Group stops a set of periodic tasks as a unit.
type Group struct {
	tasks []*Periodic
}

func NewGroup(tasks ...*Periodic) *Group {
	return &Group{tasks: tasks}
}

func (g *Group) Start(ctx context.Context) {
	for _, t := range g.tasks {
		t.Start(ctx)
	}
}

func (g *Group) Stop() {
	for _, t := range g.tasks {
		t.Stop()
	}
}
