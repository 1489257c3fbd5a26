package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicImmediateAndRepeat(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("count", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, Immediate())

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop returns")
}

func TestPeriodicFirstRunWaitsWithoutImmediate(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("slow", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	p.Stop()
	assert.Zero(t, runs.Load())
}

func TestPeriodicErrStopEndsSchedule(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("finite", time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 2 {
			return ErrStop
		}
		return errors.New("transient")
	}, Immediate())

	p.Start(context.Background())
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop itself")
	}
	assert.Equal(t, int32(2), runs.Load())
	p.Stop()
}

func TestPeriodicStopIsIdempotent(t *testing.T) {
	p := NewPeriodic("idle", time.Millisecond, func(context.Context) error { return nil })
	p.Stop()
	p.Stop()
	p.Start(context.Background())

	select {
	case <-p.Done():
	default:
		t.Fatal("stopped task must stay done")
	}
}

func TestPeriodicContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPeriodic("ctx", time.Millisecond, func(context.Context) error { return nil })
	p.Start(ctx)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("task ignored context cancellation")
	}
}

func TestGroupStopsAll(t *testing.T) {
	var a, b atomic.Int32
	g := NewGroup(
		NewPeriodic("a", time.Millisecond, func(context.Context) error { a.Add(1); return nil }),
		NewPeriodic("b", time.Millisecond, func(context.Context) error { b.Add(1); return nil }),
	)
	g.Start(context.Background())
	require.Eventually(t, func() bool { return a.Load() > 0 && b.Load() > 0 }, time.Second, time.Millisecond)
	g.Stop()

	ca, cb := a.Load(), b.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, ca, a.Load())
	assert.Equal(t, cb, b.Load())
}
