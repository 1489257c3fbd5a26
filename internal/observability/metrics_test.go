package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectors(t *testing.T) {
	m := NewMetrics()

	m.IncStaleResponse("metrics")
	m.IncStaleResponse("metrics")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.staleResponses.WithLabelValues("metrics")))

	m.IncFeedEvent("push")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.feedEvents.WithLabelValues("push")))

	m.IncBridgeTransition("ReadyToWithdraw")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bridgeTransitions.WithLabelValues("ReadyToWithdraw")))

	m.SetDisplayedSlot(4242)
	assert.Equal(t, float64(4242), testutil.ToFloat64(m.displayedSlot))

	m.ObserveRequest("GET", "/shadow/info", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "/shadow/info", 0, 10*time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(m.clientRequestDuration))
}

func TestRecordPollDuration(t *testing.T) {
	m := NewMetrics()
	failing := m.RecordPollDuration("bridge_status", func(context.Context) error { return errors.New("boom") })
	ok := m.RecordPollDuration("bridge_status", func(context.Context) error { return nil })

	require.Error(t, failing(context.Background()))
	require.NoError(t, ok(context.Background()))
	assert.Equal(t, 2, testutil.CollectAndCount(m.pollDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncStaleResponse("metrics")
		m.IncFeedEvent("push")
		m.IncBridgeTransition("Completed")
		m.SetDisplayedSlot(1)
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
		require.NoError(t, m.RecordPollDuration("x", func(context.Context) error { return nil })(context.Background()))
	})
}
