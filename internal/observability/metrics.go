package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (o Outcome) String() string {
	return string(o)
}

const (
	metricsRequestTimeout     = 5 * time.Second
	metricsRequestIdleTimeout = 10 * time.Second
)

// Metrics holds the client-side collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	clientRequestDuration *prometheus.HistogramVec
	pollDuration          *prometheus.HistogramVec
	staleResponses        *prometheus.CounterVec
	feedEvents            *prometheus.CounterVec
	bridgeTransitions     *prometheus.CounterVec
	displayedSlot         prometheus.Gauge
}

func NewMetrics() *Metrics {
	buckets := []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clientRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shadowscope_client_request_duration_seconds",
				Help:    "Histogram of outgoing node request durations in seconds.",
				Buckets: buckets,
			},
			[]string{"method", "path", "status"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shadowscope_poll_duration_seconds",
				Help:    "Histogram of periodic poll durations in seconds.",
				Buckets: buckets,
			},
			[]string{"type", "status"},
		),
		staleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowscope_stale_responses_total",
				Help: "Responses discarded because a newer request was already applied or the owner was torn down.",
			},
			[]string{"type"},
		),
		feedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowscope_feed_events_total",
				Help: "Events inserted into the event feed by source.",
			},
			[]string{"source"},
		),
		bridgeTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowscope_bridge_status_transitions_total",
				Help: "Observed bridge deposit status changes by new status.",
			},
			[]string{"status"},
		),
		displayedSlot: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shadowscope_displayed_slot",
				Help: "Slot currently displayed by the metrics synchronizer.",
			},
		),
	}

	m.registry.MustRegister(
		m.clientRequestDuration,
		m.pollDuration,
		m.staleResponses,
		m.feedEvents,
		m.bridgeTransitions,
		m.displayedSlot,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, path string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	status := "transport_error"
	if statusCode > 0 {
		status = http.StatusText(statusCode)
	}
	m.clientRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// RecordPollDuration wraps a poll function so each run lands in the poll histogram.
func (m *Metrics) RecordPollDuration(typ string, f func(ctx context.Context) error) func(ctx context.Context) error {
	if m == nil {
		return f
	}
	return func(ctx context.Context) error {
		start := time.Now()
		err := f(ctx)

		status := Success
		if err != nil {
			status = Error
		}
		m.pollDuration.WithLabelValues(typ, status.String()).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) IncStaleResponse(typ string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(typ).Inc()
}

func (m *Metrics) IncFeedEvent(source string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(source).Inc()
}

func (m *Metrics) IncBridgeTransition(status string) {
	if m == nil {
		return
	}
	m.bridgeTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) SetDisplayedSlot(slot uint64) {
	if m == nil {
		return
	}
	m.displayedSlot.Set(float64(slot))
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Get("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  metricsRequestTimeout,
		WriteTimeout: metricsRequestTimeout,
		IdleTimeout:  metricsRequestIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server start", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
