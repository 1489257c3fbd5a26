package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shadowScope/internal/chain"
	"shadowScope/internal/config"
	"shadowScope/internal/feed"
	"shadowScope/internal/metricsync"
	"shadowScope/internal/observability"
	"shadowScope/internal/session"
	"shadowScope/internal/view"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mirror chain metrics and the live event log",
		RunE:  runWatch,
	}

	cmd.Flags().Duration("poll-interval", metricsync.DefaultPollInterval, "metrics poll interval")
	cmd.Flags().Duration("tick-interval", metricsync.DefaultTickInterval, "local slot tick interval")
	cmd.Flags().String("slot-policy", string(metricsync.SeedOnce), "slot counter policy (seed-once, reseed)")
	cmd.Flags().String("events-source", string(feed.ModeAuto), "event source (auto, push, synthesized)")
	cmd.Flags().Duration("synth-interval", feed.DefaultSynthInterval, "synthesized event interval")
	cmd.Flags().Uint64("synth-seed", 0, "seed for synthesized events, 0 picks one")
	cmd.Flags().Duration("render-interval", time.Second, "dashboard redraw interval")
	cmd.Flags().Int("events-shown", 10, "number of events drawn")
	cmd.Flags().Uint("health-attempts", 5, "health probes before mounting, 0 skips the probe")
	cmd.Flags().String("out", "", "record to this JSONL file")
	cmd.Flags().String("pg-dsn", "", "record to Postgres")
	cmd.Flags().String("amqp-url", "", "publish to RabbitMQ")
	cmd.Flags().String("amqp-exchange", "shadowscope", "RabbitMQ topic exchange")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Common)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	serveMetrics(ctx, metrics, cfg.MetricsAddr, logger)
	client := newClient(cfg.Common, metrics, logger)

	if cfg.HealthAttempts > 0 {
		health, err := client.WaitHealthy(ctx, chain.HealthPolicy{Attempts: cfg.HealthAttempts, BaseDelay: 250 * time.Millisecond})
		if err != nil {
			// the view still mounts and shows the node as unreachable
			logger.Warn("node health check failed", zap.Error(err))
		} else {
			logger.Info("node healthy", zap.String("version", health.Version), zap.String("network", health.Network))
		}
	}

	sessionID := uuid.NewString()
	sink, closeSinks, err := openSinks(ctx, sinkOptions{
		Out:          cfg.Out,
		PGDSN:        cfg.PGDSN,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		SessionID:    sessionID,
	}, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	syncer := metricsync.New(client, metricsync.Config{
		PollInterval: cfg.PollInterval,
		TickInterval: cfg.TickInterval,
		SlotPolicy:   cfg.SlotPolicy,
	}, metricsync.WithLogger(logger), metricsync.WithMetrics(metrics))

	events := feed.New(feed.WithLogger(logger), feed.WithMetrics(metrics))
	stream := feed.NewStreamSource(cfg.Node.Endpoints, feed.WithStreamLogger(logger), feed.WithHandshakeTimeout(cfg.Timeout))
	defer stream.Close()
	var startSlot uint64
	if info, err := client.ChainInfo(ctx); err == nil {
		startSlot = info.Stats.Height
	}
	src, err := feed.SelectSource(ctx, cfg.EventsSource, stream,
		feed.NewSynthSource(cfg.SynthInterval, cfg.SynthSeed, startSlot), logger)
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithID(sessionID),
		session.WithLogger(logger),
		session.WithSynchronizer(syncer),
		session.WithFeed(events, src),
	}
	if sink != nil {
		opts = append(opts, session.WithSink(sink))
	}
	sess := session.New(opts...)

	logger.Info("watch start",
		zap.String("session_id", sessionID),
		zap.String("api", cfg.Node.Endpoints.HTTPBase),
		zap.String("stream", cfg.Node.Endpoints.StreamBase),
		zap.String("events_source", string(src.Kind())),
		zap.Duration("poll_interval", cfg.PollInterval),
	)
	if err := sess.Mount(ctx); err != nil {
		return err
	}
	defer sess.Unmount()

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(cfg.RenderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Fprintln(out, view.Dashboard(syncer.Snapshot(), events.Events(), events.Source(), cfg.EventsShown))
		}
	}
}
