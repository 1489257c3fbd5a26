package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shadowScope/internal/bridge"
	"shadowScope/internal/chain"
	"shadowScope/internal/config"
	"shadowScope/internal/model"
	"shadowScope/internal/observability"
	"shadowScope/internal/session"
	"shadowScope/internal/view"
)

func newBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Submit, track and withdraw privacy bridge deposits",
	}
	pf := cmd.PersistentFlags()
	pf.Duration("poll-interval", bridge.DefaultPollInterval, "deposit status poll interval")
	pf.String("state-file", "./data/bridge_state.json", "file remembering the last submitted deposit")
	pf.String("out", "", "record deposit updates to this JSONL file")
	pf.String("pg-dsn", "", "record deposit updates to Postgres")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address")

	deposit := &cobra.Command{
		Use:   "deposit",
		Short: "Submit a deposit and follow it until it can be withdrawn",
		Args:  cobra.NoArgs,
		RunE:  runBridgeDeposit,
	}
	deposit.Flags().String("depositor", "", "depositor address")
	deposit.Flags().String("amount", "", "amount in tokens, e.g. 1.5")
	deposit.Flags().String("privacy-level", string(bridge.Standard), "privacy level (fast, standard, maximum)")
	deposit.Flags().Bool("follow", true, "keep polling until the deposit is ready or final")

	track := &cobra.Command{
		Use:   "track [bridge-id]",
		Short: "Follow a deposit, by default the last one submitted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBridgeTrack,
	}

	withdraw := &cobra.Command{
		Use:   "withdraw <bridge-id>",
		Short: "Withdraw a deposit that is ready",
		Args:  cobra.ExactArgs(1),
		RunE:  runBridgeWithdraw,
	}
	withdraw.Flags().String("address", "", "withdrawal address")

	history := &cobra.Command{
		Use:   "history <address>",
		Short: "List the deposits of an address",
		Args:  cobra.ExactArgs(1),
		RunE:  runBridgeHistory,
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show bridge totals",
		Args:  cobra.NoArgs,
		RunE:  runBridgeStats,
	}
	stats.Flags().Duration("stats-interval", bridge.DefaultStatsInterval, "refresh interval with --watch")
	stats.Flags().Bool("watch", false, "keep refreshing until interrupted")

	cmd.AddCommand(deposit, track, withdraw, history, stats)
	return cmd
}

// bridgeEnv is the wiring shared by the bridge subcommands.
type bridgeEnv struct {
	cfg     config.BridgeConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	client  *chain.Client
	ctx     context.Context
	stop    context.CancelFunc
}

func setupBridge(cmd *cobra.Command) (*bridgeEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBridge(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Common)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	metrics := observability.NewMetrics()
	serveMetrics(ctx, metrics, cfg.MetricsAddr, logger)
	return &bridgeEnv{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		client:  newClient(cfg.Common, metrics, logger),
		ctx:     ctx,
		stop:    stop,
	}, nil
}

func (e *bridgeEnv) close() {
	e.stop()
	_ = e.logger.Sync()
}

func (e *bridgeEnv) tracker() *bridge.Tracker {
	return bridge.NewTracker(e.client, bridge.Config{PollInterval: e.cfg.PollInterval},
		bridge.WithLogger(e.logger),
		bridge.WithMetrics(e.metrics),
		bridge.WithStateStore(bridge.NewStateStore(e.cfg.StateFile)),
	)
}

// mount wraps the tracker in a session recording to the configured sinks.
func (e *bridgeEnv) mount(tr *bridge.Tracker) (func(), error) {
	sessionID := uuid.NewString()
	sink, closeSinks, err := openSinks(e.ctx, sinkOptions{
		Out:       e.cfg.Out,
		PGDSN:     e.cfg.PGDSN,
		SessionID: sessionID,
	}, e.logger)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithID(sessionID),
		session.WithLogger(e.logger),
		session.WithTracker(tr),
	}
	if sink != nil {
		opts = append(opts, session.WithSink(sink))
	}
	sess := session.New(opts...)
	if err := sess.Mount(e.ctx); err != nil {
		closeSinks()
		return nil, err
	}
	return func() {
		sess.Unmount()
		closeSinks()
	}, nil
}

func runBridgeDeposit(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	depositor, _ := flags.GetString("depositor")
	rawAmount, _ := flags.GetString("amount")
	rawLevel, _ := flags.GetString("privacy-level")
	follow, _ := flags.GetBool("follow")

	amount, err := bridge.ParseAmount(rawAmount)
	if err != nil {
		return err
	}
	level, err := bridge.ParsePrivacyLevel(rawLevel)
	if err != nil {
		return err
	}

	env, err := setupBridge(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	tr := env.tracker()
	unmount, err := env.mount(tr)
	if err != nil {
		return err
	}
	defer unmount()

	cfg, _ := level.Config()
	env.logger.Info("bridge deposit",
		zap.String("depositor", depositor),
		zap.String("amount", bridge.FormatAmount(amount)),
		zap.String("privacy_level", string(level)),
		zap.Uint32("hops", cfg.Hops),
	)
	out := cmd.OutOrStdout()
	if err := tr.SubmitDeposit(env.ctx, depositor, amount, level); err != nil {
		fmt.Fprintln(out, view.Deposit(tr.State(), tr.ProgressPercent()))
		return err
	}
	fmt.Fprintf(out, "bridge id %s, expected withdrawal %s\n", tr.BridgeID(), bridge.NetWithdrawal(amount))
	if !follow {
		fmt.Fprintln(out, view.Deposit(tr.State(), tr.ProgressPercent()))
		return nil
	}
	return followTracker(env.ctx, out, tr)
}

func runBridgeTrack(cmd *cobra.Command, args []string) error {
	env, err := setupBridge(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		st, ok, err := bridge.NewStateStore(env.cfg.StateFile).Load()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no bridge id given and none saved in %s", env.cfg.StateFile)
		}
		id = st.BridgeID
	}

	tr := env.tracker()
	unmount, err := env.mount(tr)
	if err != nil {
		return err
	}
	defer unmount()

	if err := tr.Resume(env.ctx, id); err != nil {
		return err
	}
	return followTracker(env.ctx, cmd.OutOrStdout(), tr)
}

func runBridgeWithdraw(cmd *cobra.Command, args []string) error {
	address, _ := cmd.Flags().GetString("address")

	env, err := setupBridge(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	tr := bridge.NewTracker(env.client, bridge.Config{PollInterval: env.cfg.PollInterval},
		bridge.WithLogger(env.logger), bridge.WithMetrics(env.metrics))
	defer tr.Stop()

	if err := tr.Resume(env.ctx, args[0]); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	msg, err := tr.Withdraw(env.ctx, address)
	if err != nil {
		if errors.Is(err, model.ErrNotReady) {
			fmt.Fprintln(out, view.Deposit(tr.State(), tr.ProgressPercent()))
		}
		return err
	}
	if msg == "" {
		msg = "withdrawal submitted"
	}
	fmt.Fprintln(out, msg)
	fmt.Fprintln(out, view.Deposit(tr.State(), tr.ProgressPercent()))
	return nil
}

func runBridgeHistory(cmd *cobra.Command, args []string) error {
	env, err := setupBridge(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	deposits, err := bridge.History(env.ctx, env.client, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.History(deposits))
	return nil
}

func runBridgeStats(cmd *cobra.Command, _ []string) error {
	watch, _ := cmd.Flags().GetBool("watch")

	env, err := setupBridge(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	w := bridge.NewStatsWatcher(env.client, env.cfg.StatsInterval, env.logger, env.metrics)
	out := cmd.OutOrStdout()
	if err := w.Refresh(env.ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, view.BridgeStats(w.Snapshot().Stats))
	if !watch {
		return nil
	}

	w.Start(env.ctx)
	defer w.Stop()
	ticker := time.NewTicker(env.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-env.ctx.Done():
			return nil
		case <-ticker.C:
			snap := w.Snapshot()
			if snap.Stale {
				env.logger.Warn("bridge stats stale", zap.String("error", snap.LastError))
			}
			fmt.Fprintln(out, view.BridgeStats(snap.Stats))
		}
	}
}

// followTracker renders every state change until the deposit can be
// withdrawn, reaches a final status, or ctx ends.
func followTracker(ctx context.Context, out io.Writer, tr *bridge.Tracker) error {
	updates := make(chan bridge.State, 16)
	sub := tr.Subscribe(updates)
	defer sub.Unsubscribe()

	done := func(st bridge.State) bool {
		return st.Status.Kind == model.StatusReadyToWithdraw || st.Status.Terminal()
	}

	st := tr.State()
	fmt.Fprintln(out, view.Deposit(st, tr.ProgressPercent()))
	if done(st) {
		return finalStatus(st)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			var progress float64
			if st.Deposit != nil {
				progress = st.Deposit.ProgressPercent()
			}
			fmt.Fprintln(out, view.Deposit(st, progress))
			if done(st) {
				return finalStatus(st)
			}
		}
	}
}

func finalStatus(st bridge.State) error {
	if st.Status.Kind == model.StatusFailed {
		return fmt.Errorf("bridge deposit %s failed: %s", st.BridgeID, st.Status.Reason)
	}
	return nil
}
