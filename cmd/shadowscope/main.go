package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"shadowScope/internal/chain"
	"shadowScope/internal/config"
	"shadowScope/internal/observability"
)

func main() {
	// a missing .env is normal; a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:          "shadowscope",
		Short:        "ShadowChain node monitor and privacy bridge client",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("api-url", "", "node HTTP base URL (overrides host/port/protocol)")
	pf.String("api-host", "", "node host")
	pf.String("api-port", "", "node port (0 omits the port)")
	pf.String("api-protocol", "", "node protocol (http or https)")
	pf.String("ws-url", "", "push channel base URL")
	pf.String("ws-protocol", "", "push channel protocol (ws or wss)")
	pf.String("ws-port", "", "push channel port")
	pf.Duration("timeout", 10*time.Second, "per-request timeout")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write JSON logs to this file, rotated")
	pf.Int("log-max-size", 100, "log file size in megabytes before rotation")

	root.AddCommand(newWatchCmd(), newBridgeCmd(), newNodeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(common config.Common) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(common.LogLevel)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if common.LogFile == "" {
		return cfg.Build()
	}

	rotated := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   common.LogFile,
			MaxSize:    common.LogMaxSize,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}),
		cfg.Level,
	)
	return cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, rotated)
	}))
}

func newClient(common config.Common, metrics *observability.Metrics, logger *zap.Logger) *chain.Client {
	opts := []chain.Option{
		chain.WithHTTPClient(&http.Client{Timeout: common.Timeout}),
		chain.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, chain.WithObserver(metrics))
	}
	return chain.NewClient(common.Node.Endpoints, opts...)
}

func serveMetrics(ctx context.Context, metrics *observability.Metrics, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, logger); err != nil {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
}
