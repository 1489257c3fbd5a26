package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shadowScope/internal/storage"
	"shadowScope/internal/storage/amqp"
	"shadowScope/internal/storage/postgres"
)

type sinkOptions struct {
	Out          string
	PGDSN        string
	AMQPURL      string
	AMQPExchange string
	SessionID    string
}

// openSinks returns nil when no sink is configured. The close function is
// always safe to call.
func openSinks(ctx context.Context, opts sinkOptions, logger *zap.Logger) (storage.Storage, func(), error) {
	var (
		sinks   storage.Multi
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if opts.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(opts.Out, opts.SessionID))
		logger.Info("recording to file", zap.String("out", opts.Out))
	}
	if opts.PGDSN != "" {
		store, err := postgres.NewStore(ctx, opts.PGDSN, opts.SessionID)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, store)
		logger.Info("recording to postgres")
	}
	if opts.AMQPURL != "" {
		pub, err := amqp.Dial(opts.AMQPURL, opts.AMQPExchange, opts.SessionID)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close amqp publisher", zap.Error(err))
			}
		})
		sinks = append(sinks, pub)
		logger.Info("publishing to amqp", zap.String("exchange", opts.AMQPExchange))
	}

	if len(sinks) == 0 {
		return nil, closeAll, nil
	}
	return sinks, closeAll, nil
}
