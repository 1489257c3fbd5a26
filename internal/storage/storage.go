package storage

import (
	"context"
	"errors"

	"shadowScope/internal/model"
)

// Storage is a sink for reconciled values. Sinks only record; nothing is
// read back into the synchronizers.
type Storage interface {
	PutMetricsSnapshot(ctx context.Context, snap model.MetricsSnapshot) error
	PutEvents(ctx context.Context, events []model.NetworkEvent) error
	PutBridgeDeposit(ctx context.Context, dep model.BridgeDeposit) error
}

// Multi writes every value to all sinks and joins their errors.
type Multi []Storage

func (m Multi) PutMetricsSnapshot(ctx context.Context, snap model.MetricsSnapshot) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PutMetricsSnapshot(ctx, snap))
	}
	return errors.Join(errs...)
}

func (m Multi) PutEvents(ctx context.Context, events []model.NetworkEvent) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PutEvents(ctx, events))
	}
	return errors.Join(errs...)
}

func (m Multi) PutBridgeDeposit(ctx context.Context, dep model.BridgeDeposit) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PutBridgeDeposit(ctx, dep))
	}
	return errors.Join(errs...)
}
