package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"shadowScope/internal/model"
)

// HealthPolicy bounds how long WaitHealthy keeps probing the node.
type HealthPolicy struct {
	Attempts  uint
	BaseDelay time.Duration
}

func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{Attempts: 5, BaseDelay: 250 * time.Millisecond}
}

// WaitHealthy probes /health with exponential backoff until it answers or the
// attempts run out. Only startup code uses this; the synchronizers never retry.
func (c *Client) WaitHealthy(ctx context.Context, policy HealthPolicy) (model.Health, error) {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}

	health, err := retry.DoWithData(
		func() (model.Health, error) {
			return c.Health(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("node not healthy yet", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return model.Health{}, fmt.Errorf("wait for node health: %w", err)
	}
	return health, nil
}
