package amqp

import (
	"context"
	"encoding/json"
	"testing"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowScope/internal/model"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type recordingChannel struct {
	sent   []published
	closed bool
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.sent = append(c.sent, published{exchange, key, msg})
	return nil
}

func (c *recordingChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisherRoutesByKind(t *testing.T) {
	ch := &recordingChannel{}
	p := NewPublisher(ch, "", "sess-9")
	ctx := context.Background()

	require.NoError(t, p.PutMetricsSnapshot(ctx, model.MetricsSnapshot{Metrics: model.ChainMetrics{Slot: 4}}))
	require.NoError(t, p.PutEvents(ctx, []model.NetworkEvent{{Type: "block"}, {Type: "block"}}))
	require.NoError(t, p.PutBridgeDeposit(ctx, model.BridgeDeposit{BridgeID: "b-1", Status: model.ReadyToWithdraw()}))
	require.NoError(t, p.Close())

	require.Len(t, ch.sent, 4)
	keys := make([]string, 0, len(ch.sent))
	for _, s := range ch.sent {
		assert.Equal(t, DefaultExchange, s.exchange)
		assert.Equal(t, "application/json", s.msg.ContentType)
		assert.Equal(t, "sess-9", s.msg.Headers["session_id"])
		assert.NotEmpty(t, s.msg.MessageId)
		keys = append(keys, s.key)
	}
	assert.Equal(t, []string{RoutingMetrics, RoutingEvent, RoutingEvent, RoutingBridge}, keys)

	var dep map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(ch.sent[3].msg.Body, &dep))
	assert.JSONEq(t, `"ReadyToWithdraw"`, string(dep["status"]))
	assert.True(t, ch.closed)
}
