package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowScope/internal/model"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "session.jsonl")
	s := NewJsonlStorage(path, "sess-1")
	ctx := context.Background()

	require.NoError(t, s.PutMetricsSnapshot(ctx, model.MetricsSnapshot{Metrics: model.ChainMetrics{Slot: 9}, Loaded: true}))
	slot := uint64(3)
	require.NoError(t, s.PutEvents(ctx, []model.NetworkEvent{{Type: "block", Slot: &slot}, {Type: "block"}}))
	require.NoError(t, s.PutEvents(ctx, nil))
	require.NoError(t, s.PutBridgeDeposit(ctx, model.BridgeDeposit{BridgeID: "b-1", Status: model.Mixing(3, 10)}))

	records := readRecords(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{KindMetrics, KindEvent, KindEvent, KindBridge},
		[]string{records[0].Kind, records[1].Kind, records[2].Kind, records[3].Kind})
	for _, r := range records {
		assert.Equal(t, "sess-1", r.SessionID)
	}

	var status struct {
		Status json.RawMessage `json:"status"`
	}
	require.NoError(t, json.Unmarshal(records[3].Data, &status))
	assert.JSONEq(t, `{"Mixing":{"current_hop":3,"total_hops":10}}`, string(status.Status))
}

type failingSink struct{ err error }

func (f failingSink) PutMetricsSnapshot(context.Context, model.MetricsSnapshot) error { return f.err }
func (f failingSink) PutEvents(context.Context, []model.NetworkEvent) error          { return f.err }
func (f failingSink) PutBridgeDeposit(context.Context, model.BridgeDeposit) error    { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.jsonl")
	boom := errors.New("sink down")
	m := Multi{NewJsonlStorage(path, ""), failingSink{err: boom}}

	err := m.PutMetricsSnapshot(context.Background(), model.MetricsSnapshot{})
	require.ErrorIs(t, err, boom)
	assert.Len(t, readRecords(t, path), 1, "healthy sinks still receive the value")

	require.NoError(t, Multi{NewJsonlStorage(path, "")}.PutBridgeDeposit(context.Background(), model.BridgeDeposit{BridgeID: "x"}))
}
