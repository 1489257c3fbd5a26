package model

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeInfo(t *testing.T, payload string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var info map[string]any
	require.NoError(t, dec.Decode(&info))
	return info
}

func TestMapChainMetricsFullPayload(t *testing.T) {
	info := decodeInfo(t, `{
		"stats": {"height": 1200, "epoch": 2, "current_tps": 41234.5, "total_transactions": 150000},
		"privacy": {
			"shielded_transactions": 18000, "transparent_transactions": 132000,
			"shield_operations": 4500, "unshield_operations": 2700, "private_transfers": 10800,
			"merkle_tree_size": 26100, "spent_notes": 13500
		},
		"consensus": {"total_stake": 113000000000000, "active_validators": 3}
	}`)

	got := MapChainMetrics(info)
	assert.Equal(t, ChainMetrics{
		Slot:              1200,
		Epoch:             2,
		TPS:               41234.5,
		TotalTransactions: 150000,
		TransparentTxs:    132000,
		ShieldedTxs:       18000,
		ShieldOps:         4500,
		UnshieldOps:       2700,
		PrivateTransfers:  10800,
		ShieldedPoolSize:  26100,
		NullifierCount:    13500,
		TotalStake:        113000000000000,
		ActiveValidators:  3,
	}, got)
}

func TestMapChainMetricsMissingPrivacy(t *testing.T) {
	info := decodeInfo(t, `{"stats": {"height": 77, "total_transactions": 9}, "consensus": {"active_validators": 3}}`)

	got := MapChainMetrics(info)
	assert.Equal(t, uint64(77), got.Slot)
	assert.Zero(t, got.ShieldedTxs)
	assert.Zero(t, got.ShieldOps)
	assert.Zero(t, got.UnshieldOps)
	assert.Zero(t, got.ShieldedPoolSize)
	assert.Zero(t, got.NullifierCount)
	assert.Equal(t, uint64(3), got.ActiveValidators)
}

func TestMapChainMetricsMalformedFields(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"stats": null, "privacy": [], "consensus": "down"}`,
		`{"stats": {"height": "12", "epoch": -4, "current_tps": true, "total_transactions": {"x": 1}}}`,
		`{"privacy": {"spent_notes": null, "merkle_tree_size": -1.5}, "consensus": {"total_stake": 1e400}}`,
		`{"stats": {"height": 12.9}}`,
	}

	for _, payload := range payloads {
		var info map[string]any
		dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&info), payload)

		assert.NotPanics(t, func() {
			got := MapChainMetrics(info)
			assert.GreaterOrEqual(t, got.TPS, float64(0))
			assert.LessOrEqual(t, got.Slot, uint64(12))
		}, payload)
	}

	assert.Equal(t, ChainMetrics{}, MapChainMetrics(nil))
}
