package model

import (
	"encoding/json"
	"math"
	"time"
)

// ChainMetrics is the canonical metrics record mirrored from the node.
type ChainMetrics struct {
	Slot              uint64  `json:"slot"`
	Epoch             uint64  `json:"epoch"`
	TPS               float64 `json:"tps"`
	TotalTransactions uint64  `json:"total_transactions"`
	TransparentTxs    uint64  `json:"transparent_txs"`
	ShieldedTxs       uint64  `json:"shielded_txs"`
	ShieldOps         uint64  `json:"shield_ops"`
	UnshieldOps       uint64  `json:"unshield_ops"`
	PrivateTransfers  uint64  `json:"private_transfers"`
	ShieldedPoolSize  uint64  `json:"shielded_pool_size"`
	NullifierCount    uint64  `json:"nullifier_count"`
	TotalStake        uint64  `json:"total_stake"`
	ActiveValidators  uint64  `json:"active_validators"`
}

// MetricsSnapshot is the externally visible state of a metrics synchronizer.
type MetricsSnapshot struct {
	Metrics ChainMetrics `json:"metrics"`
	// FetchedSlot is the slot of the last applied fetch, before interpolation.
	FetchedSlot uint64    `json:"fetched_slot"`
	Loaded      bool      `json:"loaded"`
	Stale       bool      `json:"stale"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapChainMetrics maps a decoded /shadow/info payload into ChainMetrics.
// Missing sections, missing keys and values that are not non-negative finite
// numbers all map to 0.
func MapChainMetrics(info map[string]any) ChainMetrics {
	return ChainMetrics{
		Slot:              uintAt(info, "stats", "height"),
		Epoch:             uintAt(info, "stats", "epoch"),
		TPS:               floatAt(info, "stats", "current_tps"),
		TotalTransactions: uintAt(info, "stats", "total_transactions"),
		TransparentTxs:    uintAt(info, "privacy", "transparent_transactions"),
		ShieldedTxs:       uintAt(info, "privacy", "shielded_transactions"),
		ShieldOps:         uintAt(info, "privacy", "shield_operations"),
		UnshieldOps:       uintAt(info, "privacy", "unshield_operations"),
		PrivateTransfers:  uintAt(info, "privacy", "private_transfers"),
		ShieldedPoolSize:  uintAt(info, "privacy", "merkle_tree_size"),
		NullifierCount:    uintAt(info, "privacy", "spent_notes"),
		TotalStake:        uintAt(info, "consensus", "total_stake"),
		ActiveValidators:  uintAt(info, "consensus", "active_validators"),
	}
}

func valueAt(info map[string]any, section, key string) any {
	if info == nil {
		return nil
	}
	nested, ok := info[section].(map[string]any)
	if !ok {
		return nil
	}
	return nested[key]
}

func floatAt(info map[string]any, section, key string) float64 {
	var f float64
	switch v := valueAt(info, section, key).(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func uintAt(info map[string]any, section, key string) uint64 {
	if n, ok := valueAt(info, section, key).(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			if i < 0 {
				return 0
			}
			return uint64(i)
		}
	}
	f := floatAt(info, section, key)
	if f >= math.MaxUint64 {
		return 0
	}
	return uint64(f)
}
