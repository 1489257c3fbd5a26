package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// PrivacyConfig is fixed when the deposit is created.
type PrivacyConfig struct {
	Hops            uint32  `json:"hops"`
	DecoyMultiplier uint32  `json:"decoy_multiplier"`
	DelayHours      float64 `json:"delay_hours"`
	SplitCount      uint32  `json:"split_count"`
}

// BridgeDeposit is the node's record of one deposit. Every status poll
// replaces the whole value.
type BridgeDeposit struct {
	BridgeID            string        `json:"bridge_id"`
	Depositor           string        `json:"depositor"`
	Amount              uint64        `json:"amount"`
	DepositSlot         uint64        `json:"deposit_slot"`
	DepositTime         int64         `json:"deposit_time,omitempty"`
	Status              BridgeStatus  `json:"status"`
	PrivacyConfig       PrivacyConfig `json:"privacy_config"`
	MixingHopsCompleted uint32        `json:"mixing_hops_completed"`
	TotalHops           uint32        `json:"total_hops"`
	AnonymitySetSize    uint64        `json:"anonymity_set_size"`
	PrivacyScore        float64       `json:"privacy_score"`
	WithdrawalAddress   *string       `json:"withdrawal_address,omitempty"`
	WithdrawalSlot      *uint64       `json:"withdrawal_slot,omitempty"`
}

// UnmarshalJSON resolves the status variant once, here, so callers never
// inspect the raw shape. The privacy score is clamped into [0, 100].
func (d *BridgeDeposit) UnmarshalJSON(data []byte) error {
	type alias BridgeDeposit
	var aux struct {
		alias
		Status json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	status, err := DecodeBridgeStatus(aux.Status, aux.MixingHopsCompleted, aux.TotalHops)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", aux.BridgeID, err)
	}

	*d = BridgeDeposit(aux.alias)
	d.Status = status
	d.PrivacyScore = clampPercent(d.PrivacyScore)
	if d.WithdrawalAddress != nil && *d.WithdrawalAddress == "" {
		d.WithdrawalAddress = nil
	}
	return nil
}

// ProgressPercent is hops completed over total hops, clamped into [0, 100].
// A zero total yields 0.
func (d BridgeDeposit) ProgressPercent() float64 {
	if d.TotalHops == 0 {
		return 0
	}
	return clampPercent(float64(d.MixingHopsCompleted) * 100 / float64(d.TotalHops))
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BridgeStats is the aggregate view returned by /bridge/stats.
type BridgeStats struct {
	TotalVolume       uint64  `json:"total_volume"`
	ActiveDeposits    uint64  `json:"active_deposits"`
	AnonymitySet      uint64  `json:"anonymity_set"`
	AverageDelayHours float64 `json:"average_delay_hours"`
}

// DepositRequest is the body of POST /bridge/deposit.
type DepositRequest struct {
	Depositor    string `json:"depositor"`
	Amount       uint64 `json:"amount"`
	PrivacyLevel string `json:"privacy_level"`
}

// DepositResponse is the reply of POST /bridge/deposit.
type DepositResponse struct {
	Success  bool    `json:"success"`
	BridgeID *string `json:"bridge_id"`
	Error    *string `json:"error"`
}

// WithdrawRequest is the body of POST /bridge/withdraw.
type WithdrawRequest struct {
	BridgeID          string `json:"bridge_id"`
	WithdrawalAddress string `json:"withdrawal_address"`
}

// WithdrawResponse is the reply of POST /bridge/withdraw.
type WithdrawResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Error   *string `json:"error"`
}
