package model

import "time"

// NetworkEvent is one discrete entry of the live event log.
type NetworkEvent struct {
	Type         string  `json:"type"`
	Slot         *uint64 `json:"slot,omitempty"`
	Hash         string  `json:"hash,omitempty"`
	Leader       string  `json:"leader,omitempty"`
	Transactions *uint64 `json:"transactions,omitempty"`
	ShieldedTxs  *uint64 `json:"shielded_txs,omitempty"`
	Finalized    *bool   `json:"finalized,omitempty"`

	// ReceivedAt is stamped locally when the event enters the feed.
	ReceivedAt time.Time `json:"received_at"`
}
