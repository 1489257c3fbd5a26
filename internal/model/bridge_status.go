package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusKind enumerates the client-side states of a bridge deposit.
type StatusKind int

const (
	StatusDepositing StatusKind = iota
	StatusMixing
	StatusWaitingDelay
	StatusReadyToWithdraw
	StatusCompleted
	StatusFailed
)

var statusNames = map[StatusKind]string{
	StatusDepositing:      "Depositing",
	StatusMixing:          "Mixing",
	StatusWaitingDelay:    "WaitingDelay",
	StatusReadyToWithdraw: "ReadyToWithdraw",
	StatusCompleted:       "Completed",
	StatusFailed:          "Failed",
}

func (k StatusKind) String() string {
	if name, ok := statusNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// BridgeStatus is a decoded status variant. Only the fields of the active
// variant are meaningful: hop counters for Mixing, ReadyAtSlot for
// WaitingDelay and Reason for Failed.
type BridgeStatus struct {
	Kind        StatusKind
	CurrentHop  uint32
	TotalHops   uint32
	ReadyAtSlot uint64
	Reason      string
}

func Depositing() BridgeStatus { return BridgeStatus{Kind: StatusDepositing} }

func Mixing(currentHop, totalHops uint32) BridgeStatus {
	return BridgeStatus{Kind: StatusMixing, CurrentHop: currentHop, TotalHops: totalHops}
}

func WaitingDelay(readyAtSlot uint64) BridgeStatus {
	return BridgeStatus{Kind: StatusWaitingDelay, ReadyAtSlot: readyAtSlot}
}

func ReadyToWithdraw() BridgeStatus { return BridgeStatus{Kind: StatusReadyToWithdraw} }

func Completed() BridgeStatus { return BridgeStatus{Kind: StatusCompleted} }

func Failed(reason string) BridgeStatus { return BridgeStatus{Kind: StatusFailed, Reason: reason} }

// Terminal reports whether no further transitions can happen.
func (s BridgeStatus) Terminal() bool {
	return s.Kind == StatusCompleted || s.Kind == StatusFailed
}

// Label is the human readable form shown next to a deposit.
func (s BridgeStatus) Label() string {
	switch s.Kind {
	case StatusMixing:
		return fmt.Sprintf("Mixing (Hop %d/%d)", s.CurrentHop, s.TotalHops)
	case StatusWaitingDelay:
		return "Waiting for delay period"
	case StatusFailed:
		if s.Reason == "" {
			return "Failed"
		}
		return "Failed: " + s.Reason
	default:
		return s.Kind.String()
	}
}

type mixingBody struct {
	CurrentHop uint32 `json:"current_hop"`
	TotalHops  uint32 `json:"total_hops"`
}

type waitingDelayBody struct {
	ReadyAtSlot uint64 `json:"ready_at_slot"`
}

type failedBody struct {
	Reason string `json:"reason"`
}

// MarshalJSON writes the status in the node's wire shape: a bare label for
// variants without data and a single-key object otherwise.
func (s BridgeStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusMixing:
		return json.Marshal(map[string]mixingBody{"Mixing": {CurrentHop: s.CurrentHop, TotalHops: s.TotalHops}})
	case StatusWaitingDelay:
		return json.Marshal(map[string]waitingDelayBody{"WaitingDelay": {ReadyAtSlot: s.ReadyAtSlot}})
	case StatusFailed:
		return json.Marshal(map[string]failedBody{"Failed": {Reason: s.Reason}})
	default:
		return json.Marshal(s.Kind.String())
	}
}

// DecodeBridgeStatus resolves a raw status value. Bare "Mixing" and the node's
// initial "Deposited" label carry no counters of their own, so they take them
// from the surrounding deposit record.
func DecodeBridgeStatus(raw json.RawMessage, hopsCompleted, totalHops uint32) (BridgeStatus, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return BridgeStatus{}, fmt.Errorf("status is missing")
	}

	if raw[0] == '"' {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return BridgeStatus{}, fmt.Errorf("decode status label: %w", err)
		}
		switch label {
		case "Depositing":
			return Depositing(), nil
		case "Deposited":
			return Mixing(hopsCompleted, totalHops), nil
		case "Mixing":
			return Mixing(hopsCompleted, totalHops), nil
		case "WaitingDelay":
			return WaitingDelay(0), nil
		case "ReadyToWithdraw":
			return ReadyToWithdraw(), nil
		case "Completed":
			return Completed(), nil
		case "Failed":
			return Failed(""), nil
		default:
			return BridgeStatus{}, fmt.Errorf("unknown status %q", label)
		}
	}

	var variant map[string]json.RawMessage
	if err := json.Unmarshal(raw, &variant); err != nil {
		return BridgeStatus{}, fmt.Errorf("decode status object: %w", err)
	}
	if len(variant) != 1 {
		return BridgeStatus{}, fmt.Errorf("status object must have exactly one variant, got %d", len(variant))
	}

	for name, body := range variant {
		switch name {
		case "Mixing":
			var m mixingBody
			if err := json.Unmarshal(body, &m); err != nil {
				return BridgeStatus{}, fmt.Errorf("decode mixing status: %w", err)
			}
			return Mixing(m.CurrentHop, m.TotalHops), nil
		case "WaitingDelay":
			var w waitingDelayBody
			if err := json.Unmarshal(body, &w); err != nil {
				return BridgeStatus{}, fmt.Errorf("decode waiting delay status: %w", err)
			}
			return WaitingDelay(w.ReadyAtSlot), nil
		case "Failed":
			return decodeFailed(body)
		case "ReadyToWithdraw":
			return ReadyToWithdraw(), nil
		case "Completed":
			return Completed(), nil
		default:
			return BridgeStatus{}, fmt.Errorf("unknown status variant %q", name)
		}
	}
	return BridgeStatus{}, fmt.Errorf("status is empty")
}

func decodeFailed(body json.RawMessage) (BridgeStatus, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var reason string
		if err := json.Unmarshal(body, &reason); err != nil {
			return BridgeStatus{}, fmt.Errorf("decode failed status: %w", err)
		}
		return Failed(reason), nil
	}
	var f failedBody
	if len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		if err := json.Unmarshal(body, &f); err != nil {
			return BridgeStatus{}, fmt.Errorf("decode failed status: %w", err)
		}
	}
	return Failed(f.Reason), nil
}
