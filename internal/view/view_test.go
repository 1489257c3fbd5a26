package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shadowScope/internal/bridge"
	"shadowScope/internal/feed"
	"shadowScope/internal/model"
)

func TestProgress(t *testing.T) {
	assert.Contains(t, Progress(30), " 30%")
	assert.Contains(t, Progress(0), "[......")
	assert.Contains(t, Progress(100), "##############################]")
}

func TestDepositShowsLabelAndProgress(t *testing.T) {
	dep := model.BridgeDeposit{
		BridgeID:            "b-1",
		Amount:              1_500_000_000,
		Status:              model.Mixing(3, 10),
		MixingHopsCompleted: 3,
		TotalHops:           10,
	}
	out := Deposit(bridge.State{BridgeID: "b-1", Status: dep.Status, Deposit: &dep}, dep.ProgressPercent())
	assert.Contains(t, out, "Mixing (Hop 3/10)")
	assert.Contains(t, out, "1.50 SHOL")
	assert.Contains(t, out, " 30%")
}

func TestEventsMarksSynthesizedSource(t *testing.T) {
	slot := uint64(12)
	out := Events([]model.NetworkEvent{{Type: "block", Slot: &slot}}, feed.Synthesized, 10)
	assert.Contains(t, out, "synthesized")
	assert.Contains(t, out, "slot=12")
}

func TestMetricsBeforeLoad(t *testing.T) {
	assert.Contains(t, Metrics(model.MetricsSnapshot{}), "loading")
	assert.Contains(t, Metrics(model.MetricsSnapshot{LastError: "refused"}), "refused")
}
