// Package view renders reconciled values for a terminal.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"shadowScope/internal/bridge"
	"shadowScope/internal/feed"
	"shadowScope/internal/model"
)

var (
	panelBorder   = lipgloss.Color("#2D6A80")
	accentPrimary = lipgloss.Color("#50E3C2")
	accentWarm    = lipgloss.Color("#F6AE2D")
	mutedText     = lipgloss.Color("#8CA1AE")
	warningText   = lipgloss.Color("#FF6B6B")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedText).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentWarm).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)
)

const progressWidth = 30

func row(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}

func panel(title string, rows ...string) string {
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, rows...)...))
}

// Metrics renders the chain metrics panel.
func Metrics(snap model.MetricsSnapshot) string {
	if !snap.Loaded {
		status := "loading..."
		if snap.LastError != "" {
			status = errorStyle.Render("node unreachable: " + snap.LastError)
		}
		return panel("Chain", status)
	}
	m := snap.Metrics
	rows := []string{
		row("Slot", m.Slot),
		row("Epoch", m.Epoch),
		row("TPS", fmt.Sprintf("%.2f", m.TPS)),
		row("Transactions", m.TotalTransactions),
		row("Transparent / shielded", fmt.Sprintf("%d / %d", m.TransparentTxs, m.ShieldedTxs)),
		row("Shield / unshield", fmt.Sprintf("%d / %d", m.ShieldOps, m.UnshieldOps)),
		row("Private transfers", m.PrivateTransfers),
		row("Shielded pool", m.ShieldedPoolSize),
		row("Nullifiers", m.NullifierCount),
		row("Total stake", m.TotalStake),
		row("Active validators", m.ActiveValidators),
	}
	if snap.Stale {
		rows = append(rows, errorStyle.Render("stale: "+snap.LastError))
	}
	return panel("Chain", rows...)
}

// Events renders at most limit events, newest first.
func Events(events []model.NetworkEvent, source feed.SourceKind, limit int) string {
	title := "Events"
	if source == feed.Synthesized {
		title += " (synthesized)"
	} else if source == feed.Push {
		title += " (live)"
	}
	if len(events) == 0 {
		return panel(title, labelStyle.Render("waiting for events"))
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	rows := make([]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventLine(ev))
	}
	return panel(title, rows...)
}

func eventLine(ev model.NetworkEvent) string {
	var b strings.Builder
	b.WriteString(ev.ReceivedAt.Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(ev.Type)
	if ev.Slot != nil {
		fmt.Fprintf(&b, " slot=%d", *ev.Slot)
	}
	if ev.Transactions != nil {
		fmt.Fprintf(&b, " txs=%d", *ev.Transactions)
	}
	if ev.ShieldedTxs != nil {
		fmt.Fprintf(&b, " shielded=%d", *ev.ShieldedTxs)
	}
	if ev.Leader != "" {
		b.WriteString(" leader=" + ev.Leader)
	}
	if ev.Hash != "" {
		b.WriteString(" " + shortHash(ev.Hash))
	}
	if ev.Finalized != nil && *ev.Finalized {
		b.WriteString(" finalized")
	}
	return b.String()
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + ".." + hash[len(hash)-4:]
}

// Dashboard joins the metrics and event panels.
func Dashboard(snap model.MetricsSnapshot, events []model.NetworkEvent, source feed.SourceKind, limit int) string {
	return lipgloss.JoinVertical(lipgloss.Left, Metrics(snap), Events(events, source, limit))
}

// Progress draws a fixed width bar for a percentage in [0, 100].
func Progress(percent float64) string {
	filled := int(percent / 100 * progressWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", progressWidth-filled), percent)
}

// Deposit renders the tracker state of one deposit.
func Deposit(st bridge.State, progress float64) string {
	rows := []string{row("Status", statusStyle.Render(st.Status.Label()))}
	if st.BridgeID != "" {
		rows = append([]string{row("Bridge id", st.BridgeID)}, rows...)
	}
	if dep := st.Deposit; dep != nil {
		rows = append(rows,
			row("Amount", bridge.FormatAmount(dep.Amount)+" SHOL"),
			row("Mixing", Progress(progress)),
			row("Hops", fmt.Sprintf("%d / %d", dep.MixingHopsCompleted, dep.TotalHops)),
			row("Anonymity set", dep.AnonymitySetSize),
			row("Privacy score", fmt.Sprintf("%.0f", dep.PrivacyScore)),
		)
		if dep.Status.Kind == model.StatusWaitingDelay {
			rows = append(rows, row("Ready at slot", dep.Status.ReadyAtSlot))
		}
		if dep.Status.Kind == model.StatusReadyToWithdraw {
			rows = append(rows, row("You will receive", bridge.NetWithdrawal(dep.Amount)+" SHOL"))
		}
		if dep.WithdrawalAddress != nil {
			rows = append(rows, row("Withdrawn to", *dep.WithdrawalAddress))
		}
	}
	if st.Stale && st.LastError != "" {
		rows = append(rows, errorStyle.Render("stale: "+st.LastError))
	}
	return panel("Bridge deposit", rows...)
}

func BridgeStats(stats model.BridgeStats) string {
	return panel("Bridge",
		row("Total volume", bridge.FormatAmount(stats.TotalVolume)+" SHOL"),
		row("Active deposits", stats.ActiveDeposits),
		row("Anonymity set", stats.AnonymitySet),
		row("Average delay", fmt.Sprintf("%.1f h", stats.AverageDelayHours)),
	)
}

func History(deposits []model.BridgeDeposit) string {
	if len(deposits) == 0 {
		return panel("History", labelStyle.Render("no deposits"))
	}
	rows := make([]string, 0, len(deposits))
	for _, dep := range deposits {
		rows = append(rows, fmt.Sprintf("%s  %s SHOL  %s  %3.0f%%",
			dep.BridgeID, bridge.FormatAmount(dep.Amount), dep.Status.Label(), dep.ProgressPercent()))
	}
	return panel("History", rows...)
}
