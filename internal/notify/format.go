package notify

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// usdPrinter renders dollar amounts with thousands separators.
var usdPrinter = message.NewPrinter(language.English)

func usd(v float64) string {
	return usdPrinter.Sprintf("$%.2f", v)
}

func usdSigned(v float64) string {
	return usdPrinter.Sprintf("$%+.2f", v)
}

// shortHex abbreviates a raw hex string for display in transfer lines.
func shortHex(s string) string {
	if s == "" {
		return "unknown"
	}
	if len(s) <= 12 {
		return s
	}
	return s[:10] + "..."
}

// FormatEvent renders any change event into a notification title and body.
func FormatEvent(w domain.Wallet, ev domain.ChangeEvent, ts time.Time) (title, body string) {
	switch e := ev.(type) {
	case domain.BalanceChange:
		return FormatBalanceChange(w, e, ts)
	case domain.PositionChange:
		return FormatPositionChange(w, e, ts)
	case domain.PositionSummary:
		return FormatPositionSummary(w, e, ts)
	case domain.TransferActivity:
		return FormatTransfers(w, e, ts)
	case domain.FetchError:
		return FormatFetchError(w, e, ts)
	default:
		return string(ev.Type()), fmt.Sprintf("Wallet: %s (%s)\nTime: %s",
			w.DisplayName(), w.ShortAddress(), ts.Format(timeLayout))
	}
}

// FormatBalanceChange renders a balance move that crossed the alert threshold.
func FormatBalanceChange(w domain.Wallet, ev domain.BalanceChange, ts time.Time) (string, string) {
	emoji := "\U0001F4C8" // chart increasing
	if ev.New < ev.Old {
		emoji = "\U0001F4C9"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Wallet: %s (%s)\n", emoji, w.DisplayName(), w.ShortAddress())
	fmt.Fprintf(&b, "Previous Balance: %.4f ETH\n", ev.Old)
	fmt.Fprintf(&b, "New Balance: %.4f ETH\n", ev.New)
	if ev.Old != 0 {
		pct := (ev.New - ev.Old) / ev.Old * 100
		fmt.Fprintf(&b, "Change: %+.4f ETH (%+.2f%%)\n", ev.New-ev.Old, pct)
	} else {
		fmt.Fprintf(&b, "Change: %+.4f ETH\n", ev.New-ev.Old)
	}
	fmt.Fprintf(&b, "Time: %s", ts.Format(timeLayout))

	return "BALANCE CHANGE DETECTED", b.String()
}

// FormatPositionChange renders an opened, closed, or resized position with the
// account rollup and the full post-change position list. The changed coin is
// marked in the breakdown.
func FormatPositionChange(w domain.Wallet, ev domain.PositionChange, ts time.Time) (string, string) {
	var emoji, title string
	switch ev.Kind {
	case domain.PositionOpened:
		emoji, title = "\U0001F680", "POSITION OPENED"
	case domain.PositionClosed:
		emoji, title = "✅", "POSITION CLOSED"
	default:
		emoji, title = "\U0001F504", "POSITION CHANGED"
	}
	if ev.Coin != "" {
		title = fmt.Sprintf("%s - %s", title, ev.Coin)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Wallet: %s (%s)\n", emoji, w.DisplayName(), w.ShortAddress())
	writeMarginSummary(&b, ev.Snapshot.Margin)
	fmt.Fprintf(&b, "Time: %s\n", ts.Format(timeLayout))
	writePositions(&b, ev.Snapshot, ev.Coin)

	return title, strings.TrimRight(b.String(), "\n")
}

// FormatPositionSummary renders the full position breakdown sent when a
// wallet is first seen holding open positions, and on startup summaries.
func FormatPositionSummary(w domain.Wallet, ev domain.PositionSummary, ts time.Time) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F4CA Wallet: %s (%s)\n", w.DisplayName(), w.ShortAddress())
	writeMarginSummary(&b, ev.Snapshot.Margin)
	fmt.Fprintf(&b, "Open Positions: %d\n", activeCount(ev.Snapshot))
	fmt.Fprintf(&b, "Time: %s\n", ts.Format(timeLayout))
	writePositions(&b, ev.Snapshot, "")

	return "HYPERLIQUID POSITION SUMMARY", strings.TrimRight(b.String(), "\n")
}

// FormatTransfers renders deposits and withdrawals detected in the last poll
// window, one block per transfer.
func FormatTransfers(w domain.Wallet, ev domain.TransferActivity, ts time.Time) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F4B0 Wallet: %s (%s)\n", w.DisplayName(), w.ShortAddress())
	fmt.Fprintf(&b, "Time: %s\n\n", ts.Format(timeLayout))

	for _, tr := range ev.Transfers {
		amount := fmt.Sprintf("%.4f %s", tr.Amount, tr.Asset)
		if tr.Asset != "ETH" {
			amount = fmt.Sprintf("%.6f %s", tr.Amount, tr.Asset)
		}
		if tr.Direction == domain.TransferOut {
			fmt.Fprintf(&b, "\U0001F4E4 WITHDRAWAL: %s\n", amount)
			fmt.Fprintf(&b, "   To: %s\n", shortHex(tr.To))
		} else {
			fmt.Fprintf(&b, "\U0001F4E5 DEPOSIT: %s\n", amount)
			fmt.Fprintf(&b, "   From: %s\n", shortHex(tr.From))
		}
		hash := tr.Hash
		if len(hash) > 20 {
			hash = hash[:20] + "..."
		}
		fmt.Fprintf(&b, "   Hash: %s\n\n", hash)
	}

	return "DEPOSIT/WITHDRAWAL DETECTED", strings.TrimRight(b.String(), "\n")
}

// FormatFetchError renders a data-source failure notice.
func FormatFetchError(w domain.Wallet, ev domain.FetchError, ts time.Time) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Wallet: %s (%s)\n", w.DisplayName(), w.ShortAddress())
	fmt.Fprintf(&b, "Source: %s\n", ev.Source)
	fmt.Fprintf(&b, "Error: %s\n", ev.Message)
	fmt.Fprintf(&b, "Time: %s", ts.Format(timeLayout))

	return "DATA FETCH FAILED", b.String()
}

// FormatStartup renders the one-shot status message sent when tracking for a
// wallet begins. Either side may be unavailable on a cold start.
func FormatStartup(w domain.Wallet, balance float64, balanceOK bool, snap domain.PositionSnapshot, snapOK bool, ts time.Time) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F50D Wallet: %s (%s)\n", w.DisplayName(), w.ShortAddress())
	if balanceOK {
		fmt.Fprintf(&b, "ETH Balance: %.4f ETH\n", balance)
	} else {
		b.WriteString("ETH Balance: unavailable\n")
	}
	if snapOK {
		writeMarginSummary(&b, snap.Margin)
		fmt.Fprintf(&b, "Open Positions: %d\n", activeCount(snap))
	} else {
		b.WriteString("Positions: unavailable\n")
	}
	fmt.Fprintf(&b, "Time: %s\n", ts.Format(timeLayout))
	if snapOK {
		writePositions(&b, snap, "")
	}

	return "WALLET TRACKING STARTED", strings.TrimRight(b.String(), "\n")
}

func writeMarginSummary(b *strings.Builder, m domain.MarginSummary) {
	fmt.Fprintf(b, "Account Value: %s\n", usd(m.AccountValue))
	fmt.Fprintf(b, "Total Position Value: %s\n", usd(m.TotalNotional))
	fmt.Fprintf(b, "Unrealized PnL: %s\n", usd(m.UnrealizedPnL))
	fmt.Fprintf(b, "Margin Usage: %.2f%%\n", m.MarginUsage*100)
}

// writePositions appends the per-coin breakdown for every active position,
// marking highlight (the changed coin) with a flame.
func writePositions(b *strings.Builder, snap domain.PositionSnapshot, highlight string) {
	if !snap.HasActive() {
		return
	}

	b.WriteString("\n\U0001F4C8 POSITIONS:\n")
	for _, p := range snap.Positions {
		if !p.Active() {
			continue
		}

		marker := "  "
		if highlight != "" && p.Coin == highlight {
			marker = "\U0001F525"
		}
		sideEmoji := "\U0001F7E2" // green circle, long
		if p.Size < 0 {
			sideEmoji = "\U0001F534"
		}
		pnlEmoji := "⚪"
		if p.UnrealizedPnL > 0 {
			pnlEmoji = "\U0001F4B0"
		} else if p.UnrealizedPnL < 0 {
			pnlEmoji = "\U0001F4B8"
		}

		fmt.Fprintf(b, "%s %s %s %s: %.4f @ %s\n", marker, sideEmoji, p.Coin, p.Side(), p.Size, usd(p.EntryPrice))
		fmt.Fprintf(b, "    %s PnL: %s (%+.2f%%) | Lev: %gx\n", pnlEmoji, usdSigned(p.UnrealizedPnL), p.ReturnOnEquity*100, p.Leverage)
		fmt.Fprintf(b, "    Value: %s | Liq: %s | Margin: %s\n", usd(p.Value), usd(p.LiquidationPrice), usd(p.MarginUsed))
		if p.FundingSinceOpen != 0 {
			fmt.Fprintf(b, "    Funding Since Open: %s\n", usdSigned(p.FundingSinceOpen))
		}
		b.WriteString("\n")
	}
}

func activeCount(snap domain.PositionSnapshot) int {
	n := 0
	for _, p := range snap.Positions {
		if p.Active() {
			n++
		}
	}
	return n
}
