package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ozanylmz/walletwatch/internal/audit"
	"github.com/ozanylmz/walletwatch/internal/notify"
	"github.com/ozanylmz/walletwatch/internal/tracker"
)

// MonitorMode sends a startup summary for every wallet, then polls the whole
// set on the configured interval until the context is cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Tracker.CheckInterval.Duration),
		slog.String("execution_mode", a.cfg.Tracker.ExecutionMode),
	)

	a.sendStartupSummaries(ctx, deps)

	ticker := time.NewTicker(a.cfg.Tracker.CheckInterval.Duration)
	defer ticker.Stop()

	for {
		a.runCycle(ctx, deps)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckMode runs a single poll cycle across all wallets and returns.
func (a *App) CheckMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting one-shot check")
	a.sendStartupSummaries(ctx, deps)
	a.runCycle(ctx, deps)
	return nil
}

// ListMode prints the configured wallets without contacting any API.
func (a *App) ListMode(_ context.Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tENABLED")
	for _, wc := range a.cfg.Wallets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", wc.ID, wc.Name, wc.Address, wc.Enabled)
	}
	return w.Flush()
}

// sendStartupSummaries fetches a fresh view of each wallet and pushes it to
// that wallet's channels. Summaries bypass the event filter.
func (a *App) sendStartupSummaries(ctx context.Context, deps *Dependencies) {
	summaries := deps.Orchestrator.Summaries(ctx)
	for _, id := range deps.Orchestrator.WalletIDs() {
		s, ok := summaries[id]
		if !ok {
			continue
		}
		notifier := deps.Notifiers[id]
		if notifier == nil {
			continue
		}

		title, body := notify.FormatStartup(s.Wallet, s.Balance, s.BalanceOK, s.Snapshot, s.SnapshotOK, s.Timestamp)
		if _, err := notifier.NotifyAll(ctx, title, body); err != nil {
			a.logger.WarnContext(ctx, "startup summary delivery failed",
				slog.String("wallet", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// runCycle checks every wallet once and routes the resulting events to the
// notification and audit paths. A failing wallet never stops the others.
func (a *App) runCycle(ctx context.Context, deps *Dependencies) {
	started := time.Now()
	results := deps.Orchestrator.CheckAll(ctx)

	events := 0
	for _, id := range deps.Orchestrator.WalletIDs() {
		res, ok := results[id]
		if !ok {
			continue
		}
		if res.Err != nil {
			a.logger.ErrorContext(ctx, "wallet check failed",
				slog.String("wallet", id),
				slog.String("error", res.Err.Error()),
			)
			continue
		}
		events += len(res.Events)
		a.dispatchEvents(ctx, deps, res)
	}

	a.logger.InfoContext(ctx, "check cycle complete",
		slog.Int("wallets", len(results)),
		slog.Int("events", events),
		slog.Duration("elapsed", time.Since(started)),
	)
}

// dispatchEvents renders and delivers one wallet's events, recording each in
// the audit trail with its delivery outcome.
func (a *App) dispatchEvents(ctx context.Context, deps *Dependencies, res tracker.Result) {
	notifier := deps.Notifiers[res.Wallet.ID]
	now := time.Now()

	for _, ev := range res.Events {
		title, body := notify.FormatEvent(res.Wallet, ev, now)

		delivered := true
		if notifier != nil {
			var err error
			delivered, err = notifier.Notify(ctx, ev.Type(), title, body)
			if err != nil {
				a.logger.WarnContext(ctx, "notification delivery failed",
					slog.String("wallet", res.Wallet.ID),
					slog.String("event", string(ev.Type())),
					slog.String("error", err.Error()),
				)
			}
		}

		deps.Audit.Append(ctx, audit.Record{
			WalletID:  res.Wallet.ID,
			Address:   res.Wallet.Address,
			Event:     ev.Type(),
			Title:     title,
			Detail:    body,
			Delivered: delivered,
		})
	}
}
