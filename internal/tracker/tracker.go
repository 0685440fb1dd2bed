// Package tracker holds the per-wallet change-detection state machines and
// the multi-wallet orchestrator that fans checks out across all configured
// wallets. Each wallet's tracker owns its own last-known balance and position
// snapshot; nothing here is shared between wallets except the gateway's
// resilience stacks.
package tracker

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// Fetcher is the resilient fetch layer as seen by a tracker. Errors mean
// "no new information this poll": the tracker keeps its prior state.
type Fetcher interface {
	Balance(ctx context.Context, address string) (float64, error)
	Positions(ctx context.Context, address string) (domain.PositionSnapshot, error)
	RecentTransfers(ctx context.Context, address string) ([]domain.Transfer, error)
}

// WalletTracker detects meaningful changes for one wallet across three
// independent tracks: ETH balance, Hyperliquid positions, and recent
// deposits/withdrawals. Not safe for concurrent use; the orchestrator runs
// each wallet's checks on a single goroutine at a time.
type WalletTracker struct {
	wallet  domain.Wallet
	fetcher Fetcher
	logger  *slog.Logger

	balanceThreshold  float64       // absolute ETH delta considered significant
	positionThreshold float64       // fractional size change, e.g. 0.05
	window            time.Duration // transfer recency window, the poll interval

	now func() time.Time

	balanceSeeded bool
	lastBalance   float64

	positionsSeeded bool
	lastPositions   domain.PositionSnapshot
}

// NewWalletTracker creates a tracker for one wallet. Both tracks start
// unseeded: the first successful fetch of each only stores a baseline.
func NewWalletTracker(wallet domain.Wallet, fetcher Fetcher, balanceThreshold, positionThreshold float64, window time.Duration, logger *slog.Logger) *WalletTracker {
	return &WalletTracker{
		wallet:            wallet,
		fetcher:           fetcher,
		logger:            logger.With(slog.String("wallet", wallet.ID)),
		balanceThreshold:  balanceThreshold,
		positionThreshold: positionThreshold,
		window:            window,
		now:               time.Now,
	}
}

// Wallet returns the tracked wallet's identity.
func (t *WalletTracker) Wallet() domain.Wallet {
	return t.wallet
}

// Check runs all three tracks and returns the changes this poll detected.
// The tracks are independent: a failed fetch on one produces a FetchError
// event for that track and leaves the others untouched.
func (t *WalletTracker) Check(ctx context.Context) []domain.ChangeEvent {
	var events []domain.ChangeEvent
	events = append(events, t.checkBalance(ctx)...)
	events = append(events, t.checkPositions(ctx)...)
	events = append(events, t.checkTransfers(ctx)...)
	return events
}

// checkBalance compares the fresh balance against the stored one. Seeding is
// silent; after that the stored value always advances on a successful fetch,
// whether or not the threshold was crossed.
func (t *WalletTracker) checkBalance(ctx context.Context) []domain.ChangeEvent {
	current, err := t.fetcher.Balance(ctx, t.wallet.Address)
	if err != nil {
		t.logger.WarnContext(ctx, "balance unavailable", slog.String("error", err.Error()))
		return []domain.ChangeEvent{domain.FetchError{Source: "balance", Message: err.Error()}}
	}

	if !t.balanceSeeded {
		t.balanceSeeded = true
		t.lastBalance = current
		t.logger.DebugContext(ctx, "balance baseline stored", slog.Float64("balance", current))
		return nil
	}

	old := t.lastBalance
	t.lastBalance = current

	delta := math.Abs(current - old)
	if delta > t.balanceThreshold {
		return []domain.ChangeEvent{domain.BalanceChange{Old: old, New: current, Delta: delta}}
	}
	return nil
}

// checkPositions diffs the fresh snapshot against the stored one. At most
// one coin is flagged per poll, in strict priority: opened, then resized
// past the threshold, then closed. The stored snapshot is always replaced
// on a successful fetch.
func (t *WalletTracker) checkPositions(ctx context.Context) []domain.ChangeEvent {
	snapshot, err := t.fetcher.Positions(ctx, t.wallet.Address)
	if err != nil {
		t.logger.WarnContext(ctx, "positions unavailable", slog.String("error", err.Error()))
		return []domain.ChangeEvent{domain.FetchError{Source: "positions", Message: err.Error()}}
	}

	if !t.positionsSeeded {
		t.positionsSeeded = true
		t.lastPositions = snapshot
		if snapshot.HasActive() {
			return []domain.ChangeEvent{domain.PositionSummary{Snapshot: snapshot}}
		}
		return nil
	}

	previous := t.lastPositions
	t.lastPositions = snapshot

	kind, coin, found := diffPositions(previous, snapshot, t.positionThreshold)
	if !found {
		return nil
	}
	t.logger.InfoContext(ctx, "position change detected",
		slog.String("kind", string(kind)),
		slog.String("coin", coin),
	)
	return []domain.ChangeEvent{domain.PositionChange{Kind: kind, Coin: coin, Snapshot: snapshot}}
}

// diffPositions finds the first change between two snapshots. Current coins
// are scanned for opens and resizes in snapshot order; only if none match
// are previous coins scanned for closes. A zero size and an absent coin both
// mean "no position".
func diffPositions(previous, current domain.PositionSnapshot, threshold float64) (domain.PositionChangeKind, string, bool) {
	prevSizes := previous.Sizes()

	for _, p := range current.Positions {
		if p.Size == 0 {
			continue
		}
		prevSize, held := prevSizes[p.Coin]
		if !held || prevSize == 0 {
			return domain.PositionOpened, p.Coin, true
		}
		if math.Abs(p.Size-prevSize)/math.Abs(prevSize) > threshold {
			return domain.PositionResized, p.Coin, true
		}
	}

	currSizes := current.Sizes()
	for _, p := range previous.Positions {
		if p.Size == 0 {
			continue
		}
		if size, held := currSizes[p.Coin]; !held || size == 0 {
			return domain.PositionClosed, p.Coin, true
		}
	}

	return "", "", false
}

// checkTransfers is stateless: it reports any transfer whose timestamp falls
// within the last poll interval, boundary inclusive.
func (t *WalletTracker) checkTransfers(ctx context.Context) []domain.ChangeEvent {
	transfers, err := t.fetcher.RecentTransfers(ctx, t.wallet.Address)
	if err != nil {
		t.logger.WarnContext(ctx, "transfers unavailable", slog.String("error", err.Error()))
		return []domain.ChangeEvent{domain.FetchError{Source: "transactions", Message: err.Error()}}
	}

	now := t.now()
	var recent []domain.Transfer
	for _, tr := range transfers {
		if now.Sub(tr.Timestamp) <= t.window {
			recent = append(recent, tr)
		}
	}
	if len(recent) == 0 {
		return nil
	}
	return []domain.ChangeEvent{domain.TransferActivity{Transfers: recent}}
}

// Summary is a point-in-time view of one wallet, used by the startup
// notification and the one-shot check mode. The OK flags distinguish a real
// zero from an unavailable fetch.
type Summary struct {
	Wallet          domain.Wallet
	Balance         float64
	BalanceOK       bool
	Snapshot        domain.PositionSnapshot
	SnapshotOK      bool
	RecentTransfers int
	Timestamp       time.Time
}

// Summary fetches a fresh view of the wallet without touching the tracker's
// diff state.
func (t *WalletTracker) Summary(ctx context.Context) Summary {
	s := Summary{Wallet: t.wallet, Timestamp: t.now()}

	if balance, err := t.fetcher.Balance(ctx, t.wallet.Address); err == nil {
		s.Balance = balance
		s.BalanceOK = true
	}
	if snapshot, err := t.fetcher.Positions(ctx, t.wallet.Address); err == nil {
		s.Snapshot = snapshot
		s.SnapshotOK = true
	}
	if transfers, err := t.fetcher.RecentTransfers(ctx, t.wallet.Address); err == nil {
		s.RecentTransfers = len(transfers)
	}
	return s
}
