package tracker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

var testWallet = domain.Wallet{
	ID:      "wallet_1",
	Address: "0x742d35Cc6634C0532925a3b844Bc9e7595f2b21D",
	Name:    "Main",
	Enabled: true,
}

type fakeFetcher struct {
	balance      float64
	balanceErr   error
	snapshot     domain.PositionSnapshot
	positionsErr error
	transfers    []domain.Transfer
	transfersErr error
	panics       bool
}

func (f *fakeFetcher) Balance(context.Context, string) (float64, error) {
	if f.panics {
		panic("boom")
	}
	return f.balance, f.balanceErr
}

func (f *fakeFetcher) Positions(context.Context, string) (domain.PositionSnapshot, error) {
	return f.snapshot, f.positionsErr
}

func (f *fakeFetcher) RecentTransfers(context.Context, string) ([]domain.Transfer, error) {
	return f.transfers, f.transfersErr
}

func snap(sizes map[string]float64) domain.PositionSnapshot {
	var s domain.PositionSnapshot
	for coin, size := range sizes {
		s.Positions = append(s.Positions, domain.Position{Coin: coin, Size: size})
	}
	return s
}

func newTestTracker(f *fakeFetcher) *WalletTracker {
	return NewWalletTracker(testWallet, f, 0.1, 0.05, 600*time.Second, slog.New(slog.DiscardHandler))
}

func eventsOfType(events []domain.ChangeEvent, et domain.EventType) []domain.ChangeEvent {
	var out []domain.ChangeEvent
	for _, e := range events {
		if e.Type() == et {
			out = append(out, e)
		}
	}
	return out
}

func TestSeedingIsSilent(t *testing.T) {
	f := &fakeFetcher{balance: 123.456, snapshot: snap(map[string]float64{"BTC": 1.5})}
	tr := newTestTracker(f)

	events := tr.Check(context.Background())
	if got := eventsOfType(events, domain.EventBalanceChange); len(got) != 0 {
		t.Fatalf("first poll emitted BalanceChange: %+v", got)
	}
	if got := eventsOfType(events, domain.EventPositionEvent); len(got) != 0 {
		t.Fatalf("first poll emitted PositionChange: %+v", got)
	}
	// Active positions on first fetch yield the initial-state signal.
	if got := eventsOfType(events, domain.EventPositionSummary); len(got) != 1 {
		t.Fatalf("expected one PositionSummary, got %d", len(got))
	}

	// Identical second poll: baselines were stored, nothing changed.
	events = tr.Check(context.Background())
	if len(events) != 0 {
		t.Fatalf("identical second poll emitted events: %+v", events)
	}
}

func TestSeedingEmptyAccountIsFullySilent(t *testing.T) {
	f := &fakeFetcher{balance: 0, snapshot: snap(nil)}
	tr := newTestTracker(f)

	if events := tr.Check(context.Background()); len(events) != 0 {
		t.Fatalf("empty account seeding emitted events: %+v", events)
	}
}

func TestBalanceThresholdStrictlyGreater(t *testing.T) {
	f := &fakeFetcher{balance: 10.0}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed

	f.balance = 10.1 // delta == threshold, not significant
	events := tr.Check(context.Background())
	if got := eventsOfType(events, domain.EventBalanceChange); len(got) != 0 {
		t.Fatalf("delta of exactly 0.1 emitted BalanceChange: %+v", got)
	}

	// Fresh tracker so the baseline is 10.0 again.
	f2 := &fakeFetcher{balance: 10.0}
	tr2 := newTestTracker(f2)
	tr2.Check(context.Background())

	f2.balance = 10.1000001
	events = tr2.Check(context.Background())
	got := eventsOfType(events, domain.EventBalanceChange)
	if len(got) != 1 {
		t.Fatalf("delta just over 0.1 emitted %d BalanceChange events, want 1", len(got))
	}
	bc := got[0].(domain.BalanceChange)
	if bc.Old != 10.0 || bc.New != 10.1000001 {
		t.Fatalf("BalanceChange = %+v", bc)
	}
}

func TestBalanceAlwaysAdvances(t *testing.T) {
	f := &fakeFetcher{balance: 10.0}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed

	f.balance = 10.05 // below threshold, no event, but stored anyway
	if got := eventsOfType(tr.Check(context.Background()), domain.EventBalanceChange); len(got) != 0 {
		t.Fatalf("sub-threshold delta emitted event: %+v", got)
	}

	f.balance = 10.2 // 0.15 from 10.05: proves the baseline advanced
	got := eventsOfType(tr.Check(context.Background()), domain.EventBalanceChange)
	if len(got) != 1 {
		t.Fatalf("expected one BalanceChange, got %d", len(got))
	}
	if bc := got[0].(domain.BalanceChange); bc.Old != 10.05 {
		t.Fatalf("baseline did not advance, Old = %v, want 10.05", bc.Old)
	}
}

func TestUnavailableFetchFreezesState(t *testing.T) {
	f := &fakeFetcher{balance: 10.0, snapshot: snap(map[string]float64{"BTC": 1.0})}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed both tracks

	f.balanceErr = domain.ErrUnavailable
	f.positionsErr = domain.ErrUnavailable
	events := tr.Check(context.Background())
	if got := eventsOfType(events, domain.EventFetchError); len(got) != 2 {
		t.Fatalf("expected 2 FetchError events, got %d", len(got))
	}
	if got := eventsOfType(events, domain.EventBalanceChange); len(got) != 0 {
		t.Fatalf("unavailable fetch emitted BalanceChange: %+v", got)
	}
	if got := eventsOfType(events, domain.EventPositionEvent); len(got) != 0 {
		t.Fatalf("unavailable fetch emitted PositionChange: %+v", got)
	}

	// Recovery with sub-threshold values relative to the frozen baseline:
	// still no change events, and the position diff sees the old snapshot.
	f.balanceErr, f.positionsErr = nil, nil
	f.balance = 10.05
	events = tr.Check(context.Background())
	if got := eventsOfType(events, domain.EventBalanceChange); len(got) != 0 {
		t.Fatalf("frozen baseline moved during outage: %+v", got)
	}
	if got := eventsOfType(events, domain.EventPositionEvent); len(got) != 0 {
		t.Fatalf("frozen snapshot moved during outage: %+v", got)
	}
}

func TestPositionOpenedBeatsClosed(t *testing.T) {
	f := &fakeFetcher{snapshot: snap(map[string]float64{"BTC": 1.0})}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed

	// BTC closed and ETH opened in the same poll: opened wins.
	f.snapshot = domain.PositionSnapshot{Positions: []domain.Position{
		{Coin: "BTC", Size: 0},
		{Coin: "ETH", Size: 2.0},
	}}
	got := eventsOfType(tr.Check(context.Background()), domain.EventPositionEvent)
	if len(got) != 1 {
		t.Fatalf("expected one PositionChange, got %d", len(got))
	}
	pc := got[0].(domain.PositionChange)
	if pc.Kind != domain.PositionOpened || pc.Coin != "ETH" {
		t.Fatalf("got %s/%s, want opened/ETH", pc.Kind, pc.Coin)
	}
}

func TestPositionResizeThresholdStrictlyGreater(t *testing.T) {
	f := &fakeFetcher{snapshot: snap(map[string]float64{"BTC": 1.0})}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed

	f.snapshot = snap(map[string]float64{"BTC": 1.05}) // exactly 5%
	if got := eventsOfType(tr.Check(context.Background()), domain.EventPositionEvent); len(got) != 0 {
		t.Fatalf("5%% exactly emitted change: %+v", got)
	}

	f.snapshot = snap(map[string]float64{"BTC": 1.111}) // ~5.8% from 1.05
	got := eventsOfType(tr.Check(context.Background()), domain.EventPositionEvent)
	if len(got) != 1 {
		t.Fatalf("expected one PositionChange, got %d", len(got))
	}
	pc := got[0].(domain.PositionChange)
	if pc.Kind != domain.PositionResized || pc.Coin != "BTC" {
		t.Fatalf("got %s/%s, want changed/BTC", pc.Kind, pc.Coin)
	}
}

func TestPositionClosedDetected(t *testing.T) {
	f := &fakeFetcher{snapshot: snap(map[string]float64{"BTC": -2.0})}
	tr := newTestTracker(f)
	tr.Check(context.Background()) // seed

	f.snapshot = snap(nil)
	got := eventsOfType(tr.Check(context.Background()), domain.EventPositionEvent)
	if len(got) != 1 {
		t.Fatalf("expected one PositionChange, got %d", len(got))
	}
	pc := got[0].(domain.PositionChange)
	if pc.Kind != domain.PositionClosed || pc.Coin != "BTC" {
		t.Fatalf("got %s/%s, want closed/BTC", pc.Kind, pc.Coin)
	}
}

func TestTransferWindowBoundaryInclusive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeFetcher{transfers: []domain.Transfer{
		{Hash: "0xa", Asset: "ETH", Timestamp: now.Add(-600 * time.Second)}, // exactly on the boundary
		{Hash: "0xb", Asset: "ETH", Timestamp: now.Add(-601 * time.Second)}, // one second too old
	}}
	tr := newTestTracker(f)
	tr.now = func() time.Time { return now }

	got := eventsOfType(tr.Check(context.Background()), domain.EventTransfer)
	if len(got) != 1 {
		t.Fatalf("expected one TransferActivity, got %d", len(got))
	}
	ta := got[0].(domain.TransferActivity)
	if len(ta.Transfers) != 1 || ta.Transfers[0].Hash != "0xa" {
		t.Fatalf("window filter kept %+v, want only 0xa", ta.Transfers)
	}
}
