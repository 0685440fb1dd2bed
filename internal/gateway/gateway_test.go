package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
	"github.com/ozanylmz/walletwatch/internal/platform/etherscan"
	"github.com/ozanylmz/walletwatch/internal/platform/hyperliquid"
)

const wallet = "0xAbCd35Cc6634C0532925a3b844Bc9e7595f2B21d"

// fastConfig keeps retry delays and rate limits out of the test's way.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.EtherscanRate = 10000
	cfg.HyperliquidRate = 10000
	cfg.EtherscanBackoff = time.Microsecond
	cfg.EtherscanMaxDelay = time.Microsecond
	cfg.HyperliquidBackoff = time.Microsecond
	cfg.HyperliquidMaxDelay = time.Microsecond
	return cfg
}

type fakeEtherscan struct {
	balance      float64
	balanceErr   error
	balanceCalls int
	txs          []etherscan.Transaction
	txErr        error
	txCalls      int
	tokens       []etherscan.TokenTransfer
	tokenErr     error
	tokenCalls   int
}

func (f *fakeEtherscan) Balance(context.Context, string) (float64, error) {
	f.balanceCalls++
	return f.balance, f.balanceErr
}

func (f *fakeEtherscan) NormalTransactions(context.Context, string, int) ([]etherscan.Transaction, error) {
	f.txCalls++
	return f.txs, f.txErr
}

func (f *fakeEtherscan) TokenTransfers(context.Context, string, int) ([]etherscan.TokenTransfer, error) {
	f.tokenCalls++
	return f.tokens, f.tokenErr
}

type fakeHyperliquid struct {
	state *hyperliquid.ClearinghouseState
	err   error
	calls int
}

func (f *fakeHyperliquid) ClearinghouseState(context.Context, string) (*hyperliquid.ClearinghouseState, error) {
	f.calls++
	return f.state, f.err
}

func TestBalancePassesThrough(t *testing.T) {
	eth := &fakeEtherscan{balance: 12.5}
	g := New(eth, &fakeHyperliquid{}, fastConfig())

	got, err := g.Balance(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Balance returned %v", err)
	}
	if got != 12.5 {
		t.Fatalf("Balance = %v, want 12.5", got)
	}
}

func TestTransientFailuresRetriedThenSurfaced(t *testing.T) {
	eth := &fakeEtherscan{balanceErr: domain.Transientf("connection reset")}
	cfg := fastConfig()
	cfg.EtherscanRetries = 3
	g := New(eth, &fakeHyperliquid{}, cfg)

	_, err := g.Balance(context.Background(), wallet)
	if !domain.IsTransient(err) {
		t.Fatalf("expected the last transient error back, got %v", err)
	}
	// 1 initial attempt + 3 retries, all within a single breaker call.
	if eth.balanceCalls != 4 {
		t.Fatalf("raw call invoked %d times, want 4", eth.balanceCalls)
	}
	if g.EtherscanBreakerState() != "closed" {
		t.Fatalf("one exhausted call must count as one breaker failure, state = %s", g.EtherscanBreakerState())
	}
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	hl := &fakeHyperliquid{err: domain.Transientf("timeout")}
	cfg := fastConfig()
	cfg.HyperliquidRetries = 0
	cfg.HyperliquidBreakerThreshold = 2
	g := New(&fakeEtherscan{}, hl, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := g.Positions(ctx, wallet); err == nil {
			t.Fatal("expected failure")
		}
	}
	if g.HyperliquidBreakerState() != "open" {
		t.Fatalf("breaker state = %s, want open", g.HyperliquidBreakerState())
	}

	before := hl.calls
	_, err := g.Positions(ctx, wallet)
	if !errors.Is(err, domain.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if hl.calls != before {
		t.Fatal("raw call invoked while breaker open")
	}
}

func TestBreakerTunablesPerProvider(t *testing.T) {
	eth := &fakeEtherscan{balanceErr: domain.Transientf("reset")}
	hl := &fakeHyperliquid{err: domain.Transientf("timeout")}
	cfg := fastConfig()
	cfg.EtherscanRetries = 0
	cfg.HyperliquidRetries = 0
	cfg.EtherscanBreakerThreshold = 3
	cfg.HyperliquidBreakerThreshold = 1
	g := New(eth, hl, cfg)

	ctx := context.Background()
	if _, err := g.Positions(ctx, wallet); err == nil {
		t.Fatal("expected failure")
	}
	if g.HyperliquidBreakerState() != "open" {
		t.Fatalf("hyperliquid breaker with threshold 1 must open after one exhausted call, state = %s", g.HyperliquidBreakerState())
	}

	if _, err := g.Balance(ctx, wallet); err == nil {
		t.Fatal("expected failure")
	}
	if g.EtherscanBreakerState() != "closed" {
		t.Fatalf("etherscan breaker with threshold 3 must stay closed after one failure, state = %s", g.EtherscanBreakerState())
	}
}

func TestTokenTransferFailureDoesNotReplayTransactions(t *testing.T) {
	eth := &fakeEtherscan{
		txs:      []etherscan.Transaction{{Hash: "0x1", From: "0xother", To: wallet, Value: "1000000000000000000", TimeStamp: "1700000000", IsError: "0"}},
		tokenErr: domain.Transientf("rate limited"),
	}
	cfg := fastConfig()
	cfg.EtherscanRetries = 2
	g := New(eth, &fakeHyperliquid{}, cfg)

	_, err := g.RecentTransfers(context.Background(), wallet)
	if err == nil {
		t.Fatal("expected failure from the token-transfer call")
	}
	if eth.txCalls != 1 {
		t.Errorf("transaction list fetched %d times, want 1: a token-transfer retry must not replay it", eth.txCalls)
	}
	if eth.tokenCalls != 3 {
		t.Errorf("token transfers fetched %d times, want 1 attempt + 2 retries", eth.tokenCalls)
	}
}

func TestTerminalFailuresCarryUnavailableSentinel(t *testing.T) {
	eth := &fakeEtherscan{
		balanceErr: domain.Transientf("reset"),
		txErr:      domain.Transientf("reset"),
	}
	hl := &fakeHyperliquid{err: domain.Transientf("timeout")}
	cfg := fastConfig()
	cfg.EtherscanRetries = 0
	cfg.HyperliquidRetries = 0
	cfg.HyperliquidBreakerThreshold = 1
	g := New(eth, hl, cfg)

	ctx := context.Background()
	if _, err := g.Balance(ctx, wallet); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("exhausted balance call = %v, want ErrUnavailable in chain", err)
	}
	if _, err := g.RecentTransfers(ctx, wallet); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("exhausted transfers call = %v, want ErrUnavailable in chain", err)
	}

	// A fail-fast rejection is still "no data": both sentinels are present
	// so callers can tell the two apart.
	if _, err := g.Positions(ctx, wallet); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("exhausted positions call = %v, want ErrUnavailable in chain", err)
	}
	_, err := g.Positions(ctx, wallet)
	if !errors.Is(err, domain.ErrUnavailable) || !errors.Is(err, domain.ErrBreakerOpen) {
		t.Errorf("breaker-open positions call = %v, want both ErrUnavailable and ErrBreakerOpen", err)
	}
}

func TestPositionsNormalization(t *testing.T) {
	hl := &fakeHyperliquid{state: &hyperliquid.ClearinghouseState{
		MarginSummary: &hyperliquid.RawMarginSummary{
			AccountValue:    "10000",
			TotalNtlPos:     "25000",
			TotalMarginUsed: "2500",
		},
		AssetPositions: []hyperliquid.RawAssetPosition{
			{Position: hyperliquid.RawPosition{
				Coin: "ETH", Szi: "4.0", EntryPx: "2500", PositionValue: "10000",
				UnrealizedPnl: "150.5", Leverage: hyperliquid.RawLeverage{Value: 5},
			}},
			{Position: hyperliquid.RawPosition{
				Coin: "BTC", Szi: "-0.25", EntryPx: "60000", PositionValue: "15000",
				UnrealizedPnl: "-50.5", Leverage: hyperliquid.RawLeverage{Value: 10},
			}},
		},
	}}
	g := New(&fakeEtherscan{}, hl, fastConfig())

	snap, err := g.Positions(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Positions returned %v", err)
	}
	if snap.Margin.MarginUsage != 0.25 {
		t.Errorf("margin usage = %v, want 0.25", snap.Margin.MarginUsage)
	}
	if snap.Margin.UnrealizedPnL != 100.0 {
		t.Errorf("summed unrealized pnl = %v, want 100.0", snap.Margin.UnrealizedPnL)
	}
	sizes := snap.Sizes()
	if sizes["ETH"] != 4.0 || sizes["BTC"] != -0.25 {
		t.Errorf("sizes = %v", sizes)
	}
	if !snap.HasActive() {
		t.Error("snapshot with open positions reported no active positions")
	}
}

func TestRecentTransfersNormalization(t *testing.T) {
	eth := &fakeEtherscan{
		txs: []etherscan.Transaction{
			{Hash: "0x1", From: "0xother", To: wallet, Value: "1000000000000000000", TimeStamp: "1700000000", IsError: "0"},
			{Hash: "0x2", From: wallet, To: "0xother", Value: "0", TimeStamp: "1700000000", IsError: "0"},       // zero value
			{Hash: "0x3", From: "0xother", To: wallet, Value: "1000000000000000000", TimeStamp: "1700000000", IsError: "1"}, // contract error
			{Hash: "0x4", From: "0xaaa", To: "0xbbb", Value: "1000000000000000000", TimeStamp: "1700000000", IsError: "0"},  // not our wallet
		},
		tokens: []etherscan.TokenTransfer{
			{Hash: "0x5", From: wallet, To: "0xother", Value: "7000000", TimeStamp: "1700000050", TokenSymbol: "USDC", TokenDecimal: "6"},
			{Hash: "0x6", From: "0xother", To: wallet, Value: "1", TimeStamp: "1700000060", TokenDecimal: "0"},
		},
	}
	g := New(eth, &fakeHyperliquid{}, fastConfig())

	transfers, err := g.RecentTransfers(context.Background(), wallet)
	if err != nil {
		t.Fatalf("RecentTransfers returned %v", err)
	}
	if len(transfers) != 3 {
		t.Fatalf("got %d transfers, want 3: %+v", len(transfers), transfers)
	}

	if transfers[0].Asset != "ETH" || transfers[0].Direction != domain.TransferIn || transfers[0].Amount != 1.0 {
		t.Errorf("eth transfer normalized wrong: %+v", transfers[0])
	}
	if transfers[1].Asset != "USDC" || transfers[1].Direction != domain.TransferOut || transfers[1].Amount != 7.0 {
		t.Errorf("usdc transfer normalized wrong: %+v", transfers[1])
	}
	if transfers[2].Asset != "Unknown" {
		t.Errorf("missing token symbol should read Unknown, got %q", transfers[2].Asset)
	}
}
