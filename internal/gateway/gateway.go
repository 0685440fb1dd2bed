// Package gateway wraps the raw platform clients with the resilience stack
// and normalizes provider payloads into domain types. Every call runs as
// throttle, then circuit breaker, then retry-with-backoff around the raw
// HTTP request. On any unrecoverable failure the gateway returns an error
// that callers must read as "no new information": never as a zero value.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
	"github.com/ozanylmz/walletwatch/internal/platform/etherscan"
	"github.com/ozanylmz/walletwatch/internal/platform/hyperliquid"
	"github.com/ozanylmz/walletwatch/internal/resilience"
)

// EtherscanAPI is the slice of the Etherscan client the gateway needs.
type EtherscanAPI interface {
	Balance(ctx context.Context, address string) (float64, error)
	NormalTransactions(ctx context.Context, address string, limit int) ([]etherscan.Transaction, error)
	TokenTransfers(ctx context.Context, address string, limit int) ([]etherscan.TokenTransfer, error)
}

// HyperliquidAPI is the slice of the Hyperliquid client the gateway needs.
type HyperliquidAPI interface {
	ClearinghouseState(ctx context.Context, user string) (*hyperliquid.ClearinghouseState, error)
}

// Config tunes the per-endpoint-class resilience stacks. Each provider has
// its own breaker so a flaky Etherscan never trips the Hyperliquid path, and
// operators can tune the two independently.
type Config struct {
	EtherscanRate   float64 // calls per second
	HyperliquidRate float64

	EtherscanBreakerThreshold int
	EtherscanBreakerRecovery  time.Duration

	HyperliquidBreakerThreshold int
	HyperliquidBreakerRecovery  time.Duration

	EtherscanRetries  int
	EtherscanBackoff  time.Duration
	EtherscanMaxDelay time.Duration

	HyperliquidRetries  int
	HyperliquidBackoff  time.Duration
	HyperliquidMaxDelay time.Duration

	EthTxLimit   int // normal transactions fetched per transfer check
	TokenTxLimit int // token transfers fetched per transfer check
}

// DefaultConfig returns the stock tuning: conservative Etherscan pacing, a
// 3-failure/60s breaker per provider, and slightly tighter retries on the
// positions path.
func DefaultConfig() Config {
	return Config{
		EtherscanRate:               2,
		HyperliquidRate:             10,
		EtherscanBreakerThreshold:   3,
		EtherscanBreakerRecovery:    60 * time.Second,
		HyperliquidBreakerThreshold: 3,
		HyperliquidBreakerRecovery:  60 * time.Second,
		EtherscanRetries:            3,
		EtherscanBackoff:            time.Second,
		EtherscanMaxDelay:           30 * time.Second,
		HyperliquidRetries:          2,
		HyperliquidBackoff:          time.Second,
		HyperliquidMaxDelay:         20 * time.Second,
		EthTxLimit:                  5,
		TokenTxLimit:                10,
	}
}

// stack is one endpoint class's throttler + breaker + retry, shared by every
// wallet routed through that provider.
type stack struct {
	throttler *resilience.Throttler
	breaker   *resilience.CircuitBreaker
	retry     *resilience.Retry
}

func (s *stack) run(ctx context.Context, fn func() error) error {
	if err := s.throttler.Wait(ctx); err != nil {
		return err
	}
	return s.breaker.Call(func() error {
		return s.retry.Do(ctx, fn)
	})
}

// Gateway is the resilient fetch layer for all three endpoint classes.
// Etherscan balance and transaction calls share one stack; Hyperliquid
// position calls have their own.
type Gateway struct {
	eth EtherscanAPI
	hl  HyperliquidAPI

	etherscan   *stack
	hyperliquid *stack

	ethTxLimit   int
	tokenTxLimit int
}

// New creates a Gateway around the given raw clients.
func New(eth EtherscanAPI, hl HyperliquidAPI, cfg Config) *Gateway {
	return &Gateway{
		eth: eth,
		hl:  hl,
		etherscan: &stack{
			throttler: resilience.NewThrottler(cfg.EtherscanRate),
			breaker:   resilience.NewCircuitBreaker(cfg.EtherscanBreakerThreshold, cfg.EtherscanBreakerRecovery),
			retry:     resilience.NewRetry(cfg.EtherscanRetries, cfg.EtherscanBackoff, cfg.EtherscanMaxDelay),
		},
		hyperliquid: &stack{
			throttler: resilience.NewThrottler(cfg.HyperliquidRate),
			breaker:   resilience.NewCircuitBreaker(cfg.HyperliquidBreakerThreshold, cfg.HyperliquidBreakerRecovery),
			retry:     resilience.NewRetry(cfg.HyperliquidRetries, cfg.HyperliquidBackoff, cfg.HyperliquidMaxDelay),
		},
		ethTxLimit:   cfg.EthTxLimit,
		tokenTxLimit: cfg.TokenTxLimit,
	}
}

// Balance fetches the wallet's ETH balance through the Etherscan stack.
func (g *Gateway) Balance(ctx context.Context, address string) (float64, error) {
	var out float64
	err := g.etherscan.run(ctx, func() error {
		v, err := g.eth.Balance(ctx, address)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return 0, unavailable("balance", err)
	}
	return out, nil
}

// Positions fetches the wallet's perp snapshot through the Hyperliquid stack.
func (g *Gateway) Positions(ctx context.Context, address string) (domain.PositionSnapshot, error) {
	var state *hyperliquid.ClearinghouseState
	err := g.hyperliquid.run(ctx, func() error {
		s, err := g.hl.ClearinghouseState(ctx, address)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return domain.PositionSnapshot{}, unavailable("positions", err)
	}
	return normalizeSnapshot(state), nil
}

// RecentTransfers fetches the wallet's most recent normal transactions and
// token transfers and normalizes them. The two list calls each take their own
// throttle slot and retry policy, so a token-transfer failure never replays
// an already-successful transaction fetch. ETH entries that are contract
// errors, carry no value, or do not touch the wallet are dropped here; the
// recency window is the caller's concern.
func (g *Gateway) RecentTransfers(ctx context.Context, address string) ([]domain.Transfer, error) {
	var txs []etherscan.Transaction
	err := g.etherscan.run(ctx, func() error {
		t, err := g.eth.NormalTransactions(ctx, address, g.ethTxLimit)
		if err != nil {
			return err
		}
		txs = t
		return nil
	})
	if err != nil {
		return nil, unavailable("transactions", err)
	}

	var tokens []etherscan.TokenTransfer
	err = g.etherscan.run(ctx, func() error {
		tt, err := g.eth.TokenTransfers(ctx, address, g.tokenTxLimit)
		if err != nil {
			return err
		}
		tokens = tt
		return nil
	})
	if err != nil {
		return nil, unavailable("token transfers", err)
	}

	transfers := make([]domain.Transfer, 0, len(txs)+len(tokens))
	for _, tx := range txs {
		if tx.IsError != "0" && tx.IsError != "" {
			continue
		}
		if !strings.EqualFold(tx.From, address) && !strings.EqualFold(tx.To, address) {
			continue
		}
		amount, err := tx.ValueEther()
		if err != nil || amount <= 0 {
			continue
		}
		transfers = append(transfers, domain.Transfer{
			Hash:      tx.Hash,
			From:      tx.From,
			To:        tx.To,
			Asset:     "ETH",
			Amount:    amount,
			Direction: direction(address, tx.To),
			Timestamp: tx.Time(),
		})
	}
	for _, tk := range tokens {
		amount, err := tk.Amount()
		if err != nil {
			continue
		}
		asset := tk.TokenSymbol
		if asset == "" {
			asset = "Unknown"
		}
		transfers = append(transfers, domain.Transfer{
			Hash:      tk.Hash,
			From:      tk.From,
			To:        tk.To,
			Asset:     asset,
			Amount:    amount,
			Direction: direction(address, tk.To),
			Timestamp: tk.Time(),
		})
	}
	return transfers, nil
}

// EtherscanBreakerState exposes the Etherscan breaker state for status logs.
func (g *Gateway) EtherscanBreakerState() resilience.BreakerState {
	return g.etherscan.breaker.State()
}

// HyperliquidBreakerState exposes the Hyperliquid breaker state.
func (g *Gateway) HyperliquidBreakerState() resilience.BreakerState {
	return g.hyperliquid.breaker.State()
}

// unavailable tags a terminal stack failure with domain.ErrUnavailable so
// callers can test for the sentinel instead of inspecting the cause chain.
func unavailable(what string, err error) error {
	return fmt.Errorf("gateway: %s: %w: %w", what, domain.ErrUnavailable, err)
}

func direction(wallet, to string) domain.TransferDirection {
	if strings.EqualFold(wallet, to) {
		return domain.TransferIn
	}
	return domain.TransferOut
}

func normalizeSnapshot(state *hyperliquid.ClearinghouseState) domain.PositionSnapshot {
	margin := domain.MarginSummary{
		AccountValue:    hyperliquid.Num(state.MarginSummary.AccountValue),
		TotalNotional:   hyperliquid.Num(state.MarginSummary.TotalNtlPos),
		TotalMarginUsed: hyperliquid.Num(state.MarginSummary.TotalMarginUsed),
	}
	if margin.AccountValue > 0 {
		margin.MarginUsage = margin.TotalMarginUsed / margin.AccountValue
	}

	positions := make([]domain.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		p := ap.Position
		pos := domain.Position{
			Coin:             p.Coin,
			Size:             hyperliquid.Num(p.Szi),
			EntryPrice:       hyperliquid.Num(p.EntryPx),
			Value:            hyperliquid.Num(p.PositionValue),
			UnrealizedPnL:    hyperliquid.Num(p.UnrealizedPnl),
			Leverage:         p.Leverage.Value,
			LiquidationPrice: hyperliquid.Num(p.LiquidationPx),
			MarginUsed:       hyperliquid.Num(p.MarginUsed),
			ReturnOnEquity:   hyperliquid.Num(p.ReturnOnEquity),
			FundingSinceOpen: hyperliquid.Num(p.CumFunding.SinceOpen),
		}
		margin.UnrealizedPnL += pos.UnrealizedPnL
		positions = append(positions, pos)
	}
	return domain.PositionSnapshot{Margin: margin, Positions: positions}
}
