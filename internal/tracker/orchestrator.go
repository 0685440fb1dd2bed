package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// ExecutionMode selects how the orchestrator walks the wallet set.
type ExecutionMode string

const (
	ModeSequential ExecutionMode = "sequential"
	ModeConcurrent ExecutionMode = "concurrent"
)

// Result is one wallet's outcome for a batch: either its change events or a
// per-wallet error. One wallet failing never aborts the batch.
type Result struct {
	Wallet domain.Wallet
	Events []domain.ChangeEvent
	Err    error
}

// Orchestrator fans the per-wallet check across every enabled wallet,
// sequentially or concurrently. The two modes produce the same results;
// only latency differs.
type Orchestrator struct {
	trackers map[string]*WalletTracker
	order    []string // config order, used by sequential mode
	mode     ExecutionMode
	maxConc  int
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given trackers. Wallets
// are checked in the order the trackers slice provides when running
// sequentially.
func NewOrchestrator(trackers []*WalletTracker, mode ExecutionMode, maxConcurrent int, logger *slog.Logger) *Orchestrator {
	byID := make(map[string]*WalletTracker, len(trackers))
	order := make([]string, 0, len(trackers))
	for _, t := range trackers {
		byID[t.Wallet().ID] = t
		order = append(order, t.Wallet().ID)
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		trackers: byID,
		order:    order,
		mode:     mode,
		maxConc:  maxConcurrent,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// WalletIDs returns the configured wallet ids in order.
func (o *Orchestrator) WalletIDs() []string {
	return o.order
}

// CheckAll runs one batch over every wallet and returns a result per wallet
// id. In concurrent mode a failure of the concurrent machinery itself (not
// of an individual wallet) falls back to a sequential pass for the batch.
func (o *Orchestrator) CheckAll(ctx context.Context) map[string]Result {
	if o.mode == ModeConcurrent {
		results, err := o.checkConcurrent(ctx)
		if err == nil {
			return results
		}
		o.logger.WarnContext(ctx, "concurrent batch failed, falling back to sequential",
			slog.String("error", err.Error()),
		)
	}
	return o.checkSequential(ctx)
}

func (o *Orchestrator) checkSequential(ctx context.Context) map[string]Result {
	results := make(map[string]Result, len(o.order))
	for _, id := range o.order {
		results[id] = o.checkOne(ctx, o.trackers[id])
	}
	return results
}

func (o *Orchestrator) checkConcurrent(ctx context.Context) (results map[string]Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("orchestrator: concurrent batch panicked: %v", r)
		}
	}()

	results = make(map[string]Result, len(o.order))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConc)
	for _, id := range o.order {
		t := o.trackers[id]
		g.Go(func() error {
			res := o.checkOne(gctx, t)
			mu.Lock()
			results[t.Wallet().ID] = res
			mu.Unlock()
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return nil, fmt.Errorf("orchestrator: %w", werr)
	}
	return results, nil
}

// checkOne isolates a single wallet: a panic inside its checks becomes a
// per-wallet error entry instead of taking the batch down.
func (o *Orchestrator) checkOne(ctx context.Context, t *WalletTracker) (res Result) {
	res.Wallet = t.Wallet()
	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "wallet check panicked",
				slog.String("wallet", t.Wallet().ID),
				slog.Any("panic", r),
			)
			res.Events = nil
			res.Err = fmt.Errorf("wallet %s: check panicked: %v", t.Wallet().ID, r)
		}
	}()
	res.Events = t.Check(ctx)
	return res
}

// Summaries fetches a fresh summary per wallet, isolating failures the same
// way CheckAll does.
func (o *Orchestrator) Summaries(ctx context.Context) map[string]Summary {
	summaries := make(map[string]Summary, len(o.order))
	for _, id := range o.order {
		summaries[id] = o.trackers[id].Summary(ctx)
	}
	return summaries
}
