// Package scheduler runs the periodic scan and keeps at most one execution in flight.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"github.com/yimingwow/solarb/pkg/executor"
	"github.com/yimingwow/solarb/pkg/sol"
	"go.uber.org/zap"
)

type Finder interface {
	FindOpportunity(ctx context.Context, pools []solana.PublicKey, inputMint solana.PublicKey,
		minAmount, maxAmount cosmath.Int, minProfitBps int64) (*arbitrage.Opportunity, error)
}

type Executor interface {
	Execute(ctx context.Context, opp *arbitrage.Opportunity) *executor.Result
}

// ClockReader reports the current slot for cycle logs.
type ClockReader interface {
	GetClock(ctx context.Context) (*sol.Clock, error)
}

type Config struct {
	Interval     time.Duration
	Pools        []solana.PublicKey
	InputMint    solana.PublicKey
	MinAmount    cosmath.Int
	MaxAmount    cosmath.Int
	MinProfitBps int64
}

type Stats struct {
	Cycles        int64
	Opportunities int64
	Skipped       int64
	Executions    int64
	Successes     int64
}

type Loop struct {
	cfg      Config
	finder   Finder
	executor Executor
	clock    ClockReader
	logger   *zap.Logger

	executing atomic.Bool
	inflight  sync.WaitGroup

	cycles        atomic.Int64
	opportunities atomic.Int64
	skipped       atomic.Int64
	executions    atomic.Int64
	successes     atomic.Int64
}

// NewLoop builds a scan loop. A nil executor only logs opportunities; a nil clock skips slot logging.
func NewLoop(cfg Config, finder Finder, exec Executor, clock ClockReader, logger *zap.Logger) (*Loop, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scan interval must be positive")
	}
	if len(cfg.Pools) < 2 {
		return nil, errors.New("at least two pools are needed for a round trip")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:      cfg,
		finder:   finder,
		executor: exec,
		clock:    clock,
		logger:   logger.Named("scheduler"),
	}, nil
}

// Run scans every interval until ctx is cancelled, then waits for an in-flight execution.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.logger.Info("scan loop started",
		zap.Duration("interval", l.cfg.Interval),
		zap.Int("pools", len(l.cfg.Pools)),
		zap.Bool("execute", l.executor != nil))

	l.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			l.inflight.Wait()
			l.logger.Info("scan loop stopped", zap.Any("stats", l.Stats()))
			return nil
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	n := l.cycles.Add(1)
	logger := l.logger.With(zap.Int64("cycle", n))
	if l.clock != nil {
		if clock, err := l.clock.GetClock(ctx); err == nil {
			logger = logger.With(zap.Uint64("slot", clock.Slot))
		}
	}

	opp, err := l.finder.FindOpportunity(ctx, l.cfg.Pools, l.cfg.InputMint, l.cfg.MinAmount, l.cfg.MaxAmount, l.cfg.MinProfitBps)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("scan failed", zap.Error(err))
		}
		return
	}
	if opp == nil {
		logger.Debug("no opportunity")
		return
	}
	l.opportunities.Add(1)

	if l.executor == nil {
		logger.Info("opportunity", zap.Object("opportunity", opp))
		return
	}
	if !l.executing.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		logger.Info("execution in flight, skipping opportunity", zap.Int64("profit_bps", opp.ProfitBasisPoints))
		return
	}

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		defer l.executing.Store(false)
		l.executions.Add(1)
		// A broadcast leg cannot be recalled, so shutdown does not interrupt an execution.
		res := l.executor.Execute(context.WithoutCancel(ctx), opp)
		if res != nil && res.Success {
			l.successes.Add(1)
		}
	}()
}

func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:        l.cycles.Load(),
		Opportunities: l.opportunities.Load(),
		Skipped:       l.skipped.Load(),
		Executions:    l.executions.Load(),
		Successes:     l.successes.Load(),
	}
}
