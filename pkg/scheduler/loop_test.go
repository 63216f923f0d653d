package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"github.com/yimingwow/solarb/pkg/executor"
	"go.uber.org/zap"
)

type fakeFinder struct {
	calls atomic.Int64
	err   error
}

func (f *fakeFinder) FindOpportunity(ctx context.Context, pools []solana.PublicKey, inputMint solana.PublicKey,
	minAmount, maxAmount cosmath.Int, minProfitBps int64) (*arbitrage.Opportunity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &arbitrage.Opportunity{
		InputAmount:       minAmount,
		ProfitAmount:      cosmath.NewInt(1),
		ProfitBasisPoints: 10,
	}, nil
}

// blockingExecutor holds every execution until release is closed.
type blockingExecutor struct {
	release chan struct{}
	started chan struct{}
	running atomic.Int64
	maxSeen atomic.Int64
	calls   atomic.Int64
	ctxErr  atomic.Value
}

func (e *blockingExecutor) Execute(ctx context.Context, opp *arbitrage.Opportunity) *executor.Result {
	e.calls.Add(1)
	n := e.running.Add(1)
	for {
		m := e.maxSeen.Load()
		if n <= m || e.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case e.started <- struct{}{}:
	default:
	}
	<-e.release
	if ctx.Err() != nil {
		e.ctxErr.Store(ctx.Err())
	}
	e.running.Add(-1)
	return &executor.Result{Success: true}
}

func testConfig() Config {
	return Config{
		Interval:     2 * time.Millisecond,
		Pools:        []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()},
		MinAmount:    cosmath.NewInt(1_000),
		MaxAmount:    cosmath.NewInt(10_000),
		MinProfitBps: 5,
	}
}

func TestLoopSingleExecutionInFlight(t *testing.T) {
	finder := &fakeFinder{}
	exec := &blockingExecutor{release: make(chan struct{}), started: make(chan struct{}, 1)}
	loop, err := NewLoop(testConfig(), finder, exec, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	<-exec.started
	// Keep scanning while the execution is blocked.
	deadline := time.After(2 * time.Second)
	for finder.calls.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("scans stalled during execution: %d", finder.calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if exec.calls.Load() != 1 {
		t.Fatalf("executions while one in flight = %d", exec.calls.Load())
	}

	cancel()
	select {
	case <-done:
		t.Fatalf("Run returned before the in-flight execution finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(exec.release)
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	if exec.maxSeen.Load() != 1 {
		t.Fatalf("max concurrent executions = %d", exec.maxSeen.Load())
	}
	if exec.ctxErr.Load() != nil {
		t.Fatalf("execution context was cancelled")
	}
	stats := loop.Stats()
	if stats.Skipped == 0 || stats.Executions != 1 || stats.Successes != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLoopScanOnly(t *testing.T) {
	finder := &fakeFinder{err: errors.New("rpc down")}
	loop, err := NewLoop(testConfig(), finder, nil, nil, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if finder.calls.Load() == 0 || loop.Stats().Opportunities != 0 {
		t.Fatalf("stats = %+v", loop.Stats())
	}
}

func TestNewLoopValidates(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 0
	if _, err := NewLoop(cfg, &fakeFinder{}, nil, nil, nil); err == nil {
		t.Fatalf("zero interval accepted")
	}
	cfg = testConfig()
	cfg.Pools = cfg.Pools[:1]
	if _, err := NewLoop(cfg, &fakeFinder{}, nil, nil, nil); err == nil {
		t.Fatalf("single pool accepted")
	}
}
