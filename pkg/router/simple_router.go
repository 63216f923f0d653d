package router

import (
	"context"
	"fmt"
	"sync"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap"
)

// PoolLoader discovers pools and loads the tick arrays a swap needs.
type PoolLoader interface {
	FetchPoolsByPair(ctx context.Context, mintX, mintY solana.PublicKey) ([]*whirlpool.Pool, error)
	FetchSwapTickArrays(ctx context.Context, pool *whirlpool.Pool, d whirlpool.Direction) ([]*whirlpool.TickArray, error)
}

// SimpleRouter finds the pool giving the most output for a single swap.
type SimpleRouter struct {
	Loader PoolLoader
	Quoter *whirlpool.QuoteEngine
	Pools  []*whirlpool.Pool
	logger *zap.Logger
}

func NewSimpleRouter(loader PoolLoader, quoter *whirlpool.QuoteEngine, logger *zap.Logger) *SimpleRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimpleRouter{
		Loader: loader,
		Quoter: quoter,
		Pools:  []*whirlpool.Pool{},
		logger: logger.Named("router"),
	}
}

func (r *SimpleRouter) QueryAllPools(ctx context.Context, baseMint, quoteMint solana.PublicKey) error {
	pools, err := r.Loader.FetchPoolsByPair(ctx, baseMint, quoteMint)
	if err != nil {
		return fmt.Errorf("failed to query pools for %s/%s: %w", baseMint, quoteMint, err)
	}
	r.Pools = pools
	r.logger.Info("pools loaded", zap.Int("count", len(pools)))
	return nil
}

// Route is the best pool for a swap and its exact quote.
type Route struct {
	Pool  *whirlpool.Pool
	Quote *whirlpool.SwapQuote
}

// GetBestPool quotes every loaded pool concurrently with the tick-crossing simulator and
// returns the one with the highest output. Pools that fail to quote are skipped.
func (r *SimpleRouter) GetBestPool(ctx context.Context, tokenIn solana.PublicKey, amountIn cosmath.Int) (*Route, error) {
	type quoteResult struct {
		pool  *whirlpool.Pool
		quote *whirlpool.SwapQuote
		err   error
	}

	resultChan := make(chan quoteResult, len(r.Pools))
	var wg sync.WaitGroup

	for _, pool := range r.Pools {
		wg.Add(1)
		go func(p *whirlpool.Pool) {
			defer wg.Done()
			q, err := r.quotePool(ctx, p, tokenIn, amountIn)
			resultChan <- quoteResult{pool: p, quote: q, err: err}
		}(pool)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var best *Route
	for result := range resultChan {
		if result.err != nil {
			r.logger.Debug("quote failed", zap.Stringer("pool", result.pool.Address), zap.Error(result.err))
			continue
		}
		if best == nil || result.quote.EstimatedAmountOut.GT(best.Quote.EstimatedAmountOut) ||
			(result.quote.EstimatedAmountOut.Equal(best.Quote.EstimatedAmountOut) &&
				result.pool.Address.String() < best.Pool.Address.String()) {
			best = &Route{Pool: result.pool, Quote: result.quote}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no route found for %s", tokenIn)
	}
	return best, nil
}

func (r *SimpleRouter) quotePool(ctx context.Context, p *whirlpool.Pool, tokenIn solana.PublicKey, amountIn cosmath.Int) (*whirlpool.SwapQuote, error) {
	d, err := p.DirectionFor(tokenIn)
	if err != nil {
		return nil, err
	}
	arrays, err := r.Loader.FetchSwapTickArrays(ctx, p, d)
	if err != nil {
		return nil, err
	}
	return r.Quoter.ExactQuote(p, arrays, amountIn, d)
}
