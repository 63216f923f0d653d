package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PoolSource loads a fresh pool snapshot.
type PoolSource interface {
	FetchPoolByID(ctx context.Context, id solana.PublicKey) (*whirlpool.Pool, error)
}

// Quoter prices a single leg. *whirlpool.QuoteEngine is the production implementation.
type Quoter interface {
	Quote(pool *whirlpool.Pool, amountIn cosmath.Int, d whirlpool.Direction) (*whirlpool.SwapQuote, error)
}

type Options struct {
	// Workers bounds concurrent pair evaluations; zero or less means one.
	Workers int
	// GasEstimate is the per-leg cost in input token units.
	GasEstimate uint64
}

// Finder scans ordered pool pairs for profitable round trips.
type Finder struct {
	source PoolSource
	quoter Quoter
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewFinder(source PoolSource, quoter Quoter, opts Options, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Finder{
		source: source,
		quoter: quoter,
		opts:   opts,
		logger: logger.Named("finder"),
		now:    time.Now,
	}
}

type pair struct {
	first  solana.PublicKey
	second solana.PublicKey
}

// candidate is a scored pair with the snapshots it was scored on, reused for refinement.
type candidate struct {
	opp    *Opportunity
	first  *whirlpool.Pool
	second *whirlpool.Pool
}

// orderedPairs lists every (P1, P2) with P1 != P2, in input order.
func orderedPairs(pools []solana.PublicKey) []pair {
	seen := make(map[solana.PublicKey]struct{}, len(pools))
	unique := make([]solana.PublicKey, 0, len(pools))
	for _, p := range pools {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	out := make([]pair, 0, len(unique)*(len(unique)-1))
	for i := range unique {
		for j := range unique {
			if i != j {
				out = append(out, pair{first: unique[i], second: unique[j]})
			}
		}
	}
	return out
}

// FindOpportunity returns the most profitable round trip starting and ending in inputMint, or
// nil when no pair clears minProfitBps. Pairs that cannot be loaded or quoted are skipped.
func (f *Finder) FindOpportunity(ctx context.Context, pools []solana.PublicKey, inputMint solana.PublicKey,
	minAmount, maxAmount cosmath.Int, minProfitBps int64) (*Opportunity, error) {
	if minAmount.IsNil() || !minAmount.IsPositive() {
		return nil, errors.New("minimum amount must be positive")
	}
	if maxAmount.IsNil() || maxAmount.LT(minAmount) {
		return nil, fmt.Errorf("maximum amount %s is below minimum %s", maxAmount, minAmount)
	}

	pairs := orderedPairs(pools)
	results := make([]*candidate, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i, pr := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := f.scanPair(gctx, pr, inputMint, minAmount, minProfitBps)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				f.logger.Debug("pair skipped",
					zap.Stringer("first", pr.first),
					zap.Stringer("second", pr.second),
					zap.Error(err))
				return nil
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *candidate
	for _, c := range results {
		if c == nil {
			continue
		}
		if best == nil || c.opp.ProfitBasisPoints > best.opp.ProfitBasisPoints {
			best = c
		}
	}
	if best == nil {
		f.logger.Debug("no opportunity", zap.Int("pairs", len(pairs)))
		return nil, nil
	}

	if best.opp.ProfitBasisPoints >= 2*minProfitBps && maxAmount.GT(minAmount) {
		refined := f.refine(best, inputMint, minAmount, maxAmount, minProfitBps)
		if refined != best.opp {
			f.logger.Debug("amount refined",
				zap.String("from", best.opp.InputAmount.String()),
				zap.String("to", refined.InputAmount.String()))
		}
		best.opp = refined
	}

	f.logger.Info("opportunity found", zap.Object("opportunity", best.opp))
	return best.opp, nil
}

func (f *Finder) scanPair(ctx context.Context, pr pair, inputMint solana.PublicKey, amount cosmath.Int, minProfitBps int64) (*candidate, error) {
	first, err := f.source.FetchPoolByID(ctx, pr.first)
	if err != nil {
		return nil, err
	}
	if !compatible(first, nil, inputMint) {
		return nil, nil
	}
	second, err := f.source.FetchPoolByID(ctx, pr.second)
	if err != nil {
		return nil, err
	}
	if !compatible(first, second, inputMint) {
		return nil, nil
	}
	opp, err := f.Evaluate(first, second, inputMint, amount)
	if err != nil {
		return nil, err
	}
	if !accepted(opp, minProfitBps) {
		return nil, nil
	}
	return &candidate{opp: opp, first: first, second: second}, nil
}

// compatible reports whether first takes inputMint and second can turn first's other mint
// back into inputMint. A nil second checks only the first leg.
func compatible(first, second *whirlpool.Pool, inputMint solana.PublicKey) bool {
	if !first.HasMint(inputMint) {
		return false
	}
	if second == nil {
		return true
	}
	if first.Address.Equals(second.Address) {
		return false
	}
	intermediate, _ := first.OtherMint(inputMint)
	return second.HasMint(intermediate) && second.HasMint(inputMint)
}

func accepted(opp *Opportunity, minProfitBps int64) bool {
	return opp != nil && opp.ProfitAmount.IsPositive() && opp.ProfitBasisPoints >= minProfitBps
}

// Evaluate prices the round trip of amount through first then second with the approximate quoter.
func (f *Finder) Evaluate(first, second *whirlpool.Pool, inputMint solana.PublicKey, amount cosmath.Int) (*Opportunity, error) {
	if !compatible(first, second, inputMint) {
		return nil, fmt.Errorf("pools %s and %s do not form a round trip for %s", first.Address, second.Address, inputMint)
	}
	d1, err := first.DirectionFor(inputMint)
	if err != nil {
		return nil, err
	}
	intermediate, _ := first.OtherMint(inputMint)
	d2, err := second.DirectionFor(intermediate)
	if err != nil {
		return nil, err
	}

	leg1, err := f.quoter.Quote(first, amount, d1)
	if err != nil {
		return nil, fmt.Errorf("leg 1 quote on %s: %w", first.Address, err)
	}
	leg2, err := f.quoter.Quote(second, leg1.EstimatedAmountOut, d2)
	if err != nil {
		return nil, fmt.Errorf("leg 2 quote on %s: %w", second.Address, err)
	}

	fees := cosmath.NewIntFromUint64(f.opts.GasEstimate).MulRaw(2)
	profit, bps := score(amount, leg2.EstimatedAmountOut, fees)
	return &Opportunity{
		FirstPool:           first.Address,
		SecondPool:          second.Address,
		InputToken:          inputMint,
		InputAmount:         amount,
		FirstPoolDirection:  d1,
		IntermediateToken:   intermediate,
		IntermediateAmount:  leg1.EstimatedAmountOut,
		SecondPoolDirection: d2,
		OutputAmount:        leg2.EstimatedAmountOut,
		EstimatedFees:       fees,
		ProfitAmount:        profit,
		ProfitBasisPoints:   bps,
		DetectedAt:          f.now(),
	}, nil
}
