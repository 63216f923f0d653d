package whirlpool

import (
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"github.com/yimingwow/solarb/pkg/tickmath"
)

// SwapQuote is a priced swap. Only quotes with Exact set come from the tick-crossing
// simulator and may be turned into instructions.
type SwapQuote struct {
	Pool               solana.PublicKey
	TokenIn            solana.PublicKey
	TokenOut           solana.PublicKey
	EstimatedAmountIn  cosmath.Int
	TokenMaxIn         cosmath.Int
	EstimatedAmountOut cosmath.Int
	TokenMinOut        cosmath.Int
	FeeAmount          cosmath.Int
	LiquidityDelta     cosmath.Int
	Direction          Direction
	Exact              bool
	EndSqrtPrice       cosmath.Int
	EndTickIndex       int32
	TicksCrossed       int
}

func (q *SwapQuote) AToB() bool {
	return q.Direction.IsAToB()
}

// QuoteEngine prices swaps. Quote is the cheap single-step estimate used while scanning;
// ExactQuote runs the full simulator.
type QuoteEngine struct {
	SlippageBps uint16
}

func NewQuoteEngine(slippageBps uint16) *QuoteEngine {
	return &QuoteEngine{SlippageBps: slippageBps}
}

// Quote estimates the output of swapping amountIn in one step at the pool's current liquidity,
// ignoring tick boundaries. It overestimates output when the swap would cross an initialized tick.
func (e *QuoteEngine) Quote(pool *Pool, amountIn cosmath.Int, d Direction) (*SwapQuote, error) {
	out, next, fee, err := singleStep(pool, amountIn, d)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, e.zeroOutputError(pool, amountIn, d)
	}
	tokenIn, tokenOut := pool.Mints(d)
	return &SwapQuote{
		Pool:               pool.Address,
		TokenIn:            tokenIn,
		TokenOut:           tokenOut,
		EstimatedAmountIn:  amountIn,
		TokenMaxIn:         amountIn,
		EstimatedAmountOut: out,
		TokenMinOut:        fixedpoint.ApplySlippage(out, e.SlippageBps),
		FeeAmount:          fee,
		LiquidityDelta:     cosmath.ZeroInt(),
		Direction:          d,
		EndSqrtPrice:       next,
		EndTickIndex:       tickmath.SqrtPriceToTick(next),
	}, nil
}

// ExactQuote prices an exact-input swap with the tick-crossing simulator.
func (e *QuoteEngine) ExactQuote(pool *Pool, tickArrays []*TickArray, amountIn cosmath.Int, d Direction) (*SwapQuote, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid swap direction %s", d)
	}
	if err := checkSwapAmount(amountIn); err != nil {
		return nil, err
	}
	res, err := SimulateSwap(pool, tickArrays, SwapParams{
		Amount:           amountIn,
		AToB:             d.IsAToB(),
		SpecifiedIsInput: true,
	})
	if err != nil {
		if pkg.KindOf(err) == pkg.KindZeroTradableOutput {
			return nil, e.zeroOutputError(pool, amountIn, d)
		}
		return nil, err
	}
	tokenIn, tokenOut := pool.Mints(d)
	return &SwapQuote{
		Pool:               pool.Address,
		TokenIn:            tokenIn,
		TokenOut:           tokenOut,
		EstimatedAmountIn:  res.AmountIn,
		TokenMaxIn:         amountIn,
		EstimatedAmountOut: res.AmountOut,
		TokenMinOut:        fixedpoint.ApplySlippage(res.AmountOut, e.SlippageBps),
		FeeAmount:          res.FeeAmount,
		LiquidityDelta:     res.EndLiquidity.Sub(res.StartLiquidity),
		Direction:          d,
		Exact:              true,
		EndSqrtPrice:       res.NextSqrtPrice,
		EndTickIndex:       res.NextTickIndex,
		TicksCrossed:       res.TicksCrossed,
	}, nil
}

// MinimumViableInput returns the smallest input whose single-step quote has a non-zero output.
func (e *QuoteEngine) MinimumViableInput(pool *Pool, d Direction) (cosmath.Int, error) {
	viable := func(amount cosmath.Int) (bool, error) {
		out, _, _, err := singleStep(pool, amount, d)
		if err != nil {
			return false, err
		}
		return out.IsPositive(), nil
	}

	hi := cosmath.OneInt()
	for {
		ok, err := viable(hi)
		if err != nil {
			return cosmath.Int{}, err
		}
		if ok {
			break
		}
		if hi.Equal(fixedpoint.MaxU64) {
			return cosmath.Int{}, pkg.NewError(pkg.KindZeroTradableOutput, "minimum viable input",
				fmt.Sprintf("no u64 input moves pool %s", pool.Address), nil)
		}
		hi = cosmath.MinInt(hi.MulRaw(2), fixedpoint.MaxU64)
	}

	lo := hi.QuoRaw(2)
	for hi.Sub(lo).GT(cosmath.OneInt()) {
		mid := lo.Add(hi).QuoRaw(2)
		ok, err := viable(mid)
		if err != nil {
			return cosmath.Int{}, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

func (e *QuoteEngine) zeroOutputError(pool *Pool, amountIn cosmath.Int, d Direction) error {
	msg := fmt.Sprintf("input %s yields no output in pool %s", amountIn, pool.Address)
	if minIn, err := e.MinimumViableInput(pool, d); err == nil {
		msg = fmt.Sprintf("%s, minimum viable input %s", msg, minIn)
	}
	return pkg.NewError(pkg.KindZeroTradableOutput, "quote", msg, nil)
}

// singleStep returns (out, next sqrt price, fee) for one fee-adjusted step at current liquidity.
func singleStep(pool *Pool, amountIn cosmath.Int, d Direction) (cosmath.Int, cosmath.Int, cosmath.Int, error) {
	if !d.Valid() {
		return cosmath.Int{}, cosmath.Int{}, cosmath.Int{}, fmt.Errorf("invalid swap direction %s", d)
	}
	if err := checkSwapAmount(amountIn); err != nil {
		return cosmath.Int{}, cosmath.Int{}, cosmath.Int{}, err
	}
	liquidity := pool.LiquidityInt()
	if liquidity.IsZero() {
		return cosmath.Int{}, cosmath.Int{}, cosmath.Int{}, pkg.NewError(pkg.KindZeroLiquidity, "quote", fmt.Sprintf("pool %s", pool.Address), nil)
	}
	aToB := d.IsAToB()
	current := pool.SqrtPriceX64()
	lessFee := fixedpoint.ApplyFee(amountIn, uint32(pool.FeeRate))
	next := fixedpoint.NextSqrtPriceFromInput(current, liquidity, lessFee, aToB)
	out := cosmath.ZeroInt()
	if !next.Equal(current) {
		out = outputDelta(liquidity, current, next, aToB)
	}
	return out, next, amountIn.Sub(lessFee), nil
}

// checkSwapAmount rejects amounts the swap instruction cannot carry.
func checkSwapAmount(amount cosmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("swap amount must be positive")
	}
	if amount.GT(fixedpoint.MaxU64) {
		return fmt.Errorf("swap amount %s exceeds u64", amount)
	}
	return nil
}
