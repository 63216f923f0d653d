package whirlpool

import (
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"github.com/yimingwow/solarb/pkg/tickmath"
)

type SwapParams struct {
	Amount           cosmath.Int
	AToB             bool
	SpecifiedIsInput bool
	// SqrtPriceLimit bounds the swap; zero means the protocol bound in the swap direction.
	SqrtPriceLimit cosmath.Int
}

type SwapResult struct {
	AmountIn       cosmath.Int // including fee
	AmountOut      cosmath.Int
	FeeAmount      cosmath.Int
	NextSqrtPrice  cosmath.Int
	NextTickIndex  int32
	TicksCrossed   int
	StartLiquidity cosmath.Int
	EndLiquidity   cosmath.Int
}

// SimulateSwap walks the pool's price across initialized ticks found in tickArrays until the
// specified amount is consumed, the price limit is hit, or liquidity runs out.
func SimulateSwap(pool *Pool, tickArrays []*TickArray, params SwapParams) (*SwapResult, error) {
	if params.Amount.IsNil() || !params.Amount.IsPositive() {
		return nil, fmt.Errorf("swap amount must be positive")
	}
	liquidity := pool.LiquidityInt()
	if liquidity.IsZero() {
		return nil, pkg.NewError(pkg.KindZeroLiquidity, "simulate swap", fmt.Sprintf("pool %s", pool.Address), nil)
	}
	if pool.TickSpacing == 0 {
		return nil, fmt.Errorf("pool %s: zero tick spacing", pool.Address)
	}

	limit := sqrtPriceLimit(params.SqrtPriceLimit, params.AToB)
	feeRate := uint32(pool.FeeRate)

	res := &SwapResult{
		AmountIn:       cosmath.ZeroInt(),
		AmountOut:      cosmath.ZeroInt(),
		FeeAmount:      cosmath.ZeroInt(),
		StartLiquidity: liquidity,
	}
	remaining := params.Amount
	sqrtPrice := pool.SqrtPriceX64()
	tick := pool.TickCurrentIndex

	for i := 0; i < MaxSwapIterations; i++ {
		if !remaining.IsPositive() || sqrtPrice.Equal(limit) {
			break
		}

		boundary, crossing, initialized := nextInitializedTick(tickArrays, tick, pool.TickSpacing, params.AToB)
		if !initialized {
			boundary = tickmath.MaxTick
			if params.AToB {
				boundary = tickmath.MinTick
			}
		}
		boundaryPrice := tickmath.MustTickToSqrtPrice(boundary)
		target := boundaryPrice
		if (params.AToB && target.LT(limit)) || (!params.AToB && target.GT(limit)) {
			target = limit
		}

		step := ComputeSwapStep(sqrtPrice, target, liquidity, remaining, feeRate, params.SpecifiedIsInput, params.AToB)

		if params.SpecifiedIsInput {
			remaining = fixedpoint.SaturatingSub(remaining, step.AmountIn.Add(step.FeeAmount))
			res.AmountOut = res.AmountOut.Add(step.AmountOut)
		} else {
			remaining = fixedpoint.SaturatingSub(remaining, step.AmountOut)
			res.AmountOut = res.AmountOut.Add(step.AmountOut)
		}
		res.AmountIn = res.AmountIn.Add(step.AmountIn).Add(step.FeeAmount)
		res.FeeAmount = res.FeeAmount.Add(step.FeeAmount)

		prev := sqrtPrice
		sqrtPrice = step.NextSqrtPrice

		if step.ReachedTarget && sqrtPrice.Equal(boundaryPrice) {
			if !initialized {
				tick = boundary
				break
			}
			res.TicksCrossed++
			if params.AToB {
				liquidity = liquidity.Sub(crossing.NetLiquidity())
				tick = boundary - 1
			} else {
				liquidity = liquidity.Add(crossing.NetLiquidity())
				tick = boundary
			}
			if !liquidity.IsPositive() {
				liquidity = cosmath.ZeroInt()
				break
			}
			continue
		}
		if !sqrtPrice.Equal(prev) {
			tick = tickmath.SqrtPriceToTick(sqrtPrice)
		}
		// Either the limit was reached or the amount ran out inside the range.
		break
	}

	res.NextSqrtPrice = sqrtPrice
	res.NextTickIndex = tick
	res.EndLiquidity = liquidity

	if params.SpecifiedIsInput && res.AmountOut.IsZero() {
		return nil, pkg.NewError(pkg.KindZeroTradableOutput, "simulate swap",
			fmt.Sprintf("input %s yields no output in pool %s", params.Amount, pool.Address), nil)
	}
	if !params.SpecifiedIsInput && res.AmountIn.IsZero() {
		return nil, pkg.NewError(pkg.KindZeroTradableOutput, "simulate swap",
			fmt.Sprintf("output %s needs no input in pool %s", params.Amount, pool.Address), nil)
	}
	return res, nil
}

// sqrtPriceLimit resolves a caller limit, defaulting to the protocol bound in the swap direction.
func sqrtPriceLimit(limit cosmath.Int, aToB bool) cosmath.Int {
	if limit.IsNil() || limit.IsZero() {
		if aToB {
			return fixedpoint.MinSqrtPrice
		}
		return fixedpoint.MaxSqrtPrice
	}
	return fixedpoint.ClampSqrtPrice(limit)
}
