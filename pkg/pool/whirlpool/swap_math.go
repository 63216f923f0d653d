package whirlpool

import (
	cosmath "cosmossdk.io/math"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
)

// SwapStep is the outcome of moving the price from one sqrt price toward a target inside a
// single liquidity range.
type SwapStep struct {
	NextSqrtPrice cosmath.Int
	AmountIn      cosmath.Int // excluding fee
	AmountOut     cosmath.Int
	FeeAmount     cosmath.Int
	ReachedTarget bool
}

// ComputeSwapStep moves the price from current toward target with the given liquidity, consuming
// at most remaining (input including fee when specifiedIsInput, otherwise output). The returned
// price never passes target.
func ComputeSwapStep(
	current cosmath.Int,
	target cosmath.Int,
	liquidity cosmath.Int,
	remaining cosmath.Int,
	feeRate uint32,
	specifiedIsInput bool,
	aToB bool,
) SwapStep {
	step := SwapStep{
		NextSqrtPrice: current,
		AmountIn:      cosmath.ZeroInt(),
		AmountOut:     cosmath.ZeroInt(),
		FeeAmount:     cosmath.ZeroInt(),
	}
	if liquidity.IsNil() || liquidity.IsZero() || remaining.IsNil() || !remaining.IsPositive() {
		return step
	}

	if specifiedIsInput {
		lessFee := fixedpoint.ApplyFee(remaining, feeRate)
		step.AmountIn = inputDelta(liquidity, current, target, aToB)
		if lessFee.GTE(step.AmountIn) {
			step.NextSqrtPrice = target
		} else {
			step.NextSqrtPrice = fixedpoint.NextSqrtPriceFromInput(current, liquidity, lessFee, aToB)
		}
	} else {
		step.AmountOut = outputDelta(liquidity, current, target, aToB)
		if remaining.GTE(step.AmountOut) {
			step.NextSqrtPrice = target
		} else {
			step.NextSqrtPrice = fixedpoint.NextSqrtPriceFromOutput(current, liquidity, remaining, aToB)
		}
	}

	if (aToB && step.NextSqrtPrice.LT(target)) || (!aToB && step.NextSqrtPrice.GT(target)) {
		step.NextSqrtPrice = target
	}
	step.ReachedTarget = step.NextSqrtPrice.Equal(target)

	if !(step.ReachedTarget && specifiedIsInput) {
		step.AmountIn = inputDelta(liquidity, current, step.NextSqrtPrice, aToB)
	}
	if !(step.ReachedTarget && !specifiedIsInput) {
		step.AmountOut = outputDelta(liquidity, current, step.NextSqrtPrice, aToB)
	}

	if !specifiedIsInput && step.AmountOut.GT(remaining) {
		step.AmountOut = remaining
	}

	if specifiedIsInput && !step.ReachedTarget {
		// The rest of remaining is taken as fee.
		if step.AmountIn.GT(remaining) {
			step.AmountIn = remaining
		}
		step.FeeAmount = remaining.Sub(step.AmountIn)
	} else {
		step.FeeAmount = fixedpoint.FeeOnTop(step.AmountIn, feeRate)
	}
	return step
}

// inputDelta is the input needed to move the price from current to next, rounded up.
func inputDelta(liquidity, current, next cosmath.Int, aToB bool) cosmath.Int {
	if aToB {
		return fixedpoint.TokenADelta(liquidity, next, current, true)
	}
	return fixedpoint.TokenBDelta(liquidity, current, next, true)
}

// outputDelta is the output released by moving the price from current to next, rounded down.
func outputDelta(liquidity, current, next cosmath.Int, aToB bool) cosmath.Int {
	if aToB {
		return fixedpoint.TokenBDelta(liquidity, next, current, false)
	}
	return fixedpoint.TokenADelta(liquidity, current, next, false)
}
