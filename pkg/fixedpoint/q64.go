package fixedpoint

import (
	"math/big"

	cosmath "cosmossdk.io/math"
)

const (
	// FeeRateDenominator is the unit of pool fee rates (parts per million).
	FeeRateDenominator = 1_000_000
)

var (
	Q64 = cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))

	MinSqrtPrice = cosmath.NewIntFromUint64(4295048016)
	MaxSqrtPrice = mustInt("79226673515401279992447579055")

	feeDenominator = cosmath.NewInt(FeeRateDenominator)
)

func mustInt(s string) cosmath.Int {
	v, ok := cosmath.NewIntFromString(s)
	if !ok {
		panic("fixedpoint: bad constant " + s)
	}
	return v
}

// ClampSqrtPrice bounds a Q64.64 sqrt price to the protocol range.
func ClampSqrtPrice(p cosmath.Int) cosmath.Int {
	return Clamp(p, MinSqrtPrice, MaxSqrtPrice)
}

func ordered(p0, p1 cosmath.Int) (lower, upper cosmath.Int) {
	p0, p1 = nilToZero(p0), nilToZero(p1)
	if p0.GT(p1) {
		return p1, p0
	}
	return p0, p1
}

// TokenADelta is the amount of token A spanned by liquidity between two sqrt prices:
// L·|p1−p0|·2^64 / (p0·p1). A non-zero span never yields less than 1.
func TokenADelta(liquidity, sqrtP0, sqrtP1 cosmath.Int, roundUp bool) cosmath.Int {
	lower, upper := ordered(sqrtP0, sqrtP1)
	liquidity = nilToZero(liquidity)
	if liquidity.IsZero() || lower.Equal(upper) || lower.IsZero() {
		return cosmath.ZeroInt()
	}
	numerator := SaturatingMul(liquidity, Q64)
	diff := upper.Sub(lower)

	var res cosmath.Int
	if roundUp {
		res = DivCeil(MulDivCeil(numerator, diff, upper), lower)
	} else {
		res = MulDivFloor(numerator, diff, upper).Quo(lower)
	}
	if res.IsZero() {
		return cosmath.OneInt()
	}
	return res
}

// TokenBDelta is the amount of token B spanned by liquidity between two sqrt prices:
// L·|p1−p0| / 2^64. A non-zero span never yields less than 1.
func TokenBDelta(liquidity, sqrtP0, sqrtP1 cosmath.Int, roundUp bool) cosmath.Int {
	lower, upper := ordered(sqrtP0, sqrtP1)
	liquidity = nilToZero(liquidity)
	if liquidity.IsZero() || lower.Equal(upper) {
		return cosmath.ZeroInt()
	}
	diff := upper.Sub(lower)

	var res cosmath.Int
	if roundUp {
		res = MulDivCeil(liquidity, diff, Q64)
	} else {
		res = MulDivFloor(liquidity, diff, Q64)
	}
	if res.IsZero() {
		return cosmath.OneInt()
	}
	return res
}

// NextSqrtPriceFromAInput moves the price down by adding amount of token A:
// ceil(L·2^64·p / (L·2^64 + amount·p)).
func NextSqrtPriceFromAInput(sqrtP, liquidity, amount cosmath.Int) cosmath.Int {
	sqrtP, liquidity, amount = nilToZero(sqrtP), nilToZero(liquidity), nilToZero(amount)
	if amount.IsZero() {
		return ClampSqrtPrice(sqrtP)
	}
	if liquidity.IsZero() {
		return MinSqrtPrice
	}
	numerator := SaturatingMul(liquidity, Q64)
	// A product past 256 bits saturates the denominator, which pins the price to the lower bound.
	denominator := SaturatingAdd(numerator, SaturatingMul(amount, sqrtP))
	return ClampSqrtPrice(MulDivCeil(numerator, sqrtP, denominator))
}

// NextSqrtPriceFromBInput moves the price up by adding amount of token B: p + amount·2^64/L.
func NextSqrtPriceFromBInput(sqrtP, liquidity, amount cosmath.Int) cosmath.Int {
	sqrtP, liquidity, amount = nilToZero(sqrtP), nilToZero(liquidity), nilToZero(amount)
	if amount.IsZero() {
		return ClampSqrtPrice(sqrtP)
	}
	if liquidity.IsZero() {
		return MaxSqrtPrice
	}
	delta := MulDivFloor(amount, Q64, liquidity)
	return ClampSqrtPrice(SaturatingAdd(sqrtP, delta))
}

// NextSqrtPriceFromAOutput moves the price up by removing amount of token A:
// ceil(L·2^64·p / (L·2^64 − amount·p)).
func NextSqrtPriceFromAOutput(sqrtP, liquidity, amount cosmath.Int) cosmath.Int {
	sqrtP, liquidity, amount = nilToZero(sqrtP), nilToZero(liquidity), nilToZero(amount)
	if amount.IsZero() {
		return ClampSqrtPrice(sqrtP)
	}
	numerator := SaturatingMul(liquidity, Q64)
	product := SaturatingMul(amount, sqrtP)
	if product.GTE(numerator) {
		return MaxSqrtPrice
	}
	return ClampSqrtPrice(MulDivCeil(numerator, sqrtP, numerator.Sub(product)))
}

// NextSqrtPriceFromBOutput moves the price down by removing amount of token B:
// p − ceil(amount·2^64/L).
func NextSqrtPriceFromBOutput(sqrtP, liquidity, amount cosmath.Int) cosmath.Int {
	sqrtP, liquidity, amount = nilToZero(sqrtP), nilToZero(liquidity), nilToZero(amount)
	if amount.IsZero() {
		return ClampSqrtPrice(sqrtP)
	}
	if liquidity.IsZero() {
		return MinSqrtPrice
	}
	delta := MulDivCeil(amount, Q64, liquidity)
	if delta.GTE(sqrtP) {
		return MinSqrtPrice
	}
	return ClampSqrtPrice(sqrtP.Sub(delta))
}

// NextSqrtPriceFromInput dispatches on direction: A in moves the price down, B in moves it up.
func NextSqrtPriceFromInput(sqrtP, liquidity, amount cosmath.Int, aToB bool) cosmath.Int {
	if aToB {
		return NextSqrtPriceFromAInput(sqrtP, liquidity, amount)
	}
	return NextSqrtPriceFromBInput(sqrtP, liquidity, amount)
}

// NextSqrtPriceFromOutput dispatches on direction: B out moves the price down, A out moves it up.
func NextSqrtPriceFromOutput(sqrtP, liquidity, amount cosmath.Int, aToB bool) cosmath.Int {
	if aToB {
		return NextSqrtPriceFromBOutput(sqrtP, liquidity, amount)
	}
	return NextSqrtPriceFromAOutput(sqrtP, liquidity, amount)
}

// ApplyFee returns amount·(1_000_000 − feeRate)/1_000_000, floored.
func ApplyFee(amount cosmath.Int, feeRate uint32) cosmath.Int {
	amount = nilToZero(amount)
	if feeRate >= FeeRateDenominator {
		return cosmath.ZeroInt()
	}
	if feeRate == 0 {
		return amount
	}
	return MulDivFloor(amount, cosmath.NewInt(int64(FeeRateDenominator-feeRate)), feeDenominator)
}

// FeeOnTop returns the fee charged on top of a net amount: ceil(amount·feeRate/(1_000_000 − feeRate)).
func FeeOnTop(amount cosmath.Int, feeRate uint32) cosmath.Int {
	if feeRate == 0 {
		return cosmath.ZeroInt()
	}
	if feeRate >= FeeRateDenominator {
		return MaxU128
	}
	return MulDivCeil(amount, cosmath.NewInt(int64(feeRate)), cosmath.NewInt(int64(FeeRateDenominator-feeRate)))
}

// ApplySlippage returns amount·(10000 − bps)/10000 floored, never below 1 for a positive amount.
func ApplySlippage(amount cosmath.Int, slippageBps uint16) cosmath.Int {
	amount = nilToZero(amount)
	if !amount.IsPositive() {
		return cosmath.ZeroInt()
	}
	if slippageBps > 10000 {
		slippageBps = 10000
	}
	res := MulDivFloor(amount, cosmath.NewInt(int64(10000-slippageBps)), cosmath.NewInt(10000))
	if res.IsZero() {
		return cosmath.OneInt()
	}
	return res
}
