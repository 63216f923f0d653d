package tickmath

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
)

const (
	floatPrec   = 256
	pricePlaces = 30
)

// PriceToSqrtPrice converts a human price (token B per token A) into a clamped Q64.64 sqrt price.
func PriceToSqrtPrice(price decimal.Decimal, decimalsA, decimalsB uint8) cosmath.Int {
	raw := price.Shift(int32(decimalsB) - int32(decimalsA))
	if !raw.IsPositive() {
		return fixedpoint.MinSqrtPrice
	}
	f, ok := new(big.Float).SetPrec(floatPrec).SetString(raw.String())
	if !ok {
		return fixedpoint.MinSqrtPrice
	}
	f.Sqrt(f)
	f.Mul(f, new(big.Float).SetPrec(floatPrec).SetInt(q64Big))
	v, _ := f.Int(nil)
	if v.BitLen() > 128 {
		return fixedpoint.MaxSqrtPrice
	}
	return fixedpoint.ClampSqrtPrice(cosmath.NewIntFromBigInt(v))
}

// SqrtPriceToPrice converts a Q64.64 sqrt price into a human price (token B per token A).
func SqrtPriceToPrice(sqrtP cosmath.Int, decimalsA, decimalsB uint8) decimal.Decimal {
	p := fixedpoint.ClampSqrtPrice(sqrtP).BigInt()
	num := new(big.Int).Mul(p, p)
	den := new(big.Int).Lsh(big.NewInt(1), 128)
	raw := decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), pricePlaces)
	return raw.Shift(int32(decimalsA) - int32(decimalsB))
}

// TickToPrice is SqrtPriceToPrice(TickToSqrtPrice(tick)).
func TickToPrice(tick int32, decimalsA, decimalsB uint8) decimal.Decimal {
	return SqrtPriceToPrice(MustTickToSqrtPrice(tick), decimalsA, decimalsB)
}

// PriceToTick returns the tick at or below the given human price.
func PriceToTick(price decimal.Decimal, decimalsA, decimalsB uint8) int32 {
	return SqrtPriceToTick(PriceToSqrtPrice(price, decimalsA, decimalsB))
}
