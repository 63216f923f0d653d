// Package tickmath converts between tick indexes and Q64.64 square-root prices and does the
// tick-array addressing arithmetic.
package tickmath

import (
	"errors"
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
)

const (
	MinTick = -443636
	MaxTick = 443636

	// TickArraySize is the number of tick slots in one tick array account.
	TickArraySize = 88
)

var ErrTickOutOfBounds = errors.New("tick out of bounds")

var (
	// tickRatios[i] = floor(2^64 / sqrt(1.0001)^(2^i)), one entry per bit of |tick|.
	tickRatios [19]*big.Int

	q64Big     = new(big.Int).Lsh(big.NewInt(1), 64)
	maxU128Big = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

const (
	bitPrecision = 14
)

var (
	logB2X32               = big.NewInt(59543866431248)
	logBPErrMarginLowerX64 = big.NewInt(184467440737095516)
	logBPErrMarginUpperX64 = new(big.Int).SetUint64(15793534762490258745)
)

func init() {
	const prec = 512
	// 1.0001 is not exact in binary, so build it from 10001/10000.
	base := new(big.Float).SetPrec(prec).Quo(
		new(big.Float).SetPrec(prec).SetInt64(10001),
		new(big.Float).SetPrec(prec).SetInt64(10000),
	)
	root := new(big.Float).SetPrec(prec).Sqrt(base)
	q64 := new(big.Float).SetPrec(prec).SetInt(q64Big)

	pow := new(big.Float).SetPrec(prec).Set(root)
	for i := range tickRatios {
		r := new(big.Float).SetPrec(prec).Quo(q64, pow)
		tickRatios[i], _ = r.Int(nil)
		pow = new(big.Float).SetPrec(prec).Mul(pow, pow)
	}
}

// TickToSqrtPrice returns sqrt(1.0001^tick)·2^64 clamped to the protocol sqrt price range.
func TickToSqrtPrice(tick int32) (cosmath.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return cosmath.ZeroInt(), fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	return fixedpoint.ClampSqrtPrice(cosmath.NewIntFromBigInt(sqrtPriceAtTick(tick))), nil
}

// MustTickToSqrtPrice is TickToSqrtPrice for ticks already known to be in range.
func MustTickToSqrtPrice(tick int32) cosmath.Int {
	p, err := TickToSqrtPrice(clampTick(tick))
	if err != nil {
		panic(err)
	}
	return p
}

func sqrtPriceAtTick(tick int32) *big.Int {
	abs := tick
	if abs < 0 {
		abs = -abs
	}
	ratio := new(big.Int).Set(q64Big)
	for i, mul := range tickRatios {
		if abs&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, mul)
			ratio.Rsh(ratio, 64)
		}
	}
	if tick > 0 {
		ratio.Quo(maxU128Big, ratio)
	}
	return ratio
}

func clampTick(tick int32) int32 {
	if tick < MinTick {
		return MinTick
	}
	if tick > MaxTick {
		return MaxTick
	}
	return tick
}

// SqrtPriceToTick returns the greatest tick whose sqrt price does not exceed sqrtP.
// Inputs outside the protocol range are clamped first.
func SqrtPriceToTick(sqrtP cosmath.Int) int32 {
	p := fixedpoint.ClampSqrtPrice(sqrtP).BigInt()

	msb := p.BitLen() - 1
	log2pIntegerX32 := big.NewInt(int64(msb-64) << 32)

	var r *big.Int
	if msb >= 64 {
		r = new(big.Int).Rsh(p, uint(msb-63))
	} else {
		r = new(big.Int).Lsh(p, uint(63-msb))
	}

	bit := new(big.Int).Lsh(big.NewInt(1), 63)
	fraction := new(big.Int)
	for precision := 0; bit.Sign() > 0 && precision < bitPrecision; precision++ {
		r.Mul(r, r)
		gt2 := r.Bit(127)
		r.Rsh(r, uint(63+gt2))
		if gt2 == 1 {
			fraction.Add(fraction, bit)
		}
		bit.Rsh(bit, 1)
	}

	log2pX32 := new(big.Int).Add(log2pIntegerX32, new(big.Int).Rsh(fraction, 32))
	logbpX64 := new(big.Int).Mul(log2pX32, logB2X32)

	// Rsh on a negative big.Int floors, matching an arithmetic shift.
	tickLow := new(big.Int).Rsh(new(big.Int).Sub(logbpX64, logBPErrMarginLowerX64), 64).Int64()
	tickHigh := new(big.Int).Rsh(new(big.Int).Add(logbpX64, logBPErrMarginUpperX64), 64).Int64()

	low, high := clampTick(int32(tickLow)), clampTick(int32(tickHigh))
	if low == high {
		return low
	}
	if cosmath.NewIntFromBigInt(sqrtPriceAtTick(high)).LTE(cosmath.NewIntFromBigInt(p)) {
		return high
	}
	return low
}
