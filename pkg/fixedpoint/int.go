// Package fixedpoint holds the Q64.64 integer primitives shared by every pricing component.
//
// Amounts are cosmossdk.io/math Ints treated as unsigned 256-bit values. Products that can exceed
// 256 bits go through holiman/uint256 with a 512-bit intermediate. Every operation comes in a
// checked form that returns an error and a saturating form that clamps.
package fixedpoint

import (
	"errors"
	"math"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

var (
	ErrOverflow       = errors.New("fixedpoint: overflow")
	ErrUnderflow      = errors.New("fixedpoint: underflow")
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	ErrNegative       = errors.New("fixedpoint: negative operand")
)

var (
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)

	MaxU64  = cosmath.NewIntFromUint64(math.MaxUint64)
	MaxU128 = cosmath.NewIntFromBigInt(new(big.Int).Sub(two128, big.NewInt(1)))
	MaxU256 = cosmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
)

func toU256(x cosmath.Int) (*uint256.Int, error) {
	if x.IsNil() {
		return new(uint256.Int), nil
	}
	if x.IsNegative() {
		return nil, ErrNegative
	}
	z, overflow := uint256.FromBig(x.BigInt())
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func fromU256(z *uint256.Int) cosmath.Int {
	return cosmath.NewIntFromBigInt(z.ToBig())
}

func nilToZero(x cosmath.Int) cosmath.Int {
	if x.IsNil() {
		return cosmath.ZeroInt()
	}
	return x
}

// MulDivFloorChecked returns floor(a*b/d) computed with a 512-bit intermediate product.
func MulDivFloorChecked(a, b, d cosmath.Int) (cosmath.Int, error) {
	q, _, err := mulDiv(a, b, d)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	return fromU256(q), nil
}

// MulDivCeilChecked returns ceil(a*b/d) computed with a 512-bit intermediate product.
func MulDivCeilChecked(a, b, d cosmath.Int) (cosmath.Int, error) {
	q, rem, err := mulDiv(a, b, d)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	if !rem.IsZero() {
		if _, overflow := q.AddOverflow(q, uint256.NewInt(1)); overflow {
			return cosmath.ZeroInt(), ErrOverflow
		}
	}
	return fromU256(q), nil
}

func mulDiv(a, b, d cosmath.Int) (*uint256.Int, *uint256.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, nil, err
	}
	den, err := toU256(d)
	if err != nil {
		return nil, nil, err
	}
	if den.IsZero() {
		return nil, nil, ErrDivisionByZero
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, den)
	if overflow {
		return nil, nil, ErrOverflow
	}
	rem := new(uint256.Int).MulMod(x, y, den)
	return q, rem, nil
}

// MulDivFloor is the saturating form of MulDivFloorChecked: overflow and a zero divisor give
// MaxU256, a negative operand gives zero.
func MulDivFloor(a, b, d cosmath.Int) cosmath.Int {
	return saturate(MulDivFloorChecked(a, b, d))
}

// MulDivCeil is the saturating form of MulDivCeilChecked.
func MulDivCeil(a, b, d cosmath.Int) cosmath.Int {
	return saturate(MulDivCeilChecked(a, b, d))
}

func saturate(v cosmath.Int, err error) cosmath.Int {
	switch {
	case err == nil:
		return v
	case errors.Is(err, ErrNegative), errors.Is(err, ErrUnderflow):
		return cosmath.ZeroInt()
	default:
		return MaxU256
	}
}

func CheckedAdd(a, b cosmath.Int) (cosmath.Int, error) {
	a, b = nilToZero(a), nilToZero(b)
	if a.IsNegative() || b.IsNegative() {
		return cosmath.ZeroInt(), ErrNegative
	}
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	if sum.BitLen() > 256 {
		return cosmath.ZeroInt(), ErrOverflow
	}
	return cosmath.NewIntFromBigInt(sum), nil
}

func CheckedSub(a, b cosmath.Int) (cosmath.Int, error) {
	a, b = nilToZero(a), nilToZero(b)
	if a.IsNegative() || b.IsNegative() {
		return cosmath.ZeroInt(), ErrNegative
	}
	if a.LT(b) {
		return cosmath.ZeroInt(), ErrUnderflow
	}
	return a.Sub(b), nil
}

func CheckedMul(a, b cosmath.Int) (cosmath.Int, error) {
	a, b = nilToZero(a), nilToZero(b)
	if a.IsNegative() || b.IsNegative() {
		return cosmath.ZeroInt(), ErrNegative
	}
	prod := new(big.Int).Mul(a.BigInt(), b.BigInt())
	if prod.BitLen() > 256 {
		return cosmath.ZeroInt(), ErrOverflow
	}
	return cosmath.NewIntFromBigInt(prod), nil
}

// SaturatingMul is CheckedMul clamped to MaxU256.
func SaturatingMul(a, b cosmath.Int) cosmath.Int {
	return saturate(CheckedMul(a, b))
}

func SaturatingAdd(a, b cosmath.Int) cosmath.Int {
	return saturate(CheckedAdd(a, b))
}

// SaturatingSub floors at zero.
func SaturatingSub(a, b cosmath.Int) cosmath.Int {
	return saturate(CheckedSub(a, b))
}

func Clamp(x, lo, hi cosmath.Int) cosmath.Int {
	x = nilToZero(x)
	if x.LT(lo) {
		return lo
	}
	if x.GT(hi) {
		return hi
	}
	return x
}

// DivCeil returns ceil(a/b) for non-negative a and positive b.
func DivCeil(a, b cosmath.Int) cosmath.Int {
	return MulDivCeil(a, cosmath.OneInt(), b)
}

func FromUint128(u uint128.Uint128) cosmath.Int {
	return cosmath.NewIntFromBigInt(u.Big())
}

func ToUint128(x cosmath.Int) (uint128.Uint128, error) {
	x = nilToZero(x)
	if x.IsNegative() {
		return uint128.Zero, ErrNegative
	}
	if x.BigInt().BitLen() > 128 {
		return uint128.Zero, ErrOverflow
	}
	return uint128.FromBig(x.BigInt()), nil
}

// SaturatingToUint128 clamps x into [0, 2^128-1].
func SaturatingToUint128(x cosmath.Int) uint128.Uint128 {
	u, err := ToUint128(Clamp(x, cosmath.ZeroInt(), MaxU128))
	if err != nil {
		return uint128.Zero
	}
	return u
}

// Int128FromLE decodes a little-endian two's complement i128.
func Int128FromLE(b []byte) cosmath.Int {
	u := uint128.FromBytes(b)
	v := u.Big()
	if u.Hi>>63 == 1 {
		v.Sub(v, two128)
	}
	return cosmath.NewIntFromBigInt(v)
}

// PutInt128LE writes x as a little-endian two's complement i128 into b[:16].
func PutInt128LE(b []byte, x cosmath.Int) {
	v := new(big.Int).Set(nilToZero(x).BigInt())
	if v.Sign() < 0 {
		v.Add(v, two128)
	}
	uint128.FromBig(v).PutBytes(b)
}
