package whirlpool

import (
	"bytes"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/tickmath"
	"lukechampine.com/uint128"
)

type Tick struct {
	Initialized          bool
	LiquidityNet         cosmath.Int // signed i128
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

// NetLiquidity returns LiquidityNet, treating an unset value as zero.
func (t *Tick) NetLiquidity() cosmath.Int {
	if t.LiquidityNet.IsNil() {
		return cosmath.ZeroInt()
	}
	return t.LiquidityNet
}

// TickArray holds TickArraySize consecutive ticks starting at StartTickIndex.
// An array that does not exist on chain is represented with every tick uninitialized.
type TickArray struct {
	Address        solana.PublicKey
	StartTickIndex int32
	Ticks          [tickmath.TickArraySize]Tick
	Whirlpool      solana.PublicKey
	// Initialized is false for arrays with no account on chain.
	Initialized bool
}

// Decode parses a TickArray account in the program's field order: discriminator, start index,
// the ticks, then the owning pool. The pool key trails the ticks on chain.
func (ta *TickArray) Decode(data []byte) error {
	if len(data) < TickArrayAccountSize {
		return pkg.NewError(pkg.KindDecode, "decode tick array",
			fmt.Sprintf("need %d bytes, got %d", TickArrayAccountSize, len(data)), nil)
	}
	if !bytes.Equal(data[:discriminatorSize], tickArrayDiscriminator) {
		return pkg.NewError(pkg.KindDecode, "decode tick array", "account discriminator mismatch", nil)
	}

	r := &accountReader{data: data, off: discriminatorSize}
	ta.StartTickIndex = r.i32()
	for i := range ta.Ticks {
		t := &ta.Ticks[i]
		t.Initialized = r.bool()
		t.LiquidityNet = r.i128()
		t.LiquidityGross = r.u128()
		t.FeeGrowthOutsideA = r.u128()
		t.FeeGrowthOutsideB = r.u128()
		for j := range t.RewardGrowthsOutside {
			t.RewardGrowthsOutside[j] = r.u128()
		}
	}
	ta.Whirlpool = r.pubkey()
	ta.Initialized = true
	return nil
}

func DecodeTickArray(address solana.PublicKey, data []byte) (*TickArray, error) {
	ta := &TickArray{Address: address}
	if err := ta.Decode(data); err != nil {
		return nil, err
	}
	return ta, nil
}

// NewUninitializedTickArray stands in for an array account that has never been created.
func NewUninitializedTickArray(address, whirlpool solana.PublicKey, start int32) *TickArray {
	return &TickArray{Address: address, StartTickIndex: start, Whirlpool: whirlpool}
}

// TickIndex returns the tick index of slot i.
func (ta *TickArray) TickIndex(i int, tickSpacing uint16) int32 {
	return ta.StartTickIndex + int32(i)*int32(tickSpacing)
}

// Contains reports whether tick falls inside this array's span.
func (ta *TickArray) Contains(tick int32, tickSpacing uint16) bool {
	return tick >= ta.StartTickIndex && tick < ta.StartTickIndex+tickmath.TicksPerArray(tickSpacing)
}

// InitializedCount counts initialized ticks.
func (ta *TickArray) InitializedCount() int {
	n := 0
	for i := range ta.Ticks {
		if ta.Ticks[i].Initialized {
			n++
		}
	}
	return n
}

// nextInitializedTick searches arrays for the next initialized tick in the swap direction.
// For a->b that is the largest initialized tick <= current, otherwise the smallest > current.
func nextInitializedTick(arrays []*TickArray, current int32, tickSpacing uint16, aToB bool) (int32, *Tick, bool) {
	var (
		best     int32
		bestTick *Tick
		found    bool
	)
	for _, ta := range arrays {
		if ta == nil {
			continue
		}
		for i := range ta.Ticks {
			t := &ta.Ticks[i]
			if !t.Initialized {
				continue
			}
			idx := ta.TickIndex(i, tickSpacing)
			if idx < tickmath.MinTick || idx > tickmath.MaxTick {
				continue
			}
			if aToB {
				if idx <= current && (!found || idx > best) {
					best, bestTick, found = idx, t, true
				}
			} else if idx > current && (!found || idx < best) {
				best, bestTick, found = idx, t, true
			}
		}
	}
	return best, bestTick, found
}
