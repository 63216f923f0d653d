package whirlpool

import (
	"bytes"
	"errors"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"github.com/yimingwow/solarb/pkg/tickmath"
	"lukechampine.com/uint128"
)

func testKey(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

// testPool is a 0.3% pool at tick 0 (sqrt price 2^64) with spacing 64.
func testPool(liquidity uint64) *Pool {
	return &Pool{
		Address:          testKey(9),
		WhirlpoolsConfig: testKey(8),
		Bump:             254,
		TickSpacing:      64,
		TickSpacingSeed:  [2]byte{64, 0},
		FeeRate:          3000,
		ProtocolFeeRate:  300,
		Liquidity:        uint128.From64(liquidity),
		SqrtPrice:        fixedpoint.SaturatingToUint128(tickmath.MustTickToSqrtPrice(0)),
		TickCurrentIndex: 0,
		TokenMintA:       testKey(1),
		TokenVaultA:      testKey(3),
		TokenMintB:       testKey(2),
		TokenVaultB:      testKey(4),
	}
}

func TestDecodePool(t *testing.T) {
	want := testPool(1_000_000_000_000)
	want.ProtocolFeeOwedA = 11
	want.ProtocolFeeOwedB = 22
	want.FeeGrowthGlobalA = uint128.From64(33)
	want.FeeGrowthGlobalB = uint128.New(44, 1)
	want.RewardLastUpdatedTimestamp = 1_700_000_000
	want.RewardInfos[1].Mint = testKey(7)
	want.RewardInfos[2].GrowthGlobalX64 = uint128.From64(55)

	data := want.MarshalAccount()
	if len(data) != PoolAccountSize {
		t.Fatalf("encoded pool is %d bytes, want %d", len(data), PoolAccountSize)
	}
	if !bytes.Equal(data[TokenMintAOffset:TokenMintAOffset+32], want.TokenMintA[:]) {
		t.Fatalf("token mint a not at offset %d", TokenMintAOffset)
	}
	if !bytes.Equal(data[TokenMintBOffset:TokenMintBOffset+32], want.TokenMintB[:]) {
		t.Fatalf("token mint b not at offset %d", TokenMintBOffset)
	}

	got, err := DecodePool(want.Address, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *want {
		t.Fatalf("decoded pool differs:\n got %+v\nwant %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	core, err := DecodePool(want.Address, data[:PoolCoreSize])
	if err != nil {
		t.Fatalf("decode core only: %v", err)
	}
	if !core.SqrtPriceX64().Equal(fixedpoint.Q64) || core.RewardLastUpdatedTimestamp != 0 {
		t.Fatalf("core decode mismatch: %+v", core)
	}
}

func TestDecodePoolRejectsBadData(t *testing.T) {
	data := testPool(1).MarshalAccount()

	_, err := DecodePool(solana.PublicKey{}, data[:PoolCoreSize-1])
	if !errors.Is(err, pkg.ErrDecode) {
		t.Fatalf("short data: got %v, want decode error", err)
	}

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	_, err = DecodePool(solana.PublicKey{}, bad)
	if pkg.KindOf(err) != pkg.KindDecode {
		t.Fatalf("bad discriminator: got %v, want decode error", err)
	}
}

func TestPoolValidate(t *testing.T) {
	p := testPool(1)
	p.TokenMintA, p.TokenMintB = p.TokenMintB, p.TokenMintA
	if err := p.Validate(); err == nil {
		t.Fatalf("expected mint order violation")
	}

	p = testPool(1)
	p.TickCurrentIndex = 500
	if err := p.Validate(); err == nil {
		t.Fatalf("expected tick inconsistency")
	}

	p = testPool(1)
	p.TickCurrentIndex = -1
	if err := p.Validate(); err != nil {
		t.Fatalf("tick one below a boundary price must be accepted: %v", err)
	}

	p = testPool(1)
	p.TickSpacing = 0
	if err := p.Validate(); err == nil {
		t.Fatalf("expected zero tick spacing to be rejected")
	}
}

func TestZeroTickSpacingIsRejected(t *testing.T) {
	p := testPool(testLiquidity)
	p.TickSpacing = 0

	_, err := DecodePool(p.Address, p.MarshalAccount())
	if !errors.Is(err, pkg.ErrDecode) {
		t.Fatalf("decode: got %v, want decode error", err)
	}
	if _, _, err := p.SwapTickArrays(DirectionAToB); err == nil {
		t.Fatalf("swap tick arrays: expected error")
	}
	_, err = SimulateSwap(p, nil, SwapParams{Amount: cosmath.NewInt(1000), AToB: true, SpecifiedIsInput: true})
	if err == nil {
		t.Fatalf("simulate: expected error")
	}
}

func TestPoolMints(t *testing.T) {
	p := testPool(1)
	if d, err := p.DirectionFor(p.TokenMintA); err != nil || d != DirectionAToB {
		t.Fatalf("direction for mint a = %v, %v", d, err)
	}
	if d, err := p.DirectionFor(p.TokenMintB); err != nil || d != DirectionBToA {
		t.Fatalf("direction for mint b = %v, %v", d, err)
	}
	if _, err := p.DirectionFor(testKey(77)); err == nil {
		t.Fatalf("expected error for foreign mint")
	}
	if other, ok := p.OtherMint(p.TokenMintA); !ok || other != p.TokenMintB {
		t.Fatalf("other mint of a = %s, %v", other, ok)
	}
	in, out := p.Mints(DirectionBToA)
	if in != p.TokenMintB || out != p.TokenMintA {
		t.Fatalf("mints for b to a = %s, %s", in, out)
	}
	if DirectionAToB.Reverse() != DirectionBToA || Direction(0).Valid() {
		t.Fatalf("direction helpers broken")
	}
}

func TestDecodeTickArray(t *testing.T) {
	want := &TickArray{
		Address:        testKey(5),
		StartTickIndex: -5632,
		Whirlpool:      testKey(9),
		Initialized:    true,
	}
	for i := range want.Ticks {
		want.Ticks[i].LiquidityNet = cosmath.ZeroInt()
	}
	want.Ticks[3] = Tick{
		Initialized:       true,
		LiquidityNet:      cosmath.NewInt(-123_456_789),
		LiquidityGross:    uint128.From64(123_456_789),
		FeeGrowthOutsideA: uint128.From64(1),
		FeeGrowthOutsideB: uint128.From64(2),
	}
	want.Ticks[3].RewardGrowthsOutside[2] = uint128.From64(3)
	want.Ticks[87].Initialized = true
	want.Ticks[87].LiquidityNet = cosmath.NewInt(42)

	data := want.MarshalAccount()
	if len(data) != TickArrayAccountSize || TickArrayAccountSize != 9988 {
		t.Fatalf("encoded tick array is %d bytes, want 9988", len(data))
	}
	if !bytes.Equal(data[len(data)-32:], want.Whirlpool[:]) {
		t.Fatalf("whirlpool reference must be the trailing field")
	}

	got, err := DecodeTickArray(want.Address, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StartTickIndex != want.StartTickIndex || got.Whirlpool != want.Whirlpool || !got.Initialized {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.InitializedCount() != 2 {
		t.Fatalf("initialized count = %d, want 2", got.InitializedCount())
	}
	tk := got.Ticks[3]
	if !tk.LiquidityNet.Equal(cosmath.NewInt(-123_456_789)) || tk.LiquidityGross != uint128.From64(123_456_789) {
		t.Fatalf("tick 3 liquidity mismatch: %+v", tk)
	}
	if tk.RewardGrowthsOutside[2] != uint128.From64(3) || tk.FeeGrowthOutsideB != uint128.From64(2) {
		t.Fatalf("tick 3 growth mismatch: %+v", tk)
	}
	if got.TickIndex(87, 64) != -64 || !got.Contains(-64, 64) || got.Contains(0, 64) {
		t.Fatalf("tick indexing broken")
	}

	if _, err := DecodeTickArray(want.Address, data[:TickArrayAccountSize-1]); !errors.Is(err, pkg.ErrDecode) {
		t.Fatalf("short tick array: got %v, want decode error", err)
	}
}

func TestNextInitializedTick(t *testing.T) {
	lower := NewUninitializedTickArray(testKey(5), testKey(9), -5632)
	lower.Ticks[87].Initialized = true // -64
	lower.Ticks[10].Initialized = true // -4992
	upper := NewUninitializedTickArray(testKey(6), testKey(9), 0)
	upper.Ticks[0].Initialized = true // 0
	upper.Ticks[2].Initialized = true // 128
	arrays := []*TickArray{upper, lower, nil}

	tests := []struct {
		current int32
		aToB    bool
		want    int32
		found   bool
	}{
		{current: 10, aToB: true, want: 0, found: true},
		{current: 0, aToB: true, want: 0, found: true},
		{current: -1, aToB: true, want: -64, found: true},
		{current: -65, aToB: true, want: -4992, found: true},
		{current: -5000, aToB: true, found: false},
		{current: 0, aToB: false, want: 128, found: true},
		{current: -64, aToB: false, want: 0, found: true},
		{current: -100, aToB: false, want: -64, found: true},
		{current: 128, aToB: false, found: false},
	}
	for _, tt := range tests {
		got, tick, found := nextInitializedTick(arrays, tt.current, 64, tt.aToB)
		if found != tt.found || (found && got != tt.want) {
			t.Fatalf("next from %d (aToB=%v) = %d, %v; want %d, %v", tt.current, tt.aToB, got, found, tt.want, tt.found)
		}
		if found && tick == nil {
			t.Fatalf("found tick without state")
		}
	}
}

func TestTickArrayPDA(t *testing.T) {
	pool := testKey(9)
	a1, err := GetTickArrayAddress(pool, -5632)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	a2, _ := GetTickArrayAddress(pool, -5632)
	b, _ := GetTickArrayAddress(pool, 5632)
	if a1 != a2 {
		t.Fatalf("derivation is not deterministic")
	}
	if a1 == b {
		t.Fatalf("different start indexes share an address")
	}
	want, _, _ := solana.FindProgramAddress([][]byte{[]byte("tick_array"), pool.Bytes(), []byte("-5632")}, WhirlpoolProgramID)
	if a1 != want {
		t.Fatalf("start index seed must be its decimal string")
	}
	o1, _ := GetOracleAddress(pool)
	o2, _ := GetOracleAddress(testKey(10))
	if o1 == o2 {
		t.Fatalf("oracle must depend on the pool")
	}
}

func TestSwapTickArrays(t *testing.T) {
	p := testPool(1)
	starts, addrs, err := p.SwapTickArrays(DirectionAToB)
	if err != nil {
		t.Fatalf("swap tick arrays: %v", err)
	}
	if starts != [3]int32{0, -5632, -11264} {
		t.Fatalf("a to b starts = %v", starts)
	}
	first, _ := GetTickArrayAddress(p.Address, 0)
	if addrs[0] != first {
		t.Fatalf("first address mismatch")
	}

	starts, _, _ = p.SwapTickArrays(DirectionBToA)
	if starts != [3]int32{0, 5632, 11264} {
		t.Fatalf("b to a starts = %v", starts)
	}

	// Near the top of the range only one array exists; it fills every slot.
	p.TickCurrentIndex = tickmath.MaxTick - 10
	starts, addrs, err = p.SwapTickArrays(DirectionBToA)
	if err != nil {
		t.Fatalf("edge swap tick arrays: %v", err)
	}
	if starts[0] != starts[1] || starts[1] != starts[2] || addrs[0] != addrs[2] {
		t.Fatalf("edge arrays not padded: %v", starts)
	}
}
