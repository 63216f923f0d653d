package router

import (
	"context"
	"errors"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"github.com/yimingwow/solarb/pkg/tickmath"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

type fakeLoader struct {
	pools  []*whirlpool.Pool
	broken map[solana.PublicKey]bool
}

func (f *fakeLoader) FetchPoolsByPair(ctx context.Context, mintX, mintY solana.PublicKey) ([]*whirlpool.Pool, error) {
	return f.pools, nil
}

func (f *fakeLoader) FetchSwapTickArrays(ctx context.Context, pool *whirlpool.Pool, d whirlpool.Direction) ([]*whirlpool.TickArray, error) {
	if f.broken[pool.Address] {
		return nil, errors.New("rpc down")
	}
	starts, addrs, err := pool.SwapTickArrays(d)
	if err != nil {
		return nil, err
	}
	out := make([]*whirlpool.TickArray, 0, len(starts))
	for i := range starts {
		out = append(out, whirlpool.NewUninitializedTickArray(addrs[i], pool.Address, starts[i]))
	}
	return out, nil
}

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func pool(addr byte, liquidity uint64, feeRate uint16) *whirlpool.Pool {
	return &whirlpool.Pool{
		Address:     key(addr),
		TickSpacing: 64,
		FeeRate:     feeRate,
		Liquidity:   uint128.From64(liquidity),
		SqrtPrice:   fixedpoint.SaturatingToUint128(tickmath.MustTickToSqrtPrice(0)),
		TokenMintA:  key(1),
		TokenMintB:  key(2),
	}
}

func TestGetBestPoolPicksHighestOutput(t *testing.T) {
	shallow := pool(10, 1_000_000_000, 3000)
	deep := pool(11, 1_000_000_000_000, 3000)
	expensive := pool(12, 1_000_000_000_000, 10000)
	loader := &fakeLoader{pools: []*whirlpool.Pool{shallow, deep, expensive}}

	r := NewSimpleRouter(loader, whirlpool.NewQuoteEngine(50), zap.NewNop())
	if err := r.QueryAllPools(context.Background(), key(2), key(1)); err != nil {
		t.Fatalf("query pools: %v", err)
	}
	route, err := r.GetBestPool(context.Background(), key(1), cosmath.NewInt(10_000_000))
	if err != nil {
		t.Fatalf("best pool: %v", err)
	}
	if route.Pool.Address != deep.Address {
		t.Fatalf("best pool = %s, want %s", route.Pool.Address, deep.Address)
	}
	if !route.Quote.Exact || route.Quote.TokenOut != key(2) {
		t.Fatalf("route quote not exact or wrong output mint: %+v", route.Quote)
	}
}

func TestGetBestPoolSkipsFailures(t *testing.T) {
	good := pool(10, 1_000_000_000, 3000)
	bad := pool(11, 1_000_000_000_000, 3000)
	loader := &fakeLoader{pools: []*whirlpool.Pool{good, bad}, broken: map[solana.PublicKey]bool{bad.Address: true}}

	r := NewSimpleRouter(loader, whirlpool.NewQuoteEngine(50), nil)
	_ = r.QueryAllPools(context.Background(), key(1), key(2))
	route, err := r.GetBestPool(context.Background(), key(2), cosmath.NewInt(1_000))
	if err != nil {
		t.Fatalf("best pool: %v", err)
	}
	if route.Pool.Address != good.Address || route.Quote.Direction != whirlpool.DirectionBToA {
		t.Fatalf("unexpected route %s", route.Pool.Address)
	}

	loader.broken[good.Address] = true
	if _, err := r.GetBestPool(context.Background(), key(2), cosmath.NewInt(1_000)); err == nil {
		t.Fatalf("expected no route")
	}
}
