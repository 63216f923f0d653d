package arbitrage

import (
	"context"
	"errors"
	"sync"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu      sync.Mutex
	pools   map[solana.PublicKey]*whirlpool.Pool
	fetches int
}

func (f *fakeSource) FetchPoolByID(ctx context.Context, id solana.PublicKey) (*whirlpool.Pool, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	p, ok := f.pools[id]
	if !ok {
		return nil, pkg.ErrAccountNotFound
	}
	cp := *p
	return &cp, nil
}

type curve func(in cosmath.Int, d whirlpool.Direction) cosmath.Int

// fakeQuoter maps each pool to an output curve.
type fakeQuoter map[solana.PublicKey]curve

func (q fakeQuoter) Quote(pool *whirlpool.Pool, amountIn cosmath.Int, d whirlpool.Direction) (*whirlpool.SwapQuote, error) {
	curve, ok := q[pool.Address]
	if !ok {
		return nil, pkg.ErrZeroLiquidity
	}
	in, out := pool.Mints(d)
	return &whirlpool.SwapQuote{
		Pool:               pool.Address,
		TokenIn:            in,
		TokenOut:           out,
		EstimatedAmountIn:  amountIn,
		EstimatedAmountOut: curve(amountIn, d),
		Direction:          d,
	}, nil
}

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

var (
	mintX = key(1)
	mintY = key(2)
	mintZ = key(3)
)

func newPool(addr byte, a, b solana.PublicKey) *whirlpool.Pool {
	return &whirlpool.Pool{Address: key(addr), TokenMintA: a, TokenMintB: b, TickSpacing: 64}
}

func fixed(out int64) curve {
	return func(cosmath.Int, whirlpool.Direction) cosmath.Int { return cosmath.NewInt(out) }
}

// oneWay pays out only in direction d; the other direction halves the input.
func oneWay(d whirlpool.Direction, out int64) curve {
	return func(in cosmath.Int, got whirlpool.Direction) cosmath.Int {
		if got == d {
			return cosmath.NewInt(out)
		}
		return in.QuoRaw(2)
	}
}

func identity(in cosmath.Int, _ whirlpool.Direction) cosmath.Int { return in }

func newSource(pools ...*whirlpool.Pool) *fakeSource {
	m := make(map[solana.PublicKey]*whirlpool.Pool, len(pools))
	for _, p := range pools {
		m[p.Address] = p
	}
	return &fakeSource{pools: m}
}

func TestScoreArbitrage(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	quoter := fakeQuoter{
		p1.Address: oneWay(whirlpool.DirectionAToB, 1_050_000),
		p2.Address: oneWay(whirlpool.DirectionBToA, 1_020_000),
	}
	f := NewFinder(newSource(p1, p2), quoter, Options{Workers: 2, GasEstimate: 5_000}, zap.NewNop())

	amount := cosmath.NewInt(1_000_000)
	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address}, mintX, amount, amount, 20)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if opp == nil {
		t.Fatalf("expected an opportunity")
	}
	if opp.FirstPool != p1.Address || opp.SecondPool != p2.Address {
		t.Fatalf("pair = %s -> %s", opp.FirstPool, opp.SecondPool)
	}
	if !opp.IntermediateAmount.Equal(cosmath.NewInt(1_050_000)) || !opp.OutputAmount.Equal(cosmath.NewInt(1_020_000)) {
		t.Fatalf("legs = %s, %s", opp.IntermediateAmount, opp.OutputAmount)
	}
	if !opp.EstimatedFees.Equal(cosmath.NewInt(10_000)) {
		t.Fatalf("fees = %s", opp.EstimatedFees)
	}
	if !opp.ProfitAmount.Equal(cosmath.NewInt(10_000)) || opp.ProfitBasisPoints != 100 {
		t.Fatalf("profit = %s (%d bps)", opp.ProfitAmount, opp.ProfitBasisPoints)
	}
	if opp.IntermediateToken != mintY || opp.FirstPoolDirection != whirlpool.DirectionAToB || opp.SecondPoolDirection != whirlpool.DirectionBToA {
		t.Fatalf("routing wrong: %+v", opp)
	}
	if !opp.ProfitAmount.Equal(opp.OutputAmount.Sub(opp.InputAmount).Sub(opp.EstimatedFees)) {
		t.Fatalf("profit identity broken")
	}
}

func TestFindOpportunityRejectsBelowThreshold(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	quoter := fakeQuoter{
		p1.Address: oneWay(whirlpool.DirectionAToB, 1_050_000),
		p2.Address: oneWay(whirlpool.DirectionBToA, 1_020_000),
	}
	f := NewFinder(newSource(p1, p2), quoter, Options{GasEstimate: 5_000}, nil)
	amount := cosmath.NewInt(1_000_000)

	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address}, mintX, amount, amount, 101)
	if err != nil || opp != nil {
		t.Fatalf("opportunity below threshold returned: %v, %v", opp, err)
	}

	// A loss is never returned, even with a zero threshold.
	quoter[p2.Address] = oneWay(whirlpool.DirectionBToA, 1_000_000)
	opp, err = f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address}, mintX, amount, amount, 0)
	if err != nil || opp != nil {
		t.Fatalf("losing round trip returned: %v, %v", opp, err)
	}
}

func TestFindOpportunityCompatibility(t *testing.T) {
	xy := newPool(10, mintX, mintY)
	yz := newPool(11, mintY, mintZ)
	xz := newPool(12, mintX, mintZ)
	quoter := fakeQuoter{
		xy.Address: fixed(2_000_000),
		yz.Address: fixed(2_000_000),
		xz.Address: fixed(2_000_000),
	}
	f := NewFinder(newSource(xy, yz, xz), quoter, Options{Workers: 3}, nil)
	amount := cosmath.NewInt(1_000_000)

	// yz never takes mintX, and xy/xz share only mintX so no leg returns to mintX.
	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{xy.Address, yz.Address, xz.Address}, mintX, amount, amount, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if opp != nil {
		t.Fatalf("incompatible pools produced %s -> %s", opp.FirstPool, opp.SecondPool)
	}

	if _, err := f.Evaluate(xy, yz, mintX, amount); err == nil {
		t.Fatalf("evaluate should reject a leg that cannot return the input mint")
	}
}

func TestFindOpportunitySkipsBrokenPools(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	p3 := newPool(12, mintX, mintY)
	quoter := fakeQuoter{
		p1.Address: fixed(1_100_000),
		p2.Address: fixed(1_100_000),
	}
	// p3 has no quote curve and p4 is not on chain.
	f := NewFinder(newSource(p1, p2, p3), quoter, Options{Workers: 4}, nil)
	amount := cosmath.NewInt(1_000_000)

	opp, err := f.FindOpportunity(context.Background(),
		[]solana.PublicKey{p1.Address, p2.Address, p3.Address, key(13)}, mintX, amount, amount, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if opp == nil || opp.FirstPool != p1.Address || opp.SecondPool != p2.Address {
		t.Fatalf("expected p1 -> p2, got %+v", opp)
	}
}

func TestFindOpportunityDeterministic(t *testing.T) {
	pools := []*whirlpool.Pool{
		newPool(10, mintX, mintY),
		newPool(11, mintX, mintY),
		newPool(12, mintX, mintY),
		newPool(13, mintX, mintY),
		newPool(14, mintX, mintY),
	}
	quoter := fakeQuoter{}
	ids := make([]solana.PublicKey, 0, len(pools))
	for i, p := range pools {
		ids = append(ids, p.Address)
		// Every pair whose second leg is 11 or 13 ties at 50 bps.
		out := int64(1_000_000 + 5_000*(i%2))
		quoter[p.Address] = fixed(out)
	}
	amount := cosmath.NewInt(1_000_000)

	var first *Opportunity
	for _, workers := range []int{1, 2, 8, 1, 8} {
		f := NewFinder(newSource(pools...), quoter, Options{Workers: workers}, nil)
		opp, err := f.FindOpportunity(context.Background(), ids, mintX, amount, amount, 1)
		if err != nil || opp == nil {
			t.Fatalf("workers=%d: %v, %v", workers, opp, err)
		}
		if first == nil {
			first = opp
			continue
		}
		if opp.FirstPool != first.FirstPool || opp.SecondPool != first.SecondPool || opp.ProfitBasisPoints != first.ProfitBasisPoints {
			t.Fatalf("workers=%d picked %s -> %s, want %s -> %s",
				workers, opp.FirstPool, opp.SecondPool, first.FirstPool, first.SecondPool)
		}
	}
	// Enumeration order breaks the tie: (10, 11) is the first such pair.
	if first.FirstPool != key(10) || first.SecondPool != key(11) || first.ProfitBasisPoints != 50 {
		t.Fatalf("tie broken to %s -> %s", first.FirstPool, first.SecondPool)
	}
}

// bpsCurve returns a curve that adds bps(in) basis points to its input.
func bpsCurve(bps func(in int64) int64) curve {
	return func(in cosmath.Int, _ whirlpool.Direction) cosmath.Int {
		return in.Add(in.MulRaw(bps(in.Int64())).QuoRaw(10_000))
	}
}

func TestRefineMonotonicCurve(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	quoter := fakeQuoter{
		p1.Address: identity,
		p2.Address: bpsCurve(func(in int64) int64 { return 100 + in/100_000 }),
	}
	f := NewFinder(newSource(p1, p2), quoter, Options{}, nil)

	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address},
		mintX, cosmath.NewInt(1_000_000), cosmath.NewInt(10_000_000), 50)
	if err != nil || opp == nil {
		t.Fatalf("find: %v, %v", opp, err)
	}
	if opp.InputAmount.LT(cosmath.NewInt(9_000_000)) || opp.InputAmount.GT(cosmath.NewInt(10_000_000)) {
		t.Fatalf("refined amount %s, want near the maximum", opp.InputAmount)
	}
	if opp.ProfitBasisPoints <= 110 {
		t.Fatalf("refinement did not improve: %d bps", opp.ProfitBasisPoints)
	}
}

func TestRefineUnimodalCurve(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	const peak = 7_000_000
	quoter := fakeQuoter{
		p1.Address: identity,
		p2.Address: bpsCurve(func(in int64) int64 {
			d := in - peak
			if d < 0 {
				d = -d
			}
			return 300 - d*100/peak
		}),
	}
	f := NewFinder(newSource(p1, p2), quoter, Options{}, nil)

	minAmount := cosmath.NewInt(1_000_000)
	atMin, err := f.Evaluate(p1, p2, mintX, minAmount)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address},
		mintX, minAmount, cosmath.NewInt(10_000_000), 50)
	if err != nil || opp == nil {
		t.Fatalf("find: %v, %v", opp, err)
	}
	if opp.ProfitBasisPoints <= atMin.ProfitBasisPoints {
		t.Fatalf("refined %d bps, not above %d at the minimum", opp.ProfitBasisPoints, atMin.ProfitBasisPoints)
	}
	if opp.InputAmount.LT(minAmount) || opp.InputAmount.GT(cosmath.NewInt(10_000_000)) {
		t.Fatalf("refined amount %s out of range", opp.InputAmount)
	}
	if opp.ProfitBasisPoints < 280 {
		t.Fatalf("refined %d bps, want close to the 300 bps peak", opp.ProfitBasisPoints)
	}
}

func TestRefineSkippedBelowDoubleThreshold(t *testing.T) {
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	quoter := fakeQuoter{
		p1.Address: identity,
		p2.Address: bpsCurve(func(in int64) int64 { return 60 + in/100_000 }),
	}
	f := NewFinder(newSource(p1, p2), quoter, Options{}, nil)

	opp, err := f.FindOpportunity(context.Background(), []solana.PublicKey{p1.Address, p2.Address},
		mintX, cosmath.NewInt(1_000_000), cosmath.NewInt(10_000_000), 50)
	if err != nil || opp == nil {
		t.Fatalf("find: %v, %v", opp, err)
	}
	if !opp.InputAmount.Equal(cosmath.NewInt(1_000_000)) {
		t.Fatalf("amount refined to %s although 70 bps < 2 x 50", opp.InputAmount)
	}
}

func TestFindOpportunityArguments(t *testing.T) {
	f := NewFinder(newSource(), fakeQuoter{}, Options{}, nil)
	ctx := context.Background()
	if _, err := f.FindOpportunity(ctx, nil, mintX, cosmath.ZeroInt(), cosmath.NewInt(10), 1); err == nil {
		t.Fatalf("zero minimum accepted")
	}
	if _, err := f.FindOpportunity(ctx, nil, mintX, cosmath.NewInt(10), cosmath.NewInt(5), 1); err == nil {
		t.Fatalf("max below min accepted")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	p1 := newPool(10, mintX, mintY)
	p2 := newPool(11, mintX, mintY)
	f = NewFinder(newSource(p1, p2), fakeQuoter{p1.Address: identity, p2.Address: identity}, Options{}, nil)
	_, err := f.FindOpportunity(cancelled, []solana.PublicKey{p1.Address, p2.Address}, mintX, cosmath.NewInt(10), cosmath.NewInt(10), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled scan: got %v", err)
	}
}
