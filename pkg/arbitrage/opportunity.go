package arbitrage

import (
	"math"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap/zapcore"
)

// Opportunity is a two-leg round trip: input token to the intermediate token through
// FirstPool, then back through SecondPool.
//
// ProfitAmount = OutputAmount - InputAmount - EstimatedFees and is always positive for an
// opportunity returned by the Finder.
type Opportunity struct {
	FirstPool           solana.PublicKey
	SecondPool          solana.PublicKey
	InputToken          solana.PublicKey
	InputAmount         cosmath.Int
	FirstPoolDirection  whirlpool.Direction
	IntermediateToken   solana.PublicKey
	IntermediateAmount  cosmath.Int
	SecondPoolDirection whirlpool.Direction
	OutputAmount        cosmath.Int
	EstimatedFees       cosmath.Int
	ProfitAmount        cosmath.Int
	ProfitBasisPoints   int64
	DetectedAt          time.Time
}

func (o *Opportunity) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("first_pool", o.FirstPool.String())
	enc.AddString("second_pool", o.SecondPool.String())
	enc.AddString("input_token", o.InputToken.String())
	enc.AddString("intermediate_token", o.IntermediateToken.String())
	enc.AddString("input_amount", o.InputAmount.String())
	enc.AddString("intermediate_amount", o.IntermediateAmount.String())
	enc.AddString("output_amount", o.OutputAmount.String())
	enc.AddString("fees", o.EstimatedFees.String())
	enc.AddString("profit", o.ProfitAmount.String())
	enc.AddInt64("profit_bps", o.ProfitBasisPoints)
	return nil
}

// score fills in fees, profit and basis points. Basis points are zero unless profit is positive.
func score(inputAmount, outputAmount, fees cosmath.Int) (cosmath.Int, int64) {
	profit := outputAmount.Sub(fees).Sub(inputAmount)
	if !profit.IsPositive() || !inputAmount.IsPositive() {
		return profit, 0
	}
	bps := profit.MulRaw(10_000).Quo(inputAmount)
	if !bps.IsInt64() {
		return profit, math.MaxInt64
	}
	return profit, bps.Int64()
}
