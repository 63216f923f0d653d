package arbitrage

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// maxRefineSteps caps the amount search independently of its range condition.
const maxRefineSteps = 64

// refine searches [minAmount, maxAmount] for a larger profit in basis points, assuming profit is
// unimodal in the input amount. It halves toward the midpoint when the midpoint beats the best so
// far and toward the minimum otherwise, stopping once the range is within a tenth of its lower
// bound. The best opportunity seen is returned; a curve with several peaks can be missed.
func (f *Finder) refine(c *candidate, inputMint solana.PublicKey, minAmount, maxAmount cosmath.Int, minProfitBps int64) *Opportunity {
	best := c.opp
	lo, hi := minAmount, maxAmount
	two := cosmath.NewInt(2)
	ten := cosmath.NewInt(10)

	for step := 0; step < maxRefineSteps && hi.Sub(lo).GT(lo.Quo(ten)); step++ {
		mid := lo.Add(hi).Quo(two)
		opp, err := f.Evaluate(c.first, c.second, inputMint, mid)
		if err != nil {
			f.logger.Debug("refine step failed", zap.String("amount", mid.String()), zap.Error(err))
		}
		if err == nil && accepted(opp, minProfitBps) && opp.ProfitBasisPoints > best.ProfitBasisPoints {
			best = opp
			lo = mid
		} else {
			hi = mid
		}
	}
	return best
}
