package executor

import (
	"context"
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"go.uber.org/zap"
)

// executeSequential sends leg 1, checks what it delivered, then sizes leg 2 from the realized
// amount. Any failure after leg 1 lands is a partial failure: the wallet is left holding the
// intermediate token.
func (g *Guard) executeSequential(ctx context.Context, opp *arbitrage.Opportunity, res *Result, logger *zap.Logger) {
	leg1, err := g.prepareLeg(ctx, opp.FirstPool, opp.FirstPoolDirection, opp.InputToken, opp.InputAmount, cosmath.Int{})
	if err != nil {
		res.fail(err, false)
		return
	}
	res.Leg1Output = leg1.quote.EstimatedAmountOut

	if g.cfg.DryRun {
		_, outcome, err := g.simulate(ctx, leg1.instructions(nil))
		if err != nil {
			res.fail(err, false)
			return
		}
		res.UnitsConsumed = outcome.UnitsConsumed
		res.Success = true
		res.Message = fmt.Sprintf("dry run: leg 1 simulated, expected %s %s", leg1.quote.EstimatedAmountOut, opp.IntermediateToken)
		return
	}

	intermediateBefore, err := g.balance(ctx, opp.IntermediateToken)
	if err != nil {
		res.fail(err, false)
		return
	}

	sig1, outcome, err := g.guardedSend(ctx, leg1.instructions(nil))
	if err != nil {
		res.fail(err, false)
		return
	}
	res.Leg1Signature = sig1
	res.UnitsConsumed = outcome.UnitsConsumed
	logger.Info("leg 1 sent", zap.Stringer("signature", sig1))

	if err := g.tx.AwaitConfirmation(ctx, sig1); err != nil {
		// Without a confirmation the leg may still land.
		unknown := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		res.fail(fmt.Errorf("leg 1 not confirmed: %w", err), unknown)
		return
	}

	intermediateAfter, err := g.balance(ctx, opp.IntermediateToken)
	if err != nil {
		res.fail(err, true)
		return
	}
	realized := delta(intermediateBefore, intermediateAfter)
	res.Leg1Output = realized

	required := opp.IntermediateAmount.MulRaw(int64(g.cfg.MinLeg1FillBps)).QuoRaw(10_000)
	if realized.LT(required) || realized.IsZero() {
		res.fail(pkg.NewError(pkg.KindPartialArbitrageFailure, "leg 1",
			fmt.Sprintf("leg 1 delivered %s, below %s required", realized, required), nil), true)
		return
	}

	leg2, err := g.prepareLeg(ctx, opp.SecondPool, opp.SecondPoolDirection, opp.IntermediateToken, realized, cosmath.Int{})
	if err != nil {
		res.fail(fmt.Errorf("leg 2: %w", err), true)
		return
	}

	inputBefore, err := g.balance(ctx, opp.InputToken)
	if err != nil {
		res.fail(err, true)
		return
	}
	sig2, outcome, err := g.guardedSend(ctx, leg2.instructions(nil))
	if err != nil {
		res.fail(fmt.Errorf("leg 2: %w", err), true)
		return
	}
	res.Leg2Signature = sig2
	res.UnitsConsumed += outcome.UnitsConsumed
	logger.Info("leg 2 sent", zap.Stringer("signature", sig2))

	if err := g.tx.AwaitConfirmation(ctx, sig2); err != nil {
		res.fail(fmt.Errorf("leg 2 not confirmed: %w", err), true)
		return
	}
	inputAfter, err := g.balance(ctx, opp.InputToken)
	if err != nil {
		res.fail(err, true)
		return
	}

	res.Leg2Output = delta(inputBefore, inputAfter)
	res.Profit = res.Leg2Output.Sub(opp.InputAmount)
	res.Success = res.Profit.IsPositive()
	if res.Success {
		res.Message = fmt.Sprintf("profit %s %s", res.Profit, opp.InputToken)
	} else {
		res.Kind = pkg.KindUnknown
		res.Message = fmt.Sprintf("round trip returned %s for %s in", res.Leg2Output, opp.InputAmount)
	}
}
