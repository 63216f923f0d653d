package executor

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"go.uber.org/zap"
)

// executeAtomic sends both legs in one transaction. Leg 2 is sized from leg 1's minimum output
// and must return at least the input amount, so an unprofitable round trip fails on chain
// instead of leaving the wallet in the intermediate token.
func (g *Guard) executeAtomic(ctx context.Context, opp *arbitrage.Opportunity, res *Result, logger *zap.Logger) {
	leg1, err := g.prepareLeg(ctx, opp.FirstPool, opp.FirstPoolDirection, opp.InputToken, opp.InputAmount, cosmath.Int{})
	if err != nil {
		res.fail(err, false)
		return
	}
	leg2, err := g.prepareLeg(ctx, opp.SecondPool, opp.SecondPoolDirection, opp.IntermediateToken,
		leg1.quote.TokenMinOut, opp.InputAmount.AddRaw(1))
	if err != nil {
		res.fail(fmt.Errorf("leg 2: %w", err), false)
		return
	}
	res.Leg1Output = leg1.quote.EstimatedAmountOut

	// Leg 2 may need an account leg 1 already creates.
	created := make(map[solana.PublicKey]bool)
	instrs := leg1.instructions(created)
	instrs = append(instrs, leg2.instructions(created)...)

	if g.cfg.DryRun {
		_, outcome, err := g.simulate(ctx, instrs)
		if err != nil {
			res.fail(err, false)
			return
		}
		res.UnitsConsumed = outcome.UnitsConsumed
		res.Leg2Output = leg2.quote.EstimatedAmountOut
		res.Profit = res.Leg2Output.Sub(opp.InputAmount)
		res.Success = true
		res.Message = "dry run: both legs simulated"
		return
	}

	inputBefore, err := g.balance(ctx, opp.InputToken)
	if err != nil {
		res.fail(err, false)
		return
	}
	sig, outcome, err := g.guardedSend(ctx, instrs)
	if err != nil {
		res.fail(err, false)
		return
	}
	res.Leg1Signature = sig
	res.Leg2Signature = sig
	res.UnitsConsumed = outcome.UnitsConsumed
	logger.Info("round trip sent", zap.Stringer("signature", sig))

	if err := g.tx.AwaitConfirmation(ctx, sig); err != nil {
		res.fail(fmt.Errorf("round trip not confirmed: %w", err), false)
		return
	}
	inputAfter, err := g.balance(ctx, opp.InputToken)
	if err != nil {
		res.fail(err, false)
		return
	}

	// Both legs settle in the same transaction, so the input balance moves by the net result.
	net := inputAfter.Sub(inputBefore)
	res.Leg2Output = opp.InputAmount.Add(net)
	res.Profit = net
	res.Success = net.IsPositive()
	if res.Success {
		res.Message = fmt.Sprintf("profit %s %s", net, opp.InputToken)
	} else {
		res.Message = fmt.Sprintf("round trip settled with net %s", net)
	}
}
