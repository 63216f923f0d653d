package executor

import (
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/yimingwow/solarb/pkg"
	"go.uber.org/zap/zapcore"
)

type Strategy string

const (
	// StrategySequential sends the legs as two transactions, verifying leg 1 before leg 2.
	StrategySequential Strategy = "sequential"
	// StrategyAtomic sends both legs in one transaction.
	StrategyAtomic Strategy = "atomic"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyAtomic:
		return true
	}
	return false
}

// Result describes one execution attempt. It is not modified after Execute returns it.
type Result struct {
	ID            string
	Success       bool
	DryRun        bool
	Strategy      Strategy
	Leg1Signature solana.Signature
	Leg2Signature solana.Signature
	Leg1Output    cosmath.Int
	Leg2Output    cosmath.Int
	Profit        cosmath.Int
	UnitsConsumed uint64
	Kind          pkg.ErrorKind
	Code          pkg.SimulationCode
	Message       string
	StartedAt     time.Time
	FinishedAt    time.Time
}

func newResult(strategy Strategy, dryRun bool, now time.Time) *Result {
	return &Result{
		ID:         uuid.New().String(),
		DryRun:     dryRun,
		Strategy:   strategy,
		Leg1Output: cosmath.ZeroInt(),
		Leg2Output: cosmath.ZeroInt(),
		Profit:     cosmath.ZeroInt(),
		StartedAt:  now,
	}
}

// fail records err's kind and code. A failure after leg 1 landed is always partial.
func (r *Result) fail(err error, leg1Landed bool) {
	r.Success = false
	r.Kind = pkg.KindOf(err)
	r.Code = pkg.SimulationCodeOf(err)
	if leg1Landed {
		r.Kind = pkg.KindPartialArbitrageFailure
	}
	r.Message = err.Error()
	if r.Kind == pkg.KindSimulationFailure && r.Code != pkg.SimulationUnknown {
		r.Message = r.Code.Hint() + ": " + r.Message
	}
}

func (r *Result) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", r.ID)
	enc.AddBool("success", r.Success)
	enc.AddBool("dry_run", r.DryRun)
	enc.AddString("strategy", string(r.Strategy))
	if r.Leg1Signature != (solana.Signature{}) {
		enc.AddString("leg1_signature", r.Leg1Signature.String())
	}
	if r.Leg2Signature != (solana.Signature{}) {
		enc.AddString("leg2_signature", r.Leg2Signature.String())
	}
	enc.AddString("leg1_output", r.Leg1Output.String())
	enc.AddString("leg2_output", r.Leg2Output.String())
	enc.AddString("profit", r.Profit.String())
	if r.UnitsConsumed > 0 {
		enc.AddUint64("units_consumed", r.UnitsConsumed)
	}
	if !r.Success {
		enc.AddString("kind", r.Kind.String())
		enc.AddString("code", r.Code.String())
	}
	enc.AddString("message", r.Message)
	enc.AddTime("started_at", r.StartedAt)
	enc.AddDuration("elapsed", r.FinishedAt.Sub(r.StartedAt))
	return nil
}
