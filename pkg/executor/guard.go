package executor

import (
	"context"
	"fmt"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap"
)

// StateLoader loads a fresh pool snapshot with the tick arrays for a direction.
type StateLoader interface {
	FetchSwapState(ctx context.Context, id solana.PublicKey, d whirlpool.Direction) (*whirlpool.Pool, []*whirlpool.TickArray, error)
}

// TokenProgramResolver reports which token program owns a mint.
type TokenProgramResolver interface {
	TokenProgramOf(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}

type Config struct {
	Wallet   solana.PublicKey
	Strategy Strategy
	// DryRun stops after the first simulation.
	DryRun bool
	// MinLeg1FillBps is the realized share of the expected leg 1 output required before leg 2 is sent.
	MinLeg1FillBps uint16
}

// Guard executes arbitrage opportunities. Every broadcast is immediately preceded by a
// successful simulation of the same signed transaction.
type Guard struct {
	cfg      Config
	loader   StateLoader
	tx       pkg.TransactionService
	accounts pkg.TokenAccountProvider
	balances pkg.BalanceReader
	programs TokenProgramResolver
	quoter   *whirlpool.QuoteEngine
	logger   *zap.Logger
	journal  *zap.Logger
	now      func() time.Time
}

type Option func(*Guard)

// WithTokenPrograms resolves mint token programs; without it every mint uses the classic SPL program.
func WithTokenPrograms(r TokenProgramResolver) Option {
	return func(g *Guard) { g.programs = r }
}

// WithJournal records every result on the given logger.
func WithJournal(journal *zap.Logger) Option {
	return func(g *Guard) { g.journal = journal }
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func NewGuard(cfg Config, loader StateLoader, tx pkg.TransactionService, accounts pkg.TokenAccountProvider,
	balances pkg.BalanceReader, quoter *whirlpool.QuoteEngine, opts ...Option) (*Guard, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySequential
	}
	if !cfg.Strategy.Valid() {
		return nil, fmt.Errorf("unknown execution strategy %q", cfg.Strategy)
	}
	if cfg.Wallet.IsZero() {
		return nil, fmt.Errorf("execution needs a wallet")
	}
	if cfg.MinLeg1FillBps == 0 {
		cfg.MinLeg1FillBps = 9800
	}
	g := &Guard{
		cfg:      cfg,
		loader:   loader,
		tx:       tx,
		accounts: accounts,
		balances: balances,
		quoter:   quoter,
		logger:   zap.NewNop(),
		journal:  zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("guard")
	return g, nil
}

// Execute runs the opportunity with the configured strategy. Failures are reported in the result.
func (g *Guard) Execute(ctx context.Context, opp *arbitrage.Opportunity) *Result {
	res := newResult(g.cfg.Strategy, g.cfg.DryRun, g.now())
	logger := g.logger.With(zap.String("execution", res.ID))
	logger.Info("executing", zap.Object("opportunity", opp))

	switch g.cfg.Strategy {
	case StrategySequential:
		g.executeSequential(ctx, opp, res, logger)
	case StrategyAtomic:
		g.executeAtomic(ctx, opp, res, logger)
	}

	res.FinishedAt = g.now()
	if res.Success {
		logger.Info("execution finished", zap.Object("result", res))
	} else {
		logger.Warn("execution failed", zap.Object("result", res))
	}
	g.journal.Info("execution", zap.Object("result", res))
	return res
}

// simulate builds the transaction for instrs and simulates it without sending.
func (g *Guard) simulate(ctx context.Context, instrs []solana.Instruction) (*solana.Transaction, *pkg.SimulationOutcome, error) {
	tx, err := g.tx.BuildTransaction(ctx, instrs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	outcome, err := g.tx.Simulate(ctx, tx)
	if err != nil {
		if pkg.KindOf(err) != pkg.KindSimulationFailure {
			err = pkg.NewSimulationError(pkg.SimulationUnknown, "simulation failed", err)
		}
		return nil, nil, err
	}
	return tx, outcome, nil
}

// guardedSend is the only path to Broadcast: it simulates the transaction for instrs and
// broadcasts that same transaction only when the simulation succeeded.
func (g *Guard) guardedSend(ctx context.Context, instrs []solana.Instruction) (solana.Signature, *pkg.SimulationOutcome, error) {
	tx, outcome, err := g.simulate(ctx, instrs)
	if err != nil {
		return solana.Signature{}, nil, err
	}
	sig, err := g.tx.Broadcast(ctx, tx)
	if err != nil {
		return solana.Signature{}, outcome, fmt.Errorf("broadcast failed: %w", err)
	}
	return sig, outcome, nil
}

// accountSetup creates a missing token account ahead of the swap that uses it.
type accountSetup struct {
	account solana.PublicKey
	instr   solana.Instruction
}

// leg is a swap ready to send.
type leg struct {
	pool  *whirlpool.Pool
	quote *whirlpool.SwapQuote
	setup []accountSetup
	swap  solana.Instruction
}

// instructions returns the leg's setup followed by its swap, skipping setup for accounts in
// created.
func (l *leg) instructions(created map[solana.PublicKey]bool) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(l.setup)+1)
	for _, s := range l.setup {
		if created[s.account] {
			continue
		}
		if created != nil {
			created[s.account] = true
		}
		out = append(out, s.instr)
	}
	return append(out, l.swap)
}

// prepareLeg re-quotes a swap on a fresh snapshot with the tick-crossing simulator and builds
// its instructions. A positive minOut raises the quote's output threshold.
func (g *Guard) prepareLeg(ctx context.Context, poolID solana.PublicKey, d whirlpool.Direction,
	inputMint solana.PublicKey, amount cosmath.Int, minOut cosmath.Int) (*leg, error) {
	pool, arrays, err := g.loader.FetchSwapState(ctx, poolID, d)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool %s: %w", poolID, err)
	}
	if in, _ := pool.Mints(d); !in.Equals(inputMint) {
		return nil, fmt.Errorf("pool %s takes %s in direction %s, not %s", poolID, in, d, inputMint)
	}
	quote, err := g.quoter.ExactQuote(pool, arrays, amount, d)
	if err != nil {
		return nil, fmt.Errorf("failed to quote pool %s: %w", poolID, err)
	}
	if !minOut.IsNil() && minOut.GT(quote.TokenMinOut) {
		quote.TokenMinOut = minOut
	}

	accts, setup, err := g.swapAccounts(ctx, pool)
	if err != nil {
		return nil, err
	}
	inst, err := pool.BuildSwapInstruction(quote, accts)
	if err != nil {
		return nil, err
	}
	return &leg{pool: pool, quote: quote, setup: setup, swap: inst}, nil
}

// swapAccounts resolves the wallet's token accounts for both pool mints. Accounts that do not
// exist yet come back with the instruction creating them; nothing is sent here.
func (g *Guard) swapAccounts(ctx context.Context, pool *whirlpool.Pool) (whirlpool.SwapAccounts, []accountSetup, error) {
	var setup []accountSetup
	resolve := func(mint solana.PublicKey) (solana.PublicKey, error) {
		addr, create, err := g.accounts.TokenAccount(ctx, g.cfg.Wallet, mint)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("token account for %s: %w", mint, err)
		}
		if create != nil {
			setup = append(setup, accountSetup{account: addr, instr: create})
		}
		return addr, nil
	}

	ownerA, err := resolve(pool.TokenMintA)
	if err != nil {
		return whirlpool.SwapAccounts{}, nil, err
	}
	ownerB, err := resolve(pool.TokenMintB)
	if err != nil {
		return whirlpool.SwapAccounts{}, nil, err
	}
	accts := whirlpool.SwapAccounts{
		Authority:     g.cfg.Wallet,
		OwnerAccountA: ownerA,
		OwnerAccountB: ownerB,
	}
	if g.programs != nil {
		if accts.TokenProgramA, err = g.programs.TokenProgramOf(ctx, pool.TokenMintA); err != nil {
			return whirlpool.SwapAccounts{}, nil, err
		}
		if accts.TokenProgramB, err = g.programs.TokenProgramOf(ctx, pool.TokenMintB); err != nil {
			return whirlpool.SwapAccounts{}, nil, err
		}
	}
	return accts, setup, nil
}

func (g *Guard) balance(ctx context.Context, mint solana.PublicKey) (cosmath.Int, error) {
	b, err := g.balances.TokenBalance(ctx, g.cfg.Wallet, mint)
	if err != nil {
		return cosmath.Int{}, fmt.Errorf("failed to read %s balance: %w", mint, err)
	}
	return cosmath.NewIntFromUint64(b), nil
}

// delta is after - before, floored at zero.
func delta(before, after cosmath.Int) cosmath.Int {
	if after.LT(before) {
		return cosmath.ZeroInt()
	}
	return after.Sub(before)
}
