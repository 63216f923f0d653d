package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/yimingwow/solarb/pkg/arbitrage"
	"github.com/yimingwow/solarb/pkg/config"
	"github.com/yimingwow/solarb/pkg/executor"
	"github.com/yimingwow/solarb/pkg/logger"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"github.com/yimingwow/solarb/pkg/protocol"
	"github.com/yimingwow/solarb/pkg/router"
	"github.com/yimingwow/solarb/pkg/scheduler"
	"github.com/yimingwow/solarb/pkg/sol"
	"github.com/yimingwow/solarb/pkg/tickmath"
	"go.uber.org/zap"
)

// app is the wiring shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *sol.Client
	proto  *protocol.OrcaWhirlpoolProtocol
	quoter *whirlpool.QuoteEngine
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	opts := []sol.Option{
		sol.WithLogger(log),
		sol.WithComputeBudget(cfg.ComputeUnitLimit, cfg.ComputeUnitPrice),
		sol.WithConfirmTimeout(cfg.ConfirmTimeout),
		sol.WithJitoTip(cfg.JitoTip),
	}
	if cfg.PrivateKey != nil {
		opts = append(opts, sol.WithSigner(cfg.PrivateKey))
	}
	client, err := sol.NewClient(ctx, cfg.RPCURL, cfg.JitoURL, cfg.RequestsPerSecond, opts...)
	if err != nil {
		return nil, fmt.Errorf("create solana client: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: log,
		client: client,
		proto:  protocol.NewOrcaWhirlpool(client, client, log),
		quoter: whirlpool.NewQuoteEngine(cfg.SlippageBps),
	}, nil
}

func (a *app) finder() *arbitrage.Finder {
	return arbitrage.NewFinder(a.proto, a.quoter, arbitrage.Options{
		Workers:     a.cfg.Workers,
		GasEstimate: a.cfg.GasEstimate,
	}, a.logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("pools", nil, "candidate Whirlpool addresses (comma-separated)")
	cmd.Flags().String("input-mint", "So11111111111111111111111111111111111111112", "mint the round trip starts and ends in")
	cmd.Flags().Uint64("min-amount", 10_000_000, "smallest input amount in raw units")
	cmd.Flags().Uint64("max-amount", 1_000_000_000, "largest input amount in raw units")
	cmd.Flags().Int64("min-profit-bps", 20, "minimum profit in basis points")
	cmd.Flags().Uint16("slippage-bps", 50, "slippage tolerance in basis points")
	cmd.Flags().Uint64("gas-estimate", 5_000, "per-leg cost in input token units")
	cmd.Flags().Int("workers", 8, "concurrent pair evaluations")
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search the pools once for a profitable round trip",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if err := a.cfg.ValidateScan(); err != nil {
				return err
			}

			opp, err := a.finder().FindOpportunity(ctx, a.cfg.Pools, a.cfg.InputMint,
				cosmath.NewIntFromUint64(a.cfg.MinAmount), cosmath.NewIntFromUint64(a.cfg.MaxAmount), a.cfg.MinProfitBps)
			if err != nil {
				return err
			}
			if opp == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no opportunity")
				return nil
			}
			printOpportunity(cmd, opp)
			return nil
		},
	}
	addScanFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan periodically and execute opportunities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if err := a.cfg.ValidateExecution(); err != nil {
				return err
			}

			journal := logger.NewJournal(a.cfg.Journal)
			defer journal.Sync()

			guard, err := executor.NewGuard(executor.Config{
				Wallet:         a.client.Wallet(),
				Strategy:       executor.Strategy(a.cfg.Strategy),
				DryRun:         a.cfg.DryRun,
				MinLeg1FillBps: a.cfg.MinLeg1FillBps,
			}, a.proto, a.client, a.client, a.client, a.quoter,
				executor.WithTokenPrograms(a.client),
				executor.WithJournal(journal),
				executor.WithLogger(a.logger))
			if err != nil {
				return err
			}

			loop, err := scheduler.NewLoop(scheduler.Config{
				Interval:     a.cfg.ScanInterval,
				Pools:        a.cfg.Pools,
				InputMint:    a.cfg.InputMint,
				MinAmount:    cosmath.NewIntFromUint64(a.cfg.MinAmount),
				MaxAmount:    cosmath.NewIntFromUint64(a.cfg.MaxAmount),
				MinProfitBps: a.cfg.MinProfitBps,
			}, a.finder(), guard, a.client, a.logger)
			if err != nil {
				return err
			}

			a.logger.Info("run start",
				zap.String("rpc", a.cfg.RPCURL),
				zap.Stringer("wallet", a.client.Wallet()),
				zap.String("strategy", a.cfg.Strategy),
				zap.Bool("dry_run", a.cfg.DryRun),
				zap.Bool("jito", a.client.HasJito()),
				zap.Int("pools", len(a.cfg.Pools)))
			return loop.Run(ctx)
		},
	}
	addScanFlags(cmd)
	cmd.Flags().Duration("scan-interval", 2*time.Second, "time between scans")
	cmd.Flags().String("strategy", "sequential", "execution strategy (sequential, atomic)")
	cmd.Flags().Bool("dry-run", false, "simulate only, never broadcast")
	cmd.Flags().Uint16("min-leg1-fill-bps", 9800, "realized share of expected leg 1 output required for leg 2")
	cmd.Flags().Uint32("compute-unit-limit", 400_000, "compute unit limit, 0 omits the instruction")
	cmd.Flags().Uint64("compute-unit-price", 10_000, "priority fee in micro-lamports per unit, 0 omits the instruction")
	cmd.Flags().Uint64("jito-tip", 0, "Jito tip in lamports, 0 sends through RPC")
	cmd.Flags().Duration("confirm-timeout", 60*time.Second, "how long to wait for a confirmation")
	cmd.Flags().String("journal", "", "JSON lines file recording every execution")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap on one pool, or on the best pool for a mint pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if a.cfg.Amount == 0 || a.cfg.InputMint.IsZero() {
				return errors.New("amount and input mint are required")
			}
			amount := cosmath.NewIntFromUint64(a.cfg.Amount)

			var pool *whirlpool.Pool
			switch {
			case !a.cfg.Pool.IsZero():
				if pool, err = a.proto.FetchPoolByID(ctx, a.cfg.Pool); err != nil {
					return err
				}
			case !a.cfg.OutputMint.IsZero():
				r := router.NewSimpleRouter(a.proto, a.quoter, a.logger)
				if err := r.QueryAllPools(ctx, a.cfg.InputMint, a.cfg.OutputMint); err != nil {
					return err
				}
				route, err := r.GetBestPool(ctx, a.cfg.InputMint, amount)
				if err != nil {
					return err
				}
				pool = route.Pool
			default:
				return errors.New("either pool or output mint is required")
			}

			d, err := pool.DirectionFor(a.cfg.InputMint)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pool %s (%s)\n", pool.Address, d)

			if approx, err := a.quoter.Quote(pool, amount, d); err != nil {
				fmt.Fprintf(out, "approximate: %v\n", err)
			} else {
				printQuote(cmd, "approximate", approx)
			}
			arrays, err := a.proto.FetchSwapTickArrays(ctx, pool, d)
			if err != nil {
				return err
			}
			exact, err := a.quoter.ExactQuote(pool, arrays, amount, d)
			if err != nil {
				return err
			}
			printQuote(cmd, "exact", exact)

			infoA, errA := a.client.MintInfo(ctx, pool.TokenMintA)
			infoB, errB := a.client.MintInfo(ctx, pool.TokenMintB)
			if errA == nil && errB == nil {
				fmt.Fprintf(out, "price %s -> %s\n",
					tickmath.TickToPrice(pool.TickCurrentIndex, infoA.Decimals, infoB.Decimals).StringFixed(8),
					tickmath.TickToPrice(exact.EndTickIndex, infoA.Decimals, infoB.Decimals).StringFixed(8))
			}
			return nil
		},
	}
	cmd.Flags().String("pool", "", "Whirlpool address")
	cmd.Flags().String("input-mint", "So11111111111111111111111111111111111111112", "input mint")
	cmd.Flags().String("output-mint", "", "output mint, used to pick the best pool when no pool is given")
	cmd.Flags().Uint64("amount", 0, "input amount in raw units")
	cmd.Flags().Uint16("slippage-bps", 50, "slippage tolerance in basis points")
	return cmd
}

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List the Whirlpools trading a mint pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if a.cfg.InputMint.IsZero() || a.cfg.OutputMint.IsZero() {
				return errors.New("input and output mints are required")
			}

			pools, err := a.proto.FetchPoolsByPair(ctx, a.cfg.InputMint, a.cfg.OutputMint)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range pools {
				price := decimal.Zero
				infoA, errA := a.client.MintInfo(ctx, p.TokenMintA)
				infoB, errB := a.client.MintInfo(ctx, p.TokenMintB)
				if errA == nil && errB == nil {
					price = tickmath.SqrtPriceToPrice(p.SqrtPriceX64(), infoA.Decimals, infoB.Decimals)
				}
				fmt.Fprintf(out, "%s spacing=%d fee=%dppm tick=%d liquidity=%s price=%s\n",
					p.Address, p.TickSpacing, p.FeeRate, p.TickCurrentIndex, p.Liquidity.String(), price.StringFixed(8))
			}
			fmt.Fprintf(out, "%d %s pools\n", len(pools), a.proto.ProtocolName())
			return nil
		},
	}
	cmd.Flags().String("input-mint", "So11111111111111111111111111111111111111112", "first mint")
	cmd.Flags().String("output-mint", "", "second mint")
	return cmd
}

func newWrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Wrap SOL into WSOL, or close the WSOL account with --unwrap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if a.cfg.PrivateKey == nil {
				return errors.New("private key is required")
			}

			unwrap, _ := cmd.Flags().GetBool("unwrap")
			var sig solana.Signature
			if unwrap {
				sig, err = a.client.UnwrapSol(ctx)
			} else {
				if a.cfg.Amount == 0 {
					return errors.New("amount is required")
				}
				sig, err = a.client.WrapSol(ctx, a.cfg.Amount)
			}
			if err != nil {
				return err
			}
			balance, err := a.client.TokenBalance(ctx, a.client.Wallet(), sol.WSOL)
			if err != nil {
				return err
			}
			lamports, err := a.client.SolBalance(ctx, a.client.Wallet())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "confirmed %s, wsol balance %d, sol balance %d\n", sig, balance, lamports)
			return nil
		},
	}
	cmd.Flags().Uint64("amount", 0, "lamports to wrap")
	cmd.Flags().Bool("unwrap", false, "close the WSOL account instead")
	return cmd
}

func printOpportunity(cmd *cobra.Command, opp *arbitrage.Opportunity) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "leg 1: %s %s -> %s %s via %s (%s)\n",
		opp.InputAmount, opp.InputToken, opp.IntermediateAmount, opp.IntermediateToken, opp.FirstPool, opp.FirstPoolDirection)
	fmt.Fprintf(out, "leg 2: %s %s -> %s %s via %s (%s)\n",
		opp.IntermediateAmount, opp.IntermediateToken, opp.OutputAmount, opp.InputToken, opp.SecondPool, opp.SecondPoolDirection)
	fmt.Fprintf(out, "fees %s, profit %s (%d bps)\n", opp.EstimatedFees, opp.ProfitAmount, opp.ProfitBasisPoints)
}

func printQuote(cmd *cobra.Command, label string, q *whirlpool.SwapQuote) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: in %s (max %s) out %s (min %s) fee %s ticks crossed %d end tick %d\n",
		label, q.EstimatedAmountIn, q.TokenMaxIn, q.EstimatedAmountOut, q.TokenMinOut, q.FeeAmount, q.TicksCrossed, q.EndTickIndex)
}
