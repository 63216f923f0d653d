package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/pool/whirlpool"
	"go.uber.org/zap"
)

type OrcaWhirlpoolProtocol struct {
	Fetcher pkg.AccountFetcher
	Scanner pkg.ProgramAccountScanner
	logger  *zap.Logger
}

func NewOrcaWhirlpool(fetcher pkg.AccountFetcher, scanner pkg.ProgramAccountScanner, logger *zap.Logger) *OrcaWhirlpoolProtocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrcaWhirlpoolProtocol{
		Fetcher: fetcher,
		Scanner: scanner,
		logger:  logger.Named("whirlpool"),
	}
}

func (p *OrcaWhirlpoolProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameOrcaWhirlpool
}

// FetchPoolsByPair lists every Whirlpool trading the two mints, in either order.
func (p *OrcaWhirlpoolProtocol) FetchPoolsByPair(ctx context.Context, mintX, mintY solana.PublicKey) ([]*whirlpool.Pool, error) {
	if p.Scanner == nil {
		return nil, errors.New("pool discovery needs a program account scanner")
	}
	mintA, mintB := mintX, mintY
	if bytes.Compare(mintA[:], mintB[:]) > 0 {
		mintA, mintB = mintB, mintA
	}

	accounts, err := p.Scanner.ScanProgramAccounts(ctx, whirlpool.WhirlpoolProgramID, []rpc.RPCFilter{
		{
			DataSize: whirlpool.PoolAccountSize,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: whirlpool.TokenMintAOffset,
				Bytes:  mintA.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: whirlpool.TokenMintBOffset,
				Bytes:  mintB.Bytes(),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan whirlpools for %s/%s: %w", mintA, mintB, err)
	}

	res := make([]*whirlpool.Pool, 0, len(accounts))
	for _, acc := range accounts {
		pool, err := whirlpool.DecodePool(acc.Address, acc.Data)
		if err != nil {
			p.logger.Debug("skipping undecodable pool", zap.Stringer("pool", acc.Address), zap.Error(err))
			continue
		}
		res = append(res, pool)
	}
	return res, nil
}

// FetchPoolByID loads and decodes a single pool.
func (p *OrcaWhirlpoolProtocol) FetchPoolByID(ctx context.Context, id solana.PublicKey) (*whirlpool.Pool, error) {
	acc, err := p.Fetcher.FetchAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", id, err)
	}
	if !acc.Owner.IsZero() && !acc.Owner.Equals(whirlpool.WhirlpoolProgramID) {
		return nil, pkg.NewError(pkg.KindDecode, "fetch pool", fmt.Sprintf("account %s is owned by %s", id, acc.Owner), nil)
	}
	pool, err := whirlpool.DecodePool(id, acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", id, err)
	}
	return pool, nil
}

// FetchSwapTickArrays loads the tick arrays a swap in direction d traverses. Arrays with no
// account on chain come back uninitialized.
func (p *OrcaWhirlpoolProtocol) FetchSwapTickArrays(ctx context.Context, pool *whirlpool.Pool, d whirlpool.Direction) ([]*whirlpool.TickArray, error) {
	starts, addrs, err := pool.SwapTickArrays(d)
	if err != nil {
		return nil, err
	}

	// Padding repeats the last address; fetch each array once.
	unique := make([]solana.PublicKey, 0, len(addrs))
	uniqueStarts := make([]int32, 0, len(addrs))
	for i, addr := range addrs {
		if i > 0 && addr.Equals(addrs[i-1]) {
			continue
		}
		unique = append(unique, addr)
		uniqueStarts = append(uniqueStarts, starts[i])
	}

	accounts, err := p.Fetcher.FetchAccounts(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to get tick arrays for %s: %w", pool.Address, err)
	}
	if len(accounts) != len(unique) {
		return nil, fmt.Errorf("tick array fetch returned %d accounts for %d addresses", len(accounts), len(unique))
	}

	arrays := make([]*whirlpool.TickArray, 0, len(unique))
	for i, acc := range accounts {
		if acc == nil || len(acc.Data) == 0 {
			arrays = append(arrays, whirlpool.NewUninitializedTickArray(unique[i], pool.Address, uniqueStarts[i]))
			continue
		}
		ta, err := whirlpool.DecodeTickArray(unique[i], acc.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode tick array %s: %w", unique[i], err)
		}
		if ta.StartTickIndex != uniqueStarts[i] || !ta.Whirlpool.Equals(pool.Address) {
			return nil, pkg.NewError(pkg.KindDecode, "fetch tick arrays",
				fmt.Sprintf("tick array %s does not belong to pool %s at %d", unique[i], pool.Address, uniqueStarts[i]), nil)
		}
		arrays = append(arrays, ta)
	}
	return arrays, nil
}

// FetchSwapState loads a fresh pool snapshot together with the tick arrays for direction d.
func (p *OrcaWhirlpoolProtocol) FetchSwapState(ctx context.Context, id solana.PublicKey, d whirlpool.Direction) (*whirlpool.Pool, []*whirlpool.TickArray, error) {
	pool, err := p.FetchPoolByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	arrays, err := p.FetchSwapTickArrays(ctx, pool, d)
	if err != nil {
		return nil, nil, err
	}
	return pool, arrays, nil
}
