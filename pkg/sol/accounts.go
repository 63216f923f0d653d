package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingwow/solarb/pkg"
)

// maxMultipleAccounts is the getMultipleAccounts batch limit.
const maxMultipleAccounts = 100

func toAccount(address solana.PublicKey, acc *rpc.Account) *pkg.Account {
	if acc == nil {
		return nil
	}
	return &pkg.Account{
		Address:  address,
		Owner:    acc.Owner,
		Lamports: acc.Lamports,
		Data:     acc.Data.GetBinary(),
	}
}

// FetchAccount implements pkg.AccountFetcher.
func (c *Client) FetchAccount(ctx context.Context, address solana.PublicKey) (*pkg.Account, error) {
	resp, err := c.accountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", address, pkg.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("account %s: %w", address, pkg.ErrAccountNotFound)
	}
	return toAccount(address, resp.Value), nil
}

// FetchAccounts implements pkg.AccountFetcher, splitting large requests into batches.
func (c *Client) FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*pkg.Account, error) {
	out := make([]*pkg.Account, 0, len(addresses))
	for start := 0; start < len(addresses); start += maxMultipleAccounts {
		end := min(start+maxMultipleAccounts, len(addresses))
		batch := addresses[start:end]
		resp, err := c.multipleAccounts(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to get %d accounts: %w", len(batch), err)
		}
		if len(resp.Value) != len(batch) {
			return nil, fmt.Errorf("getMultipleAccounts returned %d values for %d addresses", len(resp.Value), len(batch))
		}
		for i, acc := range resp.Value {
			out = append(out, toAccount(batch[i], acc))
		}
	}
	return out, nil
}

// ScanProgramAccounts implements pkg.ProgramAccountScanner.
func (c *Client) ScanProgramAccounts(ctx context.Context, program solana.PublicKey, filters []rpc.RPCFilter) ([]*pkg.Account, error) {
	result, err := c.programAccounts(ctx, program, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to scan program %s: %w", program, err)
	}
	out := make([]*pkg.Account, 0, len(result))
	for _, keyed := range result {
		if keyed == nil {
			continue
		}
		out = append(out, toAccount(keyed.Pubkey, keyed.Account))
	}
	return out, nil
}
