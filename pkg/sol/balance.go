package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TokenBalance implements pkg.BalanceReader. An owner without a token account holds zero.
func (c *Client) TokenBalance(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (uint64, error) {
	account, ok, err := c.findTokenAccount(ctx, owner, mint)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	amount, err := c.tokenAmount(ctx, account)
	if err != nil {
		// The cached account may have been closed since it was found.
		c.forgetTokenAccount(owner, mint)
		return 0, fmt.Errorf("failed to get token account balance: %w", err)
	}
	return amount, nil
}

// SolBalance returns the lamports held by owner.
func (c *Client) SolBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	lamports, err := c.lamports(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", owner, err)
	}
	return lamports, nil
}
