package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// withComputeBudget prepends the configured compute unit limit and price instructions.
func (c *Client) withComputeBudget(instrs []solana.Instruction) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(instrs)+2)
	if c.computeUnitLimit > 0 {
		limitIx, err := computebudget.NewSetComputeUnitLimitInstruction(c.computeUnitLimit).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit limit instruction: %w", err)
		}
		out = append(out, limitIx)
	}
	if c.computeUnitPrice > 0 {
		priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(c.computeUnitPrice).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit price instruction: %w", err)
		}
		out = append(out, priceIx)
	}
	return append(out, instrs...), nil
}

func (c *Client) SignTransaction(ctx context.Context, signers []solana.PrivateKey, instrs ...solana.Instruction) (*solana.Transaction, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("at least one signer is required")
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}
	return signWithBlockhash(blockhash, signers, instrs...)
}

func signWithBlockhash(blockhash solana.Hash, signers []solana.PrivateKey, instrs ...solana.Instruction) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		instrs,
		blockhash,
		solana.TransactionPayer(signers[0].PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			for _, payer := range signers {
				if payer.PublicKey().Equals(key) {
					return &payer
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// buildSigned wraps instrs with the compute budget and signs them with the client wallet.
func (c *Client) buildSigned(ctx context.Context, instrs []solana.Instruction) (*solana.Transaction, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("client has no signing wallet")
	}
	all, err := c.withComputeBudget(instrs)
	if err != nil {
		return nil, err
	}
	return c.SignTransaction(ctx, []solana.PrivateKey{c.signer}, all...)
}
