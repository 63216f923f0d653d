package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// createIdempotent is the associated token account program's CreateIdempotent instruction tag.
const createIdempotent = 1

var errNoTokenAccount = errors.New("no token account")

type tokenAccountKey struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// loadTokenAccount looks up the first token account owner holds for mint. A missing account
// is an error so the cache only keeps accounts that exist.
func (c *Client) loadTokenAccount(ctx context.Context, key tokenAccountKey) (solana.PublicKey, error) {
	acc, err := c.tokenAccountsByMint(ctx, key.owner, key.mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to list token accounts of %s: %w", key.owner, err)
	}
	if len(acc.Value) == 0 {
		return solana.PublicKey{}, errNoTokenAccount
	}
	return acc.Value[0].Pubkey, nil
}

// findTokenAccount returns the first token account owner holds for mint, or false when none exists.
func (c *Client) findTokenAccount(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	addr, err := c.tokenAccounts.Get(ctx, tokenAccountKey{owner: owner, mint: mint})
	if errors.Is(err, errNoTokenAccount) {
		return solana.PublicKey{}, false, nil
	}
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	return addr, true, nil
}

// forgetTokenAccount drops a cached account, e.g. after it was closed.
func (c *Client) forgetTokenAccount(owner, mint solana.PublicKey) {
	c.tokenAccounts.Invalidate(tokenAccountKey{owner: owner, mint: mint})
}

// TokenAccount implements pkg.TokenAccountProvider. An existing account of either token
// program is reused. Otherwise the associated address under the mint's token program is
// returned with a CreateIdempotent instruction paid by the client wallet.
func (c *Client) TokenAccount(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	existing, ok, err := c.findTokenAccount(ctx, owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if ok {
		return existing, nil, nil
	}

	info, err := c.MintInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to load mint %s: %w", mint, err)
	}
	return CreateTokenAccountInstruction(c.Wallet(), owner, mint, info.TokenProgram)
}

// AssociatedTokenAddress derives owner's associated token account for mint under tokenProgram.
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// CreateTokenAccountInstruction builds a CreateIdempotent instruction for owner's associated
// token account. It succeeds on chain when the account already exists.
func CreateTokenAccountInstruction(payer, owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	ata, err := AssociatedTokenAddress(owner, mint, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(tokenProgram),
	}
	return ata, solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, []byte{createIdempotent}), nil
}
