package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// WSOL is the native mint.
var WSOL = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// WrapSolInstructions moves lamports into the owner's wrapped SOL account, creating it when
// createAccount is set.
func WrapSolInstructions(owner solana.PublicKey, lamports uint64, createAccount bool) ([]solana.Instruction, error) {
	wsolAccount, _, err := solana.FindAssociatedTokenAddress(owner, WSOL)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wsol account: %w", err)
	}

	instrs := make([]solana.Instruction, 0, 3)
	if createAccount {
		createAtaInst, err := associatedtokenaccount.NewCreateInstruction(owner, owner, WSOL).ValidateAndBuild()
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, createAtaInst)
	}

	transferInst, err := system.NewTransferInstruction(lamports, owner, wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, transferInst)

	syncNativeInst, err := token.NewSyncNativeInstruction(wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, err
	}
	return append(instrs, syncNativeInst), nil
}

// UnwrapSolInstructions closes the owner's wrapped SOL account, returning its lamports.
func UnwrapSolInstructions(owner solana.PublicKey) ([]solana.Instruction, error) {
	wsolAccount, _, err := solana.FindAssociatedTokenAddress(owner, WSOL)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wsol account: %w", err)
	}
	closeInst, err := token.NewCloseAccountInstruction(
		wsolAccount,
		owner,
		owner,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{closeInst}, nil
}

// WrapSol wraps lamports of the client wallet's SOL and waits for confirmation.
func (c *Client) WrapSol(ctx context.Context, lamports uint64) (solana.Signature, error) {
	owner := c.Wallet()
	_, exists, err := c.findTokenAccount(ctx, owner, WSOL)
	if err != nil {
		return solana.Signature{}, err
	}
	instrs, err := WrapSolInstructions(owner, lamports, !exists)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submit(ctx, instrs)
}

// UnwrapSol closes the client wallet's wrapped SOL account.
func (c *Client) UnwrapSol(ctx context.Context) (solana.Signature, error) {
	owner := c.Wallet()
	instrs, err := UnwrapSolInstructions(owner)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submit(ctx, instrs)
	if sig != (solana.Signature{}) {
		c.forgetTokenAccount(owner, WSOL)
	}
	return sig, err
}
