package sol

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// mintSize is the base SPL mint layout length.
const mintSize = 82

// MintInfo is the part of a mint account the engine needs.
type MintInfo struct {
	Decimals     uint8
	TokenProgram solana.PublicKey
}

// MintInfo returns cached mint metadata, loading it on first use.
func (c *Client) MintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	return c.mints.Get(ctx, mint)
}

func (c *Client) loadMintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	acc, err := c.FetchAccount(ctx, mint)
	if err != nil {
		return MintInfo{}, err
	}
	return decodeMintInfo(acc.Owner, acc.Data)
}

// decodeMintInfo reads the base SPL mint layout, which Token-2022 mints share before their extensions.
func decodeMintInfo(owner solana.PublicKey, data []byte) (MintInfo, error) {
	if len(data) < mintSize {
		return MintInfo{}, fmt.Errorf("mint account is %d bytes, want at least %d", len(data), mintSize)
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data[:mintSize]).Decode(&mint); err != nil {
		return MintInfo{}, fmt.Errorf("failed to decode mint: %w", err)
	}
	if !mint.IsInitialized {
		return MintInfo{}, fmt.Errorf("mint is not initialized")
	}
	return MintInfo{Decimals: mint.Decimals, TokenProgram: owner}, nil
}

// TokenProgramOf returns the token program that owns mint.
func (c *Client) TokenProgramOf(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := c.MintInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return info.TokenProgram, nil
}
