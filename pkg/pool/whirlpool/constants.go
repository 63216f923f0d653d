package whirlpool

import (
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/anchor"
)

var (
	WhirlpoolProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	MemoProgramID      = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	SwapV2Discriminator    = anchor.InstructionDiscriminator("swap_v2")
	poolDiscriminator      = anchor.AccountDiscriminator("Whirlpool")
	tickArrayDiscriminator = anchor.AccountDiscriminator("TickArray")
)

const (
	discriminatorSize = 8

	// PoolCoreSize covers the discriminator and every field up to feeGrowthGlobalB.
	PoolCoreSize = 261
	// PoolAccountSize is the full account including reward metadata.
	PoolAccountSize = 653

	TickSize             = 113
	TickArrayAccountSize = discriminatorSize + 4 + 88*TickSize + 32

	// Byte offsets used by memcmp filters when scanning program accounts.
	TokenMintAOffset = 101
	TokenMintBOffset = 181

	NumRewards = 3

	// MaxSwapIterations bounds the tick walk of a single simulation.
	MaxSwapIterations = 512
)
