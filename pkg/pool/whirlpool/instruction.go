package whirlpool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"lukechampine.com/uint128"
)

// SwapV2Instruction is the Whirlpool swap_v2 instruction.
type SwapV2Instruction struct {
	bin.BaseVariant
	Amount                  uint64
	OtherAmountThreshold    uint64
	SqrtPriceLimit          uint128.Uint128
	AmountSpecifiedIsInput  bool
	AToB                    bool
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *SwapV2Instruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *SwapV2Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *SwapV2Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(SwapV2Discriminator, false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.WriteUint64(inst.Amount, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount: %w", err)
	}
	if err := enc.WriteUint64(inst.OtherAmountThreshold, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode other amount threshold: %w", err)
	}
	// u128 little endian: low word first.
	if err := enc.WriteUint64(inst.SqrtPriceLimit.Lo, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode sqrt price limit lo: %w", err)
	}
	if err := enc.WriteUint64(inst.SqrtPriceLimit.Hi, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode sqrt price limit hi: %w", err)
	}
	if err := enc.WriteBool(inst.AmountSpecifiedIsInput); err != nil {
		return nil, fmt.Errorf("failed to encode amount specified is input: %w", err)
	}
	if err := enc.WriteBool(inst.AToB); err != nil {
		return nil, fmt.Errorf("failed to encode a to b: %w", err)
	}
	// remaining_accounts_info: None
	if err := enc.WriteOption(false); err != nil {
		return nil, fmt.Errorf("failed to encode remaining accounts info: %w", err)
	}
	return buf.Bytes(), nil
}

// SwapAccounts are the caller-side accounts of a swap.
type SwapAccounts struct {
	Authority     solana.PublicKey
	OwnerAccountA solana.PublicKey
	OwnerAccountB solana.PublicKey
	// Token programs of mint A and mint B; zero means the classic SPL token program.
	TokenProgramA solana.PublicKey
	TokenProgramB solana.PublicKey
}

var ErrInexactQuote = errors.New("swap instructions require a quote from the tick-crossing simulator")

// BuildSwapInstruction turns an exact-input quote into a swap_v2 instruction with
// the quote's minimum output as threshold.
func (p *Pool) BuildSwapInstruction(quote *SwapQuote, accts SwapAccounts) (*SwapV2Instruction, error) {
	if !quote.Exact {
		return nil, ErrInexactQuote
	}
	if !quote.Pool.Equals(p.Address) {
		return nil, fmt.Errorf("quote for pool %s used with pool %s", quote.Pool, p.Address)
	}
	if !quote.TokenMaxIn.IsUint64() || !quote.TokenMinOut.IsUint64() {
		return nil, fmt.Errorf("swap amounts exceed u64: in %s, min out %s", quote.TokenMaxIn, quote.TokenMinOut)
	}
	_, tickArrays, err := p.SwapTickArrays(quote.Direction)
	if err != nil {
		return nil, err
	}
	oracle, err := GetOracleAddress(p.Address)
	if err != nil {
		return nil, err
	}

	tokenProgramA := accts.TokenProgramA
	if tokenProgramA.IsZero() {
		tokenProgramA = solana.TokenProgramID
	}
	tokenProgramB := accts.TokenProgramB
	if tokenProgramB.IsZero() {
		tokenProgramB = solana.TokenProgramID
	}

	limit := fixedpoint.MaxSqrtPrice
	if quote.AToB() {
		limit = fixedpoint.MinSqrtPrice
	}

	inst := &SwapV2Instruction{
		Amount:                 quote.TokenMaxIn.Uint64(),
		OtherAmountThreshold:   quote.TokenMinOut.Uint64(),
		SqrtPriceLimit:         fixedpoint.SaturatingToUint128(limit),
		AmountSpecifiedIsInput: true,
		AToB:                   quote.AToB(),
		AccountMetaSlice:       make(solana.AccountMetaSlice, 15),
	}
	inst.BaseVariant = bin.BaseVariant{
		Impl: inst,
	}

	inst.AccountMetaSlice[0] = solana.NewAccountMeta(tokenProgramA, false, false)
	inst.AccountMetaSlice[1] = solana.NewAccountMeta(tokenProgramB, false, false)
	inst.AccountMetaSlice[2] = solana.NewAccountMeta(MemoProgramID, false, false)
	inst.AccountMetaSlice[3] = solana.NewAccountMeta(accts.Authority, false, true)
	inst.AccountMetaSlice[4] = solana.NewAccountMeta(p.Address, true, false)
	inst.AccountMetaSlice[5] = solana.NewAccountMeta(p.TokenMintA, false, false)
	inst.AccountMetaSlice[6] = solana.NewAccountMeta(p.TokenMintB, false, false)
	inst.AccountMetaSlice[7] = solana.NewAccountMeta(accts.OwnerAccountA, true, false)
	inst.AccountMetaSlice[8] = solana.NewAccountMeta(p.TokenVaultA, true, false)
	inst.AccountMetaSlice[9] = solana.NewAccountMeta(accts.OwnerAccountB, true, false)
	inst.AccountMetaSlice[10] = solana.NewAccountMeta(p.TokenVaultB, true, false)
	inst.AccountMetaSlice[11] = solana.NewAccountMeta(tickArrays[0], true, false)
	inst.AccountMetaSlice[12] = solana.NewAccountMeta(tickArrays[1], true, false)
	inst.AccountMetaSlice[13] = solana.NewAccountMeta(tickArrays[2], true, false)
	inst.AccountMetaSlice[14] = solana.NewAccountMeta(oracle, true, false)

	return inst, nil
}
