package whirlpool

import (
	"bytes"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"github.com/yimingwow/solarb/pkg/fixedpoint"
	"github.com/yimingwow/solarb/pkg/tickmath"
	"lukechampine.com/uint128"
)

// Pool is a decoded Whirlpool account.
type Pool struct {
	Address solana.PublicKey

	WhirlpoolsConfig solana.PublicKey
	Bump             uint8
	TickSpacing      uint16
	TickSpacingSeed  [2]byte
	FeeRate          uint16
	ProtocolFeeRate  uint16
	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32
	ProtocolFeeOwedA uint64
	ProtocolFeeOwedB uint64
	TokenMintA       solana.PublicKey
	TokenVaultA      solana.PublicKey
	FeeGrowthGlobalA uint128.Uint128
	TokenMintB       solana.PublicKey
	TokenVaultB      solana.PublicKey
	FeeGrowthGlobalB uint128.Uint128

	RewardLastUpdatedTimestamp uint64
	RewardInfos                [NumRewards]RewardInfo
}

type RewardInfo struct {
	Mint                  solana.PublicKey
	Vault                 solana.PublicKey
	Authority             solana.PublicKey
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

// Decode parses a Whirlpool account. Reward metadata is decoded only when the full account is present.
func (p *Pool) Decode(data []byte) error {
	if len(data) < PoolCoreSize {
		return pkg.NewError(pkg.KindDecode, "decode whirlpool",
			fmt.Sprintf("need %d bytes, got %d", PoolCoreSize, len(data)), nil)
	}
	if !bytes.Equal(data[:discriminatorSize], poolDiscriminator) {
		return pkg.NewError(pkg.KindDecode, "decode whirlpool", "account discriminator mismatch", nil)
	}

	r := &accountReader{data: data, off: discriminatorSize}
	p.WhirlpoolsConfig = r.pubkey()
	p.Bump = r.u8()
	p.TickSpacing = r.u16()
	copy(p.TickSpacingSeed[:], r.bytes(2))
	p.FeeRate = r.u16()
	p.ProtocolFeeRate = r.u16()
	p.Liquidity = r.u128()
	p.SqrtPrice = r.u128()
	p.TickCurrentIndex = r.i32()
	p.ProtocolFeeOwedA = r.u64()
	p.ProtocolFeeOwedB = r.u64()
	p.TokenMintA = r.pubkey()
	p.TokenVaultA = r.pubkey()
	p.FeeGrowthGlobalA = r.u128()
	p.TokenMintB = r.pubkey()
	p.TokenVaultB = r.pubkey()
	p.FeeGrowthGlobalB = r.u128()

	if len(data) >= PoolAccountSize {
		p.RewardLastUpdatedTimestamp = r.u64()
		for i := range p.RewardInfos {
			p.RewardInfos[i] = RewardInfo{
				Mint:                  r.pubkey(),
				Vault:                 r.pubkey(),
				Authority:             r.pubkey(),
				EmissionsPerSecondX64: r.u128(),
				GrowthGlobalX64:       r.u128(),
			}
		}
	}
	return nil
}

// DecodePool decodes data as the Whirlpool at address and rejects pools whose state breaks Validate.
func DecodePool(address solana.PublicKey, data []byte) (*Pool, error) {
	p := &Pool{Address: address}
	if err := p.Decode(data); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, pkg.NewError(pkg.KindDecode, "decode whirlpool", "invalid pool state", err)
	}
	return p, nil
}

// Validate checks the invariants every live pool satisfies.
func (p *Pool) Validate() error {
	if bytes.Compare(p.TokenMintA[:], p.TokenMintB[:]) >= 0 {
		return fmt.Errorf("pool %s: token mint a must sort before token mint b", p.Address)
	}
	if p.TickSpacing == 0 {
		return fmt.Errorf("pool %s: zero tick spacing", p.Address)
	}
	sqrtP := p.SqrtPriceX64()
	if sqrtP.LT(fixedpoint.MinSqrtPrice) || sqrtP.GT(fixedpoint.MaxSqrtPrice) {
		return fmt.Errorf("pool %s: sqrt price %s out of range", p.Address, sqrtP)
	}
	if tick := tickmath.SqrtPriceToTick(sqrtP); tick != p.TickCurrentIndex {
		// The program may leave the current tick one below a price sitting exactly on a boundary.
		if tick-1 != p.TickCurrentIndex {
			return fmt.Errorf("pool %s: tick %d inconsistent with sqrt price (tick %d)", p.Address, p.TickCurrentIndex, tick)
		}
	}
	return nil
}

func (p *Pool) SqrtPriceX64() cosmath.Int {
	return fixedpoint.FromUint128(p.SqrtPrice)
}

func (p *Pool) LiquidityInt() cosmath.Int {
	return fixedpoint.FromUint128(p.Liquidity)
}

func (p *Pool) HasMint(mint solana.PublicKey) bool {
	return p.TokenMintA.Equals(mint) || p.TokenMintB.Equals(mint)
}

// OtherMint returns the pool's mint that is not mint.
func (p *Pool) OtherMint(mint solana.PublicKey) (solana.PublicKey, bool) {
	switch {
	case p.TokenMintA.Equals(mint):
		return p.TokenMintB, true
	case p.TokenMintB.Equals(mint):
		return p.TokenMintA, true
	}
	return solana.PublicKey{}, false
}

// DirectionFor returns the swap direction for an input of the given mint.
func (p *Pool) DirectionFor(inputMint solana.PublicKey) (Direction, error) {
	switch {
	case p.TokenMintA.Equals(inputMint):
		return DirectionAToB, nil
	case p.TokenMintB.Equals(inputMint):
		return DirectionBToA, nil
	}
	return 0, fmt.Errorf("mint %s is not in pool %s", inputMint, p.Address)
}

// Mints returns (input, output) for a direction.
func (p *Pool) Mints(d Direction) (solana.PublicKey, solana.PublicKey) {
	if d.IsAToB() {
		return p.TokenMintA, p.TokenMintB
	}
	return p.TokenMintB, p.TokenMintA
}
