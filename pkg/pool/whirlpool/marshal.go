package whirlpool

// MarshalAccount encodes the pool as a full Whirlpool account, discriminator included.
func (p *Pool) MarshalAccount() []byte {
	w := &accountWriter{buf: make([]byte, 0, PoolAccountSize)}
	w.bytes(poolDiscriminator)
	w.pubkey(p.WhirlpoolsConfig)
	w.u8(p.Bump)
	w.u16(p.TickSpacing)
	w.bytes(p.TickSpacingSeed[:])
	w.u16(p.FeeRate)
	w.u16(p.ProtocolFeeRate)
	w.u128(p.Liquidity)
	w.u128(p.SqrtPrice)
	w.i32(p.TickCurrentIndex)
	w.u64(p.ProtocolFeeOwedA)
	w.u64(p.ProtocolFeeOwedB)
	w.pubkey(p.TokenMintA)
	w.pubkey(p.TokenVaultA)
	w.u128(p.FeeGrowthGlobalA)
	w.pubkey(p.TokenMintB)
	w.pubkey(p.TokenVaultB)
	w.u128(p.FeeGrowthGlobalB)
	w.u64(p.RewardLastUpdatedTimestamp)
	for _, r := range p.RewardInfos {
		w.pubkey(r.Mint)
		w.pubkey(r.Vault)
		w.pubkey(r.Authority)
		w.u128(r.EmissionsPerSecondX64)
		w.u128(r.GrowthGlobalX64)
	}
	return w.buf
}

// MarshalAccount encodes the tick array in its on-chain layout.
func (ta *TickArray) MarshalAccount() []byte {
	w := &accountWriter{buf: make([]byte, 0, TickArrayAccountSize)}
	w.bytes(tickArrayDiscriminator)
	w.i32(ta.StartTickIndex)
	for i := range ta.Ticks {
		t := &ta.Ticks[i]
		w.bool(t.Initialized)
		w.i128(t.NetLiquidity())
		w.u128(t.LiquidityGross)
		w.u128(t.FeeGrowthOutsideA)
		w.u128(t.FeeGrowthOutsideB)
		for _, g := range t.RewardGrowthsOutside {
			w.u128(g)
		}
	}
	w.pubkey(ta.Whirlpool)
	return w.buf
}
