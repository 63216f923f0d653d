package whirlpool

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg/tickmath"
)

// GetTickArrayAddress derives the tick array PDA. The start index seed is its decimal string.
func GetTickArrayAddress(whirlpool solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("tick_array"),
		whirlpool.Bytes(),
		[]byte(strconv.Itoa(int(startTickIndex))),
	}
	pk, _, err := solana.FindProgramAddress(seeds, WhirlpoolProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find tick array PDA: %w", err)
	}
	return pk, nil
}

func GetOracleAddress(whirlpool solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("oracle"),
		whirlpool.Bytes(),
	}
	pk, _, err := solana.FindProgramAddress(seeds, WhirlpoolProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find oracle PDA: %w", err)
	}
	return pk, nil
}

// SwapTickArrays returns the start indexes and addresses of the three tick arrays a swap in the
// given direction passes through. Near the edge of the tick range fewer than three arrays exist,
// and the last one is repeated to fill the instruction's fixed slots.
func (p *Pool) SwapTickArrays(d Direction) ([3]int32, [3]solana.PublicKey, error) {
	var (
		starts [3]int32
		addrs  [3]solana.PublicKey
	)
	if p.TickSpacing == 0 {
		return starts, addrs, fmt.Errorf("pool %s: zero tick spacing", p.Address)
	}
	found := tickmath.SwapTickArrayStartIndexes(p.TickCurrentIndex, p.TickSpacing, d.IsAToB())
	if len(found) == 0 {
		return starts, addrs, fmt.Errorf("pool %s: no valid tick array for tick %d", p.Address, p.TickCurrentIndex)
	}
	for i := range starts {
		start := found[len(found)-1]
		if i < len(found) {
			start = found[i]
		}
		addr, err := GetTickArrayAddress(p.Address, start)
		if err != nil {
			return starts, addrs, err
		}
		starts[i], addrs[i] = start, addr
	}
	return starts, addrs, nil
}
