package sol

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// ClockAccountDataSize represents the expected size of the clock account data in bytes
	ClockAccountDataSize = 40
)

// Clock is the Clock sysvar.
type Clock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func decodeClock(data []byte) (*Clock, error) {
	if len(data) != ClockAccountDataSize {
		return nil, fmt.Errorf("invalid clock account data length: expected %d bytes, got %d", ClockAccountDataSize, len(data))
	}
	var clock Clock
	if err := bin.NewBinDecoder(data).Decode(&clock); err != nil {
		return nil, fmt.Errorf("failed to decode clock: %w", err)
	}
	return &clock, nil
}

// GetClock retrieves the current clock sysvar.
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	acc, err := c.FetchAccount(ctx, solana.SysVarClockPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clock account: %w", err)
	}
	return decodeClock(acc.Data)
}
