package sol

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/solarb/pkg"
	"go.uber.org/zap"
)

// Whirlpool program error codes surfaced by swap simulation.
const (
	whirlpoolErrZeroTradableAmount      = 6035
	whirlpoolErrAmountOutBelowMinimum   = 6036
	whirlpoolErrAmountInAboveMaximum    = 6037
	whirlpoolErrInvalidTickArraySequence = 6038

	splTokenErrInsufficientFunds = 1
)

// Simulate implements pkg.TransactionService. Rejections come back as a simulation *pkg.Error
// whose code names the on-chain reason when it is recognised.
func (c *Client) Simulate(ctx context.Context, tx *solana.Transaction) (*pkg.SimulationOutcome, error) {
	resp, err := c.simulateTx(ctx, tx)
	if err != nil {
		return nil, pkg.NewSimulationError(pkg.SimulationUnknown, "simulate request failed", err)
	}
	if resp == nil || resp.Value == nil {
		return nil, pkg.NewSimulationError(pkg.SimulationUnknown, "empty simulation response", nil)
	}

	res := resp.Value
	if res.Err != nil {
		code := classifySimulation(res.Err, res.Logs)
		c.logger.Debug("simulation rejected",
			zap.Stringer("code", code),
			zap.Any("err", res.Err),
			zap.Strings("logs", res.Logs))
		return nil, pkg.NewSimulationError(code, code.Hint(), fmt.Errorf("%v", res.Err))
	}

	outcome := &pkg.SimulationOutcome{Logs: res.Logs}
	if res.UnitsConsumed != nil {
		outcome.UnitsConsumed = *res.UnitsConsumed
	}
	return outcome, nil
}

// classifySimulation maps a simulation error value and its logs to a SimulationCode.
func classifySimulation(simErr interface{}, logs []string) pkg.SimulationCode {
	if custom, ok := customErrorCode(simErr); ok {
		if code := codeForCustom(custom); code != pkg.SimulationUnknown {
			return code
		}
	}
	for _, line := range logs {
		lower := strings.ToLower(line)
		if idx := strings.Index(lower, "custom program error: 0x"); idx >= 0 {
			hex := strings.TrimSpace(lower[idx+len("custom program error: 0x"):])
			if end := strings.IndexFunc(hex, func(r rune) bool { return !strings.ContainsRune("0123456789abcdef", r) }); end >= 0 {
				hex = hex[:end]
			}
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
				if code := codeForCustom(v); code != pkg.SimulationUnknown {
					return code
				}
			}
		}
		if strings.Contains(lower, "insufficient funds") || strings.Contains(lower, "insufficient lamports") {
			return pkg.SimulationInsufficientFunds
		}
	}
	return pkg.SimulationUnknown
}

func codeForCustom(custom uint64) pkg.SimulationCode {
	switch custom {
	case whirlpoolErrZeroTradableAmount:
		return pkg.SimulationZeroTradableAmount
	case whirlpoolErrAmountOutBelowMinimum:
		return pkg.SimulationAmountOutBelowMinimum
	case whirlpoolErrAmountInAboveMaximum:
		return pkg.SimulationAmountInAboveMaximum
	case whirlpoolErrInvalidTickArraySequence:
		return pkg.SimulationInvalidTickArraySequence
	case splTokenErrInsufficientFunds:
		return pkg.SimulationInsufficientFunds
	default:
		return pkg.SimulationUnknown
	}
}

// customErrorCode digs the Custom code out of {"InstructionError":[idx,{"Custom":n}]}.
func customErrorCode(simErr interface{}) (uint64, bool) {
	m, ok := simErr.(map[string]interface{})
	if !ok {
		return 0, false
	}
	ie, ok := m["InstructionError"].([]interface{})
	if !ok || len(ie) != 2 {
		return 0, false
	}
	detail, ok := ie[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	return toUint64(detail["Custom"])
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case uint64:
		return n, true
	default:
		return 0, false
	}
}
