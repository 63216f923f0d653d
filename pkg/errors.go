package pkg

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine surfaces to callers.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAccountNotFound
	KindDecode
	KindZeroLiquidity
	KindZeroTradableOutput
	KindSimulationFailure
	KindPartialArbitrageFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindAccountNotFound:
		return "account_not_found"
	case KindDecode:
		return "decode_error"
	case KindZeroLiquidity:
		return "zero_liquidity"
	case KindZeroTradableOutput:
		return "zero_tradable_output"
	case KindSimulationFailure:
		return "simulation_failure"
	case KindPartialArbitrageFailure:
		return "partial_arbitrage_failure"
	default:
		return "unknown"
	}
}

// SimulationCode refines KindSimulationFailure with the on-chain reason when it is known.
type SimulationCode int

const (
	SimulationUnknown SimulationCode = iota
	SimulationZeroTradableAmount
	SimulationAmountOutBelowMinimum
	SimulationAmountInAboveMaximum
	SimulationInvalidTickArraySequence
	SimulationInsufficientFunds
)

func (c SimulationCode) String() string {
	switch c {
	case SimulationZeroTradableAmount:
		return "zero_tradable_amount"
	case SimulationAmountOutBelowMinimum:
		return "amount_out_below_minimum"
	case SimulationAmountInAboveMaximum:
		return "amount_in_above_maximum"
	case SimulationInvalidTickArraySequence:
		return "invalid_tick_array_sequence"
	case SimulationInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// Hint is a short user-facing explanation of the simulation code.
func (c SimulationCode) Hint() string {
	switch c {
	case SimulationZeroTradableAmount:
		return "swap amount too small to move the pool price"
	case SimulationAmountOutBelowMinimum:
		return "price moved beyond the slippage tolerance"
	case SimulationAmountInAboveMaximum:
		return "required input exceeds the allowed maximum"
	case SimulationInvalidTickArraySequence:
		return "tick arrays do not match the pool's current price"
	case SimulationInsufficientFunds:
		return "wallet balance too low for the input amount"
	default:
		return "simulation rejected the transaction"
	}
}

// Error is the typed error carried through the engine.
type Error struct {
	Kind ErrorKind
	Code SimulationCode
	Op   string
	Msg  string
	Err  error
}

var (
	ErrAccountNotFound         = &Error{Kind: KindAccountNotFound, Msg: "account not found"}
	ErrDecode                  = &Error{Kind: KindDecode, Msg: "decode error"}
	ErrZeroLiquidity           = &Error{Kind: KindZeroLiquidity, Msg: "pool has zero liquidity"}
	ErrZeroTradableOutput      = &Error{Kind: KindZeroTradableOutput, Msg: "swap output rounds to zero"}
	ErrSimulationFailure       = &Error{Kind: KindSimulationFailure, Msg: "simulation failed"}
	ErrPartialArbitrageFailure = &Error{Kind: KindPartialArbitrageFailure, Msg: "first leg executed, second leg did not"}
)

func NewError(kind ErrorKind, op string, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func NewSimulationError(code SimulationCode, msg string, err error) *Error {
	return &Error{Kind: KindSimulationFailure, Code: code, Op: "simulate", Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Kind == KindSimulationFailure && e.Code != SimulationUnknown {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, and on simulation code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == SimulationUnknown || t.Code == e.Code
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// SimulationCodeOf returns the simulation code of the first *Error in err's chain.
func SimulationCodeOf(err error) SimulationCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return SimulationUnknown
}
