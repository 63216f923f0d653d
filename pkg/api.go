package pkg

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ProtocolName represents the string name of AMM protocol
type ProtocolName string

const (
	ProtocolNameOrcaWhirlpool ProtocolName = "orca_whirlpool"
)

// Account is a raw on-chain account as returned by an AccountFetcher.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// AccountFetcher loads raw account bytes. FetchAccount returns ErrAccountNotFound when the
// account does not exist; FetchAccounts keeps input order and leaves nil for missing accounts.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
	FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*Account, error)
}

// ProgramAccountScanner lists accounts owned by a program that match the filters.
type ProgramAccountScanner interface {
	ScanProgramAccounts(ctx context.Context, program solana.PublicKey, filters []rpc.RPCFilter) ([]*Account, error)
}

// SimulationOutcome is what a successful simulation reports back.
type SimulationOutcome struct {
	UnitsConsumed uint64
	Logs          []string
}

// TransactionService builds, simulates and broadcasts transactions signed by the service's
// wallet. BuildTransaction returns the exact transaction Broadcast will send, including any
// tip the broadcast route requires, so a simulation of it covers what lands on chain.
// A failed simulation is returned as an *Error of KindSimulationFailure.
type TransactionService interface {
	BuildTransaction(ctx context.Context, instrs []solana.Instruction) (*solana.Transaction, error)
	Simulate(ctx context.Context, tx *solana.Transaction) (*SimulationOutcome, error)
	Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitConfirmation(ctx context.Context, sig solana.Signature) error
}

// TokenAccountProvider resolves the token account owner uses for mint. When none exists it
// returns the associated token address together with an idempotent instruction creating it;
// the instruction travels in the transaction that first uses the account.
type TokenAccountProvider interface {
	TokenAccount(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, solana.Instruction, error)
}

type BalanceReader interface {
	TokenBalance(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (uint64, error)
}
