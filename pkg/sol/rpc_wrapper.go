package sol

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

// newLimiter allows requestsPerSecond with an equal burst; zero or less disables limiting.
func newLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
}

// limited runs call once the client's limiter admits one more RPC request.
func limited[T any](ctx context.Context, c *Client, call func() (T, error)) (T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		var zero T
		return zero, fmt.Errorf("rpc rate limit: %w", err)
	}
	return call()
}

// Pool and tick array reads use processed state so quotes track the newest slot.
func (c *Client) accountInfo(ctx context.Context, address solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return limited(ctx, c, func() (*rpc.GetAccountInfoResult, error) {
		return c.rpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentProcessed,
		})
	})
}

func (c *Client) multipleAccounts(ctx context.Context, batch []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return limited(ctx, c, func() (*rpc.GetMultipleAccountsResult, error) {
		return c.rpcClient.GetMultipleAccountsWithOpts(ctx, batch, &rpc.GetMultipleAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentProcessed,
		})
	})
}

// programAccounts scans at confirmed commitment; pool discovery does not need the newest slot.
func (c *Client) programAccounts(ctx context.Context, program solana.PublicKey, filters []rpc.RPCFilter) (rpc.GetProgramAccountsResult, error) {
	return limited(ctx, c, func() (rpc.GetProgramAccountsResult, error) {
		return c.rpcClient.GetProgramAccountsWithOpts(ctx, program, &rpc.GetProgramAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
			Filters:    filters,
		})
	})
}

func (c *Client) tokenAccountsByMint(ctx context.Context, owner, mint solana.PublicKey) (*rpc.GetTokenAccountsResult, error) {
	return limited(ctx, c, func() (*rpc.GetTokenAccountsResult, error) {
		return c.rpcClient.GetTokenAccountsByOwner(ctx, owner,
			&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
			&rpc.GetTokenAccountsOpts{Encoding: "jsonParsed"},
		)
	})
}

// tokenAmount returns the raw amount held by a token account.
func (c *Client) tokenAmount(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := limited(ctx, c, func() (*rpc.GetTokenAccountBalanceResult, error) {
		return c.rpcClient.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return 0, err
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("empty balance for token account %s", account)
	}
	return strconv.ParseUint(res.Value.Amount, 10, 64)
}

func (c *Client) lamports(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	res, err := limited(ctx, c, func() (*rpc.GetBalanceResult, error) {
		return c.rpcClient.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (c *Client) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := limited(ctx, c, func() (*rpc.GetLatestBlockhashResult, error) {
		return c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	})
	if err != nil {
		return solana.Hash{}, err
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty blockhash response")
	}
	return res.Value.Blockhash, nil
}

// simulateTx simulates tx as signed, so a bad signature or stale blockhash fails here too.
func (c *Client) simulateTx(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	return limited(ctx, c, func() (*rpc.SimulateTransactionResponse, error) {
		return c.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:  true,
			Commitment: rpc.CommitmentProcessed,
		})
	})
}

// sendTx skips preflight: every send follows an explicit simulation of the same transaction.
func (c *Client) sendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return limited(ctx, c, func() (solana.Signature, error) {
		return c.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
	})
}

// signatureStatus returns the status of sig, or nil while the cluster has not seen it.
func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	res, err := limited(ctx, c, func() (*rpc.GetSignatureStatusesResult, error) {
		return c.rpcClient.GetSignatureStatuses(ctx, true, sig)
	})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}
