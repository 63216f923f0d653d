package sol

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// BuildTransaction implements pkg.TransactionService. When broadcasts go through Jito the tip
// transfer is appended here, so the simulated transaction is the one the bundle carries.
func (c *Client) BuildTransaction(ctx context.Context, instrs []solana.Instruction) (*solana.Transaction, error) {
	if c.HasJito() {
		withTip := make([]solana.Instruction, 0, len(instrs)+1)
		withTip = append(withTip, instrs...)
		instrs = append(withTip, tipInstruction(c.Wallet(), c.jitoClient.tipAccount, c.jitoTipLamports))
	}
	return c.buildSigned(ctx, instrs)
}

// Broadcast implements pkg.TransactionService. tx is sent exactly as given: as a
// single-transaction Jito bundle when a tip is configured, otherwise straight to the RPC node.
func (c *Client) Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("transaction is not signed")
	}
	sig := tx.Signatures[0]

	if c.HasJito() {
		if !paysTip(tx, c.jitoClient.tipAccount) {
			return solana.Signature{}, fmt.Errorf("transaction %s does not pay the jito tip account %s", sig, c.jitoClient.tipAccount)
		}
		bundleId, err := c.jitoClient.SendBundle(tx)
		if err != nil {
			return solana.Signature{}, err
		}
		c.bundleMu.Lock()
		c.bundles[sig] = bundleId
		c.bundleMu.Unlock()
		c.logger.Info("broadcast via jito",
			zap.String("bundle", bundleId),
			zap.Stringer("signature", sig),
			zap.Uint64("tip", c.jitoTipLamports))
		return sig, nil
	}

	sent, err := c.sendTx(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Info("broadcast", zap.Stringer("signature", sent))
	return sent, nil
}

func paysTip(tx *solana.Transaction, tipAccount solana.PublicKey) bool {
	for _, k := range tx.Message.AccountKeys {
		if k.Equals(tipAccount) {
			return true
		}
	}
	return false
}

// takeBundle returns and forgets the bundle id recorded for sig.
func (c *Client) takeBundle(sig solana.Signature) (string, bool) {
	c.bundleMu.Lock()
	defer c.bundleMu.Unlock()
	id, ok := c.bundles[sig]
	delete(c.bundles, sig)
	return id, ok
}

// AwaitConfirmation implements pkg.TransactionService. A transaction sent as a Jito bundle is
// tracked through the bundle status; anything else polls the signature status until the
// transaction is confirmed, fails on chain, or the confirm timeout passes.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	if bundleId, ok := c.takeBundle(sig); ok {
		if err := c.jitoClient.AwaitBundle(ctx, bundleId); err != nil {
			return fmt.Errorf("waiting for %s: %w", sig, err)
		}
		return nil
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", sig, ctx.Err())
		case <-ticker.C:
			status, err := c.signatureStatus(ctx, sig)
			if err != nil {
				c.logger.Debug("signature status failed", zap.Stringer("signature", sig), zap.Error(err))
				continue
			}
			if status == nil {
				continue
			}
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

// submit simulates instrs and broadcasts the same transaction, then waits for it to confirm.
func (c *Client) submit(ctx context.Context, instrs []solana.Instruction) (solana.Signature, error) {
	tx, err := c.BuildTransaction(ctx, instrs)
	if err != nil {
		return solana.Signature{}, err
	}
	if _, err := c.Simulate(ctx, tx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.Broadcast(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, c.AwaitConfirmation(ctx, sig)
}
