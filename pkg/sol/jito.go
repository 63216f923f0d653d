package sol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"go.uber.org/zap"
)

type JitoClient struct {
	rpcClient    *jitorpc.JitoJsonRpcClient
	tipAccount   solana.PublicKey
	logger       *zap.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// Jito endpoint refer to: https://docs.jito.wtf/lowlatencytxnsend/
func NewJitoClient(ctx context.Context, endpoint string, logger *zap.Logger) (*JitoClient, error) {
	rpcClient := jitorpc.NewJitoJsonRpcClient(endpoint, "")
	tipAccount, err := rpcClient.GetRandomTipAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get random tip account: %w", err)
	}
	tipAccountPublicKey, err := solana.PublicKeyFromBase58(tipAccount.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip account %q: %w", tipAccount.Address, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JitoClient{
		rpcClient:    rpcClient,
		tipAccount:   tipAccountPublicKey,
		logger:       logger.Named("jito"),
		pollInterval: 2 * time.Second,
		maxAttempts:  15,
	}, nil
}

func tipInstruction(payer solana.PublicKey, tipAccount solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, payer, tipAccount).Build()
}

func encodeTransaction(tx *solana.Transaction) (string, error) {
	serializedTx, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(serializedTx), nil
}

// SendBundle submits the transactions as one bundle and returns the bundle id.
func (c *JitoClient) SendBundle(txs ...*solana.Transaction) (string, error) {
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		s, err := encodeTransaction(tx)
		if err != nil {
			return "", err
		}
		encoded = append(encoded, s)
	}
	bundleIdRaw, err := c.rpcClient.SendBundle([][]string{encoded})
	if err != nil {
		return "", fmt.Errorf("failed to send bundle: %w", err)
	}
	var bundleId string
	if err := json.Unmarshal(bundleIdRaw, &bundleId); err != nil {
		return "", fmt.Errorf("failed to unmarshal bundle ID: %w", err)
	}
	c.logger.Info("bundle sent", zap.String("bundle", bundleId))
	return bundleId, nil
}

// AwaitBundle polls the bundle status until it lands, fails, or attempts run out.
func (c *JitoClient) AwaitBundle(ctx context.Context, bundleId string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		statusResponse, err := c.rpcClient.GetBundleStatuses([]string{bundleId})
		if err != nil {
			c.logger.Debug("bundle status failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if len(statusResponse.Value) == 0 {
			continue
		}

		bundleStatus := statusResponse.Value[0]
		switch bundleStatus.ConfirmationStatus {
		case "processed":
			continue
		case "confirmed", "finalized":
			if bundleStatus.Err.Ok != nil {
				return fmt.Errorf("bundle %s failed: %v", bundleId, bundleStatus.Err.Ok)
			}
			c.logger.Info("bundle landed",
				zap.String("bundle", bundleId),
				zap.Int64("slot", bundleStatus.Slot),
				zap.Strings("transactions", bundleStatus.Transactions))
			return nil
		default:
			return fmt.Errorf("bundle %s has unexpected status %q", bundleId, bundleStatus.ConfirmationStatus)
		}
	}
	return fmt.Errorf("bundle %s not confirmed after %d attempts", bundleId, c.maxAttempts)
}
