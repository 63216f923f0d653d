package sol

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingwow/solarb/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client wraps the Solana RPC with rate limiting, a signing wallet and optional Jito bundle
// submission. It implements the collaborator interfaces in package pkg.
type Client struct {
	rpcClient   *rpc.Client
	jitoClient  *JitoClient
	limiter     *rate.Limiter
	logger      *zap.Logger

	signer           solana.PrivateKey
	computeUnitLimit uint32
	computeUnitPrice uint64
	jitoTipLamports  uint64
	confirmTimeout   time.Duration
	pollInterval     time.Duration

	mints         *cache.ReadThrough[solana.PublicKey, MintInfo]
	tokenAccounts *cache.ReadThrough[tokenAccountKey, solana.PublicKey]

	// bundles maps the signature of a transaction sent through Jito to its bundle id until
	// the confirmation wait picks it up.
	bundleMu sync.Mutex
	bundles  map[solana.Signature]string
}

type Option func(*Client)

func WithSigner(signer solana.PrivateKey) Option {
	return func(c *Client) { c.signer = signer }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithComputeBudget prepends compute budget instructions to every transaction. Zero values are omitted.
func WithComputeBudget(unitLimit uint32, microLamportsPerUnit uint64) Option {
	return func(c *Client) {
		c.computeUnitLimit = unitLimit
		c.computeUnitPrice = microLamportsPerUnit
	}
}

// WithJitoTip routes broadcasts through a Jito bundle paying tip lamports, when a Jito endpoint is set.
func WithJitoTip(lamports uint64) Option {
	return func(c *Client) { c.jitoTipLamports = lamports }
}

func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Client) { c.confirmTimeout = d }
}

// NewClient creates a Solana client limited to reqLimitPerSecond RPC calls.
func NewClient(ctx context.Context, endpoint, jitoEndpoint string, reqLimitPerSecond int, opts ...Option) (*Client, error) {
	c := &Client{
		rpcClient:      rpc.New(endpoint),
		limiter:        newLimiter(reqLimitPerSecond),
		logger:         zap.NewNop(),
		confirmTimeout: 60 * time.Second,
		pollInterval:   500 * time.Millisecond,
		bundles:        make(map[solana.Signature]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mints = cache.NewReadThrough(c.loadMintInfo, 0)
	c.tokenAccounts = cache.NewReadThrough(c.loadTokenAccount, 0)

	if jitoEndpoint != "" {
		jitoClient, err := NewJitoClient(ctx, jitoEndpoint, c.logger)
		if err != nil {
			c.logger.Warn("jito disabled", zap.String("endpoint", jitoEndpoint), zap.Error(err))
		} else {
			c.jitoClient = jitoClient
		}
	}
	return c, nil
}

// Wallet returns the signer's public key.
func (c *Client) Wallet() solana.PublicKey {
	if c.signer == nil {
		return solana.PublicKey{}
	}
	return c.signer.PublicKey()
}

func (c *Client) HasJito() bool {
	return c.jitoClient != nil && c.jitoTipLamports > 0
}
