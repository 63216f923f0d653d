package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	JitoURL           string
	RequestsPerSecond int
	PrivateKey        solana.PrivateKey

	Pools        []solana.PublicKey
	Pool         solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	Amount       uint64
	MinAmount    uint64
	MaxAmount    uint64
	MinProfitBps int64
	SlippageBps  uint16
	GasEstimate  uint64
	Workers      int
	ScanInterval time.Duration

	Strategy         string
	DryRun           bool
	MinLeg1FillBps   uint16
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	JitoTip          uint64
	ConfirmTimeout   time.Duration

	LogLevel string
	LogFile  string
	Journal  string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SOLARB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rps", 20)
	v.SetDefault("input-mint", "So11111111111111111111111111111111111111112")
	v.SetDefault("min-amount", uint64(10_000_000))
	v.SetDefault("max-amount", uint64(1_000_000_000))
	v.SetDefault("min-profit-bps", int64(20))
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("gas-estimate", uint64(5_000))
	v.SetDefault("workers", 8)
	v.SetDefault("scan-interval", 2*time.Second)
	v.SetDefault("strategy", "sequential")
	v.SetDefault("min-leg1-fill-bps", 9800)
	v.SetDefault("compute-unit-limit", 400_000)
	v.SetDefault("compute-unit-price", uint64(10_000))
	v.SetDefault("confirm-timeout", 60*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		JitoURL:           v.GetString("jito"),
		RequestsPerSecond: v.GetInt("rps"),
		Amount:            v.GetUint64("amount"),
		MinAmount:         v.GetUint64("min-amount"),
		MaxAmount:         v.GetUint64("max-amount"),
		MinProfitBps:      v.GetInt64("min-profit-bps"),
		SlippageBps:       uint16(v.GetUint("slippage-bps")),
		GasEstimate:       v.GetUint64("gas-estimate"),
		Workers:           v.GetInt("workers"),
		ScanInterval:      v.GetDuration("scan-interval"),
		Strategy:          v.GetString("strategy"),
		DryRun:            v.GetBool("dry-run"),
		MinLeg1FillBps:    uint16(v.GetUint("min-leg1-fill-bps")),
		ComputeUnitLimit:  v.GetUint32("compute-unit-limit"),
		ComputeUnitPrice:  v.GetUint64("compute-unit-price"),
		JitoTip:           v.GetUint64("jito-tip"),
		ConfirmTimeout:    v.GetDuration("confirm-timeout"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
		Journal:           v.GetString("journal"),
	}

	var err error
	if cfg.PrivateKey, err = ParsePrivateKey(v.GetString("private-key")); err != nil {
		return Config{}, err
	}
	if cfg.Pools, err = parseKeys(getStringSlice(v, "pools")); err != nil {
		return Config{}, fmt.Errorf("pools: %w", err)
	}
	if cfg.Pool, err = parseOptionalKey(v.GetString("pool")); err != nil {
		return Config{}, fmt.Errorf("pool: %w", err)
	}
	if cfg.InputMint, err = parseOptionalKey(v.GetString("input-mint")); err != nil {
		return Config{}, fmt.Errorf("input mint: %w", err)
	}
	if cfg.OutputMint, err = parseOptionalKey(v.GetString("output-mint")); err != nil {
		return Config{}, fmt.Errorf("output mint: %w", err)
	}
	if cfg.SlippageBps > 10_000 {
		return Config{}, fmt.Errorf("slippage-bps %d exceeds 10000", cfg.SlippageBps)
	}
	if cfg.MinLeg1FillBps > 10_000 {
		return Config{}, fmt.Errorf("min-leg1-fill-bps %d exceeds 10000", cfg.MinLeg1FillBps)
	}

	return cfg, nil
}

// ValidateScan checks the settings the arbitrage scan needs.
func (c Config) ValidateScan() error {
	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if len(c.Pools) < 2 {
		return errors.New("at least two pools are required")
	}
	if c.InputMint.IsZero() {
		return errors.New("input mint is required")
	}
	if c.MinAmount == 0 || c.MaxAmount < c.MinAmount {
		return fmt.Errorf("amount range [%d, %d] is invalid", c.MinAmount, c.MaxAmount)
	}
	if c.ScanInterval <= 0 {
		return errors.New("scan interval must be positive")
	}
	return nil
}

// ValidateExecution checks the settings sending transactions needs.
func (c Config) ValidateExecution() error {
	if err := c.ValidateScan(); err != nil {
		return err
	}
	if c.PrivateKey == nil {
		return errors.New("private key is required to execute")
	}
	return nil
}

// ParsePrivateKey accepts a base58 secret key or a JSON byte array as written by solana-keygen.
// An empty string yields a nil key.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var raw []byte
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("private key: invalid byte array: %w", err)
		}
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("private key: invalid base58: %w", err)
		}
		raw = decoded
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("private key: got %d bytes, want 64", len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func parseOptionalKey(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func parseKeys(items []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(items))
	for _, item := range items {
		pk, err := solana.PublicKeyFromBase58(item)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", item, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
