package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "solarb",
		Short:        "Orca Whirlpool quoting and two-pool arbitrage",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "Solana RPC URL")
	root.PersistentFlags().String("jito", "", "Jito block engine URL, empty disables bundles")
	root.PersistentFlags().Int("rps", 20, "RPC requests per second")
	root.PersistentFlags().String("private-key", "", "wallet secret key (base58 or JSON byte array)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "also write logs to this rotated file")

	root.AddCommand(newScanCmd(), newRunCmd(), newQuoteCmd(), newPoolsCmd(), newWrapCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
