// Command blockscore serves wallet reputation scores and the watchlist.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"wallet-score/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "blockscore",
		Short:        "Solana wallet reputation scoring",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	config.RegisterFlags(serveCmd.Flags())
	root.AddCommand(serveCmd)

	scoreCmd := &cobra.Command{
		Use:   "score <address|name.sol>",
		Short: "Score one account and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}
	config.RegisterFlags(scoreCmd.Flags())
	root.AddCommand(scoreCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse migrations",
		RunE:  runMigrate,
	}
	config.RegisterFlags(migrateCmd.Flags())
	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}
