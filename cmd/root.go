package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/cmd/accounts"
	"github/chapool/ledger-signer/cmd/emulator"
	"github/chapool/ledger-signer/cmd/env"
	"github/chapool/ledger-signer/cmd/probe"
	"github/chapool/ledger-signer/cmd/server"
	"github/chapool/ledger-signer/cmd/sign"
	"github/chapool/ledger-signer/internal/config"
)

const (
	configFlag string = "config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Signs Ethereum transactions and messages with a Ledger hardware wallet
and exposes them through a JSON-RPC endpoint.
Requires configuration through ENV, a .env file or --config.`, config.ModuleName),
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		path, err := cmd.Flags().GetString(configFlag)
		if err != nil {
			return err
		}
		if len(path) == 0 {
			return nil
		}

		return config.LoadConfigFile(path)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().String(configFlag, "", "yaml, toml or json file exported as ENV (ENV takes precedence)")

	// attach the subcommands
	rootCmd.AddCommand(
		accounts.New(),
		emulator.New(),
		env.New(),
		probe.New(),
		server.New(),
		sign.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
