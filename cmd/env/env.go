package env

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/config"
)

const redacted = "<redacted>"

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Prints the env",
		Long: `Prints the currently applied env

You may use this cmd to get an overview about how
your ENV_VARS are bound by the server config.
Secrets are redacted.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runEnv()
		},
	}
}

func runEnv() error {
	cfg := config.DefaultServiceConfigFromEnv()

	if len(cfg.Emulator.Password) > 0 {
		cfg.Emulator.Password = redacted
	}
	if len(cfg.Emulator.Mnemonic) > 0 {
		cfg.Emulator.Mnemonic = redacted
	}
	if len(cfg.Emulator.Passphrase) > 0 {
		cfg.Emulator.Passphrase = redacted
	}

	c, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal the env")
	}

	//nolint:forbidigo // CLI output
	fmt.Println(string(c))

	return nil
}
