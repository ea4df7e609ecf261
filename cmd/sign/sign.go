package sign

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("sign",
		newTx(),
		newMessage(),
	)
}

// serverConfig returns the env config with the ledger flags of cmd applied.
func serverConfig(cmd *cobra.Command) (context.Context, config.Server, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.DefaultServiceConfigFromEnv()
	if err := command.ApplyLedgerFlags(cmd, &cfg.Ledger); err != nil {
		return nil, cfg, err
	}

	return ctx, cfg, nil
}
