package accounts

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util/command"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Lists the accounts of the device",
		Long:  `Lists LEDGER_ACCOUNTS_LENGTH consecutive addresses starting at the path index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			if err := command.ApplyLedgerFlags(cmd, &cfg.Ledger); err != nil {
				return err
			}

			return runAccounts(cmd.Context(), cfg)
		},
	}

	command.AddLedgerFlags(cmd)

	return cmd
}

func runAccounts(ctx context.Context, cfg config.Server) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		var result error
		s.Wallet.GetAccounts(ctx, func(err error, accounts []string) {
			if err != nil {
				result = err
				return
			}

			base := cfg.Ledger.PathIndex
			for i, account := range accounts {
				//nolint:forbidigo // CLI output
				fmt.Printf("%d\t%s\n", base+i, account)
			}
		})

		return result
	})
}
