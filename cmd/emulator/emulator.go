package emulator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/util/command"
	"github/chapool/ledger-signer/internal/wallet"
	"github/chapool/ledger-signer/internal/wallet/keystore"
)

const (
	importFlag string = "import"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("emulator",
		newInit(),
	)
}

func newInit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Creates the keystore of the software emulator",
		Long: `Creates EMULATOR_KEYSTORE_PATH from a new 24 word mnemonic, printed once,
or from the mnemonic given with --import.
The password is read from EMULATOR_PASSWORD or prompted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mnemonic, err := cmd.Flags().GetString(importFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return runInit(ctx, config.DefaultServiceConfigFromEnv(), mnemonic, keystore.DefaultScryptParams())
		},
	}

	cmd.Flags().String(importFlag, "", "Import an existing BIP39 mnemonic instead of generating one")

	return cmd
}

func runInit(ctx context.Context, cfg config.Server, mnemonic string, params keystore.ScryptParams) error {
	util.ConfigureLogger(cfg.Logger.Level, cfg.Logger.PrettyPrintConsole, cfg.Logger.Caller)

	keystoreService, err := keystore.NewService(cfg.Emulator.KeystorePath, params)
	if err != nil {
		return errors.Wrap(err, "failed to create keystore service")
	}

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrap(keystore.ErrKeystoreExists, keystoreService.Path())
	}

	generated := len(mnemonic) == 0
	if generated {
		mnemonic, err = wallet.NewMnemonic()
		if err != nil {
			return err
		}
	}

	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if err := wallet.CreateKeystore(ctx, keystoreService, mnemonic, cfg.Emulator.Password); err != nil {
		return err
	}

	if generated {
		//nolint:forbidigo // CLI output, the mnemonic is shown exactly once
		fmt.Fprintf(os.Stdout, "Write down your mnemonic, it will not be shown again:\n\n%s\n", mnemonic)
	}

	return nil
}
