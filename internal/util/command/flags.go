package command

import (
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/config"
)

const (
	PathFlag    string = "path"
	IndexFlag   string = "index"
	ConfirmFlag string = "confirm"
)

// AddLedgerFlags registers flags overriding the derivation settings of config.Ledger.
func AddLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().String(PathFlag, "", "Base derivation path, defaults to LEDGER_BASE_PATH")
	cmd.Flags().Int(IndexFlag, -1, "Path index, defaults to LEDGER_PATH_INDEX")
	cmd.Flags().Bool(ConfirmFlag, false, "Verify addresses on the device screen")
}

// ApplyLedgerFlags copies the flags registered by AddLedgerFlags that were set onto cfg.
func ApplyLedgerFlags(cmd *cobra.Command, cfg *config.Ledger) error {
	path, err := cmd.Flags().GetString(PathFlag)
	if err != nil {
		return err
	}
	if len(path) > 0 {
		cfg.BasePath = path
	}

	index, err := cmd.Flags().GetInt(IndexFlag)
	if err != nil {
		return err
	}
	if index >= 0 {
		cfg.PathIndex = index
	}

	if cmd.Flags().Changed(ConfirmFlag) {
		confirm, err := cmd.Flags().GetBool(ConfirmFlag)
		if err != nil {
			return err
		}
		cfg.AlwaysConfirm = confirm
	}

	return nil
}
