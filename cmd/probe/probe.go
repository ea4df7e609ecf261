package probe

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util/command"
)

const (
	verboseFlag string = "verbose"
	timeoutFlag string = "timeout"
)

var errNotConnected = errors.New("device not connected")

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newConnection(),
	)
}

func newConnection() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Checks that the device answers an address request in time",
		Long: `Requests the address at index 0 without confirmation.
Exits with a non zero code if the device does not answer within --timeout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}
			timeout, err := cmd.Flags().GetDuration(timeoutFlag)
			if err != nil {
				return err
			}

			return runConnection(cmd.Context(), timeout, verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")
	cmd.Flags().Duration(timeoutFlag, 0, "Probe timeout, defaults to LEDGER_PROBE_TIMEOUT")

	return cmd
}

func runConnection(ctx context.Context, timeout time.Duration, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.DefaultServiceConfigFromEnv()
	if timeout == 0 {
		timeout = cfg.Ledger.ProbeTimeout
	}

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		var result error
		s.Wallet.TestConnection(ctx, timeout, func(connected bool, err error) {
			switch {
			case err != nil:
				result = errors.Wrap(err, "device probe failed")
			case !connected:
				result = errNotConnected
			}
		})

		if result != nil {
			return result
		}

		if verbose {
			log.Info().Dur("timeout", timeout).Str("path", s.Wallet.GetPath()).Int("path_index", s.Wallet.GetPathIndex()).Msg("Device connected")
		}

		return nil
	})
}
