package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet"
)

const (
	shutdownTimeout = 10 * time.Second
)

// WithServer opens the configured device, initializes the server around it and runs f.
// The server and device are shut down once f returns.
func WithServer(ctx context.Context, config config.Server, f func(ctx context.Context, s *api.Server) error) error {
	util.ConfigureLogger(config.Logger.Level, config.Logger.PrettyPrintConsole, config.Logger.Caller)

	dev, err := wallet.OpenDevice(ctx, config)
	if err != nil {
		return errors.Wrap(err, "failed to open device")
	}

	s, err := api.InitNewServerWithDevice(config, dev)
	if err != nil {
		if closeErr := dev.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close device")
		}
		return errors.Wrap(err, "failed to initialize server")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	return f(ctx, s)
}

// NewSubcommandGroup returns a command printing its help that only groups subCommands.
func NewSubcommandGroup(name string, subCommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <subcommand>", name),
		Short: fmt.Sprintf("%s related subcommands", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(subCommands...)

	return cmd
}
