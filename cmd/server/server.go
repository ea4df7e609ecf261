package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/api/router"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/util/command"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the JSON-RPC server",
		Long: `Opens the configured device and serves the JSON-RPC signer.

Requires configuration through ENV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return command.WithServer(ctx, config.DefaultServiceConfigFromEnv(), func(ctx context.Context, s *api.Server) error {
		router.Init(s)

		errs := make(chan error, 1)
		go func() {
			errs <- s.Start()
		}()

		log.Info().Str("address", s.Config.Echo.ListenAddress).Int64("chain_id", s.Wallet.ChainID()).Str("path", s.Wallet.GetPath()).Int("path_index", s.Wallet.GetPathIndex()).Msg("Server started")

		select {
		case err := <-errs:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			log.Warn().Msg("Received shutdown signal")
			return nil
		}
	})
}
