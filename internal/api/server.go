package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/metrics"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/provider"
)

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	RPC        *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config  config.Server
	Clock   time2.Clock
	Device  device.Device
	Metrics *metrics.Service
	Wallet  provider.HookedWallet
	RPC     *rpc.Server
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	dev device.Device,
	metrics *metrics.Service,
	wallet provider.HookedWallet,
	rpcServer *rpc.Server,
) *Server {
	return &Server{
		Config:  cfg,
		Clock:   clock,
		Device:  dev,
		Metrics: metrics,
		Wallet:  wallet,
		RPC:     rpcServer,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.RPC != nil {
		log.Debug().Msg("Stopping JSON-RPC server")
		s.RPC.Stop()
	}

	if s.Device != nil {
		log.Debug().Msg("Closing device")

		if err := s.Device.Close(); err != nil && !errors.Is(err, device.ErrDeviceClosed) {
			log.Error().Err(err).Msg("Failed to close device")
			errs = append(errs, err)
		}
	}

	return errs
}
