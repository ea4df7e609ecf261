//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/metrics"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewClock,
	metrics.New,
	NewWallet,
	NewRPCServer,
)

// InitNewServerWithDevice returns a new Server instance talking to the given device.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithDevice(
	_ config.Server,
	_ device.Device,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
