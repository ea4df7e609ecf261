package api

import (
	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/rpc"
	"github/chapool/ledger-signer/internal/api/jsonrpc"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/metrics"
	"github/chapool/ledger-signer/internal/wallet/provider"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewClock() time2.Clock {
	return time2.DefaultClock
}

// NewWallet wraps the device with metrics and builds the signer on top of it.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewWallet(cfg config.Server, dev device.Device, m *metrics.Service, clock time2.Clock) (provider.HookedWallet, error) {
	return provider.New(m.InstrumentDevice(dev), cfg.Ledger, clock)
}

// NewRPCServer serves wallet over JSON-RPC.
func NewRPCServer(cfg config.Server, wallet provider.HookedWallet) (*rpc.Server, error) {
	return jsonrpc.NewServer(wallet, cfg.Ledger.ProbeTimeout)
}
