package jsonrpc

import (
	"context"
	"time"

	"github/chapool/ledger-signer/internal/api/httperrors"
	"github/chapool/ledger-signer/internal/wallet/provider"
)

// WalletAPI serves the wallet namespace, the derivation settings and the connection check.
type WalletAPI struct {
	wallet       provider.HookedWallet
	probeTimeout time.Duration
}

// ConnectionResult is the result of wallet_testConnection.
type ConnectionResult struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// GetPath returns the base path. It is accepted by SetPath as is.
func (api *WalletAPI) GetPath() string {
	return api.wallet.GetPath()
}

func (api *WalletAPI) GetPathIndex() int {
	return api.wallet.GetPathIndex()
}

func (api *WalletAPI) SetPath(path string) (bool, error) {
	if err := api.wallet.SetPath(path); err != nil {
		return false, httperrors.NewInvalidParamsError("%v", err)
	}

	return true, nil
}

func (api *WalletAPI) SetPathIndex(index int) (bool, error) {
	if err := api.wallet.SetPathIndex(index); err != nil {
		return false, httperrors.NewInvalidParamsError("%v", err)
	}

	return true, nil
}

// TestConnection takes an optional [timeoutMs], defaulting to LEDGER_PROBE_TIMEOUT.
// Device errors are part of the result, not JSON-RPC errors.
func (api *WalletAPI) TestConnection(ctx context.Context, timeoutMs *int64) ConnectionResult {
	timeout := api.probeTimeout
	if timeoutMs != nil && *timeoutMs > 0 {
		timeout = time.Duration(*timeoutMs) * time.Millisecond
	}

	var result ConnectionResult
	api.wallet.TestConnection(ctx, timeout, func(connected bool, err error) {
		result.Connected = connected
		if err != nil {
			result.Error = err.Error()
		}
	})

	return result
}

func (api *WalletAPI) IsSupported() bool {
	return api.wallet.IsSupported()
}
