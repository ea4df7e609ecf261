// Package jsonrpc exposes the hooked wallet over go-ethereum's JSON-RPC server under the
// eth, personal and wallet namespaces.
package jsonrpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/api/httperrors"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/provider"
)

// NewServer registers the wallet namespaces on a new rpc.Server. Calls without an explicit
// timeout give wallet_testConnection probeTimeout.
func NewServer(wallet provider.HookedWallet, probeTimeout time.Duration) (*rpc.Server, error) {
	srv := rpc.NewServer()

	services := []struct {
		namespace string
		receiver  interface{}
	}{
		{"eth", &EthAPI{wallet: wallet}},
		{"personal", &PersonalAPI{wallet: wallet}},
		{"wallet", &WalletAPI{wallet: wallet, probeTimeout: probeTimeout}},
	}

	for _, svc := range services {
		if err := srv.RegisterName(svc.namespace, svc.receiver); err != nil {
			srv.Stop()
			return nil, errors.Wrapf(err, "failed to register %s namespace", svc.namespace)
		}
	}

	return srv, nil
}

// rpcError maps err onto a JSON-RPC error object, the server reads its code and data.
func rpcError(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}

	rpcErr := httperrors.FromError(err)
	util.LogFromContext(ctx).Debug().Err(err).Str("method", method).Int("code", rpcErr.Code).Msg("JSON-RPC request failed")

	return rpcErr
}
