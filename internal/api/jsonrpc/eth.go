package jsonrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github/chapool/ledger-signer/internal/wallet/provider"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

// EthAPI serves the eth namespace.
type EthAPI struct {
	wallet provider.HookedWallet
}

// Accounts returns the lowercase addresses of the configured accounts window.
func (api *EthAPI) Accounts(ctx context.Context) ([]string, error) {
	var (
		accounts []string
		err      error
	)
	api.wallet.GetAccounts(ctx, func(e error, a []string) {
		err = e
		accounts = a
	})

	return accounts, rpcError(ctx, "eth_accounts", err)
}

// RequestAccounts is Accounts, the device is always unlocked from the caller's view.
func (api *EthAPI) RequestAccounts(ctx context.Context) ([]string, error) {
	return api.Accounts(ctx)
}

//nolint:revive,stylecheck // Method name maps to eth_chainId
func (api *EthAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(api.wallet.ChainID()))
}

// SignTransaction returns the RLP encoded signed transaction.
func (api *EthAPI) SignTransaction(ctx context.Context, params signer.TxParams) (string, error) {
	var (
		signedTx string
		err      error
	)
	api.wallet.SignTransaction(ctx, &params, func(e error, signed string) {
		err = e
		signedTx = signed
	})

	return signedTx, rpcError(ctx, "eth_signTransaction", err)
}

// Sign takes [from, data].
func (api *EthAPI) Sign(ctx context.Context, from string, data string) (string, error) {
	signature, err := signMessage(ctx, api.wallet, data, from)
	return signature, rpcError(ctx, "eth_sign", err)
}
