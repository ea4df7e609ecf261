package jsonrpc

import (
	"context"
	"encoding/hex"
	"strings"

	"github/chapool/ledger-signer/internal/wallet/provider"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

// PersonalAPI serves the personal namespace.
type PersonalAPI struct {
	wallet provider.HookedWallet
}

// Sign takes [data, from]. Without from the key at index 0 signs.
func (api *PersonalAPI) Sign(ctx context.Context, data string, from *string) (string, error) {
	var address string
	if from != nil {
		address = *from
	}

	signature, err := signMessage(ctx, api.wallet, data, address)

	return signature, rpcError(ctx, "personal_sign", err)
}

func signMessage(ctx context.Context, wallet provider.HookedWallet, data string, from string) (string, error) {
	var (
		signature string
		err       error
	)
	wallet.SignMessage(ctx, &signer.MessageParams{Data: messageHex(data), From: from}, func(e error, sig string) {
		err = e
		signature = sig
	})

	return signature, err
}

// messageHex passes 0x prefixed hex through and hex encodes anything else as UTF-8 text.
func messageHex(data string) string {
	if strings.HasPrefix(data, "0x") {
		if _, err := hex.DecodeString(data[2:]); err == nil {
			return data
		}
	}

	return "0x" + hex.EncodeToString([]byte(data))
}
