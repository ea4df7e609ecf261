package signer

import (
	"context"
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/address"
)

// SignTransaction signs at the configured path index. Callers select the account with
// SetPathIndex beforehand, params.From is not looked up on the device.
func (s *service) SignTransaction(ctx context.Context, params *TxParams) (string, error) {
	if params == nil {
		return "", errors.New("missing transaction params")
	}

	log := util.LogFromContext(ctx)
	d := s.current()
	path := address.JoinPath(d.basePath, d.pathIndex)

	if params.ChainID != nil && params.ChainID.ToInt().Cmp(s.chainID) != 0 {
		log.Debug().
			Str("requested_chain_id", params.ChainID.String()).
			Int64("chain_id", s.chainID.Int64()).
			Msg("Ignoring chain id of transaction params")
	}

	tx := newLegacyTx(params)

	payload, err := signingPayload(tx, s.chainID)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode signing payload")
	}

	sig, err := s.device.SignTransaction(ctx, path, hex.EncodeToString(payload))
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Device failed to sign transaction")
		return "", err
	}

	if signed := signedChainID(sig.V); signed.Cmp(s.chainID) != 0 {
		log.Warn().
			Str("signed_chain_id", signed.String()).
			Int64("chain_id", s.chainID.Int64()).
			Msg("Device signed for a different chain id")
		return "", errors.Wrapf(ErrFirmwareIncompatible, "signed chain id %s, expected %s", signed, s.chainID)
	}

	tx.V = new(big.Int).Set(sig.V)
	tx.R = new(big.Int).SetBytes(sig.R)
	tx.S = new(big.Int).SetBytes(sig.S)

	raw, err := types.NewTx(tx).MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode signed transaction")
	}

	return hexutil.Encode(raw), nil
}

func newLegacyTx(params *TxParams) *types.LegacyTx {
	tx := &types.LegacyTx{
		Nonce:    uint64(params.Nonce),
		GasPrice: new(big.Int),
		Gas:      params.GasValue(),
		To:       params.To,
		Value:    new(big.Int),
		Data:     append([]byte{}, params.Data...),
	}

	if params.GasPrice != nil {
		tx.GasPrice.Set(params.GasPrice.ToInt())
	}
	if params.Value != nil {
		tx.Value.Set(params.Value.ToInt())
	}

	return tx
}

// signingPayload returns the EIP-155 payload [nonce, gasPrice, gas, to, value, data, chainId, 0, 0].
func signingPayload(tx *types.LegacyTx, chainID *big.Int) ([]byte, error) {
	return rlp.EncodeToBytes([]interface{}{
		tx.Nonce,
		tx.GasPrice,
		tx.Gas,
		tx.To,
		tx.Value,
		tx.Data,
		chainID,
		uint(0),
		uint(0),
	})
}

// signedChainID returns floor((v - 35) / 2).
func signedChainID(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(-1)
	}

	// Div rounds towards negative infinity for positive divisors
	return new(big.Int).Div(new(big.Int).Sub(v, big.NewInt(35)), big.NewInt(2))
}
