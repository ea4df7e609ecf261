package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/address"
)

const signatureComponentLength = 32

// SignMessage resolves params.From to its derivation index before signing since the device
// signs by path. Without From, index 0 is used and the device is not probed.
func (s *service) SignMessage(ctx context.Context, params *MessageParams) (string, error) {
	if params == nil {
		return "", errors.New("missing message params")
	}

	log := util.LogFromContext(ctx)
	d := s.current()

	index := 0
	if len(params.From) > 0 {
		var err error
		index, err = s.findIndex(ctx, d.basePath, params.From)
		if err != nil {
			log.Debug().Err(err).Str("from", params.From).Msg("Failed to resolve address")
			return "", err
		}
	}

	path := address.JoinPath(d.basePath, index)
	data := strings.TrimPrefix(params.Data, "0x")

	sig, err := s.device.SignPersonalMessage(ctx, path, data)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Device failed to sign message")
		return "", err
	}

	v, err := normalizeV(sig.V)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Device returned an invalid message signature")
		return "", err
	}

	return "0x" +
		hex.EncodeToString(common.LeftPadBytes(sig.R, signatureComponentLength)) +
		hex.EncodeToString(common.LeftPadBytes(sig.S, signatureComponentLength)) +
		v, nil
}

// normalizeV maps v in {27, 28} to a two digit hex recovery id. Raw recovery ids 0 and 1
// pass through, anything else is rejected.
func normalizeV(v *big.Int) (string, error) {
	if v == nil {
		return "00", nil
	}

	recovery := new(big.Int).Set(v)
	if recovery.Cmp(big.NewInt(27)) >= 0 {
		recovery.Sub(recovery, big.NewInt(27))
	}

	if recovery.Sign() < 0 || recovery.Cmp(big.NewInt(1)) > 0 {
		return "", errors.Wrapf(ErrInvalidSignature, "recovery id %s out of range", v)
	}

	return fmt.Sprintf("%02x", recovery.Uint64()), nil
}
