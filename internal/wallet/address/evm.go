package address

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

const privateKeyLength = 32

// DeriveKey derives a private key and its chain code from seed and BIP44 path
func (s *service) DeriveKey(_ context.Context, seed []byte, path string) (*Key, error) {
	if len(seed) == 0 {
		return nil, errors.New("seed not initialized")
	}

	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	derivedKey := masterKey
	for _, index := range indices {
		derivedKey, err = derivedKey.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	// go-bip32 strips leading zero bytes of private keys
	return &Key{
		PrivateKey: common.LeftPadBytes(derivedKey.Key, privateKeyLength),
		ChainCode:  common.CopyBytes(derivedKey.ChainCode),
	}, nil
}
