// Package emulator implements device.Device in software from a BIP39 seed, mirroring the
// replies of the Ledger Ethereum app. It is meant for development and tests.
package emulator

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/wallet/address"
	"github/chapool/ledger-signer/internal/wallet/seed"
)

var ErrSeedNotInitialized = errors.New("emulator seed not initialized")

// eip155Payload is the RLP list [nonce, gasPrice, gas, to, value, data, chainId, 0, 0].
type eip155Payload struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
	R        *big.Int
	S        *big.Int
}

// Emulator is a software device.Device.
type Emulator struct {
	seedManager    seed.Manager
	addressService address.Service

	mu     sync.Mutex
	closed bool

	// ConfirmFunc, if set, is consulted for every operation flagged for on-device
	// confirmation. Returning false rejects the request like a user would on hardware.
	ConfirmFunc func(operation string, path string) bool

	log zerolog.Logger
}

var _ device.Device = (*Emulator)(nil)

func New(seedManager seed.Manager, addressService address.Service) *Emulator {
	return &Emulator{
		seedManager:    seedManager,
		addressService: addressService,
		log:            log.With().Str("component", "emulator").Logger(),
	}
}

func (e *Emulator) GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*device.AddressResult, error) {
	key, err := e.deriveKey(ctx, path)
	if err != nil {
		return nil, err
	}
	defer key.Clear()

	privateKey, err := crypto.ToECDSA(key.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	addr := crypto.PubkeyToAddress(privateKey.PublicKey)

	if confirm && !e.confirm("address", path) {
		return nil, device.NewStatusError(device.StatusUserRejected)
	}

	result := &device.AddressResult{
		Address:   addr.Hex(),
		PublicKey: crypto.FromECDSAPub(&privateKey.PublicKey),
	}
	if chainCode {
		result.ChainCode = common.CopyBytes(key.ChainCode)
	}

	e.log.Debug().Str("path", path).Str("address", result.Address).Msg("Derived address")

	return result, nil
}

func (e *Emulator) SignTransaction(ctx context.Context, path string, unsignedTxHex string) (*device.Signature, error) {
	payload, err := decodeHex(unsignedTxHex)
	if err != nil {
		return nil, device.NewStatusError(device.StatusInvalidData)
	}

	var tx eip155Payload
	if err := rlp.DecodeBytes(payload, &tx); err != nil {
		e.log.Debug().Err(err).Msg("Rejecting undecodable signing payload")
		return nil, device.NewStatusError(device.StatusInvalidData)
	}

	if !e.confirm("transaction", path) {
		return nil, device.NewStatusError(device.StatusUserRejected)
	}

	sig, err := e.sign(ctx, path, crypto.Keccak256(payload))
	if err != nil {
		return nil, err
	}

	// v = chainId * 2 + 35 + recovery id
	v := new(big.Int).Lsh(tx.ChainID, 1)
	v.Add(v, big.NewInt(35+int64(sig[64])))

	return &device.Signature{
		R: sig[:32],
		S: sig[32:64],
		V: v,
	}, nil
}

func (e *Emulator) SignPersonalMessage(ctx context.Context, path string, messageHex string) (*device.Signature, error) {
	message, err := decodeHex(messageHex)
	if err != nil {
		return nil, device.NewStatusError(device.StatusInvalidData)
	}

	if !e.confirm("message", path) {
		return nil, device.NewStatusError(device.StatusUserRejected)
	}

	sig, err := e.sign(ctx, path, accounts.TextHash(message))
	if err != nil {
		return nil, err
	}

	return &device.Signature{
		R: sig[:32],
		S: sig[32:64],
		V: big.NewInt(27 + int64(sig[64])),
	}, nil
}

func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return device.ErrDeviceClosed
	}
	e.closed = true

	return nil
}

func (e *Emulator) sign(ctx context.Context, path string, hash []byte) ([]byte, error) {
	key, err := e.deriveKey(ctx, path)
	if err != nil {
		return nil, err
	}
	defer key.Clear()

	privateKey, err := crypto.ToECDSA(key.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	sig, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign")
	}

	return sig, nil
}

func (e *Emulator) deriveKey(ctx context.Context, path string) (*address.Key, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return nil, device.ErrDeviceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seedBytes := e.seedManager.GetSeed()
	if seedBytes == nil {
		return nil, ErrSeedNotInitialized
	}
	defer func() {
		for i := range seedBytes {
			seedBytes[i] = 0
		}
	}()

	return e.addressService.DeriveKey(ctx, seedBytes, path)
}

func (e *Emulator) confirm(operation string, path string) bool {
	if e.ConfirmFunc == nil {
		return true
	}

	return e.ConfirmFunc(operation, path)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}

	return hex.DecodeString(s)
}
