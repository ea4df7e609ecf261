// Package provider exposes the signer through the callback based "hooked wallet" surface
// expected by wallet provider middleware.
package provider

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

// HookedWallet combines the signing hooks with the path accessors of the device adapter.
// Every callback is invoked exactly once, before the method returns.
type HookedWallet interface {
	GetAccounts(ctx context.Context, callback func(err error, accounts []string))
	SignMessage(ctx context.Context, params *signer.MessageParams, callback func(err error, signature string))
	SignTransaction(ctx context.Context, params *signer.TxParams, callback func(err error, signedTx string))

	GetPath() string
	GetPathIndex() int
	SetPath(path string) error
	SetPathIndex(index int) error
	ChainID() int64
	TestConnection(ctx context.Context, timeout time.Duration, callback signer.ConnectionCallback)
	IsSupported() bool
}

type hookedWallet struct {
	signer.Service
}

// New creates the signer for dev and wraps it into a HookedWallet
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func New(dev device.Device, cfg config.Ledger, clock time2.Clock) (HookedWallet, error) {
	s, err := signer.NewService(dev, cfg, clock)
	if err != nil {
		return nil, err
	}

	return Wrap(s), nil
}

// Wrap exposes an existing signer as HookedWallet
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func Wrap(s signer.Service) HookedWallet {
	return &hookedWallet{Service: s}
}

func (w *hookedWallet) GetAccounts(ctx context.Context, callback func(err error, accounts []string)) {
	var accounts []string
	err := guard(ctx, "getAccounts", func() (err error) {
		accounts, err = w.Service.GetAccounts(ctx)
		return err
	})

	callback(err, accounts)
}

func (w *hookedWallet) SignMessage(ctx context.Context, params *signer.MessageParams, callback func(err error, signature string)) {
	var signature string
	err := guard(ctx, "signMessage", func() (err error) {
		signature, err = w.Service.SignMessage(ctx, params)
		return err
	})

	callback(err, signature)
}

func (w *hookedWallet) SignTransaction(ctx context.Context, params *signer.TxParams, callback func(err error, signedTx string)) {
	var signedTx string
	err := guard(ctx, "signTransaction", func() (err error) {
		signedTx, err = w.Service.SignTransaction(ctx, params)
		return err
	})

	callback(err, signedTx)
}

// guard turns a panic of the device layer into an error so callers are always called back.
func guard(ctx context.Context, operation string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			util.LogFromContext(ctx).Error().Str("operation", operation).Interface("panic", r).Msg("Recovered from panic in signer")
			err = errors.Errorf("%s: %v", operation, r)
		}
	}()

	return f()
}
