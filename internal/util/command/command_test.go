package command_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/test"
	"github/chapool/ledger-signer/internal/util/command"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

func TestWithServer(t *testing.T) {
	cfg := test.Config()
	cfg.Emulator.Mnemonic = test.Mnemonic
	cfg.Logger.PrettyPrintConsole = false

	var testError = errors.New("test error")

	resultErr := command.WithServer(t.Context(), cfg, func(ctx context.Context, s *api.Server) error {
		require.True(t, s.Ready())

		var accounts []string
		s.Wallet.GetAccounts(ctx, func(err error, a []string) {
			require.NoError(t, err)
			accounts = a
		})
		assert.Equal(t, strings.ToLower(test.Addresses[0]), accounts[0])

		var signature string
		s.Wallet.SignMessage(ctx, &signer.MessageParams{Data: "0x00", From: test.Addresses[1]}, func(err error, sig string) {
			require.NoError(t, err)
			signature = sig
		})
		assert.Len(t, signature, 2+130)

		return testError
	})

	assert.Equal(t, testError, resultErr)
}

func TestWithServerInvalidDevice(t *testing.T) {
	cfg := test.Config()
	cfg.Device.Type = "unknown"

	called := false
	err := command.WithServer(t.Context(), cfg, func(_ context.Context, _ *api.Server) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
}

func TestWithServerInvalidLedgerConfig(t *testing.T) {
	cfg := test.Config()
	cfg.Emulator.Mnemonic = test.Mnemonic
	cfg.Ledger.BasePath = "not/a/path"

	err := command.WithServer(t.Context(), cfg, func(_ context.Context, _ *api.Server) error {
		return nil
	})

	require.Error(t, err)
}

func TestNewSubcommandGroup(t *testing.T) {
	cmd := command.NewSubcommandGroup("sign")

	assert.Equal(t, "sign <subcommand>", cmd.Use)
	assert.Equal(t, "sign related subcommands", cmd.Short)
}
