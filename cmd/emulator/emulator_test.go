package emulator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/test"
	"github/chapool/ledger-signer/internal/wallet/keystore"
)

func TestRunInitImport(t *testing.T) {
	cfg := test.Config()
	cfg.Emulator.KeystorePath = filepath.Join(t.TempDir(), "keystore.json")
	cfg.Emulator.Password = "emulator password"

	require.NoError(t, runInit(t.Context(), cfg, "  "+test.Mnemonic+"\n", keystore.LightScryptParams()))

	ks, err := keystore.NewService(cfg.Emulator.KeystorePath, keystore.LightScryptParams())
	require.NoError(t, err)

	mnemonic, err := ks.DecryptMnemonic(t.Context(), cfg.Emulator.Password)
	require.NoError(t, err)
	assert.Equal(t, test.Mnemonic, mnemonic)

	err = runInit(t.Context(), cfg, test.Mnemonic, keystore.LightScryptParams())
	require.ErrorIs(t, err, keystore.ErrKeystoreExists)
}
