package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestLedgerDefaults(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, config.DefaultBasePath, cfg.Ledger.BasePath)
	assert.Equal(t, 0, cfg.Ledger.PathIndex)
	assert.Equal(t, config.DefaultAccountsLength, cfg.Ledger.AccountsLength)
	assert.Equal(t, config.DefaultAddressSearchLimit, cfg.Ledger.AddressSearchLimit)
	assert.False(t, cfg.Ledger.AlwaysConfirm)
	require.Equal(t, config.DeviceTypeLedger, cfg.Device.Type)
}
