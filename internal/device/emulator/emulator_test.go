package emulator_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/device/emulator"
	"github/chapool/ledger-signer/internal/wallet/address"
	"github/chapool/ledger-signer/internal/wallet/seed"
)

//nolint:dupword // Well known development mnemonic
const testMnemonic = "test test test test test test test test test test test junk"

func newEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()

	seedManager := seed.NewManager()
	require.NoError(t, seedManager.Initialize(testMnemonic, ""))

	return emulator.New(seedManager, address.NewService())
}

func recoverAddress(t *testing.T, hash []byte, sig *device.Signature, recoveryID byte) common.Address {
	t.Helper()

	raw := append(append(append([]byte{}, sig.R...), sig.S...), recoveryID)
	pub, err := crypto.SigToPub(hash, raw)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(*pub)
}

func TestGetAddress(t *testing.T) {
	emu := newEmulator(t)

	res, err := emu.GetAddress(t.Context(), "44'/60'/0'/0/3", false, false)
	require.NoError(t, err)
	assert.Equal(t, "0x90F79bf6EB2c4f870365E785982E1f101E93b906", res.Address)
	assert.Len(t, res.PublicKey, 65)
	assert.Nil(t, res.ChainCode)

	res, err = emu.GetAddress(t.Context(), "44'/60'/0'/0/3", false, true)
	require.NoError(t, err)
	assert.Len(t, res.ChainCode, 32)
}

func TestGetAddressRejected(t *testing.T) {
	emu := newEmulator(t)
	emu.ConfirmFunc = func(_ string, _ string) bool { return false }

	_, err := emu.GetAddress(t.Context(), "44'/60'/0'/0/0", false, false)
	require.NoError(t, err)

	_, err = emu.GetAddress(t.Context(), "44'/60'/0'/0/0", true, false)
	assert.True(t, device.IsUserRejected(err))
}

func TestSignTransaction(t *testing.T) {
	emu := newEmulator(t)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	payload, err := rlp.EncodeToBytes([]interface{}{
		uint64(1), big.NewInt(2e9), uint64(21000), &to, big.NewInt(1e18), []byte{},
		big.NewInt(5), uint(0), uint(0),
	})
	require.NoError(t, err)

	sig, err := emu.SignTransaction(t.Context(), "44'/60'/0'/0/0", hex.EncodeToString(payload))
	require.NoError(t, err)

	recoveryID := new(big.Int).Sub(sig.V, big.NewInt(5*2+35)).Int64()
	require.Contains(t, []int64{0, 1}, recoveryID)

	sender := recoverAddress(t, crypto.Keccak256(payload), sig, byte(recoveryID))
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", sender.Hex())
}

func TestSignTransactionInvalidPayload(t *testing.T) {
	emu := newEmulator(t)

	_, err := emu.SignTransaction(t.Context(), "44'/60'/0'/0/0", "deadbeef")

	var statusErr *device.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, device.StatusInvalidData, statusErr.Code)
}

func TestSignPersonalMessage(t *testing.T) {
	emu := newEmulator(t)

	message := []byte("hello ledger")
	sig, err := emu.SignPersonalMessage(t.Context(), "44'/60'/0'/0/1", hex.EncodeToString(message))
	require.NoError(t, err)
	require.Contains(t, []int64{27, 28}, sig.V.Int64())

	sender := recoverAddress(t, accounts.TextHash(message), sig, byte(sig.V.Int64()-27))
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", sender.Hex())
}

func TestUninitializedSeed(t *testing.T) {
	emu := emulator.New(seed.NewManager(), address.NewService())

	_, err := emu.GetAddress(t.Context(), "44'/60'/0'/0/0", false, false)
	require.ErrorIs(t, err, emulator.ErrSeedNotInitialized)
}

func TestClose(t *testing.T) {
	emu := newEmulator(t)

	require.NoError(t, emu.Close())
	require.ErrorIs(t, emu.Close(), device.ErrDeviceClosed)

	_, err := emu.GetAddress(t.Context(), "44'/60'/0'/0/0", false, false)
	require.ErrorIs(t, err, device.ErrDeviceClosed)
}
