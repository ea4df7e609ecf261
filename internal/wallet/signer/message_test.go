package signer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/test"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

var (
	testR = strings.Repeat("11", 32)
	testS = strings.Repeat("22", 32)
)

func TestSignMessageWithoutFrom(t *testing.T) {
	dev := test.NewDevice()

	signature, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{
		Data: "0x68656c6c6f",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x"+testR+testS+"00", signature)

	assert.Empty(t, dev.Calls(test.MethodGetAddress))

	calls := dev.Calls(test.MethodSignPersonalMessage)
	require.Len(t, calls, 1)
	assert.Equal(t, "44'/60'/0'/0/0", calls[0].Path)
	assert.Equal(t, "68656c6c6f", calls[0].Payload)
}

func TestSignMessageNormalizesV(t *testing.T) {
	tests := []struct {
		v        int64
		expected string
	}{
		{27, "00"},
		{28, "01"},
		{0, "00"},
		{1, "01"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("v=%d", tt.v), func(t *testing.T) {
			dev := test.NewDevice()
			dev.MessageSignature = test.Signature(tt.v)

			signature, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{Data: "00"})
			require.NoError(t, err)
			assert.Len(t, signature, 2+64+64+2)
			assert.True(t, strings.HasSuffix(signature, tt.expected))
		})
	}
}

func TestSignMessageRejectsInvalidV(t *testing.T) {
	for _, v := range []int64{2, 26, 29, 283, 1 << 40} {
		t.Run(fmt.Sprintf("v=%d", v), func(t *testing.T) {
			dev := test.NewDevice()
			dev.MessageSignature = test.Signature(v)

			signature, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{Data: "00"})
			require.ErrorIs(t, err, signer.ErrInvalidSignature)
			assert.Empty(t, signature)
		})
	}
}

func TestSignMessageResolvesFrom(t *testing.T) {
	dev := test.NewDevice()

	from := strings.ToUpper(test.AddressAt("44'/60'/0'/0/3")[2:])
	_, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{
		Data: "0x00",
		From: "0x" + from,
	})
	require.NoError(t, err)

	probes := dev.Calls(test.MethodGetAddress)
	require.Len(t, probes, 4)
	for i, c := range probes {
		assert.Equal(t, fmt.Sprintf("44'/60'/0'/0/%d", i), c.Path)
		assert.False(t, c.Confirm)
		assert.False(t, c.ChainCode)
	}

	calls := dev.Calls(test.MethodSignPersonalMessage)
	require.Len(t, calls, 1)
	assert.Equal(t, "44'/60'/0'/0/3", calls[0].Path)
}

func TestSignMessageResolvesFromIgnoringPathIndex(t *testing.T) {
	dev := test.NewDevice()

	cfg := testConfig()
	cfg.PathIndex = 6

	_, err := newTestService(t, dev, cfg).SignMessage(t.Context(), &signer.MessageParams{
		Data: "0x00",
		From: test.AddressAt("44'/60'/0'/0/1"),
	})
	require.NoError(t, err)

	assert.Len(t, dev.Calls(test.MethodGetAddress), 2)
	assert.Equal(t, "44'/60'/0'/0/1", dev.Calls(test.MethodSignPersonalMessage)[0].Path)
}

func TestSignMessageAddressNotFound(t *testing.T) {
	dev := test.NewDevice()

	signature, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{
		Data: "0x00",
		From: "0x000000000000000000000000000000000000dead",
	})
	require.ErrorIs(t, err, signer.ErrAddressNotFound)
	assert.Empty(t, signature)

	assert.Len(t, dev.Calls(test.MethodGetAddress), 10)
	assert.Empty(t, dev.Calls(test.MethodSignPersonalMessage))
}

func TestSignMessageProbeError(t *testing.T) {
	dev := test.NewDevice()
	dev.AddressErrors["44'/60'/0'/0/2"] = device.ErrDeviceClosed

	_, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{
		Data: "0x00",
		From: "0x000000000000000000000000000000000000dead",
	})
	require.ErrorIs(t, err, device.ErrDeviceClosed)
	assert.Len(t, dev.Calls(test.MethodGetAddress), 3)
}

func TestSignMessageDeviceError(t *testing.T) {
	dev := test.NewDevice()
	dev.MessageErr = device.NewStatusError(device.StatusUserRejected)

	_, err := newTestService(t, dev, testConfig()).SignMessage(t.Context(), &signer.MessageParams{Data: "00"})
	require.Error(t, err)
	assert.True(t, device.IsUserRejected(err))
}

func TestSignMessageEmulator(t *testing.T) {
	message := []byte("sign in to example.org")

	signature, err := newTestService(t, test.NewEmulator(t), testConfig()).SignMessage(t.Context(), &signer.MessageParams{
		Data: hexutil.Encode(message),
		From: strings.ToLower(test.Addresses[1]),
	})
	require.NoError(t, err)

	raw, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	require.Contains(t, []byte{0, 1}, raw[64])

	pub, err := crypto.SigToPub(accounts.TextHash(message), raw)
	require.NoError(t, err)
	assert.Equal(t, test.Addresses[1], crypto.PubkeyToAddress(*pub).Hex())
}
