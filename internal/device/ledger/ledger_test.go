package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/karalabe/hid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/device"
)

const testAddress = "f39fd6e51aad88f6f4ce6ab8827279cfffb92266"

func addressReply(chainCode bool) []byte {
	pubKey := bytes.Repeat([]byte{0x04}, 65)

	reply := []byte{byte(len(pubKey))}
	reply = append(reply, pubKey...)
	reply = append(reply, byte(len(testAddress)))
	reply = append(reply, testAddress...)
	if chainCode {
		reply = append(reply, bytes.Repeat([]byte{0xcc}, 32)...)
	}

	return reply
}

func signatureReply(v byte) []byte {
	reply := []byte{v}
	reply = append(reply, bytes.Repeat([]byte{0x11}, 32)...)
	reply = append(reply, bytes.Repeat([]byte{0x22}, 32)...)
	return reply
}

func TestGetAddress(t *testing.T) {
	fake := newFakeHID(func(apdu []byte) ([]byte, uint16) {
		return addressReply(apdu[3] == byte(p2ReturnChainCode)), device.StatusOK
	})
	l := New("test", fake)

	res, err := l.GetAddress(t.Context(), "44'/60'/0'/0/1", false, false)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress).Hex(), res.Address)
	assert.Len(t, res.PublicKey, 65)
	assert.Nil(t, res.ChainCode)

	res, err = l.GetAddress(t.Context(), "m/44'/60'/0'/0/1", true, true)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xcc}, 32), res.ChainCode)

	apdus := fake.recorded()
	require.Len(t, apdus, 2)

	expectedPath, _ := hex.DecodeString("05" + "8000002c" + "8000003c" + "80000000" + "00000000" + "00000001")
	assert.Equal(t, append([]byte{0xe0, 0x02, 0x00, 0x00, byte(len(expectedPath))}, expectedPath...), apdus[0])
	assert.Equal(t, []byte{0xe0, 0x02, 0x01, 0x01}, apdus[1][:4])
}

func TestGetAddressStatusError(t *testing.T) {
	l := New("test", newFakeHID(func(_ []byte) ([]byte, uint16) {
		return nil, device.StatusUserRejected
	}))

	_, err := l.GetAddress(t.Context(), "44'/60'/0'/0/0", true, false)
	require.Error(t, err)
	assert.True(t, device.IsUserRejected(err))

	var statusErr *device.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, device.StatusUserRejected, statusErr.Code)
}

func TestGetAddressInvalidHeader(t *testing.T) {
	fake := newFakeHID(func(_ []byte) ([]byte, uint16) {
		return addressReply(false), device.StatusOK
	})
	fake.corrupt = true

	_, err := New("test", fake).GetAddress(t.Context(), "44'/60'/0'/0/0", false, false)
	require.ErrorIs(t, err, errReplyInvalidHeader)
}

func TestSignTransactionChunks(t *testing.T) {
	fake := newFakeHID(func(_ []byte) ([]byte, uint16) {
		return signatureReply(37), device.StatusOK
	})
	l := New("test", fake)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	payload, err := rlp.EncodeToBytes([]interface{}{
		uint64(7), big.NewInt(1e9), uint64(21000), &to, big.NewInt(1), bytes.Repeat([]byte{0xab}, 600),
		big.NewInt(1), uint(0), uint(0),
	})
	require.NoError(t, err)

	sig, err := l.SignTransaction(t.Context(), "44'/60'/0'/0/0", hex.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(37), sig.V.Int64())
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), sig.R)
	assert.Equal(t, bytes.Repeat([]byte{0x22}, 32), sig.S)

	encodedPath, err := encodePath("44'/60'/0'/0/0")
	require.NoError(t, err)
	expected := append(encodedPath, payload...)

	apdus := fake.recorded()
	require.Len(t, apdus, (len(expected)+maxChunkSize-1)/maxChunkSize)

	var streamed []byte
	for i, apdu := range apdus {
		assert.Equal(t, byte(opSignTransaction), apdu[1])
		if i == 0 {
			assert.Equal(t, byte(p1InitData), apdu[2])
		} else {
			assert.Equal(t, byte(p1ContData), apdu[2])
		}
		assert.Equal(t, int(apdu[4]), len(apdu)-5)
		streamed = append(streamed, apdu[5:]...)
	}
	assert.Equal(t, expected, streamed)
}

func TestSignTransactionRestoresTruncatedV(t *testing.T) {
	// chain id 137: 137*2+35 = 309, truncated to 0x35
	l := New("test", newFakeHID(func(_ []byte) ([]byte, uint16) {
		return signatureReply(0x36), device.StatusOK
	}))

	payload, err := rlp.EncodeToBytes([]interface{}{
		uint64(0), big.NewInt(1), uint64(21000), common.Address{}, big.NewInt(0), []byte{},
		big.NewInt(137), uint(0), uint(0),
	})
	require.NoError(t, err)

	sig, err := l.SignTransaction(t.Context(), "44'/60'/0'/0/0", hex.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(310), sig.V.Int64())
}

func TestRestoreTruncatedV(t *testing.T) {
	tests := []struct {
		name     string
		v        int64
		chainID  int64
		expected int64
	}{
		{"mainnet untouched", 37, 1, 37},
		{"polygon parity 0", 0x35, 137, 309},
		{"polygon parity 1", 0x36, 137, 310},
		{"legacy firmware v", 27, 137, 27},
		{"large chain id", int64((11155111*2 + 35 + 1) & 0xff), 11155111, 11155111*2 + 35 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := restoreTruncatedV(big.NewInt(tt.v), big.NewInt(tt.chainID))
			assert.Equal(t, tt.expected, v.Int64())
		})
	}
}

func TestSignPersonalMessage(t *testing.T) {
	fake := newFakeHID(func(_ []byte) ([]byte, uint16) {
		return signatureReply(27), device.StatusOK
	})
	l := New("test", fake)

	sig, err := l.SignPersonalMessage(t.Context(), "44'/60'/0'/0/0", hex.EncodeToString([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, int64(27), sig.V.Int64())

	apdus := fake.recorded()
	require.Len(t, apdus, 1)
	assert.Equal(t, []byte{0xe0, byte(opSignPersonalMessage), byte(p1InitData), 0x00}, apdus[0][:4])

	encodedPath, err := encodePath("44'/60'/0'/0/0")
	require.NoError(t, err)
	expected := append(encodedPath, 0x00, 0x00, 0x00, 0x05)
	expected = append(expected, "hello"...)
	assert.Equal(t, expected, apdus[0][5:])
}

func TestSignRejectsInvalidHex(t *testing.T) {
	l := New("test", newFakeHID(func(_ []byte) ([]byte, uint16) {
		return signatureReply(27), device.StatusOK
	}))

	_, err := l.SignPersonalMessage(t.Context(), "44'/60'/0'/0/0", "zz")
	require.Error(t, err)

	_, err = l.SignTransaction(t.Context(), "44'/60'/0'/0/0", "0xnothex")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	l := New("test", newFakeHID(func(apdu []byte) ([]byte, uint16) {
		if apdu[1] != byte(opGetConfiguration) {
			return nil, device.StatusInsNotSupported
		}
		return []byte{0x01, 1, 10, 3}, device.StatusOK
	}))

	version, err := l.Version(t.Context())
	require.NoError(t, err)
	assert.Equal(t, [3]byte{1, 10, 3}, version)
}

func TestClose(t *testing.T) {
	fake := newFakeHID(func(_ []byte) ([]byte, uint16) {
		return addressReply(false), device.StatusOK
	})
	l := New("test", fake)

	require.NoError(t, l.Close())
	require.ErrorIs(t, l.Close(), device.ErrDeviceClosed)

	_, err := l.GetAddress(t.Context(), "44'/60'/0'/0/0", false, false)
	require.ErrorIs(t, err, device.ErrDeviceClosed)
}

func TestAcquireHonoursContext(t *testing.T) {
	l := New("test", newFakeHID(func(_ []byte) ([]byte, uint16) {
		return addressReply(false), device.StatusOK
	}))

	// hold the comms lock
	require.NoError(t, l.acquire(t.Context()))
	defer l.release()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := l.GetAddress(ctx, "44'/60'/0'/0/0", false, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEncodePath(t *testing.T) {
	_, err := encodePath("44'/60'/0'/0/0/0/0/0/0/0/0")
	require.Error(t, err)

	_, err = encodePath("")
	require.Error(t, err)
}

func TestHubMatches(t *testing.T) {
	h := &Hub{
		productIDs: DefaultProductIDs,
		clock:      time2.NewMockClock(time.Now()),
		enumerate: func(_ uint16, _ uint16) ([]hid.DeviceInfo, error) {
			return []hid.DeviceInfo{
				{Path: "nano-x", ProductID: 0x4011, Interface: 0},
				{Path: "nano-s-macos", ProductID: 0x0001, UsagePage: 0xffa0, Interface: -1},
				{Path: "u2f-interface", ProductID: 0x4011, Interface: 1},
				{Path: "unknown-model", ProductID: 0x9011, Interface: 0},
			}, nil
		},
	}

	infos, err := h.Devices()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "nano-x", infos[0].Path)
	assert.Equal(t, "nano-s-macos", infos[1].Path)
}

func TestHubRefreshThrottling(t *testing.T) {
	clock := time2.NewMockClock(time.Now())
	enumerations := 0

	h := &Hub{
		productIDs: DefaultProductIDs,
		clock:      clock,
		enumerate: func(_ uint16, _ uint16) ([]hid.DeviceInfo, error) {
			enumerations++
			return []hid.DeviceInfo{{Path: "nano-x", ProductID: 0x4011, Interface: 0}}, nil
		},
	}

	for range 3 {
		infos, err := h.Devices()
		require.NoError(t, err)
		require.Len(t, infos, 1)
	}
	assert.Equal(t, 1, enumerations)

	clock.Advance(refreshThrottling - time.Millisecond)
	_, err := h.Devices()
	require.NoError(t, err)
	assert.Equal(t, 1, enumerations)

	clock.Advance(time.Millisecond)
	_, err = h.Devices()
	require.NoError(t, err)
	assert.Equal(t, 2, enumerations)
}

func TestHubOpenNoDevice(t *testing.T) {
	h := &Hub{
		productIDs: DefaultProductIDs,
		clock:      time2.NewMockClock(time.Now()),
		enumerate: func(_ uint16, _ uint16) ([]hid.DeviceInfo, error) {
			return nil, nil
		},
	}

	_, err := h.Open(t.Context())
	require.ErrorIs(t, err, ErrNoDevice)
}
