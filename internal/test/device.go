package test

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/device/emulator"
	"github/chapool/ledger-signer/internal/wallet/address"
	"github/chapool/ledger-signer/internal/wallet/seed"
)

//nolint:dupword // Well known development mnemonic
const Mnemonic = "test test test test test test test test test test test junk"

// Addresses of Mnemonic at 44'/60'/0'/0/{index}.
var Addresses = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	"0x90F79bf6EB2c4f870365E785982E1f101E93b906",
}

const (
	MethodGetAddress          = "GetAddress"
	MethodSignTransaction     = "SignTransaction"
	MethodSignPersonalMessage = "SignPersonalMessage"
)

// Call records a single request made to Device.
type Call struct {
	Method    string
	Path      string
	Confirm   bool
	ChainCode bool
	Payload   string
}

// Device is a scripted device.Device recording every request.
type Device struct {
	mu      sync.Mutex
	calls   []Call
	replies int
	closed  bool

	// AddressErrors fails GetAddress for the given paths.
	AddressErrors map[string]error
	// AddressDelay delays every GetAddress reply.
	AddressDelay time.Duration

	TxSignature      *device.Signature
	TxErr            error
	MessageSignature *device.Signature
	MessageErr       error
}

var _ device.Device = (*Device)(nil)

func NewDevice() *Device {
	return &Device{
		AddressErrors: map[string]error{},
	}
}

// AddressAt returns the checksummed address the fake device reports for path.
func AddressAt(path string) string {
	return common.BytesToAddress(crypto.Keccak256([]byte(path))).Hex()
}

// Signature builds a signature with recognizable r and s and the given v.
func Signature(v int64) *device.Signature {
	r := make([]byte, 32)
	s := make([]byte, 32)
	for i := range r {
		r[i] = 0x11
		s[i] = 0x22
	}

	return &device.Signature{R: r, S: s, V: big.NewInt(v)}
}

func (d *Device) GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*device.AddressResult, error) {
	d.record(Call{Method: MethodGetAddress, Path: path, Confirm: confirm, ChainCode: chainCode})
	defer d.replied()

	if d.AddressDelay > 0 {
		select {
		case <-time.After(d.AddressDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	err, ok := d.AddressErrors[path]
	d.mu.Unlock()
	if ok {
		return nil, err
	}

	return &device.AddressResult{Address: AddressAt(path)}, nil
}

func (d *Device) SignTransaction(_ context.Context, path string, unsignedTxHex string) (*device.Signature, error) {
	d.record(Call{Method: MethodSignTransaction, Path: path, Payload: unsignedTxHex})

	if d.TxErr != nil {
		return nil, d.TxErr
	}
	if d.TxSignature == nil {
		return Signature(37), nil
	}

	return d.TxSignature, nil
}

func (d *Device) SignPersonalMessage(_ context.Context, path string, messageHex string) (*device.Signature, error) {
	d.record(Call{Method: MethodSignPersonalMessage, Path: path, Payload: messageHex})

	if d.MessageErr != nil {
		return nil, d.MessageErr
	}
	if d.MessageSignature == nil {
		return Signature(27), nil
	}

	return d.MessageSignature, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return device.ErrDeviceClosed
	}
	d.closed = true

	return nil
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// Calls returns the recorded requests, optionally filtered by method.
func (d *Device) Calls(methods ...string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	calls := make([]Call, 0, len(d.calls))
	for _, c := range d.calls {
		if len(methods) == 0 || containsFold(methods, c.Method) {
			calls = append(calls, c)
		}
	}

	return calls
}

// AddressReplies returns the number of GetAddress calls that have returned.
func (d *Device) AddressReplies() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.replies
}

func (d *Device) replied() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.replies++
}

func (d *Device) record(c Call) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, c)
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}

	return false
}

// NewEmulator returns a software device seeded with Mnemonic.
func NewEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()

	seedManager := seed.NewManager()
	require.NoError(t, seedManager.Initialize(Mnemonic, ""))

	return emulator.New(seedManager, address.NewService())
}
