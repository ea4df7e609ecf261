package signer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

var (
	// ErrFirmwareIncompatible is returned when the chain id encoded in a transaction signature
	// differs from the configured one. The device app most likely needs an update.
	ErrFirmwareIncompatible = errors.New("device signed for a different chain id, please update the Ethereum app")

	// ErrAddressNotFound is returned when no derivation index within the search limit
	// matches the requested address.
	ErrAddressNotFound = errors.New("address not found on device")

	// ErrInvalidSignature is returned when the device answers with a message signature
	// whose v is not a valid recovery id.
	ErrInvalidSignature = errors.New("device returned an invalid signature")

	// ErrInvalidPathIndex is returned by SetPathIndex for negative indices.
	ErrInvalidPathIndex = errors.New("path index must not be negative")
)

// ConnectionCallback receives the outcome of a connectivity probe.
type ConnectionCallback func(connected bool, err error)

// Service signs transactions and messages with keys held on a hardware device, addressed by
// derivation path. Path settings are read at call time, so SetPath and SetPathIndex affect
// every later operation.
type Service interface {
	// GetAccounts returns the lowercase addresses of a window of consecutive indices starting
	// at the configured path index.
	GetAccounts(ctx context.Context) ([]string, error)

	// SignTransaction signs an EIP-155 legacy transaction at the configured path index and
	// returns the 0x prefixed signed transaction. params.From is not resolved.
	SignTransaction(ctx context.Context, params *TxParams) (string, error)

	// SignMessage signs a personal message at the index owning params.From (index 0 if
	// unset) and returns the 0x prefixed r || s || v signature with v in {00, 01}.
	SignMessage(ctx context.Context, params *MessageParams) (string, error)

	// GetPath returns the base path without the index, e.g. "44'/60'/0'". Its result can be
	// passed back to SetPath unchanged.
	GetPath() string

	// GetPathIndex returns the configured index below the base path.
	GetPathIndex() int

	// SetPath replaces the base path. Paths that do not parse are rejected and the current
	// base path is kept.
	SetPath(path string) error

	// SetPathIndex replaces the index used by GetAccounts and SignTransaction. Negative
	// indices fail with ErrInvalidPathIndex.
	SetPathIndex(index int) error

	// ChainID returns the configured EIP-155 chain id.
	ChainID() int64

	// TestConnection races an address request at index 0 against timeout and calls callback
	// exactly once before returning.
	TestConnection(ctx context.Context, timeout time.Duration, callback ConnectionCallback)

	// ProbeConnection is the blocking form of TestConnection.
	ProbeConnection(ctx context.Context, timeout time.Duration) (bool, error)

	// IsSupported reports whether the adapter can run in this environment. It is always true.
	IsSupported() bool
}

// TxParams is an unsigned legacy transaction as sent by JSON-RPC clients.
type TxParams struct {
	From     string          `json:"from,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasLimit *hexutil.Uint64 `json:"gasLimit,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`

	// ChainID is informational, the configured chain id is always signed.
	ChainID *hexutil.Big `json:"chainId,omitempty"`
}

// GasValue returns gas, falling back to gasLimit.
func (p *TxParams) GasValue() uint64 {
	if p.Gas != nil {
		return uint64(*p.Gas)
	}
	if p.GasLimit != nil {
		return uint64(*p.GasLimit)
	}

	return 0
}

type MessageParams struct {
	// Data is the hex encoded message, 0x prefix optional.
	Data string `json:"data"`
	From string `json:"from,omitempty"`
}
