package device

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

var ErrDeviceClosed = errors.New("device closed")

// Device is the request/response capability of a hardware signer. Every call is keyed by a
// derivation path and may block until the user acts on the device.
type Device interface {
	// GetAddress returns the account at path. confirm asks the user to verify the address on
	// screen, chainCode additionally requests the BIP32 chain code.
	GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*AddressResult, error)

	// SignTransaction signs the hex encoded (no 0x prefix) EIP-155 signing payload.
	SignTransaction(ctx context.Context, path string, unsignedTxHex string) (*Signature, error)

	// SignPersonalMessage signs the hex encoded (no 0x prefix) message using the
	// "\x19Ethereum Signed Message:\n" scheme.
	SignPersonalMessage(ctx context.Context, path string, messageHex string) (*Signature, error)

	Close() error
}

type AddressResult struct {
	// Address as returned by the device, 0x prefixed, casing is device specific.
	Address   string
	PublicKey []byte
	ChainCode []byte
}

type Signature struct {
	R []byte
	S []byte
	V *big.Int
}

// StatusError is returned when a device answers with a status word other than success.
type StatusError struct {
	Code        uint16
	Description string
}

func (e *StatusError) Error() string {
	if len(e.Description) == 0 {
		return fmt.Sprintf("device returned status 0x%04x", e.Code)
	}

	return fmt.Sprintf("device returned status 0x%04x: %s", e.Code, e.Description)
}

const (
	StatusOK                 uint16 = 0x9000
	StatusUserRejected       uint16 = 0x6985
	StatusInvalidData        uint16 = 0x6a80
	StatusLocked             uint16 = 0x6b0c
	StatusInsNotSupported    uint16 = 0x6d00
	StatusClaNotSupported    uint16 = 0x6e00
	StatusInvalidParameters  uint16 = 0x6b00
	StatusConditionsNotValid uint16 = 0x6986
)

var statusDescriptions = map[uint16]string{
	StatusUserRejected:       "rejected by user",
	StatusInvalidData:        "invalid data",
	StatusLocked:             "device locked",
	StatusInsNotSupported:    "ethereum app not open",
	StatusClaNotSupported:    "ethereum app not open",
	StatusInvalidParameters:  "invalid parameters",
	StatusConditionsNotValid: "conditions of use not satisfied",
}

// NewStatusError returns a StatusError for code with a known description attached.
func NewStatusError(code uint16) *StatusError {
	return &StatusError{
		Code:        code,
		Description: statusDescriptions[code],
	}
}

// IsUserRejected reports whether err is a device refusal triggered by the user.
func IsUserRejected(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == StatusUserRejected
	}

	return false
}
