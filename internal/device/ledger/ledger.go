package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/address"
)

const (
	maxPathComponents = 10
	signatureLength   = 65
	chainCodeLength   = 32
	versionLength     = 4
)

var (
	errInvalidVersionReply = errors.New("invalid version reply")
	errReplyLacksSignature = errors.New("reply lacks signature")
	errReplyLacksPublicKey = errors.New("reply lacks public key entry")
	errReplyLacksAddress   = errors.New("reply lacks address entry")
	errReplyLacksChainCode = errors.New("reply lacks chain code")
)

// Ledger talks to the Ethereum app of a Ledger device over a HID connection.
type Ledger struct {
	id string
	rw io.ReadWriteCloser

	// commsLock (buffered, one slot) grants exclusive access to the device, holding it is
	// required for every exchange. Unlike a mutex, waiting for it can be abandoned.
	commsLock chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	log zerolog.Logger
}

var _ device.Device = (*Ledger)(nil)

// New wraps an opened HID connection. id is used for logging only.
func New(id string, rw io.ReadWriteCloser) *Ledger {
	l := &Ledger{
		id:        id,
		rw:        rw,
		commsLock: make(chan struct{}, 1),
		closed:    make(chan struct{}),
		log:       log.With().Str("component", "ledger").Str("device", id).Logger(),
	}
	l.commsLock <- struct{}{}

	return l
}

func (l *Ledger) ID() string {
	return l.id
}

func (l *Ledger) Close() error {
	err := device.ErrDeviceClosed
	l.closeOnce.Do(func() {
		close(l.closed)

		// unblocks pending reads of in-flight exchanges
		err = l.rw.Close()
	})

	return err
}

// Version returns the semantic version of the Ethereum app.
func (l *Ledger) Version(ctx context.Context) ([3]byte, error) {
	var version [3]byte

	reply, err := l.exchange(ctx, opGetConfiguration, 0, 0, nil)
	if err != nil {
		return version, err
	}
	if len(reply) != versionLength {
		return version, errInvalidVersionReply
	}

	copy(version[:], reply[1:])

	return version, nil
}

// GetAddress retrieves the address at path.
//
// The reply data is:
//
//	Public Key length       | 1 byte
//	Uncompressed Public Key | arbitrary
//	Ethereum address length | 1 byte
//	Ethereum address        | 40 bytes hex ascii
//	Chain code if requested | 32 bytes
func (l *Ledger) GetAddress(ctx context.Context, path string, confirm bool, chainCode bool) (*device.AddressResult, error) {
	encodedPath, err := encodePath(path)
	if err != nil {
		return nil, err
	}

	p1 := p1DirectlyFetchAddress
	if confirm {
		p1 = p1ConfirmFetchAddress
	}
	p2 := p2DiscardChainCode
	if chainCode {
		p2 = p2ReturnChainCode
	}

	reply, err := l.exchange(ctx, opRetrieveAddress, p1, p2, encodedPath)
	if err != nil {
		return nil, err
	}

	if len(reply) < 1 || len(reply) < 1+int(reply[0]) {
		return nil, errReplyLacksPublicKey
	}
	publicKey := common.CopyBytes(reply[1 : 1+int(reply[0])])
	reply = reply[1+int(reply[0]):]

	if len(reply) < 1 || len(reply) < 1+int(reply[0]) {
		return nil, errReplyLacksAddress
	}
	hexAddress := string(reply[1 : 1+int(reply[0])])
	reply = reply[1+int(reply[0]):]

	if !common.IsHexAddress(hexAddress) {
		return nil, errors.Errorf("device returned malformed address %q", hexAddress)
	}

	result := &device.AddressResult{
		Address:   common.HexToAddress(hexAddress).Hex(),
		PublicKey: publicKey,
	}

	if chainCode {
		if len(reply) < chainCodeLength {
			return nil, errReplyLacksChainCode
		}
		result.ChainCode = common.CopyBytes(reply[:chainCodeLength])
	}

	return result, nil
}

// SignTransaction streams the EIP-155 signing payload to the device in 255 byte chunks and
// waits for the user to confirm. The first chunk is prefixed with the encoded path.
//
// The reply data is v (1 byte), r (32 bytes), s (32 bytes).
func (l *Ledger) SignTransaction(ctx context.Context, path string, unsignedTxHex string) (*device.Signature, error) {
	payload, err := decodeHex(unsignedTxHex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid transaction payload")
	}

	encodedPath, err := encodePath(path)
	if err != nil {
		return nil, err
	}

	reply, err := l.streamChunks(ctx, opSignTransaction, append(encodedPath, payload...))
	if err != nil {
		return nil, err
	}

	signature, err := parseSignature(reply)
	if err != nil {
		return nil, err
	}

	if chainID, err := payloadChainID(payload); err == nil {
		signature.V = restoreTruncatedV(signature.V, chainID)
	} else {
		util.LogFromContext(ctx).Debug().Err(err).Msg("Could not read chain id from signing payload")
	}

	return signature, nil
}

// SignPersonalMessage signs the message with the personal_sign prefix applied by the device.
// The first chunk carries the path and the 4 byte big endian message length.
func (l *Ledger) SignPersonalMessage(ctx context.Context, path string, messageHex string) (*device.Signature, error) {
	message, err := decodeHex(messageHex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid message payload")
	}

	encodedPath, err := encodePath(path)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, len(encodedPath)+4+len(message))
	payload = append(payload, encodedPath...)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(message))) //nolint:gosec // messages are far below 4GB
	payload = append(payload, message...)

	reply, err := l.streamChunks(ctx, opSignPersonalMessage, payload)
	if err != nil {
		return nil, err
	}

	return parseSignature(reply)
}

func (l *Ledger) streamChunks(ctx context.Context, op opcode, payload []byte) ([]byte, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()

	var (
		p1    = p1InitData
		reply []byte
		err   error
	)
	for len(payload) > 0 {
		size := min(maxChunkSize, len(payload))

		reply, err = exchange(l.rw, l.log, op, p1, 0, payload[:size])
		if err != nil {
			return nil, err
		}

		payload = payload[size:]
		p1 = p1ContData
	}

	return reply, nil
}

func (l *Ledger) exchange(ctx context.Context, op opcode, p1 param1, p2 param2, data []byte) ([]byte, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()

	return exchange(l.rw, l.log, op, p1, p2, data)
}

func (l *Ledger) acquire(ctx context.Context) error {
	select {
	case <-l.closed:
		return device.ErrDeviceClosed
	default:
	}

	select {
	case <-l.commsLock:
	case <-l.closed:
		return device.ErrDeviceClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// closed while we waited
	select {
	case <-l.closed:
		l.release()
		return device.ErrDeviceClosed
	default:
	}

	return nil
}

func (l *Ledger) release() {
	l.commsLock <- struct{}{}
}

// encodePath flattens path into the Ledger request format: the number of components
// followed by each component as 4 byte big endian integer.
func encodePath(path string) ([]byte, error) {
	components, err := address.ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(components) > maxPathComponents {
		return nil, errors.Errorf("derivation path %q exceeds %d components", path, maxPathComponents)
	}

	encoded := make([]byte, 1+4*len(components))
	encoded[0] = byte(len(components))
	for i, component := range components {
		binary.BigEndian.PutUint32(encoded[1+4*i:], component)
	}

	return encoded, nil
}

func parseSignature(reply []byte) (*device.Signature, error) {
	if len(reply) != signatureLength {
		return nil, errReplyLacksSignature
	}

	return &device.Signature{
		V: new(big.Int).SetUint64(uint64(reply[0])),
		R: common.CopyBytes(reply[1:33]),
		S: common.CopyBytes(reply[33:65]),
	}, nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}

	return b, nil
}

// payloadChainID reads the chain id from the v-slot of an EIP-155 signing payload.
func payloadChainID(payload []byte) (*big.Int, error) {
	var fields []rlp.RawValue
	if err := rlp.DecodeBytes(payload, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to decode signing payload")
	}

	const eip155Fields = 9
	if len(fields) != eip155Fields {
		return nil, errors.Errorf("signing payload has %d fields, expected %d", len(fields), eip155Fields)
	}

	chainID := new(big.Int)
	if err := rlp.DecodeBytes(fields[6], chainID); err != nil {
		return nil, errors.Wrap(err, "failed to decode chain id")
	}

	return chainID, nil
}

// restoreTruncatedV undoes the single byte truncation the Ethereum app applies to v when
// chainID*2+35 does not fit into a byte. Values not matching either parity are returned
// unchanged.
func restoreTruncatedV(v *big.Int, chainID *big.Int) *big.Int {
	base := new(big.Int).Add(new(big.Int).Lsh(chainID, 1), big.NewInt(35))
	if base.Cmp(big.NewInt(0xff)) <= 0 {
		return v
	}

	parity := new(big.Int).Sub(v, new(big.Int).And(base, big.NewInt(0xff)))
	parity.And(parity, big.NewInt(0xff))
	if parity.Cmp(big.NewInt(1)) > 0 {
		return v
	}

	return base.Add(base, parity)
}
