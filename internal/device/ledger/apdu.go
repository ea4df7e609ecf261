package ledger

import (
	"encoding/binary"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/ledger-signer/internal/device"
)

type opcode byte

type param1 byte

type param2 byte

const (
	claEthereum byte = 0xe0

	opRetrieveAddress     opcode = 0x02 // Returns the public key and Ethereum address for a given BIP 32 path
	opSignTransaction     opcode = 0x04 // Signs an Ethereum transaction after having the user validate the parameters
	opGetConfiguration    opcode = 0x06 // Returns specific wallet application configuration
	opSignPersonalMessage opcode = 0x08 // Signs an Ethereum personal message

	p1DirectlyFetchAddress param1 = 0x00
	p1ConfirmFetchAddress  param1 = 0x01
	p1InitData             param1 = 0x00 // First data block for signing
	p1ContData             param1 = 0x80 // Subsequent data block for signing

	p2DiscardChainCode param2 = 0x00
	p2ReturnChainCode  param2 = 0x01
)

const (
	packetSize = 64

	// Channel 0x0101 and the APDU command tag, followed by a 2 byte sequence index.
	headerChannelHi byte = 0x01
	headerChannelLo byte = 0x01
	headerTagAPDU   byte = 0x05
	headerLength         = 5

	maxChunkSize = 255
	statusLength = 2
)

var (
	errReplyInvalidHeader   = errors.New("invalid reply header")
	errReplyInvalidSequence = errors.New("invalid reply sequence")
	errReplyTooShort        = errors.New("reply lacks status word")
)

// exchange sends a single APDU over the HID framing and returns the reply without its status
// word. A status word other than 0x9000 is returned as *device.StatusError.
//
// Every 64 byte packet carries:
//
//	Channel ID (big endian)          | 2 bytes
//	Command tag                      | 1 byte
//	Packet sequence index (big end.) | 2 bytes
//	Payload                          | arbitrary
//
// The payload of the first packet starts with the total APDU length (2 bytes, big endian).
func exchange(rw io.ReadWriter, log zerolog.Logger, op opcode, p1 param1, p2 param2, data []byte) ([]byte, error) {
	if len(data) > maxChunkSize {
		return nil, errors.Errorf("apdu data too long: %d bytes", len(data))
	}

	apdu := make([]byte, 2, 7+len(data))
	binary.BigEndian.PutUint16(apdu, uint16(5+len(data))) //nolint:gosec // bounded by maxChunkSize
	apdu = append(apdu, claEthereum, byte(op), byte(p1), byte(p2), byte(len(data)))
	apdu = append(apdu, data...)

	chunk := make([]byte, 0, packetSize)
	space := packetSize - headerLength

	for seq := 0; len(apdu) > 0; seq++ {
		chunk = append(chunk[:0], headerChannelHi, headerChannelLo, headerTagAPDU, 0x00, 0x00)
		binary.BigEndian.PutUint16(chunk[3:], uint16(seq)) //nolint:gosec // small

		if len(apdu) > space {
			chunk = append(chunk, apdu[:space]...)
			apdu = apdu[space:]
		} else {
			chunk = append(chunk, apdu...)
			apdu = nil
		}

		// hidapi expects full reports
		chunk = append(chunk, make([]byte, packetSize-len(chunk))...)

		log.Trace().Str("chunk", hexutil.Encode(chunk)).Msg("Data chunk sent to the Ledger")
		if _, err := rw.Write(chunk); err != nil {
			return nil, errors.Wrap(err, "failed to write to device")
		}
	}

	var reply []byte
	chunk = chunk[:packetSize]
	for seq := 0; ; seq++ {
		if _, err := io.ReadFull(rw, chunk); err != nil {
			return nil, errors.Wrap(err, "failed to read from device")
		}
		log.Trace().Str("chunk", hexutil.Encode(chunk)).Msg("Data chunk received from the Ledger")

		if chunk[0] != headerChannelHi || chunk[1] != headerChannelLo || chunk[2] != headerTagAPDU {
			return nil, errReplyInvalidHeader
		}
		if int(binary.BigEndian.Uint16(chunk[3:5])) != seq {
			return nil, errReplyInvalidSequence
		}

		var payload []byte
		if seq == 0 {
			reply = make([]byte, 0, int(binary.BigEndian.Uint16(chunk[5:7])))
			payload = chunk[7:]
		} else {
			payload = chunk[5:]
		}

		if left := cap(reply) - len(reply); left > len(payload) {
			reply = append(reply, payload...)
		} else {
			reply = append(reply, payload[:left]...)
			break
		}
	}

	if len(reply) < statusLength {
		return nil, errReplyTooShort
	}

	status := binary.BigEndian.Uint16(reply[len(reply)-statusLength:])
	if status != device.StatusOK {
		return nil, device.NewStatusError(status)
	}

	return reply[:len(reply)-statusLength], nil
}
