package ledger

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
)

// fakeHID reassembles written APDUs, answers them through handler and frames the replies.
type fakeHID struct {
	mu       sync.Mutex
	handler  func(apdu []byte) ([]byte, uint16)
	pending  []byte
	expected int
	apdus    [][]byte
	out      bytes.Buffer
	closed   bool
	corrupt  bool
}

func newFakeHID(handler func(apdu []byte) ([]byte, uint16)) *fakeHID {
	return &fakeHID{handler: handler}
}

func (f *fakeHID) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.ErrClosedPipe
	}

	if binary.BigEndian.Uint16(p[3:5]) == 0 {
		f.expected = int(binary.BigEndian.Uint16(p[5:7]))
		f.pending = append([]byte{}, p[7:]...)
	} else {
		f.pending = append(f.pending, p[5:]...)
	}

	if len(f.pending) >= f.expected {
		apdu := append([]byte{}, f.pending[:f.expected]...)
		f.apdus = append(f.apdus, apdu)

		data, status := f.handler(apdu)
		f.writeReply(binary.BigEndian.AppendUint16(append([]byte{}, data...), status))
	}

	return len(p), nil
}

func (f *fakeHID) writeReply(reply []byte) {
	payload := binary.BigEndian.AppendUint16(nil, uint16(len(reply))) //nolint:gosec // test data
	payload = append(payload, reply...)

	for seq := 0; len(payload) > 0; seq++ {
		chunk := []byte{0x01, 0x01, 0x05, 0x00, 0x00}
		if f.corrupt {
			chunk[2] = 0x02
		}
		binary.BigEndian.PutUint16(chunk[3:], uint16(seq)) //nolint:gosec // test data

		size := min(packetSize-headerLength, len(payload))
		chunk = append(chunk, payload[:size]...)
		payload = payload[size:]

		chunk = append(chunk, make([]byte, packetSize-len(chunk))...)
		f.out.Write(chunk)
	}
}

func (f *fakeHID) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.ErrClosedPipe
	}

	return f.out.Read(p)
}

func (f *fakeHID) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func (f *fakeHID) recorded() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([][]byte{}, f.apdus...)
}
