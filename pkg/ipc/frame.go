package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// The length prefix is fixed as little-endian. Browsers frame native
// messages in the platform's native byte order, and every platform they
// ship hosts for (amd64, arm64) is little-endian, so the bytes on the wire
// are identical; fixing the order keeps a big-endian build interoperable.

var (
	// ErrRead indicates a frame or request could not be read.
	ErrRead = errors.New("read error")
	// ErrWrite indicates a response or frame could not be written.
	ErrWrite = errors.New("write error")
)

// ReadFrame reads a length-prefixed payload from r. Bytes beyond the
// declared length stay unconsumed in the stream. A short read at any point
// is terminal; there is no resynchronization.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("%w: frame length: %v", ErrRead, err)
	}
	if uint64(length) > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: frame length %d not representable", ErrRead, length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: frame payload: %v", ErrRead, err)
	}
	return buf, nil
}

// WriteFrame writes payload to w with a 4-byte little-endian length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: payload of %d bytes exceeds frame limit", ErrWrite, len(payload))
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("%w: frame length: %v", ErrWrite, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: frame payload: %v", ErrWrite, err)
	}
	return nil
}
