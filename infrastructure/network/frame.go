package network

import (
	"encoding/binary"
	"fmt"
	"io"
	"lanchat/errors"
)

const (
	frameHeaderSize     = 4
	DefaultMaxFrameSize = 64 * 1024
)

// WriteFrame writes one frame: a 4-byte big-endian length followed by the payload.
func WriteFrame(w io.Writer, payload []byte, maxSize int) error {
	if len(payload) > maxSize {
		return fmt.Errorf("%w: %d > %d", errors.ErrFrameTooLarge, len(payload), maxSize)
	}
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame returns io.EOF when the stream ends cleanly between two frames,
// io.ErrUnexpectedEOF when it ends inside one.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > uint32(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", errors.ErrFrameTooLarge, size, maxSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
