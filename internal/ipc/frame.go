package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// HeaderSize is the fixed frame header length: opcode then body length,
	// both little-endian uint32.
	HeaderSize = 8

	// MaxBodySize bounds the body allocation for a single frame (16 MiB).
	MaxBodySize = 16 << 20
)

// ErrFrameTooLarge is returned when a header declares a body over MaxBodySize.
var ErrFrameTooLarge = errors.New("frame body exceeds maximum size")

// Header precedes every frame body.
type Header struct {
	Opcode Opcode
	Length uint32
}

// Bytes returns the wire form of h.
func (h Header) Bytes() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Opcode))
	binary.LittleEndian.PutUint32(b[4:8], h.Length)
	return b
}

// DecodeHeader parses the wire form of a header.
func DecodeHeader(b [HeaderSize]byte) Header {
	return Header{
		Opcode: Opcode(binary.LittleEndian.Uint32(b[0:4])),
		Length: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// Frame is a decoded header and message.
type Frame struct {
	Header  Header
	Message Message
}

// Encode serializes m and returns the header and body for opcode op. The
// header length is measured from the encoded body.
func Encode(op Opcode, m Message) ([HeaderSize]byte, []byte, error) {
	body, err := MarshalMessage(m)
	if err != nil {
		return [HeaderSize]byte{}, nil, err
	}
	if len(body) > MaxBodySize {
		return [HeaderSize]byte{}, nil, fmt.Errorf("%w: %w (%d bytes)", ErrSerialization, ErrFrameTooLarge, len(body))
	}
	h := Header{Opcode: op, Length: uint32(len(body))}
	return h.Bytes(), body, nil
}

// DecodeBody decodes a frame body. The body must be valid UTF-8.
func DecodeBody(body []byte) (Message, error) {
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedBody)
	}
	return UnmarshalMessage(body)
}

// WriteFrame encodes m and writes header and body to w in one call.
func WriteFrame(w io.Writer, op Opcode, m Message) error {
	header, body, err := Encode(op, m)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, HeaderSize+len(body))
	buf = append(buf, header[:]...)
	buf = append(buf, body...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write %s frame: %w", op, err)
	}
	return nil
}

// ReadFrame reads exactly one frame from r. Short reads are retried until the
// frame is complete; end of stream before that is an error.
func ReadFrame(r io.Reader) (Frame, error) {
	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}
	h := DecodeHeader(hb)
	if h.Length > MaxBodySize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, h.Length)
	}

	body := make([]byte, h.Length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("read frame body: %w", err)
	}
	m, err := DecodeBody(body)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Message: m}, nil
}
