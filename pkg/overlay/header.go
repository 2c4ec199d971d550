// ABOUTME: Bit-exact parser and encoder for the 14-byte overlay buffer header
// ABOUTME: Decodes id, presentation mode, image flag, geometry, and z-order with shifts and masks

package overlay

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed length of the overlay buffer header.
const HeaderSize = 14

// zBase is added to the wire z byte to form the z-order.
const zBase = 100000

// ErrShortHeader is returned when a buffer is smaller than HeaderSize.
var ErrShortHeader = errors.New("overlay: buffer shorter than header")

// ErrInvalidMode is returned for the reserved presentation mode value 3.
var ErrInvalidMode = errors.New("overlay: invalid presentation mode")

// Mode tags an overlay update with what the render worker should do with it.
type Mode uint8

const (
	ModeDeferred Mode = 0 // schedules a clear, like ModeDeactive
	ModeActive   Mode = 1 // schedules a render
	ModeDeactive Mode = 2 // schedules a clear
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDeferred:
		return "deferred"
	case ModeActive:
		return "active"
	case ModeDeactive:
		return "deactive"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "deferred":
		return ModeDeferred, nil
	case "active":
		return ModeActive, nil
	case "deactive", "deactivate":
		return ModeDeactive, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Header is the decoded fixed part of an overlay buffer.
//
// Layout:
//
//	byte 0      id
//	byte 1      bits 7-6 mode, bit 5 image flag
//	bytes 2-3   x (big-endian)
//	bytes 4-5   y
//	bytes 6-7   w
//	bytes 8-9   h
//	byte 10     z low byte, Z = 100000 + z_low
//	bytes 11-13 reserved
type Header struct {
	ID       int
	Mode     Mode
	HasImage bool
	X, Y     int
	W, H     int
	Z        int
}

// ParseHeader decodes the first HeaderSize bytes of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(buf))
	}
	mode := Mode((buf[1] >> 6) & 0x03)
	if mode > ModeDeactive {
		return Header{}, ErrInvalidMode
	}
	return Header{
		ID:       int(buf[0]),
		Mode:     mode,
		HasImage: buf[1]&0x20 != 0,
		X:        int(binary.BigEndian.Uint16(buf[2:4])),
		Y:        int(binary.BigEndian.Uint16(buf[4:6])),
		W:        int(binary.BigEndian.Uint16(buf[6:8])),
		H:        int(binary.BigEndian.Uint16(buf[8:10])),
		Z:        zBase + int(buf[10]),
	}, nil
}

// EncodeHeader is the inverse of ParseHeader. Fields outside their wire width
// are truncated; Z values below 100000 encode as z_low 0.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.ID)
	buf[1] = byte(h.Mode&0x03) << 6
	if h.HasImage {
		buf[1] |= 0x20
	}
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.X))
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.Y))
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.W))
	binary.BigEndian.PutUint16(buf[8:10], uint16(h.H))
	if h.Z > zBase {
		buf[10] = byte(h.Z - zBase)
	}
	return buf
}

// EncodeBuffer returns the header followed by payload.
func EncodeBuffer(h Header, payload []byte) []byte {
	if len(payload) > 0 {
		h.HasImage = true
	}
	return append(EncodeHeader(h), payload...)
}
