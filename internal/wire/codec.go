// Package wire implements the self-describing, length-prefixed record codec
// used on the UDP transport (spec.md §6). The framing follows the same
// tag+length-prefix discipline as the teacher's inter-process protocol
// (bindings/c/ipc/protocol.go in the tinyrange/cc pack), adapted to
// little-endian integers as spec.md §6(b) requires.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// RecordType tags the record carried in a frame.
type RecordType uint8

const (
	TypeRegisterNode RecordType = iota + 1
	TypeUnregisterNode
	TypeData
	TypeAck
	TypeRequestAnalytics
	TypeAnalytics
	TypeRequestTopology
	TypeTopology
)

// ErrUnknownRecordType is returned by DecodeRecord when a frame's tag byte does
// not match any known record.
var ErrUnknownRecordType = errors.New("wire: unknown record type")

// ErrTruncated is returned when a frame ends before a field can be read.
var ErrTruncated = errors.New("wire: truncated frame")

// Encoder appends little-endian fields to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a small pre-sized buffer.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Bytes returns the bytes written so far.
func (e *Encoder) Bytes() []byte { return e.buf }

// Reset clears the buffer for reuse.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) Uint8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) Float64(v float64) {
	e.Uint64(math.Float64bits(v))
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

// Bytes16 appends a fixed 16-byte array verbatim (NodeId/EdgeId/Desc).
func (e *Encoder) Bytes16(b [16]byte) {
	e.buf = append(e.buf, b[:]...)
}

// String appends a length-prefixed (4-byte count) UTF-8 string.
func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Decoder reads little-endian fields sequentially from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential reads.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) Uint8() (uint8, error) {
	if d.pos+1 > len(d.buf) {
		return 0, ErrTruncated
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) Uint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *Decoder) Float64() (float64, error) {
	bits, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *Decoder) Bytes16() ([16]byte, error) {
	var out [16]byte
	if d.pos+16 > len(d.buf) {
		return out, ErrTruncated
	}
	copy(out[:], d.buf[d.pos:d.pos+16])
	d.pos += 16
	return out, nil
}

func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if d.pos+int(n) > len(d.buf) {
		return "", ErrTruncated
	}
	s := string(d.buf[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

// FrameHeaderSize is the number of bytes preceding a record's payload:
// 1 byte type tag + 4 byte little-endian payload length.
const FrameHeaderSize = 5

// WriteFrame writes a type tag, payload length, and payload to w.
func WriteFrame(w io.Writer, typ RecordType, payload []byte) error {
	var hdr [FrameHeaderSize]byte
	hdr[0] = uint8(typ)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadFrameType peeks the type tag and declared payload length from a raw
// datagram buffer (no streaming — one record per datagram, per spec.md §6).
func ReadFrameType(buf []byte) (RecordType, []byte, error) {
	if len(buf) < FrameHeaderSize {
		return 0, nil, ErrTruncated
	}
	typ := RecordType(buf[0])
	n := binary.LittleEndian.Uint32(buf[1:5])
	if int(n) > len(buf)-FrameHeaderSize {
		return 0, nil, ErrTruncated
	}
	return typ, buf[FrameHeaderSize : FrameHeaderSize+int(n)], nil
}
