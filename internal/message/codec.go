package message

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// decoder walks a message payload. The first failure sticks: later reads
// return zero values and the caller checks err once at the end.
type decoder struct {
	cfg binary.Config
	b   []byte
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.b) {
		d.err = ErrTruncated
		return nil
	}
	p := d.b[:n:n]
	d.b = d.b[n:]
	return p
}

func (d *decoder) skip(n int) { d.bytes(n) }

func (d *decoder) uint(n int) uint64 {
	p := d.bytes(n)
	if p == nil {
		return 0
	}
	return d.cfg.Uint(p)
}

func (d *decoder) u8() uint8      { return uint8(d.uint(1)) }
func (d *decoder) u16() uint16    { return uint16(d.uint(2)) }
func (d *decoder) u32() uint32    { return uint32(d.uint(4)) }
func (d *decoder) offset() uint64 { return d.uint(d.cfg.OffsetSize) }
func (d *decoder) length() uint64 { return d.uint(d.cfg.LengthSize) }
func (d *decoder) rest() []byte   { return d.bytes(len(d.b)) }

// defined maps the undefined address to 0.
func (d *decoder) defined(addr uint64) uint64 {
	if addr == d.cfg.Undefined() {
		return 0
	}
	return addr
}

// sub splits off the next n bytes as their own decoder.
func (d *decoder) sub(n int) *decoder {
	b := d.bytes(n)
	return &decoder{cfg: d.cfg, b: b, err: d.err}
}

// cstring reads an n-byte field holding a NUL-terminated string.
func (d *decoder) cstring(n int) string {
	p := d.bytes(n)
	for i, c := range p {
		if c == 0 {
			return string(p[:i])
		}
	}
	return string(p)
}

// pad8 skips to the next multiple of 8 after a field of n bytes.
func (d *decoder) pad8(n int) {
	if n%8 != 0 {
		d.skip(8 - n%8)
	}
}

// encoder appends a message payload.
type encoder struct {
	cfg binary.Config
	b   []byte
}

func (e *encoder) uint(v uint64, n int) { e.b = e.cfg.AppendUint(e.b, v, n) }
func (e *encoder) u8(v uint8)           { e.b = append(e.b, v) }
func (e *encoder) u16(v uint16)         { e.uint(uint64(v), 2) }
func (e *encoder) u32(v uint32)         { e.uint(uint64(v), 4) }
func (e *encoder) offset(v uint64)      { e.uint(v, e.cfg.OffsetSize) }
func (e *encoder) length(v uint64)      { e.uint(v, e.cfg.LengthSize) }
func (e *encoder) bytes(p []byte)       { e.b = append(e.b, p...) }

// widthCode returns the 2-bit code and byte width of the smallest of
// 1, 2, 4 or 8 bytes that holds n.
func widthCode(n uint64) (uint8, int) {
	switch {
	case n <= 0xFF:
		return 0, 1
	case n <= 0xFFFF:
		return 1, 2
	case n <= 0xFFFFFFFF:
		return 2, 4
	}
	return 3, 8
}
