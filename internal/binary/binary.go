// Package binary reads and writes the fixed and variable width integers
// of the HDF5 on-disk format.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned for an offset or length width other than
// 2, 4 or 8 bytes.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config fixes the byte order and the widths of file addresses (offsets)
// and object sizes (lengths). The superblock declares both widths.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// undefined is the all-ones sentinel HDF5 uses for an unset value of
// width n bytes.
func undefined(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(n)) - 1
}

// getUint decodes an n-byte unsigned integer. Widths other than 1, 2, 4
// and 8 are read little-endian.
func getUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// putUint encodes v into all of b, the counterpart of getUint.
func putUint(order binary.ByteOrder, b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	case 8:
		order.PutUint64(b, v)
	default:
		for i := range b {
			b[i] = byte(v >> (8 * uint(i)))
		}
	}
}

// Uint decodes b as an unsigned integer of len(b) bytes.
func (c Config) Uint(b []byte) uint64 {
	return getUint(c.ByteOrder, b)
}

// AppendUint appends v as an n-byte unsigned integer.
func (c Config) AppendUint(dst []byte, v uint64, n int) []byte {
	b := make([]byte, n)
	putUint(c.ByteOrder, b, v)
	return append(dst, b...)
}

// Undefined returns the unset address for the offset width.
func (c Config) Undefined() uint64 {
	return undefined(c.OffsetSize)
}

// Reader decodes values from a cursor over an io.ReaderAt. Readers are
// cheap; At forks one with its own cursor.
type Reader struct {
	cfg Config
	src io.ReaderAt
	pos int64
}

// NewReader returns a reader at offset 0.
func NewReader(src io.ReaderAt, cfg Config) *Reader {
	return &Reader{cfg: cfg, src: src}
}

// At returns a reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{cfg: r.cfg, src: r.src, pos: offset}
}

// Pos returns the cursor.
func (r *Reader) Pos() int64 { return r.pos }

// Skip moves the cursor n bytes forward.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align moves the cursor to the next multiple of n.
func (r *Reader) Align(n int64) {
	if n > 1 && r.pos%n != 0 {
		r.pos += n - r.pos%n
	}
}

// Peek reads n bytes without moving the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := r.src.ReadAt(b, r.pos); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err == nil {
		r.pos += int64(len(b))
	}
	return b, err
}

// ReadUintN reads an n-byte unsigned integer.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return getUint(r.cfg.ByteOrder, b), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.cfg.OffsetSize)
}

// ReadLength reads an object size.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.cfg.LengthSize)
}

// IsUndefinedOffset reports whether addr is the unset address.
func (r *Reader) IsUndefinedOffset(addr uint64) bool {
	return addr == undefined(r.cfg.OffsetSize)
}

// OffsetSize returns the address width in bytes.
func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

// LengthSize returns the size width in bytes.
func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// ByteOrder returns the byte order of multi-byte values.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// Config returns the reader's layout.
func (r *Reader) Config() Config { return r.cfg }

// Writer encodes values at a cursor over an io.WriterAt.
type Writer struct {
	cfg Config
	dst io.WriterAt
	pos int64
}

// NewWriter returns a writer at offset 0.
func NewWriter(dst io.WriterAt, cfg Config) *Writer {
	return &Writer{cfg: cfg, dst: dst}
}

// At returns a writer over the same destination positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{cfg: w.cfg, dst: w.dst, pos: offset}
}

// Pos returns the cursor.
func (w *Writer) Pos() int64 { return w.pos }

// Skip moves the cursor n bytes forward without writing.
func (w *Writer) Skip(n int64) { w.pos += n }

// Align moves the cursor to the next multiple of n without writing.
func (w *Writer) Align(n int64) {
	if n > 1 && w.pos%n != 0 {
		w.pos += n - w.pos%n
	}
}

// WriteBytes writes b at the cursor.
func (w *Writer) WriteBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	n, err := w.dst.WriteAt(b, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteUintN writes v as an n-byte unsigned integer.
func (w *Writer) WriteUintN(v uint64, n int) error {
	b := make([]byte, n)
	putUint(w.cfg.ByteOrder, b, v)
	return w.WriteBytes(b)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteOffset writes a file address.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.cfg.OffsetSize)
}

// WriteLength writes an object size.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.cfg.LengthSize)
}

// UndefinedOffset returns the unset address.
func (w *Writer) UndefinedOffset() uint64 {
	return undefined(w.cfg.OffsetSize)
}

// OffsetSize returns the address width in bytes.
func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

// LengthSize returns the size width in bytes.
func (w *Writer) LengthSize() int { return w.cfg.LengthSize }

// ByteOrder returns the byte order of multi-byte values.
func (w *Writer) ByteOrder() binary.ByteOrder { return w.cfg.ByteOrder }

// Config returns the writer's layout, for staging bytes in a Buffer.
func (w *Writer) Config() Config { return w.cfg }

// Buffer is an in-memory io.WriterAt that grows to fit every write.
type Buffer struct {
	b []byte
}

// NewBuffer returns a buffer with room for size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{b: make([]byte, 0, size)}
}

// WriteAt implements io.WriterAt.
func (m *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.b) {
		m.b = append(m.b, make([]byte, end-len(m.b))...)
	}
	return copy(m.b[off:], p), nil
}

// Bytes returns the bytes written so far, up to the furthest write.
func (m *Buffer) Bytes() []byte { return m.b }
