package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

var (
	headerMagic       = []byte("OHDR")
	continuationMagic = []byte("OCHK")
)

var (
	ErrInvalidHeader    = errors.New("invalid object header")
	ErrChecksumMismatch = errors.New("object header checksum mismatch")
)

// maxContinuations bounds the blocks followed from one header so that a
// corrupt file cannot loop.
const maxContinuations = 64

// Header is a parsed object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message
}

// Read parses the object header at addr. Versions 1 and 2 are supported;
// continuation blocks are followed and their messages appended in order.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	hr := r.At(int64(addr))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}

	var (
		f          frame
		start, end int64
		hdr        = &Header{Address: addr}
	)
	switch {
	case string(peek) == string(headerMagic):
		hdr.Version = 2
		if f, start, end, err = prefixV2(hr); err != nil {
			return nil, err
		}
	case peek[0] == 1:
		hdr.Version = 1
		if start, end, err = prefixV1(hr); err != nil {
			return nil, err
		}
		f = frame{v1: true}
	default:
		return nil, fmt.Errorf("%w: version byte 0x%02x at %d", ErrInvalidHeader, peek[0], addr)
	}

	w := &walker{r: r, f: f}
	if err := w.block(start, end); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	hdr.Messages = w.messages
	return hdr, nil
}

// prefixV1 reads version, reserved byte, message count, reference count
// and chunk size. Messages start at the next 8-byte boundary.
func prefixV1(r *binary.Reader) (start, end int64, err error) {
	r.Skip(8)
	size, err := r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	r.Align(8)
	return r.Pos(), r.Pos() + int64(size), nil
}

// prefixV2 reads signature, version, flags, the optional time and
// attribute phase fields, and the chunk size, then checks the checksum.
func prefixV2(r *binary.Reader) (frame, int64, int64, error) {
	begin := r.Pos()
	r.Skip(4)
	version, err := r.ReadUint8()
	if err != nil {
		return frame{}, 0, 0, err
	}
	if version != 2 {
		return frame{}, 0, 0, fmt.Errorf("%w: version %d", ErrInvalidHeader, version)
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return frame{}, 0, 0, err
	}
	if flags&0x20 != 0 {
		r.Skip(16)
	}
	if flags&0x10 != 0 {
		r.Skip(4)
	}
	size, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return frame{}, 0, 0, err
	}
	start := r.Pos()
	end := start + int64(size)
	if err := verify(r, begin, end); err != nil {
		return frame{}, 0, 0, err
	}
	return frame{creationOrder: flags&0x04 != 0}, start, end, nil
}

// verify compares the lookup3 checksum of [begin, end) with the word
// stored at end.
func verify(r *binary.Reader, begin, end int64) error {
	body, err := r.At(begin).ReadBytes(int(end - begin + 4))
	if err != nil {
		return err
	}
	n := len(body) - 4
	stored := r.ByteOrder().Uint32(body[n:])
	if sum := binary.Lookup3Checksum(body[:n]); sum != stored {
		return fmt.Errorf("%w: stored 0x%08x, computed 0x%08x", ErrChecksumMismatch, stored, sum)
	}
	return nil
}

// frame is the per-message prefix layout of one header version.
type frame struct {
	v1            bool
	creationOrder bool
}

// next reads one message prefix and payload, dropping the message flags. Version 1 prefixes are
// type(2) size(2) flags(1) reserved(3) with the payload padded to 8 bytes;
// version 2 prefixes are type(1) size(2) flags(1) [creation order(2)].
func (f frame) next(r *binary.Reader) (message.Type, []byte, error) {
	var (
		typ  uint64
		size uint16
		err  error
	)
	width := 1
	if f.v1 {
		width = 2
	}
	if typ, err = r.ReadUintN(width); err != nil {
		return 0, nil, err
	}
	if size, err = r.ReadUint16(); err != nil {
		return 0, nil, err
	}
	switch {
	case f.v1:
		r.Skip(4)
	case f.creationOrder:
		r.Skip(3)
	default:
		r.Skip(1)
	}
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return 0, nil, err
	}
	if f.v1 {
		r.Align(8)
	}
	return message.Type(typ), data, nil
}

// walker collects the messages of a header and its continuation blocks.
type walker struct {
	r        *binary.Reader
	f        frame
	messages []message.Message
	blocks   int
}

// block parses messages in [start, end). Messages the parser does not
// understand are dropped; a truncated block ends the walk silently, as the
// trailing bytes are gap or padding.
func (w *walker) block(start, end int64) error {
	r := w.r.At(start)
	for end-r.Pos() >= 4 {
		typ, data, err := w.f.next(r)
		if err != nil {
			return nil
		}
		switch typ {
		case message.TypeNIL:
			continue
		case message.TypeObjectHeaderContinuation:
			cont, err := message.ParseContinuation(data, r.Config())
			if err != nil {
				return err
			}
			if err := w.follow(cont); err != nil {
				return err
			}
			continue
		}
		if msg, err := message.Parse(typ, data, r.Config()); err == nil {
			w.messages = append(w.messages, msg)
		}
	}
	return nil
}

func (w *walker) follow(cont *message.Continuation) error {
	if w.blocks++; w.blocks > maxContinuations {
		return fmt.Errorf("%w: more than %d continuation blocks", ErrInvalidHeader, maxContinuations)
	}
	start := int64(cont.Offset)
	end := start + int64(cont.Length)
	if w.f.v1 {
		return w.block(start, end)
	}
	magic, err := w.r.At(start).ReadBytes(4)
	if err != nil {
		return err
	}
	if string(magic) != string(continuationMagic) {
		return fmt.Errorf("%w: continuation block at %d has signature %q", ErrInvalidHeader, start, magic)
	}
	if err := verify(w.r, start, end-4); err != nil {
		return err
	}
	return w.block(start+4, end-4)
}

// First returns the first message of type typ, or nil.
func (h *Header) First(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// All returns every message of type typ in header order.
func (h *Header) All(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

func first[T message.Message](h *Header, typ message.Type) T {
	msg, _ := h.First(typ).(T)
	return msg
}

func (h *Header) Dataspace() *message.Dataspace {
	return first[*message.Dataspace](h, message.TypeDataspace)
}

func (h *Header) Datatype() *message.Datatype {
	return first[*message.Datatype](h, message.TypeDatatype)
}

func (h *Header) DataLayout() *message.DataLayout {
	return first[*message.DataLayout](h, message.TypeDataLayout)
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	return first[*message.FilterPipeline](h, message.TypeFilterPipeline)
}
