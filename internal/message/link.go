package message

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// LinkKind is the target class of a link.
type LinkKind uint8

const (
	LinkHard     LinkKind = 0
	LinkSoft     LinkKind = 1
	LinkExternal LinkKind = 64
)

// Link names a group member. Hard links carry the member's header
// address, soft links an absolute path.
type Link struct {
	Name    string
	Kind    LinkKind
	Address uint64
	Target  string
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink returns a link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Name: name, Kind: LinkHard, Address: addr}
}

// version(1) flags(1) [kind(1)] [creation order(8)] [charset(1)]
// name length(1<<flags&3) name target
func decodeLink(d *decoder) *Link {
	if v := d.u8(); v != 1 {
		d.fail("link version %d", v)
		return nil
	}
	flags := d.u8()
	m := &Link{}
	if flags&0x08 != 0 {
		m.Kind = LinkKind(d.u8())
	}
	if flags&0x04 != 0 {
		d.skip(8)
	}
	if flags&0x10 != 0 {
		d.skip(1)
	}
	m.Name = string(d.bytes(int(d.uint(1 << (flags & 0x03)))))

	switch m.Kind {
	case LinkHard:
		m.Address = d.offset()
	case LinkSoft:
		m.Target = string(d.bytes(int(d.u16())))
	default:
		d.skip(int(d.u16()))
	}
	return m
}

// Encode writes a version 1 link. External links are not written.
func (m *Link) Encode(cfg binary.Config) ([]byte, error) {
	code, width := widthCode(uint64(len(m.Name)))
	e := &encoder{cfg: cfg}
	e.u8(1)
	if m.Kind == LinkHard {
		e.u8(code)
	} else {
		e.u8(code | 0x08)
		e.u8(uint8(m.Kind))
	}
	e.uint(uint64(len(m.Name)), width)
	e.bytes([]byte(m.Name))

	switch m.Kind {
	case LinkHard:
		e.offset(m.Address)
	case LinkSoft:
		e.u16(uint16(len(m.Target)))
		e.bytes([]byte(m.Target))
	default:
		return nil, fmt.Errorf("cannot encode link kind %d", m.Kind)
	}
	return e.b, nil
}

// LinkInfo describes where a new-style group keeps its links. A zero
// FractalHeapAddress means the links are stored as link messages in the
// group's header; otherwise they live in dense storage.
type LinkInfo struct {
	FractalHeapAddress uint64
	NameIndexAddress   uint64
}

func NewLinkInfo() *LinkInfo { return &LinkInfo{} }

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// version(1) flags(1) [max creation index(8)] fractal heap(O)
// name index(O) [creation order index(O)]
func decodeLinkInfo(d *decoder) *LinkInfo {
	if v := d.u8(); v != 0 {
		d.fail("link info version %d", v)
		return nil
	}
	flags := d.u8()
	if flags&0x01 != 0 {
		d.skip(8)
	}
	m := &LinkInfo{
		FractalHeapAddress: d.defined(d.offset()),
		NameIndexAddress:   d.defined(d.offset()),
	}
	if flags&0x02 != 0 {
		d.offset()
	}
	return m
}

// Encode writes version 0 without creation order tracking.
func (m *LinkInfo) Encode(cfg binary.Config) ([]byte, error) {
	e := &encoder{cfg: cfg}
	e.bytes([]byte{0, 0})
	e.offset(orUndefined(m.FractalHeapAddress, cfg))
	e.offset(orUndefined(m.NameIndexAddress, cfg))
	return e.b, nil
}

func orUndefined(addr uint64, cfg binary.Config) uint64 {
	if addr == 0 {
		return cfg.Undefined()
	}
	return addr
}

// GroupInfo holds a new-style group's storage hints; the writer uses the
// library defaults.
type GroupInfo struct{}

func NewGroupInfo() *GroupInfo { return &GroupInfo{} }

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func (m *GroupInfo) Encode(binary.Config) ([]byte, error) {
	return []byte{0, 0}, nil
}

// SymbolTable locates the B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }
