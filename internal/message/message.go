package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/binary"
)

// Type identifies a header message.
type Type uint16

const (
	TypeNIL                      Type = 0x00
	TypeDataspace                Type = 0x01
	TypeLinkInfo                 Type = 0x02
	TypeDatatype                 Type = 0x03
	TypeLink                     Type = 0x06
	TypeDataLayout               Type = 0x08
	TypeGroupInfo                Type = 0x0A
	TypeFilterPipeline           Type = 0x0B
	TypeAttribute                Type = 0x0C
	TypeObjectHeaderContinuation Type = 0x10
	TypeSymbolTable              Type = 0x11
)

// ErrTruncated is returned when a message ends before its fields do.
var ErrTruncated = errors.New("message truncated")

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Encoder is implemented by the messages the writer emits.
type Encoder interface {
	Message
	Encode(cfg binary.Config) ([]byte, error)
}

// Parse decodes the payload of a message of type typ. Types without a
// decoder come back as *Raw.
func Parse(typ Type, data []byte, cfg binary.Config) (Message, error) {
	d := &decoder{cfg: cfg, b: data}
	var msg Message
	switch typ {
	case TypeDataspace:
		msg = decodeDataspace(d)
	case TypeDatatype:
		msg = decodeDatatype(d)
	case TypeDataLayout:
		msg = decodeLayout(d)
	case TypeFilterPipeline:
		msg = decodeFilterPipeline(d)
	case TypeAttribute:
		msg = decodeAttribute(d)
	case TypeLink:
		msg = decodeLink(d)
	case TypeLinkInfo:
		msg = decodeLinkInfo(d)
	case TypeSymbolTable:
		msg = &SymbolTable{BTreeAddress: d.offset(), LocalHeapAddress: d.offset()}
	case TypeObjectHeaderContinuation:
		msg = &Continuation{Offset: d.offset(), Length: d.length()}
	default:
		return &Raw{typ: typ, Data: data}, nil
	}
	if d.err != nil {
		return nil, fmt.Errorf("message type 0x%02x: %w", uint16(typ), d.err)
	}
	return msg, nil
}

// Raw is a message kept as its undecoded payload.
type Raw struct {
	typ  Type
	Data []byte
}

func (m *Raw) Type() Type { return m.typ }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation decodes a continuation payload.
func ParseContinuation(data []byte, cfg binary.Config) (*Continuation, error) {
	msg, err := Parse(TypeObjectHeaderContinuation, data, cfg)
	if err != nil {
		return nil, err
	}
	return msg.(*Continuation), nil
}
