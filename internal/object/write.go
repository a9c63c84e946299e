package object

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// GroupChunk is the chunk size reserved in group headers so that the
// first few links fit without growing the header.
const GroupChunk = 120

// Encode serializes messages as a version 2 object header with a single
// chunk of at least minChunk bytes. Slack is filled with a NIL message.
func Encode(cfg binary.Config, messages []message.Message, minChunk int) ([]byte, error) {
	type entry struct {
		typ     message.Type
		payload []byte
	}
	var body []entry
	used := 0
	for _, msg := range messages {
		enc, ok := msg.(message.Encoder)
		if !ok {
			continue
		}
		p, err := enc.Encode(cfg)
		if err != nil {
			return nil, fmt.Errorf("message type %d: %w", msg.Type(), err)
		}
		if len(p) > 0xFFFF {
			return nil, fmt.Errorf("%w: message type %d is %d bytes", ErrInvalidHeader, msg.Type(), len(p))
		}
		body = append(body, entry{msg.Type(), p})
		used += 4 + len(p)
	}

	chunk := max(used, minChunk)
	if slack := chunk - used; slack > 0 && slack < 4 {
		chunk = used + 4
	}
	width := sizeWidth(chunk)

	buf := binary.NewBuffer(4 + 2 + width + chunk + 4)
	w := binary.NewWriter(buf, cfg)
	w.WriteBytes(headerMagic)
	w.WriteUint8(2)
	w.WriteUint8(uint8(bits.TrailingZeros(uint(width))))
	w.WriteUintN(uint64(chunk), width)

	for _, e := range body {
		w.WriteUint8(uint8(e.typ))
		w.WriteUint16(uint16(len(e.payload)))
		w.WriteUint8(0)
		w.WriteBytes(e.payload)
	}
	if slack := chunk - used; slack > 0 {
		w.WriteUint8(uint8(message.TypeNIL))
		w.WriteUint16(uint16(slack - 4))
		w.WriteZeros(slack - 3)
	}

	if err := w.WriteUint32(binary.Lookup3Checksum(buf.Bytes()[:w.Pos()])); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sizeWidth(n int) int {
	switch {
	case n <= 0xFF:
		return 1
	case n <= 0xFFFF:
		return 2
	case uint64(n) <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

// GroupMessages returns the messages of a compact group header.
func GroupMessages(links []*message.Link, attrs []*message.Attribute) []message.Message {
	messages := []message.Message{message.NewLinkInfo(), message.NewGroupInfo()}
	for _, link := range links {
		messages = append(messages, link)
	}
	for _, attr := range attrs {
		messages = append(messages, attr)
	}
	return messages
}

// DatasetMessages returns the messages of a dataset header.
func DatasetMessages(space *message.Dataspace, typ *message.Datatype, layout *message.DataLayout, attrs ...*message.Attribute) []message.Message {
	messages := []message.Message{space, typ, layout}
	for _, attr := range attrs {
		messages = append(messages, attr)
	}
	return messages
}
