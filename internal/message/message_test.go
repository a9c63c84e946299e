package message

import (
	"encoding/binary"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
)

var cfg8 = binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}

func roundTrip(t *testing.T, msg Encoder, cfg binpkg.Config) Message {
	t.Helper()
	b, err := msg.Encode(cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Parse(msg.Type(), b, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return got
}

func TestLinkRoundTrip(t *testing.T) {
	cfg4 := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 4}
	hard := roundTrip(t, NewHardLink("theta", 0x1234), cfg4).(*Link)
	if hard.Name != "theta" || hard.Kind != LinkHard || hard.Address != 0x1234 {
		t.Errorf("hard link = %+v", hard)
	}

	soft := roundTrip(t, &Link{Name: "alias", Kind: LinkSoft, Target: "/fit/theta"}, cfg8).(*Link)
	if soft.Kind != LinkSoft || soft.Target != "/fit/theta" {
		t.Errorf("soft link = %+v", soft)
	}

	if _, err := (&Link{Name: "x", Kind: LinkExternal}).Encode(cfg8); err == nil {
		t.Error("external link encoded")
	}
}

func TestLinkInfo(t *testing.T) {
	compact := roundTrip(t, NewLinkInfo(), cfg8).(*LinkInfo)
	if compact.FractalHeapAddress != 0 || compact.NameIndexAddress != 0 {
		t.Errorf("compact link info = %+v", compact)
	}
	dense := roundTrip(t, &LinkInfo{FractalHeapAddress: 0x800, NameIndexAddress: 0x900}, cfg8).(*LinkInfo)
	if dense.FractalHeapAddress != 0x800 || dense.NameIndexAddress != 0x900 {
		t.Errorf("dense link info = %+v", dense)
	}

	// Creation order tracked and indexed: max index and a third address.
	b := []byte{0, 0x03}
	b = binary.LittleEndian.AppendUint64(b, 12)
	b = binary.LittleEndian.AppendUint64(b, 0x400)
	b = binary.LittleEndian.AppendUint64(b, ^uint64(0))
	b = binary.LittleEndian.AppendUint64(b, 0x500)
	msg, err := Parse(TypeLinkInfo, b, cfg8)
	if err != nil {
		t.Fatal(err)
	}
	if got := msg.(*LinkInfo); got.FractalHeapAddress != 0x400 || got.NameIndexAddress != 0 {
		t.Errorf("ordered link info = %+v", got)
	}
}

func TestDataspaceRoundTrip(t *testing.T) {
	ds := roundTrip(t, NewDataspace([]uint64{4, 3}, []uint64{4, ^uint64(0)}), cfg8).(*Dataspace)
	if ds.Rank() != 2 || ds.NumElements() != 12 || ds.MaxDims[1] != ^uint64(0) {
		t.Errorf("dataspace = %+v", ds)
	}
	sc := roundTrip(t, NewScalarDataspace(), cfg8).(*Dataspace)
	if !sc.IsScalar() || sc.NumElements() != 1 {
		t.Errorf("scalar = %+v", sc)
	}
	if n := (&Dataspace{Kind: SpaceNull}).NumElements(); n != 0 {
		t.Errorf("null space has %d elements", n)
	}
}

func TestDatatypeRoundTrip(t *testing.T) {
	i := roundTrip(t, NewFixedPointDatatype(4, true, OrderLE), cfg8).(*Datatype)
	if !i.IsInteger() || !i.Signed || i.Size != 4 || i.BitPrecision != 32 {
		t.Errorf("int = %+v", i)
	}
	f := roundTrip(t, NewFloatDatatype(8, OrderBE), cfg8).(*Datatype)
	if !f.IsFloat() || f.ByteOrder != OrderBE || f.Size != 8 {
		t.Errorf("float = %+v", f)
	}
	s := roundTrip(t, NewStringDatatype(12, PadSpacePad, CharsetUTF8), cfg8).(*Datatype)
	if s.Class != ClassString || s.StringPadding != PadSpacePad || s.CharSet != CharsetUTF8 {
		t.Errorf("string = %+v", s)
	}
	if _, err := (&Datatype{Class: ClassCompound}).Encode(cfg8); err == nil {
		t.Error("compound datatype encoded")
	}
}

func TestDatatypeVarString(t *testing.T) {
	// class 9, version 1; string type, null padded, UTF-8; base type a
	// 1-byte ASCII string.
	b := []byte{0x19, 0x11, 0x01, 0x00}
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = append(b, 0x13, 0, 0, 0, 1, 0, 0, 0)
	msg, err := Parse(TypeDatatype, b, cfg8)
	if err != nil {
		t.Fatal(err)
	}
	dt := msg.(*Datatype)
	if !dt.IsVarString() || dt.StringPadding != PadNullPad || dt.CharSet != CharsetUTF8 || dt.Size != 16 {
		t.Errorf("vlen string = %+v", dt)
	}
	if (&Datatype{Class: ClassVarLen}).IsVarString() {
		t.Error("vlen sequence reported as string")
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	l := roundTrip(t, NewContiguousLayout(2048, 96), cfg8).(*DataLayout)
	if l.Class != LayoutContiguous || l.Address != 2048 || l.Size != 96 {
		t.Errorf("layout = %+v", l)
	}
	c := roundTrip(t, &DataLayout{Class: LayoutCompact, CompactData: []byte{1, 2, 3}}, cfg8).(*DataLayout)
	if string(c.CompactData) != "\x01\x02\x03" {
		t.Errorf("compact data = %v", c.CompactData)
	}
}

func TestLayoutChunkedV3(t *testing.T) {
	b := []byte{3, byte(LayoutChunked), 3}
	b = binary.LittleEndian.AppendUint64(b, 4096)
	for _, d := range []uint32{10, 5, 8} {
		b = binary.LittleEndian.AppendUint32(b, d)
	}
	b = binary.LittleEndian.AppendUint32(b, 8)

	msg, err := Parse(TypeDataLayout, b, cfg8)
	if err != nil {
		t.Fatal(err)
	}
	l := msg.(*DataLayout)
	if l.ChunkIndexAddr != 4096 || l.ChunkIndexType != ChunkIndexBTreeV1 || len(l.ChunkDims) != 2 || l.ChunkDims[1] != 5 {
		t.Errorf("chunked layout = %+v", l)
	}
}

func TestLayoutChunkedV4(t *testing.T) {
	// flags, rank 3 (2 dims + element size), 2-byte dimensions
	head := func(flags uint8, index ChunkIndexType) []byte {
		b := []byte{4, byte(LayoutChunked), flags, 3, 2}
		for _, d := range []uint16{6, 4, 8} {
			b = binary.LittleEndian.AppendUint16(b, d)
		}
		return append(b, byte(index))
	}
	tests := []struct {
		name   string
		b      []byte
		index  ChunkIndexType
		size   uint64
		mask   uint32
		parsed bool
	}{
		{"single chunk", head(0, ChunkIndexSingleChunk), ChunkIndexSingleChunk, 0, 0, true},
		{"filtered single chunk", binary.LittleEndian.AppendUint32(binary.LittleEndian.AppendUint64(head(2, ChunkIndexSingleChunk), 77), 1), ChunkIndexSingleChunk, 77, 1, true},
		{"implicit", head(0, ChunkIndexImplicit), ChunkIndexImplicit, 0, 0, true},
		{"fixed array", append(head(0, ChunkIndexFixedArray), 10), ChunkIndexFixedArray, 0, 0, true},
		{"extensible array", append(head(0, ChunkIndexExtensibleArray), 32, 4, 4, 16, 10), ChunkIndexExtensibleArray, 0, 0, true},
		{"btree v2", append(binary.LittleEndian.AppendUint32(head(0, ChunkIndexBTreeV2), 2048), 100, 40), ChunkIndexBTreeV2, 0, 0, true},
		{"unknown index", head(0, 9), 0, 0, 0, false},
	}
	for _, tt := range tests {
		msg, err := Parse(TypeDataLayout, binary.LittleEndian.AppendUint64(tt.b, 0x1800), cfg8)
		if !tt.parsed {
			if err == nil {
				t.Errorf("%s: parsed", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		l := msg.(*DataLayout)
		if l.ChunkIndexType != tt.index || l.ChunkIndexAddr != 0x1800 || len(l.ChunkDims) != 2 || l.ChunkDims[0] != 6 ||
			l.SingleChunkSize != tt.size || l.SingleChunkMask != tt.mask {
			t.Errorf("%s: layout = %+v", tt.name, l)
		}
	}
}

func TestAttributeRoundTrip(t *testing.T) {
	data := binary.LittleEndian.AppendUint64(nil, 7)
	a := roundTrip(t, NewAttribute("run_id", NewFixedPointDatatype(8, false, OrderLE), NewScalarDataspace(), data), cfg8).(*Attribute)
	if a.Name != "run_id" || a.Datatype.Size != 8 || !a.Dataspace.IsScalar() {
		t.Errorf("attribute = %+v", a)
	}
	if binary.LittleEndian.Uint64(a.Data) != 7 {
		t.Errorf("data = %v", a.Data)
	}
}

func TestAttributeV1Padding(t *testing.T) {
	dt, _ := NewFixedPointDatatype(2, false, OrderLE).Encode(cfg8)
	ds, _ := NewScalarDataspace().Encode(cfg8)
	pad := func(b []byte) []byte {
		for len(b)%8 != 0 {
			b = append(b, 0)
		}
		return b
	}

	b := []byte{1, 0}
	b = binary.LittleEndian.AppendUint16(b, 3)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(dt)))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(ds)))
	b = append(b, pad([]byte("mu\x00"))...)
	b = append(b, pad(dt)...)
	b = append(b, pad(ds)...)
	b = append(b, 0x2a, 0)

	msg, err := Parse(TypeAttribute, b, cfg8)
	if err != nil {
		t.Fatal(err)
	}
	a := msg.(*Attribute)
	if a.Name != "mu" || len(a.Data) != 2 || a.Data[0] != 0x2a {
		t.Errorf("attribute = %+v", a)
	}
}

func TestFilterPipelineV2(t *testing.T) {
	b := []byte{2, 2}
	b = binary.LittleEndian.AppendUint16(b, FilterShuffle)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint32(b, 8)
	b = binary.LittleEndian.AppendUint16(b, FilterDeflate)
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint32(b, 6)

	msg, err := Parse(TypeFilterPipeline, b, cfg8)
	if err != nil {
		t.Fatal(err)
	}
	fp := msg.(*FilterPipeline)
	if len(fp.Filters) != 2 || !fp.Filters[0].IsOptional() || fp.Filters[0].ClientData[0] != 8 || fp.Filters[1].ID != FilterDeflate {
		t.Errorf("pipeline = %+v", fp)
	}
}

func TestParseTruncated(t *testing.T) {
	b, _ := NewHardLink("theta", 99).Encode(cfg8)
	if _, err := Parse(TypeLink, b[:len(b)-3], cfg8); !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", err)
	}
	if msg, err := Parse(Type(0x0d), []byte("comment"), cfg8); err != nil || msg.(*Raw).Type() != 0x0d {
		t.Errorf("raw message = %v, %v", msg, err)
	}
}
