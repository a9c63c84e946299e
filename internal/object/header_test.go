package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

var cfg = binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}

func TestEncodeRead(t *testing.T) {
	links := []*message.Link{message.NewHardLink("fit", 4096), message.NewHardLink("data", 8192)}
	buf, err := Encode(cfg, GroupMessages(links, nil), GroupChunk)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) < GroupChunk {
		t.Errorf("header is %d bytes, want at least %d", len(buf), GroupChunk)
	}

	hdr, err := Read(binpkg.NewReader(bytes.NewReader(buf), cfg), 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if hdr.Version != 2 {
		t.Errorf("version = %d", hdr.Version)
	}
	got := hdr.All(message.TypeLink)
	if len(got) != 2 {
		t.Fatalf("got %d links, want 2", len(got))
	}
	if l := got[1].(*message.Link); l.Name != "data" || l.Address != 8192 {
		t.Errorf("second link = %q -> %d", l.Name, l.Address)
	}
	if hdr.First(message.TypeGroupInfo) == nil {
		t.Error("group info message missing")
	}
	if hdr.Dataspace() != nil {
		t.Error("group header has a dataspace")
	}
}

func TestEncodeDataset(t *testing.T) {
	space := message.NewDataspace([]uint64{3, 2}, nil)
	typ := message.NewFloatDatatype(8, message.OrderLE)
	layout := message.NewContiguousLayout(1024, 48)
	buf, err := Encode(cfg, DatasetMessages(space, typ, layout), 0)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := Read(binpkg.NewReader(bytes.NewReader(buf), cfg), 0)
	if err != nil {
		t.Fatal(err)
	}
	if ds := hdr.Dataspace(); ds == nil || ds.NumElements() != 6 {
		t.Errorf("dataspace = %+v", ds)
	}
	if dt := hdr.Datatype(); dt == nil || dt.Size != 8 {
		t.Errorf("datatype = %+v", dt)
	}
	if hdr.DataLayout() == nil {
		t.Error("layout missing")
	}
}

func TestReadChecksum(t *testing.T) {
	buf, err := Encode(cfg, GroupMessages(nil, nil), GroupChunk)
	if err != nil {
		t.Fatal(err)
	}
	buf[len(buf)/2] ^= 0xff
	_, err = Read(binpkg.NewReader(bytes.NewReader(buf), cfg), 0)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestReadGarbage(t *testing.T) {
	_, err := Read(binpkg.NewReader(bytes.NewReader([]byte("not a header at all")), cfg), 0)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}
