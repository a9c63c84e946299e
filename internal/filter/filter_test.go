package filter

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"strings"
	"testing"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

func pipeline(t *testing.T, infos ...message.FilterInfo) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&message.FilterPipeline{Filters: infos})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func shuffle(data []byte, size int) []byte {
	n := len(data) / size
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			out[j*n+i] = data[i*size+j]
		}
	}
	copy(out[n*size:], data[n*size:])
	return out
}

func TestPipelineShuffleDeflate(t *testing.T) {
	raw := make([]byte, 0, 40)
	for i := uint32(0); i < 10; i++ {
		raw = binary.LittleEndian.AppendUint32(raw, i*1000)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(shuffle(raw, 4))
	zw.Close()

	p := pipeline(t,
		message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{4}},
		message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{6}},
	)
	got, err := p.Decode(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decode = %v, want %v", got, raw)
	}

	// Skipping the shuffle stage leaves the bytes grouped.
	got, err = p.Decode(buf.Bytes(), 1)
	if err != nil {
		t.Fatalf("Decode with mask: %v", err)
	}
	if !bytes.Equal(got, shuffle(raw, 4)) {
		t.Errorf("masked Decode did not skip shuffle")
	}
}

func TestFletcher32(t *testing.T) {
	data := []byte("chunk data!!")
	chunk := binary.LittleEndian.AppendUint32(append([]byte{}, data...), binpkg.Fletcher32(data))

	p := pipeline(t, message.FilterInfo{ID: message.FilterFletcher32})
	got, err := p.Decode(chunk, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decode = %q, want %q", got, data)
	}

	chunk[0] ^= 0xff
	if _, err := p.Decode(chunk, 0); err == nil || !strings.Contains(err.Error(), "fletcher32") {
		t.Errorf("corrupt chunk: err = %v", err)
	}
}

func TestNewPipelineUnsupported(t *testing.T) {
	_, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterSZIP}}})
	if err == nil || !strings.Contains(err.Error(), "szip") {
		t.Errorf("szip: err = %v", err)
	}

	p := pipeline(t, message.FilterInfo{ID: 32001, Flags: 1})
	if !p.Empty() {
		t.Errorf("optional unknown filter was kept")
	}

	p, err = NewPipeline(nil)
	if err != nil || !p.Empty() {
		t.Errorf("nil pipeline: %v, empty=%v", err, p.Empty())
	}
}
