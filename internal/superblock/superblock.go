package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-stanload/internal/binary"
)

// Signature opens every superblock.
var Signature = [8]byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// A superblock sits at 0 or after a user block of 512 bytes or a larger
// power of two.
var searchOffsets = []int64{0, 512, 1024, 2048, 4096}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock holds the fields the reader and writer need. Versions 0 and 1
// also cache the root group's symbol table, which some files rely on.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8
	// Flags are the file consistency flags of versions 2 and 3.
	Flags uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// New returns a version 3 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{Version: 3, OffsetSize: 8, LengthSize: 8}
}

// Read finds and parses the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	var head [9]byte
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(head[:], off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(head[:8], Signature[:]) {
			continue
		}

		var (
			sb  *Superblock
			err error
		)
		switch v := head[8]; v {
		case 0, 1:
			sb, err = readV0(r, off, v)
		case 2, 3:
			sb, err = readV2(r, off, v)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// ReaderConfig returns the layout for reading the rest of the file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

func checkSizes(offsetSize, lengthSize uint8) error {
	for _, n := range []uint8{offsetSize, lengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return fmt.Errorf("%w: %w", ErrInvalidSuperblock, binpkg.ErrInvalidSize)
		}
	}
	return nil
}

// readV0 reads versions 0 and 1:
//
//	sig(8) version free-space-ver root-entry-ver reserved shared-header-ver
//	offset-size length-size reserved leaf-K(2) internal-K(2) flags(4)
//	[v1: indexed-storage-K(2) reserved(2)]
//	base free-space eof driver-info root-symbol-table-entry
func readV0(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	var fixed [16]byte
	if _, err := r.ReadAt(fixed[:], off+8); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: fixed[5], LengthSize: fixed[6]}
	if err := checkSizes(sb.OffsetSize, sb.LengthSize); err != nil {
		return nil, err
	}

	pos := off + 24
	if version == 1 {
		pos += 4
	}
	br := binpkg.NewReader(r, sb.ReaderConfig()).At(pos)

	var freeSpace, driver uint64
	for _, dst := range []*uint64{&sb.BaseAddress, &freeSpace, &sb.EOFAddress, &driver} {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	// Root symbol table entry: name offset, header address, cache type,
	// reserved word, then a 16-byte scratch pad.
	br.Skip(int64(sb.OffsetSize))
	addr, err := br.ReadOffset()
	if err != nil {
		return nil, err
	}
	sb.RootGroupAddress = addr

	cacheType, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	br.Skip(4)
	if cacheType == 1 {
		if sb.RootGroupBTreeAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootGroupLocalHeapAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

// readV2 reads versions 2 and 3:
//
//	sig(8) version offset-size length-size flags
//	base extension eof root-header checksum(4)
func readV2(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	var fixed [3]byte
	if _, err := r.ReadAt(fixed[:], off+9); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: fixed[0], LengthSize: fixed[1], Flags: fixed[2]}
	if err := checkSizes(sb.OffsetSize, sb.LengthSize); err != nil {
		return nil, err
	}

	br := binpkg.NewReader(r, sb.ReaderConfig()).At(off + 12)
	for _, dst := range []*uint64{&sb.BaseAddress, &sb.ExtensionAddress, &sb.EOFAddress, &sb.RootGroupAddress} {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	body := make([]byte, br.Pos()-off)
	if _, err := r.ReadAt(body, off); err != nil {
		return nil, err
	}
	stored, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if sum := binpkg.Lookup3Checksum(body); sum != stored {
		return nil, fmt.Errorf("%w: checksum 0x%08x, want 0x%08x", ErrInvalidSuperblock, stored, sum)
	}
	return sb, nil
}

// Size returns the encoded size of a version 2 or 3 superblock.
func (sb *Superblock) Size() int {
	o := int(sb.OffsetSize)
	if o == 0 {
		o = 8
	}
	return 12 + 4*o + 4
}

// Write encodes sb as a version 2 or 3 superblock at w's cursor and
// returns the number of bytes written. An unset extension address is
// written as undefined.
func (sb *Superblock) Write(w *binpkg.Writer) (int64, error) {
	version := max(sb.Version, 2)
	buf := binpkg.NewBuffer(sb.Size())
	bw := binpkg.NewWriter(buf, w.Config())

	ext := sb.ExtensionAddress
	if ext == 0 {
		ext = bw.UndefinedOffset()
	}

	bw.WriteBytes(Signature[:])
	bw.WriteBytes([]byte{version, sb.OffsetSize, sb.LengthSize, sb.Flags})
	for _, addr := range []uint64{sb.BaseAddress, ext, sb.EOFAddress, sb.RootGroupAddress} {
		bw.WriteOffset(addr)
	}
	bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes()))

	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return int64(len(buf.Bytes())), nil
}
