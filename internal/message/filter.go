package message

// Filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether a reader may skip the filter.
func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline lists the filters applied to each chunk, in the order
// they were applied on write.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// Version 1 pads the header, names and odd client data counts to 8
// bytes. Version 2 drops the name field for the predefined filters.
func decodeFilterPipeline(d *decoder) *FilterPipeline {
	version, count := d.u8(), int(d.u8())
	if version == 1 {
		d.skip(6)
	} else if version != 2 {
		d.fail("filter pipeline version %d", version)
		return nil
	}

	m := &FilterPipeline{Filters: make([]FilterInfo, count)}
	for i := range m.Filters {
		f := &m.Filters[i]
		f.ID = d.u16()
		var nameLen int
		if version == 1 || f.ID >= 256 {
			nameLen = int(d.u16())
		}
		f.Flags = d.u16()
		f.ClientData = make([]uint32, d.u16())
		if nameLen > 0 {
			f.Name = d.cstring(nameLen)
			if version == 1 {
				d.pad8(nameLen)
			}
		}
		for j := range f.ClientData {
			f.ClientData[j] = d.u32()
		}
		if version == 1 && len(f.ClientData)%2 != 0 {
			d.skip(4)
		}
	}
	if d.err != nil {
		return nil
	}
	return m
}
