package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-stanload/internal/dtype"
	"github.com/robert-malhotra/go-stanload/internal/layout"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
)

// Dataset is an n-dimensional array of one datatype.
type Dataset struct {
	file      *File
	path      string
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    *layout.Storage
	attrs     []*message.Attribute

	// contiguous storage, writable in place; dataAddr is 0 otherwise
	dataAddr uint64
	dataSize uint64
}

func newDataset(f *File, p string, h *object.Header) (*Dataset, error) {
	space, typ := h.Dataspace(), h.Datatype()
	st, err := layout.New(h.DataLayout(), space, typ, h.FilterPipeline(), f.reader)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", p, err)
	}
	d := &Dataset{file: f, path: p, dataspace: space, datatype: typ, layout: st}
	if addr, ok := st.Contiguous(); ok {
		d.dataAddr, d.dataSize = addr, st.Size()
	}
	for _, m := range h.All(message.TypeAttribute) {
		d.attrs = append(d.attrs, m.(*message.Attribute))
	}
	return d, nil
}

// Name is the last component of Path.
func (d *Dataset) Name() string { return path.Base(d.path) }

// Path is the absolute path the dataset was opened or created at.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dimensions, or nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return d.dataspace.Dims
}

// DtypeClass reports the class of the stored elements.
func (d *Dataset) DtypeClass() message.DatatypeClass { return d.datatype.Class }

// Read decodes every element, in row-major order, into dest, a pointer to
// a slice of a numeric or string type.
func (d *Dataset) Read(dest interface{}) error {
	raw, err := d.layout.Read()
	if err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}
	if d.datatype.IsVarString() {
		vals, err := d.varStrings(raw)
		if err != nil {
			return fmt.Errorf("reading %s: %w", d.path, err)
		}
		return dtype.Strings(vals, dest)
	}
	return dtype.Convert(d.datatype, raw, d.dataspace.NumElements(), dest)
}

func readAll[T any](d *Dataset) ([]T, error) {
	var out []T
	if err := d.Read(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFloat64 and its siblings read the whole dataset as one element type.
func (d *Dataset) ReadFloat64() ([]float64, error) { return readAll[float64](d) }
func (d *Dataset) ReadInt64() ([]int64, error)     { return readAll[int64](d) }
func (d *Dataset) ReadInt32() ([]int32, error)     { return readAll[int32](d) }
func (d *Dataset) ReadString() ([]string, error)   { return readAll[string](d) }

// Attrs lists attribute names in header order.
func (d *Dataset) Attrs() []string {
	names := make([]string, len(d.attrs))
	for i, a := range d.attrs {
		names[i] = a.Name
	}
	return names
}

// Attr returns the named attribute, or nil.
func (d *Dataset) Attr(name string) *Attribute {
	for _, a := range d.attrs {
		if a.Name == name {
			return &Attribute{msg: a}
		}
	}
	return nil
}
