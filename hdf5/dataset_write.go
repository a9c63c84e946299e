package hdf5

import (
	"fmt"
	"path"
	"reflect"

	"github.com/robert-malhotra/go-stanload/internal/dtype"
	"github.com/robert-malhotra/go-stanload/internal/layout"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
)

// CreateDataset creates a contiguous dataset holding data. The shape and
// datatype are inferred from the Go value; nested slices must be regular.
// Strings are stored as fixed-length, null-terminated strings sized to the
// longest element.
func (g *Group) CreateDataset(name string, data interface{}, opts ...DatasetOption) (*Dataset, error) {
	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if !val.IsValid() {
		return nil, fmt.Errorf("dataset %q: nil data", name)
	}

	dims, elemType := inferDimensionsAndType(val)

	var dt *message.Datatype
	if elemType.Kind() == reflect.String {
		dt = message.NewStringDatatype(uint32(maxStringLen(val)+1), message.PadNullTerm, message.CharsetUTF8)
	} else {
		var err error
		if dt, err = dtype.ForGoType(elemType); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
	}

	ds, err := g.CreateDatasetWithType(name, dims, dt, opts...)
	if err != nil {
		return nil, err
	}
	if err := ds.Write(data); err != nil {
		return nil, err
	}
	return ds, nil
}

// CreateDatasetWithType creates a zero-filled contiguous dataset with
// explicit dimensions and datatype, to be filled with Write or WriteRow.
func (g *Group) CreateDatasetWithType(name string, dims []uint64, dt *message.Datatype, opts ...DatasetOption) (*Dataset, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if err := g.checkFree(name); err != nil {
		return nil, err
	}

	var cfg datasetConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, cfg.err)
	}

	dataspace := message.NewDataspace(dims, nil)
	dataSize := dataspace.NumElements() * uint64(dt.Size)

	dataAddr := g.file.allocate(dataSize)
	if dataSize > 0 {
		if err := g.file.writer.At(int64(dataAddr)).WriteZeros(int(dataSize)); err != nil {
			return nil, fmt.Errorf("writing data: %w", err)
		}
	}
	layoutMsg := message.NewContiguousLayout(dataAddr, dataSize)

	headerAddr, err := g.file.writeHeader(object.DatasetMessages(dataspace, dt, layoutMsg, cfg.attrs...), 0)
	if err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, headerAddr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}

	l, err := layout.New(layoutMsg, dataspace, dt, nil, g.file.reader)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		file:      g.file,
		path:      path.Join(g.path, name),
		dataspace: dataspace,
		datatype:  dt,
		layout:    l,
		attrs:     cfg.attrs,
		dataAddr:  dataAddr,
		dataSize:  dataSize,
	}, nil
}

// Write replaces the full contents of a contiguous dataset.
func (d *Dataset) Write(data interface{}) error {
	raw, err := d.encode(data)
	if err != nil {
		return err
	}
	if uint64(len(raw)) != d.dataSize {
		return fmt.Errorf("%s: data size mismatch: expected %d bytes, got %d", d.path, d.dataSize, len(raw))
	}
	return d.writeAt(0, raw)
}

// WriteRow writes row i along the first dimension. data must hold exactly
// one row's worth of elements.
func (d *Dataset) WriteRow(i uint64, data interface{}) error {
	shape := d.Shape()
	if len(shape) == 0 {
		return fmt.Errorf("%s: scalar dataset has no rows", d.path)
	}
	if i >= shape[0] {
		return fmt.Errorf("%s: row %d out of range [0,%d)", d.path, i, shape[0])
	}
	rowSize := d.dataSize / shape[0]

	raw, err := d.encode(data)
	if err != nil {
		return err
	}
	if uint64(len(raw)) != rowSize {
		return fmt.Errorf("%s: row size mismatch: expected %d bytes, got %d", d.path, rowSize, len(raw))
	}
	return d.writeAt(i*rowSize, raw)
}

func (d *Dataset) encode(data interface{}) ([]byte, error) {
	if !d.file.writable {
		return nil, ErrReadOnly
	}
	if d.dataAddr == 0 {
		return nil, fmt.Errorf("%s: dataset is not contiguous", d.path)
	}
	raw, err := dtype.Encode(d.datatype, data)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding data: %w", d.path, err)
	}
	return raw, nil
}

func (d *Dataset) writeAt(offset uint64, raw []byte) error {
	if err := d.file.writer.At(int64(d.dataAddr + offset)).WriteBytes(raw); err != nil {
		return fmt.Errorf("%s: writing data: %w", d.path, err)
	}
	return nil
}

// inferDimensionsAndType walks nested slices and arrays to find the shape
// and element type. A scalar has shape [1].
func inferDimensionsAndType(val reflect.Value) ([]uint64, reflect.Type) {
	var dims []uint64
	t := val.Type()
	for val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		dims = append(dims, uint64(val.Len()))
		t = t.Elem()
		if val.Len() == 0 {
			for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
				dims = append(dims, 0)
				t = t.Elem()
			}
			return dims, t
		}
		val = val.Index(0)
	}
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	return dims, t
}

func maxStringLen(val reflect.Value) int {
	switch val.Kind() {
	case reflect.String:
		return val.Len()
	case reflect.Slice, reflect.Array:
		n := 0
		for i := 0; i < val.Len(); i++ {
			n = max(n, maxStringLen(val.Index(i)))
		}
		return n
	}
	return 0
}
