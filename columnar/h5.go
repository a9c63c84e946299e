package columnar

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/robert-malhotra/go-stanload/hdf5"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/param"
)

// H5File writes each table as an HDF5 group holding one dataset per
// column. Datasets are allocated up front with shape [rows] or [rows][N].
type H5File struct {
	file  *hdf5.File
	runID string
}

// CreateH5 opens path for writing according to mode.
func CreateH5(path string, mode Mode) (*H5File, error) {
	if err := checkMode(path, mode); err != nil {
		return nil, err
	}
	f, err := hdf5.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &H5File{file: f, runID: uuid.NewString()}, nil
}

// RunID implements Backend.
func (f *H5File) RunID() string {
	return f.runID
}

// Table creates the group name with title and run_id attributes. Each
// column dataset carries a kind attribute naming its parameter kind. A "/"
// in a column name is stored as ".", the separator of nested keys.
func (f *H5File) Table(name, title string, row *Row, rows int) (TableWriter, error) {
	g, err := f.file.Root().CreateGroup(name)
	if err != nil {
		return nil, fmt.Errorf("creating group %s: %w", name, err)
	}
	if err := g.SetAttr("title", title); err != nil {
		return nil, err
	}
	if err := g.SetAttr("run_id", f.runID); err != nil {
		return nil, err
	}

	t := &h5Table{row: row, rows: uint64(rows)}
	for i, c := range row.Columns() {
		dims := []uint64{uint64(rows)}
		if n := row.Len(i); n > 1 {
			dims = append(dims, uint64(n))
		}
		ds, err := g.CreateDatasetWithType(strings.ReplaceAll(c.Name, "/", "."), dims, h5Type(c), hdf5.WithAttribute("kind", c.Kind.String()))
		if err != nil {
			return nil, fmt.Errorf("creating column %s: %w", c.Name, err)
		}
		t.datasets = append(t.datasets, ds)
	}
	return t, nil
}

// Close flushes and closes the file.
func (f *H5File) Close() error {
	return f.file.Close()
}

func h5Type(c Column) *message.Datatype {
	switch c.Kind {
	case param.Int:
		return message.NewFixedPointDatatype(4, true, message.OrderLE)
	case param.String:
		return message.NewStringDatatype(uint32(c.Size+1), message.PadNullTerm, message.CharsetUTF8)
	}
	return message.NewFloatDatatype(8, message.OrderLE)
}

type h5Table struct {
	row      *Row
	datasets []*hdf5.Dataset
	rows     uint64
	next     uint64
}

func (t *h5Table) Fill() error {
	if t.next >= t.rows {
		return fmt.Errorf("table holds %d rows: %w", t.rows, os.ErrInvalid)
	}
	for i, ds := range t.datasets {
		if err := ds.WriteRow(t.next, t.row.Value(i)); err != nil {
			return err
		}
	}
	t.next++
	return nil
}

func (t *h5Table) Close() error {
	if t.next != t.rows {
		return fmt.Errorf("table filled with %d of %d rows", t.next, t.rows)
	}
	return nil
}
