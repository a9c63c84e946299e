package columnar

import (
	"fmt"

	"github.com/google/uuid"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// RootFile writes tables as ROOT trees.
type RootFile struct {
	file  *riofs.File
	runID string
}

// CreateRoot opens path for writing according to mode.
func CreateRoot(path string, mode Mode) (*RootFile, error) {
	if err := checkMode(path, mode); err != nil {
		return nil, err
	}
	f, err := groot.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &RootFile{file: f, runID: uuid.NewString()}, nil
}

// RunID implements Backend.
func (f *RootFile) RunID() string {
	return f.runID
}

// Table creates a tree with one branch per column. Scalar slots become
// /D or /I leaves, arrays name[N]/D or name[N]/I, strings /C.
func (f *RootFile) Table(name, title string, row *Row, _ int) (TableWriter, error) {
	cols := row.Columns()
	wvars := make([]rtree.WriteVar, len(cols))
	for i, c := range cols {
		wvars[i] = rtree.WriteVar{Name: c.Name, Value: row.Addr(i)}
	}

	w, err := rtree.NewWriter(f.file, name, wvars, rtree.WithTitle(fmt.Sprintf("%s (run %s)", title, f.runID)))
	if err != nil {
		return nil, fmt.Errorf("creating tree %s: %w", name, err)
	}
	return &rootTable{w: w}, nil
}

// Close closes the file. Trees must be closed first.
func (f *RootFile) Close() error {
	return f.file.Close()
}

type rootTable struct {
	w rtree.Writer
}

func (t *rootTable) Fill() error {
	_, err := t.w.Write()
	return err
}

func (t *rootTable) Close() error {
	return t.w.Close()
}
