// Package source builds the flat parameter mapping from a declared list of
// input groups: files in R dump, HDF5 or ROOT format, and inline parameters.
package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/param"
)

// ErrUnknownFormat marks a file entry whose format has no extractor. Read
// logs it and skips the entry.
var ErrUnknownFormat = errors.New("unknown source format")

// Field requests one variable from a file.
type Field struct {
	// Name is the dataset or branch name in the file.
	Name string
	// Alias is the mapping key; Name is used when empty.
	Alias string
	Kind  param.Kind
	// Dim is the expected number of values per row. Zero means 1.
	Dim int
}

// Key returns the mapping key the field is stored under.
func (f Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// File describes one input file.
type File struct {
	Format string
	// Name is the file path.
	Name string
	// Tree names the ROOT tree to read.
	Tree string
	// Group is an optional HDF5 group the field names are relative to.
	Group string
	// Cut is an optional row filter for ROOT trees.
	Cut    string
	Fields []Field
}

// GroupKind tags a source group.
type GroupKind string

const (
	GroupFiles      GroupKind = "files"
	GroupParameters GroupKind = "parameters"
)

// Group is one ordered entry of the data declaration. Files groups list
// input files; parameters groups hold literal values.
type Group struct {
	Kind       GroupKind
	Files      []File
	Parameters []param.Map
}

// Reader reads source groups into a single mapping.
type Reader struct {
	log        *zap.Logger
	extractors map[Format]Extractor
}

// NewReader returns a Reader using the registered extractors. A nil logger
// disables logging.
func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reader{log: log, extractors: make(map[Format]Extractor, len(Registry))}
	for format, newExtractor := range Registry {
		r.extractors[format] = newExtractor(log)
	}
	return r
}

// Read merges every group, in order, into a new mapping. Parameters and
// R dumps overwrite colliding names; HDF5 and ROOT fields append.
func (r *Reader) Read(ctx context.Context, groups []Group) (param.Map, error) {
	out := make(param.Map)

	for _, g := range groups {
		switch g.Kind {
		case GroupParameters:
			for _, p := range g.Parameters {
				out.Merge(p)
			}
		case GroupFiles:
			for _, f := range g.Files {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if err := r.readFile(ctx, f, out); err != nil {
					return nil, err
				}
			}
		default:
			r.log.Warn("skipping unknown source group", zap.String("group", string(g.Kind)))
		}
	}
	return out, nil
}

func (r *Reader) readFile(ctx context.Context, f File, into param.Map) error {
	format, err := ParseFormat(f.Format)
	if err != nil {
		r.log.Warn("format not implemented, skipping file",
			zap.String("format", f.Format),
			zap.String("file", f.Name))
		return nil
	}

	ex, ok := r.extractors[format]
	if !ok {
		r.log.Warn("no extractor registered, skipping file",
			zap.String("format", string(format)),
			zap.String("file", f.Name))
		return nil
	}

	r.log.Debug("reading source",
		zap.String("format", string(format)),
		zap.String("file", f.Name),
		zap.Int("fields", len(f.Fields)))

	if err := ex.Extract(ctx, f, into); err != nil {
		return fmt.Errorf("reading %s source %s: %w", format, f.Name, err)
	}
	return nil
}
