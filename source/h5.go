package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/hdf5"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/param"
)

type h5Extractor struct {
	log *zap.Logger
}

func (e *h5Extractor) Format() Format { return FormatHDF5 }

// Extract reads each field's dataset element by element and appends the
// coerced values under the field key. Missing datasets are skipped.
func (e *h5Extractor) Extract(ctx context.Context, f File, into param.Map) error {
	file, err := hdf5.Open(f.Name)
	if err != nil {
		return err
	}
	defer file.Close()

	base := file.Root()
	if f.Group != "" {
		if base, err = file.OpenGroup(f.Group); err != nil {
			return fmt.Errorf("opening group %s: %w", f.Group, err)
		}
	}

	for _, field := range f.Fields {
		if err := ctx.Err(); err != nil {
			return err
		}

		ds, err := openDataset(base, field.Name)
		if errors.Is(err, hdf5.ErrNotFound) || errors.Is(err, hdf5.ErrNotDataset) {
			e.log.Debug("dataset not found, skipping",
				zap.String("file", f.Name),
				zap.String("dataset", field.Name))
			continue
		}
		if err != nil {
			return err
		}

		values, err := readElements(ds)
		if err != nil {
			return fmt.Errorf("reading dataset %s: %w", ds.Path(), err)
		}
		if field.Dim > 1 && len(values)%field.Dim != 0 {
			e.log.Warn("dataset size is not a multiple of the field dimension",
				zap.String("dataset", ds.Path()),
				zap.Int("elements", len(values)),
				zap.Int("dim", field.Dim))
		}

		key := field.Key()
		for _, v := range values {
			c, err := param.Coerce(field.Kind, v)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", ds.Path(), err)
			}
			into.Insert(key, c)
		}
		e.log.Debug("read dataset",
			zap.String("dataset", ds.Path()),
			zap.String("key", key),
			zap.Int("elements", len(values)))
	}
	return nil
}

// openDataset opens name, falling back to name with a trailing dot.
func openDataset(g *hdf5.Group, name string) (*hdf5.Dataset, error) {
	ds, err := g.OpenDataset(name)
	if err == nil {
		return ds, nil
	}
	if alt, altErr := g.OpenDataset(name + "."); altErr == nil {
		return alt, nil
	}
	return nil, err
}

// readElements returns the dataset elements in row-major order, as int64
// for integer datasets, float64 for floats and string for strings.
func readElements(ds *hdf5.Dataset) ([]any, error) {
	var out []any
	switch ds.DtypeClass() {
	case message.ClassFixedPoint:
		vals, err := ds.ReadInt64()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			out = append(out, v)
		}
	case message.ClassFloatPoint:
		vals, err := ds.ReadFloat64()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			out = append(out, v)
		}
	case message.ClassString, message.ClassVarLen:
		vals, err := ds.ReadString()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			out = append(out, v)
		}
	default:
		return nil, fmt.Errorf("unsupported datatype class %d", ds.DtypeClass())
	}
	return out, nil
}
