package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/param"
)

// Format identifies a source file format.
type Format string

const (
	FormatR    Format = "R"
	FormatHDF5 Format = "hdf5"
	FormatROOT Format = "root"
)

// Extractor reads the fields of one file into a mapping.
type Extractor interface {
	Format() Format
	Extract(ctx context.Context, f File, into param.Map) error
}

// Registry maps formats to extractor constructors.
var Registry = map[Format]func(*zap.Logger) Extractor{
	FormatR:    func(log *zap.Logger) Extractor { return &rdumpExtractor{log: log} },
	FormatHDF5: func(log *zap.Logger) Extractor { return &h5Extractor{log: log} },
	FormatROOT: func(log *zap.Logger) Extractor { return &treeExtractor{log: log} },
}

var formatAliases = map[string]Format{
	"r":     FormatR,
	"rdump": FormatR,
	"hdf5":  FormatHDF5,
	"h5":    FormatHDF5,
	"root":  FormatROOT,
}

// ParseFormat resolves a format name or alias, ignoring case.
func ParseFormat(name string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(name)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}
