package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/param"
	"github.com/robert-malhotra/go-stanload/rdump"
)

type rdumpExtractor struct {
	log *zap.Logger
}

func (e *rdumpExtractor) Format() Format { return FormatR }

// Extract merges every variable of the dump; fields are not consulted.
func (e *rdumpExtractor) Extract(_ context.Context, f File, into param.Map) error {
	m, err := rdump.ParseFile(f.Name)
	if err != nil {
		return err
	}
	e.log.Debug("read R dump", zap.String("file", f.Name), zap.Int("variables", len(m)))
	into.Merge(m)
	return nil
}
