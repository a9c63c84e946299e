package columnar

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrUnsupportedMode = errors.New("unsupported file mode")
)

// Backend creates tables in one output file.
type Backend interface {
	// Table creates a table whose columns are bound to row's slots. rows
	// is the number of Fill calls that will follow.
	Table(name, title string, row *Row, rows int) (TableWriter, error)
	// RunID identifies the run that produced the file.
	RunID() string
	Close() error
}

// TableWriter appends rows to a table.
type TableWriter interface {
	// Fill commits the current slot values as the next row.
	Fill() error
	Close() error
}

// Mode controls how an output file is opened.
type Mode string

const (
	// ModeRecreate creates the file, truncating an existing one.
	ModeRecreate Mode = "RECREATE"
	// ModeNew creates the file and fails if it exists.
	ModeNew Mode = "NEW"
	// ModeCreate is a synonym of ModeNew.
	ModeCreate Mode = "CREATE"
	// ModeUpdate would append to an existing file; no backend supports it.
	ModeUpdate Mode = "UPDATE"
)

// ParseMode reads a mode name, ignoring case. The empty name is RECREATE.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(s)); m {
	case "":
		return ModeRecreate, nil
	case ModeRecreate, ModeNew, ModeCreate, ModeUpdate:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// checkMode validates mode for creating path.
func checkMode(path string, mode Mode) error {
	switch mode {
	case ModeRecreate, "":
		return nil
	case ModeNew, ModeCreate:
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}
