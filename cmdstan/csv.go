package cmdstan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-stanload/sample"
)

// LPColumn is the CmdStan log-probability column.
const LPColumn = "lp__"

// ErrCSV reports a malformed sampler output file.
var ErrCSV = errors.New("malformed sampler output")

// ColumnName maps a CmdStan column name to its flat parameter name:
// theta.2.3 becomes theta[1,2]. Indices are zero based.
func ColumnName(col string) (string, error) {
	parts := strings.Split(col, ".")
	if len(parts) == 1 {
		return col, nil
	}
	idx := make([]string, len(parts)-1)
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return "", fmt.Errorf("%w: column %q has index %q", ErrCSV, col, p)
		}
		idx[i] = strconv.Itoa(n - 1)
	}
	return parts[0] + "[" + strings.Join(idx, ",") + "]", nil
}

// chainCSV is one parsed output file.
type chainCSV struct {
	header []string
	rows   [][]float64
}

// ReadCSV reads one CmdStan output file per chain. Diagnostic columns
// ending in __ are dropped except lp__, which becomes the last slot of
// every draw. All files must share the header and the draw count.
func ReadCSV(paths ...string) (*sample.Draws, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrCSV)
	}

	chains := make([]*chainCSV, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("reading sampler output: %w", err)
		}
		c, err := parseCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if i > 0 {
			if !slices.Equal(c.header, chains[0].header) {
				return nil, fmt.Errorf("%w: %s has a different header than %s", ErrCSV, p, paths[0])
			}
			if len(c.rows) != len(chains[0].rows) {
				return nil, fmt.Errorf("%w: %s has %d draws, %s has %d",
					ErrCSV, p, len(c.rows), paths[0], len(chains[0].rows))
			}
		}
		chains[i] = c
	}

	header := chains[0].header
	lp := -1
	var (
		names []string
		keep  []int
	)
	for i, col := range header {
		switch {
		case col == LPColumn:
			lp = i
		case strings.HasSuffix(col, "__"):
		default:
			name, err := ColumnName(col)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
			keep = append(keep, i)
		}
	}
	if lp < 0 {
		return nil, fmt.Errorf("%w: no %s column", ErrCSV, LPColumn)
	}
	keep = append(keep, lp)

	draws := len(chains[0].rows)
	data := make([]float64, 0, draws*len(chains)*len(keep))
	for d := 0; d < draws; d++ {
		for _, c := range chains {
			for _, i := range keep {
				data = append(data, c.rows[d][i])
			}
		}
	}
	return sample.NewDraws(names, draws, len(chains), data)
}

func parseCSV(r io.Reader) (*chainCSV, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.ReuseRecord = true

	rec, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header", ErrCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSV, err)
	}
	c := &chainCSV{header: append([]string(nil), rec...)}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return c, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCSV, err)
		}
		row := make([]float64, len(rec))
		for i, s := range rec {
			row[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: draw %d column %s: %v", ErrCSV, len(c.rows)+1, c.header[i], err)
			}
		}
		c.rows = append(c.rows, row)
	}
}
