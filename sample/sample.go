// Package sample reshapes raw multi-chain sampler output into per-column
// draw sequences.
package sample

import (
	"errors"
	"fmt"
)

var (
	ErrShape      = errors.New("sample shape mismatch")
	ErrBadOptions = errors.New("invalid extraction options")
)

// Synthetic columns carried by every Table.
const (
	LPColumn       = "lp_prob"
	IsSampleColumn = "is_sample"
)

// Draws is raw sampler output with shape [draws][chains][len(Names)+1]. The
// last slot of each parameter vector holds the log probability.
type Draws struct {
	Names  []string
	draws  int
	chains int
	data   []float64
}

// NewDraws wraps data, which must hold draws*chains*(len(names)+1) values
// in row-major order. The slices are not copied.
func NewDraws(names []string, draws, chains int, data []float64) (*Draws, error) {
	if draws < 0 || chains < 0 {
		return nil, fmt.Errorf("%w: %d draws, %d chains", ErrShape, draws, chains)
	}
	if want := draws * chains * (len(names) + 1); len(data) != want {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrShape, len(data), want)
	}
	return &Draws{Names: names, draws: draws, chains: chains, data: data}, nil
}

// Shape returns the draw count, chain count and slot count per draw.
func (d *Draws) Shape() (draws, chains, slots int) {
	return d.draws, d.chains, len(d.Names) + 1
}

// At returns slot k of the given draw and chain.
func (d *Draws) At(draw, chain, k int) float64 {
	slots := len(d.Names) + 1
	return d.data[(draw*d.chains+chain)*slots+k]
}

// Options selects the part of the draws to extract.
type Options struct {
	Chains        int
	DrawsPerChain int
	// Warmup is the number of leading draws per chain that are warmup.
	Warmup int
	// IncludeWarmup reports that the draws still contain the warmup, which
	// is then flagged with is_sample = 0.
	IncludeWarmup bool
}

// Table maps column names to per-row values. Row chain*DrawsPerChain+draw
// of every column holds the same (chain, draw) pair.
type Table struct {
	Names   []string
	Columns map[string][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Columns[LPColumn])
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) ([]float64, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// Extract copies the draws into a Table, chain-major then draw-minor, and
// adds the lp_prob and is_sample columns.
func Extract(d *Draws, opts Options) (*Table, error) {
	if opts.Chains < 0 || opts.DrawsPerChain < 0 || opts.Warmup < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrBadOptions, opts)
	}
	if opts.Chains > d.chains || opts.DrawsPerChain > d.draws {
		return nil, fmt.Errorf("%w: want %d chains x %d draws, have %d x %d",
			ErrShape, opts.Chains, opts.DrawsPerChain, d.chains, d.draws)
	}

	rows := opts.Chains * opts.DrawsPerChain
	t := &Table{
		Names:   append(append([]string{}, d.Names...), LPColumn, IsSampleColumn),
		Columns: make(map[string][]float64, len(d.Names)+2),
	}
	for _, name := range t.Names {
		if _, dup := t.Columns[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, name)
		}
		t.Columns[name] = make([]float64, 0, rows)
	}

	lp := len(d.Names)
	for chain := 0; chain < opts.Chains; chain++ {
		for draw := 0; draw < opts.DrawsPerChain; draw++ {
			for k, name := range d.Names {
				t.Columns[name] = append(t.Columns[name], d.At(draw, chain, k))
			}
			t.Columns[LPColumn] = append(t.Columns[LPColumn], d.At(draw, chain, lp))

			isSample := 1.0
			if opts.IncludeWarmup && draw < opts.Warmup {
				isSample = 0
			}
			t.Columns[IsSampleColumn] = append(t.Columns[IsSampleColumn], isSample)
		}
	}
	return t, nil
}
