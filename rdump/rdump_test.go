package rdump

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-stanload/param"
)

func TestParse(t *testing.T) {
	src := `# generated by rstan
N <- 3
sigma <- 2.5
y <-
c(1.5, -2, 3e2)
idx <- c(1L, 2L, 3L)
"quoted" <- 7
range <- 2:5
down = 3:1
zeros <- integer(2)
flag <- TRUE; big <- 1e3
label <- "run-1"
m <- structure(c(1, 2, 3, 4, 5, 6), .Dim = c(2, 3))
`
	got, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	want := param.Map{
		"N":      int64(3),
		"sigma":  2.5,
		"y":      []any{1.5, -2.0, 300.0},
		"idx":    []any{int64(1), int64(2), int64(3)},
		"quoted": int64(7),
		"range":  []any{int64(2), int64(3), int64(4), int64(5)},
		"down":   []any{int64(3), int64(2), int64(1)},
		"zeros":  []any{int64(0), int64(0)},
		"flag":   int64(1),
		"big":    1000.0,
		"label":  "run-1",
		// column-major data, row-major result
		"m": []any{
			[]any{int64(1), int64(3), int64(5)},
			[]any{int64(2), int64(4), int64(6)},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArray3D(t *testing.T) {
	got, err := Parse(strings.NewReader(`a <- structure(1:8, .Dim = c(2L, 2L, 2L))`))
	require.NoError(t, err)

	// a[i][j][k] = 1 + i + 2j + 4k
	want := []any{
		[]any{[]any{int64(1), int64(5)}, []any{int64(3), int64(7)}},
		[]any{[]any{int64(2), int64(6)}, []any{int64(4), int64(8)}},
	}
	assert.Equal(t, want, got["a"])
}

func TestParseSpecialValues(t *testing.T) {
	got, err := Parse(strings.NewReader(`x <- c(Inf, -Inf, NA, .5)`))
	require.NoError(t, err)

	x := got["x"].([]any)
	require.Len(t, x, 4)
	assert.True(t, math.IsInf(x[0].(float64), 1))
	assert.True(t, math.IsInf(x[1].(float64), -1))
	assert.True(t, math.IsNaN(x[2].(float64)))
	assert.Equal(t, 0.5, x[3])
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		`x 3`,
		`x <- c(1, 2`,
		`x <- c(1, "a")`,
		`x <- structure(c(1, 2, 3), .Dim = c(2, 2))`,
		`x <- foo(1)`,
		`x <- 1.5:3`,
	} {
		_, err := Parse(strings.NewReader(src))
		assert.ErrorIs(t, err, ErrSyntax, src)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.R")
	require.NoError(t, os.WriteFile(path, []byte("N <- 2\ny <- c(0.1, 0.2)\n"), 0o644))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, param.Map{"N": int64(2), "y": []any{0.1, 0.2}}, got)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.R"))
	assert.Error(t, err)
}
