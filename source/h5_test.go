package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/robert-malhotra/go-stanload/hdf5"
	"github.com/robert-malhotra/go-stanload/param"
)

func writeH5(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	g, err := f.Root().CreateGroup("spectrum")
	require.NoError(t, err)
	_, err = g.CreateDataset("energy", []float64{1.5, 2.5, 3.5})
	require.NoError(t, err)
	_, err = g.CreateDataset("counts", [][]int32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	_, err = g.CreateDataset("width.", []float64{0.25})
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("label", []string{"run-7"})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func TestReadHDF5(t *testing.T) {
	path := writeH5(t)
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReader(zap.New(core))

	got, err := r.Read(context.Background(), []Group{{
		Kind: GroupFiles,
		Files: []File{{
			Format: "hdf5",
			Name:   path,
			Group:  "spectrum",
			Fields: []Field{
				{Name: "energy", Alias: "E"},
				{Name: "counts", Kind: param.Int},
				{Name: "width"},
				{Name: "missing"},
			},
		}},
	}})
	require.NoError(t, err)

	assert.Equal(t, param.Map{
		"E":      []any{1.5, 2.5, 3.5},
		"counts": []any{int64(1), int64(2), int64(3), int64(4)},
		// no demotion for HDF5 sources
		"width": []any{0.25},
	}, got)
	assert.NotContains(t, got, "missing")
	assert.Equal(t, 1, logs.FilterMessage("dataset not found, skipping").Len())
}

func TestReadHDF5AppendsAcrossSources(t *testing.T) {
	path := writeH5(t)
	file := File{Format: "h5", Name: path, Group: "/spectrum", Fields: []Field{{Name: "energy", Kind: param.Int}}}

	got, err := NewReader(nil).Read(context.Background(), []Group{
		{Kind: GroupParameters, Parameters: []param.Map{{"energy": 9.0}}},
		{Kind: GroupFiles, Files: []File{file, file}},
	})
	require.NoError(t, err)

	// the scalar parameter is replaced, then the second file appends
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(1), int64(2), int64(3)}, got["energy"])
}

func TestReadHDF5Strings(t *testing.T) {
	path := writeH5(t)
	got, err := NewReader(nil).Read(context.Background(), []Group{{
		Kind:  GroupFiles,
		Files: []File{{Format: "hdf5", Name: path, Fields: []Field{{Name: "label", Kind: param.String}}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{"run-7"}, got["label"])
}

func TestReadHDF5MissingGroup(t *testing.T) {
	path := writeH5(t)
	_, err := NewReader(nil).Read(context.Background(), []Group{{
		Kind:  GroupFiles,
		Files: []File{{Format: "hdf5", Name: path, Group: "nope", Fields: []Field{{Name: "x"}}}},
	}})
	assert.ErrorIs(t, err, hdf5.ErrNotFound)
}
