package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/robert-malhotra/go-stanload/columnar"
	"github.com/robert-malhotra/go-stanload/hdf5"
	"github.com/robert-malhotra/go-stanload/internal/config"
	"github.com/robert-malhotra/go-stanload/param"
	"github.com/robert-malhotra/go-stanload/source"
)

const chainCSV = `# method = sample (Default)
lp__,accept_stat__,mu,theta.1,theta.2
-1,0.9,0.5,1,2
-2,0.9,0.6,3,4
-3,0.9,0.7,5,6
`

func replayConfig(t *testing.T, format, out string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	var csvs []string
	for _, name := range []string{"c1.csv", "c2.csv"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(chainCSV), 0o644))
		csvs = append(csvs, p)
	}
	rdump := filepath.Join(dir, "data.R")
	require.NoError(t, os.WriteFile(rdump, []byte("N <- 3\ny <- c(0.1, 0.2, 0.3)\n"), 0o644))

	cfg := config.Default()
	cfg.Warmup = 1
	cfg.IncludeWarmup = true
	cfg.Data.Groups = source.Groups{
		{Kind: source.GroupFiles, Files: []source.File{{Format: "R", Name: rdump}}},
		{Kind: source.GroupParameters, Parameters: []param.Map{{"model": "linear", "sigma": 0.5}}},
	}
	cfg.Output.Format = format
	cfg.Output.File = filepath.Join(dir, out)
	cfg.Output.Variables = []columnar.Variable{
		{Variable: "mu", Alias: "m", NDim: 1},
		{Variable: "theta", NDim: 2},
	}
	cfg.Sampler.CSV = csvs
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunPipelineHDF5(t *testing.T) {
	cfg := replayConfig(t, config.FormatHDF5, "fit.h5")
	require.NoError(t, runPipeline(context.Background(), cfg, zaptest.NewLogger(t)))

	f, err := hdf5.Open(cfg.Output.File)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("/stan_model_param/y")
	require.NoError(t, err)
	y, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, y)

	ds, err = f.OpenDataset("/stan_fit/m")
	require.NoError(t, err)
	m, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.6, 0.7, 0.5, 0.6, 0.7}, m)

	ds, err = f.OpenDataset("/stan_fit/is_sample")
	require.NoError(t, err)
	flags, err := ds.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 1, 0, 1, 1}, flags)
}

func TestRunPipelineMissingVariable(t *testing.T) {
	cfg := replayConfig(t, config.FormatROOT, "fit.root")
	cfg.Output.Variables = append(cfg.Output.Variables, columnar.Variable{Variable: "tau", NDim: 1})

	err := runPipeline(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, columnar.ErrMissingColumn)
}

func TestInspect(t *testing.T) {
	for _, tc := range []struct {
		format, file string
		want         []string
	}{
		{config.FormatROOT, "fit.root", []string{"TTree stan_fit", "6 entries", "theta ", "[2]", "model"}},
		{config.FormatHDF5, "fit.h5", []string{"group /stan_fit", "run_id=", "dataset /stan_fit/theta [6 2]"}},
	} {
		t.Run(tc.format, func(t *testing.T) {
			cfg := replayConfig(t, tc.format, tc.file)
			require.NoError(t, runPipeline(context.Background(), cfg, zaptest.NewLogger(t)))

			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{"inspect", cfg.Output.File})
			require.NoError(t, rootCmd.Execute())

			for _, w := range tc.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}
