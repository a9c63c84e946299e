package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/cmdstan"
	"github.com/robert-malhotra/go-stanload/columnar"
	"github.com/robert-malhotra/go-stanload/internal/config"
	"github.com/robert-malhotra/go-stanload/param"
	"github.com/robert-malhotra/go-stanload/sample"
	"github.com/robert-malhotra/go-stanload/source"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Read the data, sample the model and write the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runPipeline(cmd.Context(), cfg, logger)
	},
}

// runPipeline reads the sources, samples, and writes the provenance and
// results tables to the configured output.
func runPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	data, err := source.NewReader(log).Read(ctx, cfg.Data.Groups)
	if err != nil {
		return err
	}
	log.Info("data read", zap.Int("keys", len(data)))

	draws, opts, err := drawSamples(ctx, cfg, data, log)
	if err != nil {
		return err
	}
	table, err := sample.Extract(draws, opts)
	if err != nil {
		return fmt.Errorf("extracting draws: %w", err)
	}

	b, err := openBackend(cfg.Output)
	if err != nil {
		return err
	}
	log.Info("writing results",
		zap.String("file", cfg.Output.File),
		zap.String("run_id", b.RunID()),
		zap.Int("rows", table.Len()))

	if err := columnar.WriteProvenance(b, cfg.Output.InputTree, data); err != nil {
		b.Close()
		return fmt.Errorf("writing %s: %w", cfg.Output.InputTree, err)
	}
	if err := columnar.WriteResults(b, cfg.Output.Tree, cfg.Output.Variables, table); err != nil {
		b.Close()
		return fmt.Errorf("writing %s: %w", cfg.Output.Tree, err)
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", cfg.Output.File, err)
	}
	log.Info("the file has been written", zap.String("file", cfg.Output.File))
	return nil
}

// drawSamples runs the sampler, or replays its CSV output when configured.
// A replay takes its chain and draw counts from the files.
func drawSamples(ctx context.Context, cfg *config.Config, data param.Map, log *zap.Logger) (*sample.Draws, sample.Options, error) {
	opts := cfg.SampleOptions()

	if len(cfg.Sampler.CSV) > 0 {
		draws, err := cmdstan.ReadCSV(cfg.Sampler.CSV...)
		if err != nil {
			return nil, opts, err
		}
		opts.DrawsPerChain, opts.Chains, _ = draws.Shape()
		log.Info("replaying sampler output",
			zap.Strings("files", cfg.Sampler.CSV),
			zap.Int("chains", opts.Chains),
			zap.Int("draws", opts.DrawsPerChain))
		return draws, opts, nil
	}

	r := cmdstan.NewRunner(cfg.Sampler.Binary, log)
	r.Args = cfg.Sampler.Args
	r.Workdir = cfg.Sampler.Workdir
	r.Chains = cfg.Chains
	r.Samples = cfg.Draws
	r.Warmup = cfg.Warmup
	r.SaveWarmup = cfg.IncludeWarmup
	if cfg.Sampler.Seed != 0 {
		r.Seed = cfg.Sampler.Seed
	}
	draws, err := r.Sample(ctx, data)
	return draws, opts, err
}

func openBackend(out config.OutputConfig) (columnar.Backend, error) {
	mode, err := columnar.ParseMode(out.Mode)
	if err != nil {
		return nil, err
	}
	kind, err := out.Kind()
	if err != nil {
		return nil, err
	}
	if kind == config.FormatHDF5 {
		f, err := columnar.CreateH5(out.File, mode)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	f, err := columnar.CreateRoot(out.File, mode)
	if err != nil {
		return nil, err
	}
	return f, nil
}
