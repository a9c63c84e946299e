// Package config loads the run configuration of stanload.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-stanload/columnar"
	"github.com/robert-malhotra/go-stanload/sample"
	"github.com/robert-malhotra/go-stanload/source"
)

// ErrInvalid reports a configuration that cannot be run.
var ErrInvalid = errors.New("invalid configuration")

// Output formats.
const (
	FormatROOT = "root"
	FormatHDF5 = "hdf5"
)

// Config is a complete conversion run.
type Config struct {
	// Chains is the number of sampler chains.
	Chains int `yaml:"chains"`
	// Draws is the number of post-warmup draws per chain.
	Draws  int `yaml:"draws"`
	Warmup int `yaml:"warmup"`
	// IncludeWarmup keeps the warmup draws in the output, flagged with
	// is_sample = 0.
	IncludeWarmup bool `yaml:"include_warmup"`

	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Sampler SamplerConfig `yaml:"sampler"`
}

// DataConfig declares the sampler input.
type DataConfig struct {
	Groups source.Groups `yaml:"groups"`
}

// OutputConfig declares the output file.
type OutputConfig struct {
	Format string `yaml:"format"` // root, hdf5
	File   string `yaml:"file"`
	// Mode is RECREATE, NEW or CREATE.
	Mode string `yaml:"mode"`
	// Tree names the results table.
	Tree string `yaml:"tree"`
	// InputTree names the provenance table.
	InputTree string              `yaml:"input_tree"`
	Variables []columnar.Variable `yaml:"variables"`
}

// SamplerConfig locates the CmdStan model.
type SamplerConfig struct {
	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args"`
	Workdir string   `yaml:"workdir"`
	Seed    int64    `yaml:"seed"`
	// CSV replays existing output files, one per chain, instead of running
	// Binary.
	CSV []string `yaml:"csv"`
}

// Default returns a configuration with every optional value set.
func Default() *Config {
	return &Config{
		Chains: 4,
		Draws:  1000,
		Warmup: 1000,
		Output: OutputConfig{
			Format:    FormatROOT,
			Mode:      string(columnar.ModeRecreate),
			Tree:      "stan_fit",
			InputTree: columnar.DefaultProvenanceTable,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies STANLOAD_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("STANLOAD_OUTPUT_FILE"); v != "" {
		c.Output.File = v
	}
	if v := os.Getenv("STANLOAD_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("STANLOAD_CHAINS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: STANLOAD_CHAINS=%q", ErrInvalid, v)
		}
		c.Chains = n
	}
	if v := os.Getenv("STANLOAD_SAMPLER"); v != "" {
		c.Sampler.Binary = v
	}
	return nil
}

// Validate checks a configuration for a sampling run.
func (c *Config) Validate() error {
	if c.Chains < 1 {
		return fmt.Errorf("%w: chains must be positive, got %d", ErrInvalid, c.Chains)
	}
	if c.Draws < 1 {
		return fmt.Errorf("%w: draws must be positive, got %d", ErrInvalid, c.Draws)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("%w: warmup must not be negative, got %d", ErrInvalid, c.Warmup)
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if len(c.Output.Variables) == 0 {
		return fmt.Errorf("%w: output.variables is empty", ErrInvalid)
	}
	if c.Output.Tree == c.Output.InputTree {
		return fmt.Errorf("%w: output.tree and output.input_tree are both %q", ErrInvalid, c.Output.Tree)
	}
	return c.Sampler.Validate()
}

// Validate checks the output declaration.
func (o *OutputConfig) Validate() error {
	if _, err := o.Kind(); err != nil {
		return err
	}
	if o.File == "" {
		return fmt.Errorf("%w: output.file is not set", ErrInvalid)
	}
	mode, err := columnar.ParseMode(o.Mode)
	if err != nil || mode == columnar.ModeUpdate {
		return fmt.Errorf("%w: output.mode %q", ErrInvalid, o.Mode)
	}
	if o.Tree == "" || o.InputTree == "" {
		return fmt.Errorf("%w: output.tree and output.input_tree must be named", ErrInvalid)
	}
	return nil
}

// Kind returns the normalized output format.
func (o *OutputConfig) Kind() (string, error) {
	switch strings.ToLower(o.Format) {
	case FormatROOT:
		return FormatROOT, nil
	case FormatHDF5, "h5":
		return FormatHDF5, nil
	}
	return "", fmt.Errorf("%w: output.format %q", ErrInvalid, o.Format)
}

// Validate checks that there is a binary to run or output to replay.
func (s *SamplerConfig) Validate() error {
	if s.Binary == "" && len(s.CSV) == 0 {
		return fmt.Errorf("%w: set sampler.binary or sampler.csv", ErrInvalid)
	}
	return nil
}

// SampleOptions returns the extraction options. Saved warmup draws precede
// the sampling draws of each chain.
func (c *Config) SampleOptions() sample.Options {
	opts := sample.Options{
		Chains:        c.Chains,
		DrawsPerChain: c.Draws,
		Warmup:        c.Warmup,
		IncludeWarmup: c.IncludeWarmup,
	}
	if c.IncludeWarmup {
		opts.DrawsPerChain += c.Warmup
	}
	return opts
}
