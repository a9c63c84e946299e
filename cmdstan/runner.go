package cmdstan

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-stanload/param"
	"github.com/robert-malhotra/go-stanload/sample"
)

// DataFile is the name of the data file written into the work directory.
const DataFile = "data.json"

// Runner runs a compiled CmdStan model.
type Runner struct {
	// Binary is the model executable.
	Binary string
	// Args are extra sampler arguments, placed after the sample method.
	Args []string
	// Workdir receives the data file, one CSV and one log per chain. A
	// temporary directory is used when empty.
	Workdir string

	Chains     int
	Samples    int
	Warmup     int
	SaveWarmup bool
	// Seed is shared by all chains; CmdStan offsets streams by chain id.
	Seed int64

	log *zap.Logger
}

// NewRunner returns a runner for binary. A nil logger discards output.
func NewRunner(binary string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		Binary:  binary,
		Chains:  4,
		Samples: 1000,
		Warmup:  1000,
		Seed:    time.Now().UnixNano() % (1 << 31),
		log:     log,
	}
}

// args returns the command line of chain id, which counts from 1.
func (r *Runner) args(id int, data, output string) []string {
	saveWarmup := "0"
	if r.SaveWarmup {
		saveWarmup = "1"
	}
	args := []string{
		"sample",
		"num_samples=" + strconv.Itoa(r.Samples),
		"num_warmup=" + strconv.Itoa(r.Warmup),
		"save_warmup=" + saveWarmup,
	}
	args = append(args, r.Args...)
	return append(args,
		"data", "file="+data,
		"output", "file="+output,
		"random", "seed="+strconv.FormatInt(r.Seed, 10),
		"id="+strconv.Itoa(id),
	)
}

// Sample writes data, runs every chain concurrently and reads the draws.
// The first failing chain cancels the others.
func (r *Runner) Sample(ctx context.Context, data param.Map) (*sample.Draws, error) {
	if r.Chains < 1 {
		return nil, fmt.Errorf("sampling with %d chains", r.Chains)
	}

	dir := r.Workdir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "stanload-")
		if err != nil {
			return nil, fmt.Errorf("creating work directory: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	dataPath := filepath.Join(dir, DataFile)
	skipped, err := WriteData(dataPath, data)
	if err != nil {
		return nil, err
	}
	for _, key := range skipped {
		r.log.Debug("non-numeric value left out of sampler data", zap.String("key", key))
	}

	outputs := make([]string, r.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for i := range outputs {
		id := i + 1
		outputs[i] = filepath.Join(dir, fmt.Sprintf("output-%d.csv", id))
		logPath := filepath.Join(dir, fmt.Sprintf("output-%d.log", id))
		args := r.args(id, dataPath, outputs[i])

		g.Go(func() error {
			return r.runChain(gctx, id, args, logPath)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.Info("sampling finished", zap.Int("chains", r.Chains), zap.String("workdir", dir))
	return ReadCSV(outputs...)
}

func (r *Runner) runChain(ctx context.Context, id int, args []string, logPath string) error {
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("chain %d: %w", id, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	r.log.Debug("starting chain", zap.Int("chain", id), zap.Strings("args", args))
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chain %d: %w (see %s)", id, err, logPath)
	}
	r.log.Debug("chain finished", zap.Int("chain", id), zap.Duration("elapsed", time.Since(start)))
	return nil
}
