package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ProcessBackend executes the ModelScope trainer as a local child process.
//
// The trainer entry point receives the whole job on its command line; stdout
// and stderr go to the run log. LOCAL_RANK is pinned to 0 for the
// single-device case, matching how the trainer is launched upstream.
type ProcessBackend struct {
	// Python is the interpreter, e.g. "python3".
	Python string

	// Script is the trainer entry point path.
	Script string
}

// NewProcessBackend creates a process backend.
func NewProcessBackend(python, script string) *ProcessBackend {
	return &ProcessBackend{Python: python, Script: script}
}

// Name returns the backend identifier.
func (b *ProcessBackend) Name() string { return "process" }

// Run executes the trainer and blocks until it exits. Cancelling ctx kills
// the process.
func (b *ProcessBackend) Run(ctx context.Context, job *Job, logs io.Writer) error {
	if _, err := os.Stat(b.Script); err != nil {
		return fmt.Errorf("trainer script not found: %s", b.Script)
	}

	cmd := exec.CommandContext(ctx, b.Python, append([]string{b.Script}, JobArgs(job)...)...)
	cmd.Stdout = logs
	cmd.Stderr = logs
	cmd.Env = append(os.Environ(), "LOCAL_RANK=0")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("trainer process failed: %w", err)
	}
	return nil
}

// JobArgs serializes a job into trainer command-line arguments. Shared by
// the process and docker backends so both launch the trainer identically.
func JobArgs(job *Job) []string {
	return []string{
		"--model_id", job.ModelID,
		"--train_file", job.TrainFile,
		"--test_file", job.TestFile,
		"--max_epochs", strconv.Itoa(job.MaxEpochs),
		"--batch_size", strconv.Itoa(job.BatchSize),
		"--learning_rate", strconv.FormatFloat(job.LearningRate, 'g', -1, 64),
		"--sequence_length", strconv.Itoa(job.SequenceLength),
		"--total_iters", strconv.Itoa(job.TotalIters),
		"--labels", strings.Join(job.Labels, ","),
		"--work_dir", job.WorkDir,
	}
}
