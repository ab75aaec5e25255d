// Package trainer manages MGeo fine-tune runs.
//
// A run takes a validated training configuration, derives the label list
// from the datasets, creates a timestamped work directory, and hands the
// actual training to an execution backend (a local ModelScope trainer
// process, or the same trainer inside a container). The manager tracks run
// state in memory and persists it as JSON so run history survives restarts.
package trainer

import (
	"context"
	"io"
	"time"
)

// RunState is the lifecycle state of a training run.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// TrainOutputDirName is the subdirectory the ModelScope trainer writes the
// final checkpoint into (ModelFile.TRAIN_OUTPUT_DIR).
const TrainOutputDirName = "output"

// Job carries everything a backend needs to execute one fine-tune.
type Job struct {
	// ModelID is the pretrained checkpoint, a ModelScope ID or local path.
	ModelID string

	// TrainFile and TestFile are line-delimited JSON datasets.
	TrainFile string
	TestFile  string

	// Hyperparameters from the [training] section.
	MaxEpochs      int
	BatchSize      int
	LearningRate   float64
	SequenceLength int

	// Labels is the full NER tag enumeration derived from the datasets.
	Labels []string

	// TotalIters is the LR scheduler horizon:
	// (train set size / 32) * max epochs.
	TotalIters int

	// WorkDir is the timestamped run directory.
	WorkDir string
}

// Backend executes a fine-tune job and streams trainer output to logs.
// Run blocks until the job finishes or ctx is cancelled.
type Backend interface {
	Name() string
	Run(ctx context.Context, job *Job, logs io.Writer) error
}

// Run describes one fine-tune run tracked by the manager.
type Run struct {
	ID         string    `json:"id"`
	State      RunState  `json:"state"`
	ModelID    string    `json:"model_id"`
	ConfigPath string    `json:"config_path"`
	Backend    string    `json:"backend"`
	WorkDir    string    `json:"work_dir"`
	OutputDir  string    `json:"output_dir,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}
