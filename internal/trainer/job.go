package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/dataset"
)

// workDirTimestampFormat matches the original run naming: yymmdd_hhmm.
const workDirTimestampFormat = "060102_1504"

// WorkDirName returns the timestamped work directory name for a run:
// the configured output_dir with a timestamp suffix.
func WorkDirName(outputDir string, now time.Time) string {
	return fmt.Sprintf("%s_%s", outputDir, now.Format(workDirTimestampFormat))
}

// BuildJob validates the data files, loads the datasets, and assembles the
// backend job for one run.
//
// The data-file existence check lives here, not in config loading: a config
// referencing missing files parses fine and only fails when a run is
// actually attempted.
func BuildJob(cfg *config.TrainConfig, now time.Time) (*Job, error) {
	if err := cfg.CheckDataFiles(); err != nil {
		return nil, err
	}

	trainSet, err := dataset.ReadExamples(cfg.TrainFile)
	if err != nil {
		return nil, err
	}
	if len(trainSet) == 0 {
		return nil, fmt.Errorf("training data file %s contains no examples", cfg.TrainFile)
	}
	testSet, err := dataset.ReadExamples(cfg.TestFile)
	if err != nil {
		return nil, err
	}

	labels := dataset.LabelList(trainSet, testSet)
	if len(labels) == 0 {
		return nil, fmt.Errorf("datasets contain no NER tags")
	}

	return &Job{
		ModelID:        cfg.ModelID,
		TrainFile:      cfg.TrainFile,
		TestFile:       cfg.TestFile,
		MaxEpochs:      cfg.MaxEpochs,
		BatchSize:      cfg.BatchSize,
		LearningRate:   cfg.LearningRate,
		SequenceLength: cfg.SequenceLength,
		Labels:         labels,
		TotalIters:     (len(trainSet) / 32) * cfg.MaxEpochs,
		WorkDir:        WorkDirName(cfg.OutputDir, now),
	}, nil
}

// FinalizeWorkDir handles the post-training directory contract. The trained
// checkpoint is expected under workDir/output; when the configured model
// name differs from the default, the whole work directory is renamed to
// {model_name}_{timestamp}, keeping the run's original timestamp suffix.
//
// Returns the directory containing the final checkpoint.
func FinalizeWorkDir(workDir, modelName string) (string, error) {
	outputDir := filepath.Join(workDir, TrainOutputDirName)
	if _, err := os.Stat(outputDir); err != nil {
		return "", fmt.Errorf("trainer finished but no checkpoint at %s: %w", outputDir, err)
	}

	if modelName == config.DefaultModelName {
		return outputDir, nil
	}

	base := filepath.Base(workDir)
	timestamp := base
	if len(base) > len(workDirTimestampFormat) {
		timestamp = base[len(base)-len(workDirTimestampFormat):]
	}

	newDir := filepath.Join(filepath.Dir(workDir), fmt.Sprintf("%s_%s", modelName, timestamp))
	if err := os.Rename(workDir, newDir); err != nil {
		return "", fmt.Errorf("failed to rename output directory: %w", err)
	}
	return filepath.Join(newDir, TrainOutputDirName), nil
}
