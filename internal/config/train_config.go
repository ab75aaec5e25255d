package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	// DefaultTrainConfigPath is where `mgeo train` looks for its config.
	DefaultTrainConfigPath = "configs/train_config.ini"

	// DefaultModelID is the MGeo backbone checkpoint on ModelScope.
	DefaultModelID = "iic/mgeo_backbone_chinese_base"

	// DefaultModelName is the output model name. A run keeps its timestamped
	// work directory unless the configured name differs from this default.
	DefaultModelName = "mgeo_trained"

	// Default dataset paths written by --create-config.
	DefaultTrainFile = "./data/ours/guangzhou_train_1024.jsonl"
	DefaultTestFile  = "./data/ours/guangzhou_testset_file_1020.jsonl"
)

// requiredSections are the INI sections a training config must contain.
var requiredSections = []string{"model", "data", "training", "output"}

// TrainConfig is the training configuration contract: INI file with
// [model], [data], [training] and [output] sections.
//
// All fields are mandatory and type-checked at load time. The referenced
// data files are deliberately NOT checked here; their absence is a run-time
// error raised just before training starts.
type TrainConfig struct {
	// [model]
	ModelID string

	// [data]
	TrainFile string
	TestFile  string

	// [training]
	MaxEpochs      int
	BatchSize      int
	LearningRate   float64
	SequenceLength int

	// [output]
	OutputDir string
	ModelName string
}

// DefaultTrainConfig returns the configuration written by --create-config.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		ModelID:        DefaultModelID,
		TrainFile:      DefaultTrainFile,
		TestFile:       DefaultTestFile,
		MaxEpochs:      3,
		BatchSize:      128,
		LearningRate:   3e-4,
		SequenceLength: 256,
		OutputDir:      "tmp_dir",
		ModelName:      DefaultModelName,
	}
}

// LoadTrainConfig reads and validates a training configuration file.
//
// Returns:
//   - The parsed configuration if every section and field is present and
//     well-typed
//   - Error naming the missing section, missing key, or bad value otherwise
func LoadTrainConfig(path string) (*TrainConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	for _, section := range requiredSections {
		if _, err := file.GetSection(section); err != nil {
			return nil, fmt.Errorf("config file is missing required section [%s]", section)
		}
	}

	cfg := &TrainConfig{}

	if cfg.ModelID, err = stringKey(file, "model", "model_id"); err != nil {
		return nil, err
	}
	if cfg.TrainFile, err = stringKey(file, "data", "train_file"); err != nil {
		return nil, err
	}
	if cfg.TestFile, err = stringKey(file, "data", "test_file"); err != nil {
		return nil, err
	}
	if cfg.MaxEpochs, err = positiveIntKey(file, "training", "max_epochs"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = positiveIntKey(file, "training", "batch_size"); err != nil {
		return nil, err
	}
	if cfg.LearningRate, err = positiveFloatKey(file, "training", "learning_rate"); err != nil {
		return nil, err
	}
	if cfg.SequenceLength, err = positiveIntKey(file, "training", "sequence_length"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = stringKey(file, "output", "output_dir"); err != nil {
		return nil, err
	}
	if cfg.ModelName, err = stringKey(file, "output", "model_name"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CheckDataFiles verifies the configured train and test files exist. This is
// the run-time check from the failure contract: a missing data file aborts
// the run.
func (c *TrainConfig) CheckDataFiles() error {
	if _, err := os.Stat(c.TrainFile); err != nil {
		return fmt.Errorf("training data file does not exist: %s", c.TrainFile)
	}
	if _, err := os.Stat(c.TestFile); err != nil {
		return fmt.Errorf("test data file does not exist: %s", c.TestFile)
	}
	return nil
}

// WriteDefaultTrainConfig writes the default configuration to path, creating
// parent directories as needed. The written file contains exactly the four
// documented sections with their documented keys.
func WriteDefaultTrainConfig(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	defaults := DefaultTrainConfig()
	file := ini.Empty()

	model, _ := file.NewSection("model")
	model.NewKey("model_id", defaults.ModelID)

	data, _ := file.NewSection("data")
	data.NewKey("train_file", defaults.TrainFile)
	data.NewKey("test_file", defaults.TestFile)

	training, _ := file.NewSection("training")
	training.NewKey("max_epochs", fmt.Sprintf("%d", defaults.MaxEpochs))
	training.NewKey("batch_size", fmt.Sprintf("%d", defaults.BatchSize))
	training.NewKey("learning_rate", "3e-4")
	training.NewKey("sequence_length", fmt.Sprintf("%d", defaults.SequenceLength))

	output, _ := file.NewSection("output")
	output.NewKey("output_dir", defaults.OutputDir)
	output.NewKey("model_name", defaults.ModelName)

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func stringKey(file *ini.File, section, key string) (string, error) {
	s := file.Section(section)
	if !s.HasKey(key) {
		return "", fmt.Errorf("config section [%s] is missing key %q", section, key)
	}
	value := s.Key(key).String()
	if value == "" {
		return "", fmt.Errorf("config key [%s] %s must not be empty", section, key)
	}
	return value, nil
}

func positiveIntKey(file *ini.File, section, key string) (int, error) {
	s := file.Section(section)
	if !s.HasKey(key) {
		return 0, fmt.Errorf("config section [%s] is missing key %q", section, key)
	}
	value, err := s.Key(key).Int()
	if err != nil {
		return 0, fmt.Errorf("config key [%s] %s is not an integer: %w", section, key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("config key [%s] %s must be positive, got %d", section, key, value)
	}
	return value, nil
}

func positiveFloatKey(file *ini.File, section, key string) (float64, error) {
	s := file.Section(section)
	if !s.HasKey(key) {
		return 0, fmt.Errorf("config section [%s] is missing key %q", section, key)
	}
	value, err := s.Key(key).Float64()
	if err != nil {
		return 0, fmt.Errorf("config key [%s] %s is not a number: %w", section, key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("config key [%s] %s must be positive, got %v", section, key, value)
	}
	return value, nil
}
