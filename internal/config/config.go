// Package config provides configuration management for the mgeo application.
//
// Two configuration surfaces live here:
//   - The application configuration (server address, storage directories,
//     inference backend, trainer launch settings), loaded from an optional
//     ~/.mgeo/config.yaml via viper with sensible defaults.
//   - The training configuration contract (train_config.go), an INI file
//     with [model], [data], [training] and [output] sections.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultServerHost is the default server host address.
	DefaultServerHost = "localhost"

	// DefaultServerPort is the default server port. 7869 matches the port the
	// original standalone inference service listened on.
	DefaultServerPort = 7869

	// DefaultConfigDirName is the configuration directory under $HOME.
	DefaultConfigDirName = ".mgeo"

	// DefaultDataDirName is the runtime data subdirectory.
	DefaultDataDirName = "data"

	// DefaultModelsDir holds downloaded model checkpoints.
	DefaultModelsDir = "models"

	// DefaultRunsDir holds training run state and logs.
	DefaultRunsDir = "runs"

	// DefaultBackendURL is the token-classification inference backend the
	// server delegates to for raw model output.
	DefaultBackendURL = "http://localhost:7870"

	// DefaultTrainerScript is the ModelScope trainer entry point used by the
	// process backend.
	DefaultTrainerScript = "mgeo_trainer.py"

	// DefaultTrainerImage is the container image used by the docker backend.
	DefaultTrainerImage = "registry.cn-hangzhou.aliyuncs.com/modelscope-repo/modelscope:ubuntu22.04-py310-torch2.1.2"
)

// Config is the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Backend BackendConfig `mapstructure:"backend"`
	Trainer TrainerConfig `mapstructure:"trainer"`
}

// ServerConfig controls the HTTP service address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig defines where the application keeps its files.
type StorageConfig struct {
	// ConfigDir holds configuration files. Example: /home/user/.mgeo
	ConfigDir string `mapstructure:"config_dir"`

	// DataDir holds runtime data: models, run state, run logs.
	DataDir string `mapstructure:"data_dir"`
}

// BackendConfig points at the token-classification inference backend.
type BackendConfig struct {
	// URL of the backend serving the fine-tuned checkpoint.
	URL string `mapstructure:"url"`
}

// TrainerConfig controls how fine-tune runs are launched.
type TrainerConfig struct {
	// Python is the interpreter for the process backend.
	Python string `mapstructure:"python"`

	// Script is the ModelScope trainer entry point.
	Script string `mapstructure:"script"`

	// Image is the container image for the docker backend.
	Image string `mapstructure:"image"`
}

// GetModelsDir returns the model checkpoint storage directory.
func (s *StorageConfig) GetModelsDir() string {
	return filepath.Join(s.DataDir, DefaultModelsDir)
}

// GetRunsDir returns the training run state directory.
func (s *StorageConfig) GetRunsDir() string {
	return filepath.Join(s.DataDir, DefaultRunsDir)
}

// Load reads the application configuration.
//
// Defaults are applied first; if a config.yaml exists in configDir (or
// ~/.mgeo when configDir is empty) its values override them. A missing
// config file is not an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "/tmp"
		}
		configDir = filepath.Join(homeDir, DefaultConfigDirName)
	}

	v := viper.New()
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("storage.config_dir", configDir)
	v.SetDefault("storage.data_dir", filepath.Join(configDir, DefaultDataDirName))
	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("trainer.python", "python3")
	v.SetDefault("trainer.script", DefaultTrainerScript)
	v.SetDefault("trainer.image", DefaultTrainerImage)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// GetServerAddress returns the host:port the HTTP server listens on.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EnsureDirectories creates the directory structure the application needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.GetModelsDir(),
		c.Storage.GetRunsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
