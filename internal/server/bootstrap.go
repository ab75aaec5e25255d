package server

import (
	"fmt"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// InitializeTrainManager creates the training run manager and registers
// the available execution backends.
//
// Backend registration failures are logged but non-fatal so the server can
// operate with whatever backends the host supports. The local process
// backend is always available; the docker backend requires a reachable
// Docker daemon.
//
// Parameters:
//   - cfg: Server configuration with trainer and storage settings
//
// Returns:
//   - Configured run manager
//   - Error only if manager creation fails
func InitializeTrainManager(cfg *config.Config) (*trainer.Manager, error) {
	mgr, err := trainer.NewManager(cfg.Storage.GetRunsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create train manager: %w", err)
	}

	registered := 0

	process := trainer.NewProcessBackend(cfg.Trainer.Python, cfg.Trainer.Script)
	if err := mgr.RegisterBackend(process); err != nil {
		logger.Warn("Failed to register process backend: %v", err)
	} else {
		registered++
		logger.Info("Registered training backend: %s", process.Name())
	}

	if docker, err := trainer.NewDockerBackend(cfg.Trainer.Image, cfg.Trainer.Script); err != nil {
		logger.Warn("Docker training backend unavailable: %v", err)
	} else {
		if err := mgr.RegisterBackend(docker); err != nil {
			logger.Warn("Failed to register docker backend: %v", err)
		} else {
			registered++
			logger.Info("Registered training backend: %s", docker.Name())
		}
	}

	if registered == 0 {
		logger.Warn("No training backends available, runs cannot be started")
	}
	return mgr, nil
}
