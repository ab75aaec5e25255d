package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

const stateFileName = "runs.json"

type persistedState struct {
	Runs []*Run `json:"runs"`
}

// saveState writes the current run list to runs.json atomically.
func (m *Manager) saveState() {
	m.mu.RLock()
	state := persistedState{Runs: make([]*Run, 0, len(m.runs))}
	for _, run := range m.runs {
		copied := *run
		state.Runs = append(state.Runs, &copied)
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal run state: %v", err)
		return
	}

	statePath := filepath.Join(m.runsDir, stateFileName)
	tmpPath := statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		logger.Error("Failed to write run state: %v", err)
		return
	}
	if err := os.Rename(tmpPath, statePath); err != nil {
		logger.Error("Failed to replace run state: %v", err)
	}
}

// loadState restores runs from runs.json. Runs that were pending or
// running when the previous process exited are marked failed, since
// their worker goroutines are gone.
func (m *Manager) loadState() error {
	statePath := filepath.Join(m.runsDir, stateFileName)
	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read run state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse run state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range state.Runs {
		if run.ID == "" {
			continue
		}
		if run.State == StatePending || run.State == StateRunning {
			run.State = StateFailed
			run.Error = "interrupted by server restart"
			if run.FinishedAt.IsZero() {
				run.FinishedAt = time.Now()
			}
		}
		m.runs[run.ID] = run
	}
	logger.Debug("Restored %d training runs from %s", len(state.Runs), statePath)
	return nil
}
