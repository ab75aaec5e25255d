package trainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// Manager coordinates training runs across the registered backends.
//
// Runs execute asynchronously; the manager tracks their state in a
// mutex-guarded map and persists it after every transition so `mgeo ps`
// reflects history across server restarts. Runs that were mid-flight when
// the process died are marked failed on load.
type Manager struct {
	mu             sync.RWMutex
	runs           map[string]*Run
	backends       map[string]Backend
	defaultBackend string
	runsDir        string
	wg             sync.WaitGroup
}

// NewManager creates a manager storing run state and logs under runsDir,
// and restores any previously persisted runs.
func NewManager(runsDir string) (*Manager, error) {
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	m := &Manager{
		runs:     make(map[string]*Run),
		backends: make(map[string]Backend),
		runsDir:  runsDir,
	}
	if err := m.loadState(); err != nil {
		logger.Warn("Failed to load run state: %v", err)
	}
	return m, nil
}

// RegisterBackend registers an execution backend. The first registered
// backend becomes the default.
func (m *Manager) RegisterBackend(b Backend) error {
	if b == nil {
		return fmt.Errorf("backend cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.backends[b.Name()]; exists {
		return fmt.Errorf("backend %s already registered", b.Name())
	}
	m.backends[b.Name()] = b
	if m.defaultBackend == "" {
		m.defaultBackend = b.Name()
	}
	return nil
}

// StartRun validates the configuration, builds the job, and launches
// training asynchronously.
//
// The data-file check and dataset loading happen synchronously so the
// caller gets the documented failure ("data file does not exist") as a
// direct error instead of a failed run record.
//
// Parameters:
//   - cfg: A loaded training configuration
//   - configPath: Path the config came from, recorded on the run
//   - backendName: Execution backend, empty for the default
//
// Returns:
//   - The tracked run in pending state
//   - Error if validation, dataset loading, or setup fails
func (m *Manager) StartRun(cfg *config.TrainConfig, configPath, backendName string) (*Run, error) {
	backend, err := m.resolveBackend(backendName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job, err := BuildJob(cfg, now)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	run := &Run{
		ID:         uuid.NewString(),
		State:      StatePending,
		ModelID:    cfg.ModelID,
		ConfigPath: configPath,
		Backend:    backend.Name(),
		WorkDir:    job.WorkDir,
		CreatedAt:  now,
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()
	m.saveState()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(run.ID, backend, job, cfg.ModelName)
	}()

	logger.Info("Training run %s started (model %s, backend %s, work dir %s)",
		run.ID, cfg.ModelID, backend.Name(), job.WorkDir)
	return m.snapshot(run.ID), nil
}

// execute drives one run to completion and records the outcome.
func (m *Manager) execute(runID string, backend Backend, job *Job, modelName string) {
	logFile, err := os.Create(m.LogPath(runID))
	if err != nil {
		m.finish(runID, "", fmt.Errorf("failed to create run log: %w", err))
		return
	}
	defer logFile.Close()

	m.transition(runID, func(r *Run) {
		r.State = StateRunning
		r.StartedAt = time.Now()
	})

	fmt.Fprintf(logFile, "run %s: model %s, %d labels, work dir %s\n",
		runID, job.ModelID, len(job.Labels), job.WorkDir)

	if err := backend.Run(context.Background(), job, logFile); err != nil {
		m.finish(runID, "", err)
		return
	}

	outputDir, err := FinalizeWorkDir(job.WorkDir, modelName)
	m.finish(runID, outputDir, err)
}

// finish records the terminal state of a run.
func (m *Manager) finish(runID, outputDir string, err error) {
	m.transition(runID, func(r *Run) {
		r.FinishedAt = time.Now()
		if err != nil {
			r.State = StateFailed
			r.Error = err.Error()
		} else {
			r.State = StateSucceeded
			r.OutputDir = outputDir
		}
	})

	if err != nil {
		logger.Error("Training run %s failed: %v", runID, err)
	} else {
		logger.Info("Training run %s finished, model saved to %s", runID, outputDir)
	}
}

// transition applies fn to a run under the lock and persists state.
func (m *Manager) transition(runID string, fn func(*Run)) {
	m.mu.Lock()
	if run, ok := m.runs[runID]; ok {
		fn(run)
	}
	m.mu.Unlock()
	m.saveState()
}

// Get returns a copy of a run.
func (m *Manager) Get(runID string) (*Run, error) {
	run := m.snapshot(runID)
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return run, nil
}

// List returns copies of all runs, newest first.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		copied := *run
		runs = append(runs, &copied)
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// LogPath returns the log file path for a run.
func (m *Manager) LogPath(runID string) string {
	return filepath.Join(m.runsDir, runID+".log")
}

// Wait blocks until all in-flight runs finish. Used on shutdown and in
// tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close waits for in-flight runs and releases backend resources.
func (m *Manager) Close() {
	m.Wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.backends {
		if closer, ok := b.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
}

func (m *Manager) resolveBackend(name string) (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultBackend
	}
	if name == "" {
		return nil, fmt.Errorf("no training backend registered")
	}
	backend, ok := m.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown training backend %q", name)
	}
	return backend, nil
}

func (m *Manager) snapshot(runID string) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if run, ok := m.runs[runID]; ok {
		copied := *run
		return &copied
	}
	return nil
}
