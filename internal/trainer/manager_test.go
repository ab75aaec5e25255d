package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records the job it ran and simulates the trainer writing the
// checkpoint directory.
type fakeBackend struct {
	name   string
	err    error
	ranJob *Job
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Run(ctx context.Context, job *Job, logs io.Writer) error {
	b.ranJob = job
	fmt.Fprintln(logs, "epoch 1/1 loss 0.42")
	if b.err != nil {
		return b.err
	}
	return os.MkdirAll(filepath.Join(job.WorkDir, TrainOutputDirName), 0o755)
}

func newTestManager(t *testing.T, backends ...Backend) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	for _, b := range backends {
		require.NoError(t, m.RegisterBackend(b))
	}
	return m
}

func TestStartRunSucceeds(t *testing.T) {
	backend := &fakeBackend{name: "fake"}
	m := newTestManager(t, backend)
	cfg := testTrainConfig(t, 32)

	run, err := m.StartRun(cfg, "configs/train_config.ini", "")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "fake", run.Backend)
	assert.Equal(t, "configs/train_config.ini", run.ConfigPath)

	m.Wait()

	done, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, done.State)
	assert.Equal(t, filepath.Join(done.WorkDir, TrainOutputDirName), done.OutputDir)
	assert.False(t, done.FinishedAt.IsZero())

	require.NotNil(t, backend.ranJob)
	assert.Equal(t, cfg.MaxEpochs, backend.ranJob.MaxEpochs)

	logData, err := os.ReadFile(m.LogPath(run.ID))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "loss 0.42")
}

func TestStartRunBackendFailure(t *testing.T) {
	m := newTestManager(t, &fakeBackend{name: "fake", err: fmt.Errorf("CUDA out of memory")})
	cfg := testTrainConfig(t, 32)

	run, err := m.StartRun(cfg, "c.ini", "fake")
	require.NoError(t, err)

	m.Wait()

	done, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, done.State)
	assert.Contains(t, done.Error, "CUDA out of memory")
	assert.Empty(t, done.OutputDir)
}

func TestStartRunMissingDataFileIsDirectError(t *testing.T) {
	m := newTestManager(t, &fakeBackend{name: "fake"})
	cfg := testTrainConfig(t, 8)
	require.NoError(t, os.Remove(cfg.TestFile))

	_, err := m.StartRun(cfg, "c.ini", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test data file does not exist")
	assert.Empty(t, m.List())
}

func TestStartRunUnknownBackend(t *testing.T) {
	m := newTestManager(t, &fakeBackend{name: "fake"})

	_, err := m.StartRun(testTrainConfig(t, 8), "c.ini", "docker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown training backend "docker"`)
}

func TestRegisterBackendRejectsDuplicates(t *testing.T) {
	m := newTestManager(t, &fakeBackend{name: "fake"})
	err := m.RegisterBackend(&fakeBackend{name: "fake"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestListNewestFirst(t *testing.T) {
	m := newTestManager(t, &fakeBackend{name: "fake"})

	first, err := m.StartRun(testTrainConfig(t, 8), "a.ini", "")
	require.NoError(t, err)
	m.Wait()
	second, err := m.StartRun(testTrainConfig(t, 8), "b.ini", "")
	require.NoError(t, err)
	m.Wait()

	runs := m.List()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")

	m, err := NewManager(runsDir)
	require.NoError(t, err)
	require.NoError(t, m.RegisterBackend(&fakeBackend{name: "fake"}))

	run, err := m.StartRun(testTrainConfig(t, 32), "c.ini", "")
	require.NoError(t, err)
	m.Wait()

	restored, err := NewManager(runsDir)
	require.NoError(t, err)

	got, err := restored.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, got.State)
}

func TestLoadStateMarksInterruptedRunsFailed(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")
	require.NoError(t, os.MkdirAll(runsDir, 0o755))

	state := `{"runs":[{"id":"abc","state":"running","model_id":"m","created_at":"2024-06-01T09:30:00Z"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(runsDir, "runs.json"), []byte(state), 0o644))

	m, err := NewManager(runsDir)
	require.NoError(t, err)

	run, err := m.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, run.State)
	assert.Equal(t, "interrupted by server restart", run.Error)
	assert.False(t, run.FinishedAt.IsZero())
}
