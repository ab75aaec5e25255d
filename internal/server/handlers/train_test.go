package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) Run(ctx context.Context, job *trainer.Job, logs io.Writer) error {
	fmt.Fprintln(logs, "training started")
	return os.MkdirAll(filepath.Join(job.WorkDir, trainer.TrainOutputDirName), 0o755)
}

// writeTrainSetup creates a config file plus datasets under a temp dir and
// returns the config path.
func writeTrainSetup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	trainFile := filepath.Join(dir, "train.jsonl")
	testFile := filepath.Join(dir, "test.jsonl")
	line := `{"tokens":["广","州"],"ner_tags":["B-city","E-city"]}` + "\n"
	require.NoError(t, os.WriteFile(trainFile, []byte(strings.Repeat(line, 32)), 0o644))
	require.NoError(t, os.WriteFile(testFile, []byte(line), 0o644))

	configPath := filepath.Join(dir, "train_config.ini")
	content := fmt.Sprintf(`[model]
model_id = iic/mgeo_backbone_chinese_base

[data]
train_file = %s
test_file = %s

[training]
max_epochs = 1
batch_size = 8
learning_rate = 3e-4
sequence_length = 64

[output]
output_dir = %s

model_name = mgeo_trained
`, trainFile, testFile, filepath.Join(dir, "tmp_dir"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func newTrainHandler(t *testing.T) (*Handler, *trainer.Manager) {
	t.Helper()
	manager, err := trainer.NewManager(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	require.NoError(t, manager.RegisterBackend(stubBackend{}))
	t.Cleanup(manager.Close)

	cfg := &config.Config{}
	cfg.Backend.URL = "http://localhost:1"
	return NewHandler(cfg, models.NewRegistry(), manager, "test", "now"), manager
}

func TestStartTraining(t *testing.T) {
	h, manager := newTrainHandler(t)
	configPath := writeTrainSetup(t)

	rec := postJSON(t, h.StartTraining, "/api/train", api.TrainRequest{ConfigPath: configPath})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp api.TrainResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.WorkDir)

	manager.Wait()

	run, err := manager.Get(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, trainer.StateSucceeded, run.State)
}

func TestStartTrainingBadConfig(t *testing.T) {
	h, _ := newTrainHandler(t)

	rec := postJSON(t, h.StartTraining, "/api/train",
		api.TrainRequest{ConfigPath: filepath.Join(t.TempDir(), "missing.ini")})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load training config")
}

func TestListRuns(t *testing.T) {
	h, manager := newTrainHandler(t)
	configPath := writeTrainSetup(t)

	rec := postJSON(t, h.StartTraining, "/api/train", api.TrainRequest{ConfigPath: configPath})
	require.Equal(t, http.StatusAccepted, rec.Code)
	manager.Wait()

	req := httptest.NewRequest(http.MethodGet, "/api/train/runs", nil)
	listRec := httptest.NewRecorder()
	h.ListRuns(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var resp api.ListRunsResponse
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "stub", resp.Runs[0].Backend)
	assert.Equal(t, string(trainer.StateSucceeded), resp.Runs[0].State)
}

func TestStreamRunLogs(t *testing.T) {
	h, manager := newTrainHandler(t)
	configPath := writeTrainSetup(t)

	rec := postJSON(t, h.StartTraining, "/api/train", api.TrainRequest{ConfigPath: configPath})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started api.TrainResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	manager.Wait()

	logsRec := postJSON(t, h.StreamRunLogs, "/api/train/logs",
		api.RunLogsRequest{RunID: started.RunID})

	body := logsRec.Body.String()
	assert.Equal(t, "text/event-stream", logsRec.Header().Get("Content-Type"))
	assert.Contains(t, body, `"type":"log"`)
	assert.Contains(t, body, "training started")
	assert.Contains(t, body, `"type":"end"`)
}

func TestStreamRunLogsUnknownRun(t *testing.T) {
	h, _ := newTrainHandler(t)

	rec := postJSON(t, h.StreamRunLogs, "/api/train/logs",
		api.RunLogsRequest{RunID: "does-not-exist"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
