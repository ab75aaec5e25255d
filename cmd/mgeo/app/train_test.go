package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainMissingConfigPrintsHint(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "train_config.ini")

	cmd := NewTrainCommand(&GlobalOptions{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Configuration file not found: "+configPath)
	assert.Contains(t, out.String(), "--create-config")
}
