package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModelScope serves a repository file listing and file contents the way
// the ModelScope API does.
type fakeModelScope struct {
	files     map[string]string // path -> content
	downloads int               // file fetches served
}

func (f *fakeModelScope) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/repo/files") {
			type fileEntry struct {
				Path   string `json:"Path"`
				Size   int64  `json:"Size"`
				Sha256 string `json:"Sha256"`
				Type   string `json:"Type"`
			}
			listing := struct {
				Data struct {
					Files []fileEntry `json:"Files"`
				} `json:"Data"`
			}{}
			for path, content := range f.files {
				sum := sha256.Sum256([]byte(content))
				listing.Data.Files = append(listing.Data.Files, fileEntry{
					Path:   path,
					Size:   int64(len(content)),
					Sha256: hex.EncodeToString(sum[:]),
					Type:   "blob",
				})
			}
			listing.Data.Files = append(listing.Data.Files, fileEntry{Path: "subdir", Type: "tree"})
			json.NewEncoder(w).Encode(listing)
			return
		}

		if strings.HasSuffix(r.URL.Path, "/repo") {
			path := r.URL.Query().Get("FilePath")
			content, ok := f.files[path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			f.downloads++
			fmt.Fprint(w, content)
			return
		}

		http.NotFound(w, r)
	})
}

func newFakeModelScope(t *testing.T, files map[string]string) (*httptest.Server, *fakeModelScope) {
	t.Helper()
	fake := &fakeModelScope{files: files}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return srv, fake
}

func TestListRepoFiles(t *testing.T) {
	srv, _ := newFakeModelScope(t, map[string]string{
		"config.json":       `{"model_type":"bert"}`,
		"pytorch_model.bin": "binary-weights",
		"vocab/vocab.txt":   "广\n州\n",
	})
	client := NewClientWithEndpoint(srv.URL)

	files, err := client.ListRepoFiles(context.Background(), "iic/mgeo_backbone_chinese_base")
	require.NoError(t, err)

	// Directory entries are filtered out.
	require.Len(t, files, 3)
	byPath := make(map[string]RepoFile)
	for _, f := range files {
		byPath[f.Path] = f
	}
	assert.Equal(t, int64(len("binary-weights")), byPath["pytorch_model.bin"].Size)
	assert.NotEmpty(t, byPath["config.json"].Sha256)
}

func TestDownloadModel(t *testing.T) {
	files := map[string]string{
		"config.json":       `{"model_type":"bert"}`,
		"vocab/vocab.txt":   "广\n州\n",
		"pytorch_model.bin": strings.Repeat("w", 4096),
	}
	srv, _ := newFakeModelScope(t, files)
	client := NewClientWithEndpoint(srv.URL)
	cacheDir := t.TempDir()

	var mu sync.Mutex
	seen := make(map[string]bool)
	progress := func(filename string, downloaded, total int64) {
		mu.Lock()
		seen[filename] = true
		mu.Unlock()
	}

	modelDir, err := client.DownloadModel(context.Background(),
		"iic/mgeo_backbone_chinese_base", "mgeo-base", "latest", cacheDir, progress)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "mgeo-base", "latest"), modelDir)

	for path, content := range files {
		data, err := os.ReadFile(filepath.Join(modelDir, path))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
	assert.True(t, seen["config.json"])

	// The lock file is released after the download.
	_, err = os.Stat(filepath.Join(modelDir, ".download.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadModelSkipsCompleteFiles(t *testing.T) {
	files := map[string]string{"config.json": `{"model_type":"bert"}`}
	srv, fake := newFakeModelScope(t, files)
	client := NewClientWithEndpoint(srv.URL)
	cacheDir := t.TempDir()

	_, err := client.DownloadModel(context.Background(), "a/b", "b", "latest", cacheDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.downloads)

	// A file already present with the right size is not fetched again.
	_, err = client.DownloadModel(context.Background(), "a/b", "b", "latest", cacheDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.downloads)
}

func TestDownloadModelRejectsConcurrentLock(t *testing.T) {
	srv, _ := newFakeModelScope(t, map[string]string{"a.txt": "a"})
	client := NewClientWithEndpoint(srv.URL)
	cacheDir := t.TempDir()

	modelDir := filepath.Join(cacheDir, "m", "latest")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, ".download.lock"), []byte("pid=1"), 0o644))

	_, err := client.DownloadModel(context.Background(), "a/b", "m", "latest", cacheDir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}

func TestRegistryGetResolvesBothIDs(t *testing.T) {
	r := NewRegistry()

	byID := r.Get("mgeo-base")
	require.NotNil(t, byID)
	bySource := r.Get("iic/mgeo_backbone_chinese_base")
	require.NotNil(t, bySource)
	assert.Equal(t, byID.ID, bySource.ID)

	assert.Nil(t, r.Get("unknown"))
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&ModelSpec{ID: "x"}))
	assert.NoError(t, r.Register(&ModelSpec{ID: "x", SourceID: "a/b"}))
}

func TestListLocal(t *testing.T) {
	modelsDir := t.TempDir()

	ckpt := filepath.Join(modelsDir, "mgeo-base", "latest")
	require.NoError(t, os.MkdirAll(ckpt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ckpt, "model.bin"), []byte("weights"), 0o644))

	// Empty tag directories are skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(modelsDir, "other", "v1"), 0o755))

	// Directories with a download in progress are skipped.
	partial := filepath.Join(modelsDir, "partial", "latest")
	require.NoError(t, os.MkdirAll(partial, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(partial, "model.bin"), []byte("half"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(partial, ".download.lock"), []byte("pid=1"), 0o644))

	local, err := ListLocal(modelsDir)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "mgeo-base", local[0].ID)
	assert.Equal(t, "latest", local[0].Tag)
	assert.Equal(t, int64(len("weights")), local[0].Size)

	missing, err := ListLocal(filepath.Join(modelsDir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
