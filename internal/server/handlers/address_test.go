package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/models"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// fakeInferenceBackend serves per-character tokens and tags for known
// addresses, mirroring the model runtime contract.
func fakeInferenceBackend(t *testing.T, tags map[string][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/inference":
			var req struct {
				Address string `json:"address"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			nerTags, ok := tags[req.Address]
			if !ok {
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "address not recognized",
				})
				return
			}
			tokens := make([]string, 0, len(nerTags))
			for _, ch := range req.Address {
				tokens = append(tokens, string(ch))
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"tokens":   tokens,
					"ner_tags": nerTags,
					"text":     req.Address,
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, backendURL string) *Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.Backend.URL = backendURL

	manager, err := trainer.NewManager(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	return NewHandler(cfg, models.NewRegistry(), manager, "test", "now")
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestStandardize(t *testing.T) {
	backend := fakeInferenceBackend(t, map[string][]string{
		"广东省广州市": {"B-prov", "I-prov", "E-prov", "B-city", "I-city", "E-city"},
	})
	h := newTestHandler(t, backend.URL)

	rec := postJSON(t, h.Standardize, "/api/address/standardize",
		api.StandardizeRequest{Address: "广东省广州市"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.StandardizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.EntityResult)
	assert.Equal(t, "广东省", resp.EntityResult.Entities["prov"])
	assert.Equal(t, "广州市", resp.EntityResult.Entities["city"])
	require.NotNil(t, resp.LevelResult)
	assert.Equal(t, "广东省", resp.LevelResult.Level1)
	assert.Equal(t, "广州市", resp.LevelResult.Level2)

	// The level breakdown keeps its documented wire key.
	assert.Contains(t, rec.Body.String(), `"level11_result"`)
}

func TestStandardizeBackendRejection(t *testing.T) {
	backend := fakeInferenceBackend(t, nil)
	h := newTestHandler(t, backend.URL)

	rec := postJSON(t, h.Standardize, "/api/address/standardize",
		api.StandardizeRequest{Address: "未知地址"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.StandardizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "address not recognized")
}

func TestStandardizeValidation(t *testing.T) {
	h := newTestHandler(t, "http://localhost:1")

	rec := postJSON(t, h.Standardize, "/api/address/standardize",
		api.StandardizeRequest{Address: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/address/standardize", nil)
	rec2 := httptest.NewRecorder()
	h.Standardize(rec2, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec2.Code)
}

func TestBatchStandardize(t *testing.T) {
	backend := fakeInferenceBackend(t, map[string][]string{
		"广州市": {"B-city", "I-city", "E-city"},
		"深圳市": {"B-city", "I-city", "E-city"},
	})
	h := newTestHandler(t, backend.URL)

	rec := postJSON(t, h.BatchStandardize, "/api/address/batch",
		api.BatchStandardizeRequest{Addresses: []string{"广州市", "无效地址", "深圳市"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.BatchStandardizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Success)
	require.Len(t, resp.Results, 3)

	// Results keep the input order.
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "广州市", resp.Results[0].LevelResult.Level2)
	assert.False(t, resp.Results[1].Success)
	assert.True(t, resp.Results[2].Success)
}

func TestBatchStandardizeEmptyList(t *testing.T) {
	h := newTestHandler(t, "http://localhost:1")

	rec := postJSON(t, h.BatchStandardize, "/api/address/batch",
		api.BatchStandardizeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	backend := fakeInferenceBackend(t, nil)
	h := newTestHandler(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, backend.URL, resp.BackendURL)
	assert.True(t, resp.BackendReady)
}

func TestHealthBackendDown(t *testing.T) {
	h := newTestHandler(t, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.BackendReady)
}

func TestVersion(t *testing.T) {
	h := newTestHandler(t, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	h.Version(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
}
