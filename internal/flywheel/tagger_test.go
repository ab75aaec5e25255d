package flywheel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer answers chat completions with canned content and counts
// the requests it saw.
func fakeChatServer(t *testing.T, content func(address string) string) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 {
			t.Errorf("bad chat request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.InDelta(t, 0.1, req.Temperature, 1e-9)
		assert.Equal(t, 1000, req.MaxTokens)

		reply := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content(req.Messages[0].Content)}},
			},
		}
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestTagger(t *testing.T, baseURL string, opts ...Option) *Tagger {
	t.Helper()
	t.Setenv(envAPIKey, "test-key")
	t.Setenv(envBaseURL, baseURL)
	t.Setenv(envModel, "test-model")

	tagger, err := NewTagger(append([]Option{WithDelay(0)}, opts...)...)
	require.NoError(t, err)
	return tagger
}

func TestNewTaggerRequiresKeyAndModel(t *testing.T) {
	t.Setenv(envAPIKey, "")
	t.Setenv(envModel, "")

	_, err := NewTagger()
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIKey)

	t.Setenv(envAPIKey, "k")
	_, err = NewTagger()
	require.Error(t, err)
	assert.Contains(t, err.Error(), envModel)
}

func TestTagAddress(t *testing.T) {
	srv, _ := fakeChatServer(t, func(prompt string) string {
		assert.Contains(t, prompt, "天河区体育东路")
		return `{"district":"天河区","road":"体育东路"}`
	})
	tagger := newTestTagger(t, srv.URL)

	result := tagger.TagAddress(context.Background(), "天河区体育东路")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, map[string]string{"district": "天河区", "road": "体育东路"}, result.Entities)
}

func TestTagAddressFencedResponse(t *testing.T) {
	srv, _ := fakeChatServer(t, func(string) string {
		return "好的，解析结果如下：\n```json\n{\"poi\": [\"祈福新村\", \"C区\"]}\n```"
	})
	tagger := newTestTagger(t, srv.URL)

	result := tagger.TagAddress(context.Background(), "祈福新村C区")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "祈福新村,C区", result.Entities["poi"])
}

func TestTagAddressUnparseableResponse(t *testing.T) {
	srv, _ := fakeChatServer(t, func(string) string { return "抱歉，我无法解析这个地址。" })
	tagger := newTestTagger(t, srv.URL)

	result := tagger.TagAddress(context.Background(), "x")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "failed to parse model response")
}

func TestTagAddressAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded"}}`)
	}))
	t.Cleanup(srv.Close)
	tagger := newTestTagger(t, srv.URL)

	result := tagger.TagAddress(context.Background(), "x")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "rate limit exceeded")
}

func TestParseEntitiesBareFence(t *testing.T) {
	entities, ok := parseEntities("```\n{\"city\": \"广州市\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "广州市", entities["city"])
}

func TestParseEntitiesEmbeddedObject(t *testing.T) {
	entities, ok := parseEntities(`解析结果：{"prov": "广东省"} 以上。`)
	require.True(t, ok)
	assert.Equal(t, "广东省", entities["prov"])
}

func TestTagFile(t *testing.T) {
	srv, requests := fakeChatServer(t, func(string) string {
		return `{"city":"广州市"}`
	})
	tagger := newTestTagger(t, srv.URL)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "addresses.txt")
	outputPath := filepath.Join(dir, "tagged.jsonl")
	require.NoError(t, os.WriteFile(inputPath, []byte("广州市一\n广州市二\n\n广州市三\n"), 0o644))

	n, err := tagger.TagFile(context.Background(), inputPath, outputPath, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, *requests)

	results := readResults(t, outputPath)
	require.Len(t, results, 3)
	assert.Equal(t, "广州市一", results[0].Address)
	assert.True(t, results[0].Success)

	// A finished batch removes its checkpoint.
	_, err = os.Stat(outputPath + ".progress")
	assert.True(t, os.IsNotExist(err))
}

func TestTagFileResumesFromCheckpoint(t *testing.T) {
	srv, requests := fakeChatServer(t, func(string) string {
		return `{"city":"广州市"}`
	})
	tagger := newTestTagger(t, srv.URL)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "addresses.txt")
	outputPath := filepath.Join(dir, "tagged.jsonl")
	require.NoError(t, os.WriteFile(inputPath, []byte("a1\na2\na3\n"), 0o644))

	// Simulate an interrupted run that completed the first two addresses.
	require.NoError(t, os.WriteFile(outputPath, []byte("{\"address\":\"a1\"}\n{\"address\":\"a2\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(outputPath+".progress", []byte("2"), 0o644))

	n, err := tagger.TagFile(context.Background(), inputPath, outputPath, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, *requests)

	results := readResults(t, outputPath)
	require.Len(t, results, 3)
	assert.Equal(t, "a3", results[2].Address)
}

func TestTagFileCancellation(t *testing.T) {
	srv, _ := fakeChatServer(t, func(string) string { return `{"city":"广州市"}` })
	tagger := newTestTagger(t, srv.URL, WithDelay(time.Hour))

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "addresses.txt")
	outputPath := filepath.Join(dir, "tagged.jsonl")
	require.NoError(t, os.WriteFile(inputPath, []byte("a1\na2\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	n, err := tagger.TagFile(ctx, inputPath, outputPath, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)

	// The checkpoint survives for the next attempt.
	data, err := os.ReadFile(outputPath + ".progress")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestLoadAddressesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := `{"address":"广州市天河区"}
not json
{"other":"field"}
{"address":"广州市越秀区"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	addresses, err := LoadAddresses(path, "address")
	require.NoError(t, err)
	assert.Equal(t, []string{"广州市天河区", "广州市越秀区"}, addresses)
}

func TestLoadAddressesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	content := `["广州市", {"address": "深圳市"}, {"other": 1}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	addresses, err := LoadAddresses(path, "address")
	require.NoError(t, err)
	assert.Equal(t, []string{"广州市", "深圳市"}, addresses)
}

func readResults(t *testing.T, path string) []TagResult {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var results []TagResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r TagResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.NoError(t, scanner.Err())
	return results
}
