package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultEndpoint is the ModelScope API endpoint.
	DefaultEndpoint = "https://www.modelscope.cn"

	// downloadChunkSize is the copy buffer size for checkpoint downloads.
	downloadChunkSize = 8 * 1024 * 1024

	// lockFileName marks a model directory with a download in progress.
	lockFileName = ".download.lock"
)

// ProgressFunc receives download progress: file name, bytes downloaded so
// far, and total bytes (zero when unknown).
type ProgressFunc func(filename string, downloaded, total int64)

// Client downloads model checkpoints from ModelScope without any Python
// tooling, by talking to the repository HTTP API directly.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a ModelScope client with default settings. No request
// timeout is set because checkpoint downloads are long-lived; cancellation
// goes through the context.
func NewClient() *Client {
	return &Client{
		endpoint:  DefaultEndpoint,
		userAgent: "mgeo/1.0 (Go)",
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewClientWithEndpoint creates a client against a custom endpoint, mainly
// for tests.
func NewClientWithEndpoint(endpoint string) *Client {
	c := NewClient()
	c.endpoint = endpoint
	return c
}

// RepoFile is one file in a model repository.
type RepoFile struct {
	Path   string
	Size   int64
	Sha256 string
}

// DownloadModel downloads a complete model repository into
// cacheDir/{modelID}/{tag} and returns that directory.
//
// Files already present with the expected size are skipped, interrupted
// downloads resume from the partial .tmp file, and files with a published
// SHA256 are verified after download. A lock file in the target directory
// rejects concurrent downloads of the same model.
func (c *Client) DownloadModel(ctx context.Context, sourceID, modelID, tag, cacheDir string, progress ProgressFunc) (string, error) {
	modelDir := filepath.Join(cacheDir, modelID, tag)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	lockPath := filepath.Join(modelDir, lockFileName)
	if err := acquireLock(lockPath); err != nil {
		return "", err
	}
	defer os.Remove(lockPath)

	files, err := c.ListRepoFiles(ctx, sourceID)
	if err != nil {
		return "", fmt.Errorf("failed to list model files: %w", err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		localPath := filepath.Join(modelDir, file.Path)
		if err := c.downloadFile(ctx, sourceID, file, localPath, progress); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("failed to download %s: %w", file.Path, err)
		}

		if file.Sha256 != "" {
			if progress != nil {
				progress(fmt.Sprintf("Verifying %s", file.Path), 0, 0)
			}
			if err := verifySha256(localPath, file.Sha256); err != nil {
				return "", fmt.Errorf("integrity check failed for %s: %w", file.Path, err)
			}
		}
	}

	return modelDir, nil
}

// ListRepoFiles queries the repository file listing, excluding directories.
func (c *Client) ListRepoFiles(ctx context.Context, sourceID string) ([]RepoFile, error) {
	listURL := fmt.Sprintf("%s/api/v1/models/%s/repo/files?Revision=master&Recursive=True", c.endpoint, sourceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ModelScope API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			Files []struct {
				Path   string `json:"Path"`
				Size   int64  `json:"Size"`
				Sha256 string `json:"Sha256"`
				Type   string `json:"Type"`
			} `json:"Files"`
		} `json:"Data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse file listing: %w", err)
	}

	files := make([]RepoFile, 0, len(result.Data.Files))
	for _, f := range result.Data.Files {
		if f.Type == "tree" {
			continue
		}
		files = append(files, RepoFile{Path: f.Path, Size: f.Size, Sha256: f.Sha256})
	}
	return files, nil
}

// downloadFile fetches one repository file with resume support.
func (c *Client) downloadFile(ctx context.Context, sourceID string, file RepoFile, localPath string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}

	if stat, err := os.Stat(localPath); err == nil && stat.Size() == file.Size {
		if progress != nil {
			progress(file.Path, file.Size, file.Size)
		}
		return nil
	}
	if progress != nil {
		progress(file.Path, 0, file.Size)
	}

	tmpPath := localPath + ".tmp"
	var resumeFrom int64
	if stat, err := os.Stat(tmpPath); err == nil {
		if stat.Size() < file.Size {
			resumeFrom = stat.Size()
		} else {
			os.Remove(tmpPath)
		}
	}

	downloadURL := fmt.Sprintf("%s/api/v1/models/%s/repo?Revision=master&FilePath=%s",
		c.endpoint, sourceID, url.QueryEscape(file.Path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("download returned status %d: %s", resp.StatusCode, string(body))
	}
	// Server ignored the Range header; start over.
	if resumeFrom > 0 && resp.StatusCode == http.StatusOK {
		os.Remove(tmpPath)
		resumeFrom = 0
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resumeFrom > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(tmpPath, flags, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	downloaded := resumeFrom
	buf := make([]byte, downloadChunkSize)
	lastReport := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			downloaded += int64(n)
			if progress != nil && time.Since(lastReport) > 500*time.Millisecond {
				progress(file.Path, downloaded, file.Size)
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if progress != nil {
		progress(file.Path, downloaded, file.Size)
	}
	if file.Size > 0 && downloaded != file.Size {
		return fmt.Errorf("download incomplete: expected %d bytes, got %d", file.Size, downloaded)
	}

	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, localPath)
}

// acquireLock creates a lock file recording the pid, failing if one exists.
func acquireLock(lockPath string) error {
	if data, err := os.ReadFile(lockPath); err == nil {
		return fmt.Errorf("model download already in progress (%s); remove %s if stale",
			string(data), lockPath)
	}
	info := fmt.Sprintf("pid=%d,time=%s", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(info), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// verifySha256 checks a downloaded file against its published hash and
// deletes the file on mismatch.
func verifySha256(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if actual != expected {
		os.Remove(path)
		return fmt.Errorf("expected %s, got %s (file deleted)", expected, actual)
	}
	return nil
}
