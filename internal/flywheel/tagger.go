// Package flywheel labels raw addresses with an OpenAI-compatible chat
// model, producing entity annotations that feed back into the training
// dataset.
package flywheel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

const (
	envAPIKey  = "OPENAI_API_KEY"
	envBaseURL = "OPENAI_API_BASE_URL"
	envModel   = "OPENAI_API_MODEL"

	defaultDelay = 500 * time.Millisecond

	// placeholder replaced with the address in the prompt template.
	addressPlaceholder = "{{address}}"
)

const defaultPrompt = `你是一个地址解析专家。请将给定的中文地址分解为以下类别标签：

# 行政区划类
prov（省级）、city（地级）、district（县级）、town（乡级）

# 道路地址类
road（道路）、roadno（门牌）

# 建筑点位类
poi（兴趣点）、subpoi（子兴趣点）、houseno（楼号）、cellno（单元）、floorno（楼层）、roomno（房间号）

# 其他类
community（社区）、village_group（村组）、devzone（开发区）、assist（辅助信息）

输出要求：
- 输出JSON格式，包含所有识别出的类别-值对
- 如果地址中没有某个类别的部分，则跳过该类别

现在，请对以下地址进行分类：
{{address}}`

// TagResult is the outcome of labeling one address.
type TagResult struct {
	Address     string            `json:"address"`
	Success     bool              `json:"success"`
	Entities    map[string]string `json:"entities"`
	Error       string            `json:"error,omitempty"`
	RawResponse string            `json:"raw_response,omitempty"`
}

// Tagger labels addresses through an OpenAI-compatible chat completion
// endpoint.
type Tagger struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	prompt     string
	delay      time.Duration
}

// Option customizes a Tagger.
type Option func(*Tagger)

// WithDelay sets the pause between consecutive API requests.
func WithDelay(d time.Duration) Option {
	return func(t *Tagger) { t.delay = d }
}

// WithPromptFile loads the prompt template from path. The template must
// contain the {{address}} placeholder.
func WithPromptFile(path string) Option {
	return func(t *Tagger) {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Prompt template %s not found, using built-in prompt", path)
			return
		}
		t.prompt = string(data)
	}
}

// WithHTTPClient overrides the HTTP client. Used in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tagger) { t.httpClient = c }
}

// NewTagger builds a tagger from OPENAI_API_KEY, OPENAI_API_BASE_URL and
// OPENAI_API_MODEL. A .env file in the working directory is loaded first
// if present.
//
// Returns:
//   - A ready tagger
//   - Error if the API key or model is missing
func NewTagger(opts ...Option) (*Tagger, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file: %v", err)
	}

	t := &Tagger{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     os.Getenv(envAPIKey),
		baseURL:    strings.TrimRight(os.Getenv(envBaseURL), "/"),
		model:      os.Getenv(envModel),
		prompt:     defaultPrompt,
		delay:      defaultDelay,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.apiKey == "" {
		return nil, fmt.Errorf("%s is not set", envAPIKey)
	}
	if t.model == "" {
		return nil, fmt.Errorf("%s is not set", envModel)
	}
	if t.baseURL == "" {
		t.baseURL = "https://api.openai.com/v1"
	}
	return t, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// TagAddress labels a single address. API and parse failures are recorded
// on the result rather than returned, so batch jobs keep going.
func (t *Tagger) TagAddress(ctx context.Context, address string) *TagResult {
	result := &TagResult{Address: address}

	raw, err := t.complete(ctx, strings.ReplaceAll(t.prompt, addressPlaceholder, address))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.RawResponse = raw

	entities, ok := parseEntities(raw)
	if !ok {
		result.Error = "failed to parse model response as JSON"
		return result
	}

	result.Success = true
	result.Entities = entities
	return result
}

// complete sends one chat completion request and returns the message text.
func (t *Tagger) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       t.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// parseEntities extracts a JSON object from a model reply, tolerating
// markdown code fences and surrounding prose. List values are joined
// with commas to match the dataset format.
func parseEntities(response string) (map[string]string, bool) {
	for _, candidate := range jsonCandidates(response) {
		var generic map[string]any
		if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
			continue
		}
		entities := make(map[string]string, len(generic))
		for key, value := range generic {
			switch v := value.(type) {
			case string:
				entities[key] = v
			case []any:
				parts := make([]string, 0, len(v))
				for _, item := range v {
					if s, ok := item.(string); ok && s != "" {
						parts = append(parts, s)
					}
				}
				if len(parts) > 0 {
					entities[key] = strings.Join(parts, ",")
				}
			case float64:
				entities[key] = strings.TrimRight(strings.TrimRight(
					fmt.Sprintf("%f", v), "0"), ".")
			}
		}
		return entities, true
	}
	return nil, false
}

// jsonCandidates yields substrings of response likely to hold the JSON
// payload, most specific first.
func jsonCandidates(response string) []string {
	candidates := []string{response}

	if idx := strings.Index(response, "```json"); idx >= 0 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidates = append(candidates, strings.TrimSpace(rest[:end]))
		}
	} else if idx := strings.Index(response, "```"); idx >= 0 {
		rest := response[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidates = append(candidates, strings.TrimSpace(rest[:end]))
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, response[start:end+1])
	}
	return candidates
}
