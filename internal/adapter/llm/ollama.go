package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jotx/internal/domain"
)

// generateTimeout bounds a single /api/generate round trip.
const generateTimeout = 30 * time.Second

// OllamaOption configures the Ollama LLM client.
type OllamaOption func(*OllamaClient)

// WithModel sets the generation model.
func WithModel(model string) OllamaOption {
	return func(c *OllamaClient) { c.model = model }
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) OllamaOption {
	return func(c *OllamaClient) { c.baseURL = url }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) OllamaOption {
	return func(c *OllamaClient) { c.temperature = t }
}

// WithMaxTokens sets num_predict, Ollama's generation length cap.
func WithMaxTokens(n int) OllamaOption {
	return func(c *OllamaClient) { c.maxTokens = n }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(c *OllamaClient) { c.client = client }
}

// OllamaClient implements domain.LLMClient against Ollama's native
// /api/generate endpoint (not the OpenAI-compatible /v1 wrapper): a
// single-shot, non-streaming completion with model/prompt/options in,
// a bare response string out.
type OllamaClient struct {
	model       string
	baseURL     string
	temperature float32
	maxTokens   int
	client      *http.Client
}

// NewOllamaClient creates an Ollama LLM client. baseURL defaults to
// http://localhost:11434, model to "llama2", matching the defaults a
// fresh install ships with before any config file is written.
func NewOllamaClient(opts ...OllamaOption) *OllamaClient {
	c := &OllamaClient{
		model:       "llama2",
		baseURL:     "http://localhost:11434",
		temperature: 0.7,
		maxTokens:   500,
		client:      &http.Client{Timeout: generateTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// generate issues one non-streaming /api/generate call.
func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.temperature,
			NumPredict:  c.maxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.WrapOp("llm.marshal_request", domain.KindInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", domain.WrapOp("llm.new_request", domain.KindInvalidInput, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", domain.WrapOp("llm.http_request", domain.KindUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 10*1024*1024))
	if err != nil {
		return "", domain.WrapOp("llm.read_response", domain.KindUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", domain.NewError("llm.api_error", domain.KindUnavailable,
			fmt.Sprintf("status %d: %s", httpResp.StatusCode, string(respBody)))
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", domain.WrapOp("llm.unmarshal_response", domain.KindUnavailable, err)
	}
	return genResp.Response, nil
}

// Answer implements domain.LLMClient.
func (c *OllamaClient) Answer(ctx context.Context, query string) (string, error) {
	return c.generate(ctx, buildAnswerPrompt(query))
}

// Interpret implements domain.LLMClient.
func (c *OllamaClient) Interpret(ctx context.Context, query, directory string, samples []domain.Entry) (domain.QueryPlan, error) {
	raw, err := c.generate(ctx, buildInterpretPrompt(query, directory, samples))
	if err != nil {
		return domain.QueryPlan{}, err
	}

	cleaned := extractJSONObject(stripCodeFence(raw))
	var wire interpretResponse
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return domain.QueryPlan{}, domain.NewError("llm.interpret_parse", domain.KindExternal,
			fmt.Sprintf("invalid plan JSON: %v (response: %s)", err, cleaned))
	}
	return wire.toPlan(), nil
}

// ModelName implements domain.LLMClient.
func (c *OllamaClient) ModelName() string { return c.model }

// stripCodeFence removes a leading/trailing markdown code fence, which
// models commonly wrap structured JSON responses in despite being told
// not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject slices s from its first '{' to its last '}', dropping
// any prose a model wraps the plan in despite being told to emit JSON
// only (e.g. "Sure, here's the plan: {...} hope that helps!"). s is
// returned unchanged if it contains no '{'.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}
	end := strings.LastIndexByte(s, '}')
	if end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

var _ domain.LLMClient = (*OllamaClient)(nil)

func buildAnswerPrompt(query string) string {
	return fmt.Sprintf(`You are a helpful command-line assistant. Answer this question concisely in 1-2 sentences.

Question: %s

Answer:`, query)
}

func buildInterpretPrompt(query, directory string, samples []domain.Entry) string {
	var exemplars strings.Builder
	for i, e := range samples {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&exemplars, "- [%s] %s (dir=%s)\n", e.Kind, e.Content, e.WorkingDir)
	}

	return fmt.Sprintf(`You are a query interpreter for a personal digital-memory search tool.

Database schema:
- kind: shell, clipboard
- timestamp: unix timestamp
- working_dir, git_repo, git_branch
- content: the captured command or clipboard text

Recent entries for reference:
%s
User query: %q
Directory the query was issued from: %q

Analyze the query and output ONLY a valid JSON object (no markdown, no explanation):
{
  "keywords": ["word1", "word2"],
  "kind": "shell" | "clipboard" | null,
  "time_range": "today" | "yesterday" | "last_week" | "last_month" | null,
  "filters": {
    "working_dir": null,
    "git_repo": null,
    "git_branch": null
  },
  "use_semantic": true
}`, exemplars.String(), query, directory)
}

// interpretResponse is the wire shape the model is prompted to emit;
// translated into domain.QueryPlan by toPlan.
type interpretResponse struct {
	Keywords    []string       `json:"keywords"`
	Kind        *string        `json:"kind"`
	TimeRange   *string        `json:"time_range"`
	Filters     interpretFilters `json:"filters"`
	UseSemantic bool           `json:"use_semantic"`
}

type interpretFilters struct {
	WorkingDir *string `json:"working_dir"`
	GitRepo    *string `json:"git_repo"`
	GitBranch  *string `json:"git_branch"`
}

func (r interpretResponse) toPlan() domain.QueryPlan {
	plan := domain.QueryPlan{
		Keywords:    r.Keywords,
		UseSemantic: r.UseSemantic,
	}
	if r.Kind != nil {
		plan.Kind = domain.EntryKind(*r.Kind)
	}
	if r.TimeRange != nil {
		plan.TimeRange.Kind = domain.TimeRangeKind(*r.TimeRange)
	}
	if r.Filters.WorkingDir != nil {
		plan.Filters.WorkingDir = *r.Filters.WorkingDir
	}
	if r.Filters.GitRepo != nil {
		plan.Filters.GitRepo = *r.Filters.GitRepo
	}
	if r.Filters.GitBranch != nil {
		plan.Filters.GitBranch = *r.Filters.GitBranch
	}
	return plan
}
