package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/logutil"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

const DefaultBaseURL = "http://127.0.0.1:11434"

// Client talks to the Ollama /api/generate endpoint in non-streaming mode.
type Client struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   strings.TrimSpace(model),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string  `json:"model"`
	Response        *string `json:"response"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil || c.HTTP == nil {
		return llm.Result{}, fmt.Errorf("ollama client is not initialized")
	}
	start := time.Now()
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.Model
	}
	if model == "" {
		return llm.Result{}, fmt.Errorf("ollama: model is required")
	}

	b, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  false,
		Options: req.Parameters,
	})
	if err != nil {
		return llm.Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(b))
	if err != nil {
		return llm.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Result{}, err
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return llm.Result{}, fmt.Errorf("ollama http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return llm.Result{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return llm.Result{}, fmt.Errorf("ollama http %d: %s", resp.StatusCode, out.Error)
		}
		return llm.Result{}, fmt.Errorf("ollama http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out.Response == nil {
		return llm.Result{}, fmt.Errorf("ollama: response field missing: %s", logutil.Truncate(strings.TrimSpace(string(raw)), 200))
	}

	return llm.Result{
		Text:  *out.Response,
		Model: out.Model,
		Usage: llm.Usage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
			TotalTokens:  out.PromptEvalCount + out.EvalCount,
		},
		Duration: time.Since(start),
	}, nil
}
