package llm

import (
	"context"
	"time"
)

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Model    string
	Usage    Usage
	Duration time.Duration
}

// Request is a single-turn generation: one system instruction and one user prompt.
type Request struct {
	Model      string
	System     string
	Prompt     string
	Parameters map[string]any
}

type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}
