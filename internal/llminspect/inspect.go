// Package llminspect dumps model traffic to markdown files for prompt debugging.
package llminspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/badrusalam11/whatsapp-bot/llm"
)

type Options struct {
	Mode            string
	TimestampFormat string
	DumpDir         string
}

type PromptInspector struct {
	mu           sync.Mutex
	file         *os.File
	startedAt    time.Time
	mode         string
	requestCount int
}

func NewPromptInspector(opts Options) (*PromptInspector, error) {
	startedAt := time.Now()
	dumpDir := strings.TrimSpace(opts.DumpDir)
	if dumpDir == "" {
		dumpDir = "dump"
	}
	if err := os.MkdirAll(dumpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(dumpDir, buildFilename("prompt", opts.Mode, startedAt, opts.TimestampFormat))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open prompt dump file: %w", err)
	}
	inspector := &PromptInspector{
		file:      file,
		startedAt: startedAt,
		mode:      strings.TrimSpace(opts.Mode),
	}
	if err := inspector.writeHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return inspector, nil
}

func (p *PromptInspector) Path() string {
	if p == nil || p.file == nil {
		return ""
	}
	return p.file.Name()
}

func (p *PromptInspector) Close() error {
	if p == nil || p.file == nil {
		return nil
	}
	return p.file.Close()
}

// Dump appends one request/response exchange. err is the generation error, if any.
func (p *PromptInspector) Dump(req llm.Request, res llm.Result, err error) error {
	if p == nil || p.file == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requestCount++
	var b strings.Builder
	fmt.Fprintf(&b, "\n## Request #%d\n\n", p.requestCount)
	fmt.Fprintf(&b, "model: %s\n\n", req.Model)
	writeBlock(&b, "System", req.System)
	writeBlock(&b, "Prompt", req.Prompt)
	if err != nil {
		writeBlock(&b, "Error", err.Error())
	} else {
		writeBlock(&b, "Reply", res.Text)
		fmt.Fprintf(&b, "tokens: %d in / %d out, duration: %s\n", res.Usage.InputTokens, res.Usage.OutputTokens, res.Duration)
	}

	if _, err := p.file.WriteString(b.String()); err != nil {
		return err
	}
	return p.file.Sync()
}

func writeBlock(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "### %s\n\n", title)
	b.WriteString("```\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
}

func (p *PromptInspector) writeHeader() error {
	header := fmt.Sprintf(
		"---\nmode: %s\ndatetime: %s\n---\n\n",
		strconv.Quote(p.mode),
		strconv.Quote(p.startedAt.Format(time.RFC3339)),
	)
	if _, err := p.file.WriteString(header); err != nil {
		return err
	}
	return p.file.Sync()
}

// PromptClient records every Generate call of Base.
type PromptClient struct {
	Base      llm.Client
	Inspector *PromptInspector
}

func (c *PromptClient) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil || c.Base == nil {
		return llm.Result{}, fmt.Errorf("inspect client is not initialized")
	}
	res, err := c.Base.Generate(ctx, req)
	if c.Inspector != nil {
		if dumpErr := c.Inspector.Dump(req, res, err); dumpErr != nil && err == nil {
			return res, dumpErr
		}
	}
	return res, err
}

func buildFilename(kind string, mode string, t time.Time, tsFormat string) string {
	mode = strings.TrimSpace(mode)
	if tsFormat == "" {
		tsFormat = "20060102_1504"
	}
	ts := t.Format(tsFormat)
	if mode == "" {
		return fmt.Sprintf("%s_%s.md", kind, ts)
	}
	return fmt.Sprintf("%s_%s_%s.md", kind, mode, ts)
}
