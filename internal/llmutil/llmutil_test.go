package llmutil

import (
	"testing"

	"github.com/badrusalam11/whatsapp-bot/providers/ollama"
	"github.com/badrusalam11/whatsapp-bot/providers/openai"
)

func TestClientFromConfigSelectsProvider(t *testing.T) {
	c, err := ClientFromConfig(ClientConfig{Model: "llama3"})
	if err != nil {
		t.Fatalf("ClientFromConfig() error = %v", err)
	}
	if _, ok := c.(*ollama.Client); !ok {
		t.Fatalf("empty provider should default to ollama, got %T", c)
	}

	c, err = ClientFromConfig(ClientConfig{Provider: " OpenAI ", Model: "gpt"})
	if err != nil {
		t.Fatalf("ClientFromConfig() error = %v", err)
	}
	if _, ok := c.(*openai.Client); !ok {
		t.Fatalf("expected *openai.Client, got %T", c)
	}
}

func TestClientFromConfigUnknownProvider(t *testing.T) {
	if _, err := ClientFromConfig(ClientConfig{Provider: "bard"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
