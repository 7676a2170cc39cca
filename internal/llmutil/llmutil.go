package llmutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/llm"
	"github.com/badrusalam11/whatsapp-bot/providers/ollama"
	"github.com/badrusalam11/whatsapp-bot/providers/openai"
	"github.com/spf13/viper"
)

type ClientConfig struct {
	Provider       string
	Endpoint       string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

func ProviderFromViper() string {
	return normalizeProvider(viper.GetString("llm.provider"))
}

func EndpointFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.endpoint"))
}

func APIKeyFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.api_key"))
}

func ModelFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.model"))
}

func ConfigFromViper() ClientConfig {
	return ClientConfig{
		Provider:       ProviderFromViper(),
		Endpoint:       EndpointFromViper(),
		APIKey:         APIKeyFromViper(),
		Model:          ModelFromViper(),
		RequestTimeout: viper.GetDuration("llm.request_timeout"),
	}
}

func ClientFromConfig(cfg ClientConfig) (llm.Client, error) {
	switch normalizeProvider(cfg.Provider) {
	case "ollama":
		return ollama.New(cfg.Endpoint, cfg.Model, cfg.RequestTimeout), nil
	case "openai", "openai_compatible":
		return openai.New(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider: %s", cfg.Provider)
	}
}

func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "ollama"
	}
	return provider
}
