package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/badrusalam11/whatsapp-bot/internal/httpapi"
	"github.com/badrusalam11/whatsapp-bot/internal/llmutil"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

// Gateway is a connected WhatsApp session.
type Gateway interface {
	httpapi.Gateway
	Connect(ctx context.Context) error
	Close() error
}

type GatewayCallbacks struct {
	OnMessage   func(waclient.IncomingMessage)
	OnConnected func()
}

type Dependencies struct {
	Logger          func() (*slog.Logger, error)
	LLMConfig       func() llmutil.ClientConfig
	CreateLLMClient func(cfg llmutil.ClientConfig) (llm.Client, error)
	OpenGateway     func(ctx context.Context, logger *slog.Logger, cb GatewayCallbacks) (Gateway, error)
}

func loggerFromDeps(d Dependencies) (*slog.Logger, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("Logger dependency missing")
	}
	return d.Logger()
}

func llmConfigFromDeps(d Dependencies) llmutil.ClientConfig {
	if d.LLMConfig == nil {
		return llmutil.ClientConfig{}
	}
	return d.LLMConfig()
}

func llmClientFromDeps(d Dependencies, cfg llmutil.ClientConfig) (llm.Client, error) {
	if d.CreateLLMClient == nil {
		return llmutil.ClientFromConfig(cfg)
	}
	return d.CreateLLMClient(cfg)
}

func openGatewayFromDeps(ctx context.Context, d Dependencies, logger *slog.Logger, cb GatewayCallbacks) (Gateway, error) {
	if d.OpenGateway == nil {
		return nil, fmt.Errorf("OpenGateway dependency missing")
	}
	return d.OpenGateway(ctx, logger, cb)
}
