package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/badrusalam11/whatsapp-bot/agent"
	"github.com/badrusalam11/whatsapp-bot/internal/automation"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
	"github.com/badrusalam11/whatsapp-bot/providers/ollama"
)

func initViperDefaults() {
	// LLM
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.endpoint", ollama.DefaultBaseURL)
	viper.SetDefault("llm.model", "llama3")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)
	viper.SetDefault("llm.inspect_prompt", false)
	viper.SetDefault("llm.inspect_dir", "dump")

	// Automation backend
	viper.SetDefault("automation.base_url", automation.DefaultBaseURL)
	viper.SetDefault("automation.request_timeout", 30*time.Second)
	viper.SetDefault("automation.run_timeout", 2*time.Minute)

	// WhatsApp
	viper.SetDefault("whatsapp.trigger_prefix", agent.DefaultTriggerPrefix)
	viper.SetDefault("whatsapp.persona", agent.DefaultPersona)
	viper.SetDefault("whatsapp.store_dsn", waclient.DefaultStoreDSN)
	viper.SetDefault("whatsapp.max_concurrency", 4)
	viper.SetDefault("whatsapp.task_timeout", 5*time.Minute)
	viper.SetDefault("whatsapp.timezone", "Asia/Jakarta")

	// REST API
	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.auth_token", "")
	viper.SetDefault("server.max_upload_bytes", int64(32<<20))

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}
