package whatsapp

import (
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/agent"
	"github.com/badrusalam11/whatsapp-bot/internal/automation"
)

type RunOptions struct {
	TriggerPrefix            string
	Persona                  string
	Timezone                 string
	TaskTimeout              time.Duration
	MaxConcurrency           int
	AutomationBaseURL        string
	AutomationRequestTimeout time.Duration
	RunTimeout               time.Duration
	// ServerListen is the REST API address; empty disables the API.
	ServerListen    string
	ServerAuthToken string
	MaxUploadBytes  int64
}

func normalizeRunOptions(opts RunOptions) RunOptions {
	opts.TriggerPrefix = strings.TrimSpace(opts.TriggerPrefix)
	opts.Persona = strings.TrimSpace(opts.Persona)
	opts.Timezone = strings.TrimSpace(opts.Timezone)
	opts.AutomationBaseURL = strings.TrimSpace(opts.AutomationBaseURL)
	opts.ServerListen = strings.TrimSpace(opts.ServerListen)
	opts.ServerAuthToken = strings.TrimSpace(opts.ServerAuthToken)

	if opts.TriggerPrefix == "" {
		opts.TriggerPrefix = agent.DefaultTriggerPrefix
	}
	if opts.Persona == "" {
		opts.Persona = agent.DefaultPersona
	}
	if opts.Timezone == "" {
		opts.Timezone = "Asia/Jakarta"
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.AutomationBaseURL == "" {
		opts.AutomationBaseURL = automation.DefaultBaseURL
	}
	if opts.AutomationRequestTimeout <= 0 {
		opts.AutomationRequestTimeout = 30 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return opts
}
