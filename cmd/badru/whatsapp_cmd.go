package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	whatsappruntime "github.com/badrusalam11/whatsapp-bot/internal/channelruntime/whatsapp"
	"github.com/badrusalam11/whatsapp-bot/internal/llmutil"
	"github.com/badrusalam11/whatsapp-bot/internal/logutil"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

func newWhatsAppCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatsapp",
		Short: "Run the WhatsApp bot and its REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			var closeInspect func() error
			defer func() {
				if closeInspect != nil {
					_ = closeInspect()
				}
			}()
			storeDSN := strings.TrimSpace(flagOrViperString(cmd, "store-dsn", "whatsapp.store_dsn"))
			deps := whatsappruntime.Dependencies{
				Logger:          func() (*slog.Logger, error) { return logger, nil },
				LLMConfig:       llmutil.ConfigFromViper,
				CreateLLMClient: func(cfg llmutil.ClientConfig) (llm.Client, error) {
					client, err := llmutil.ClientFromConfig(cfg)
					if err != nil {
						return nil, err
					}
					client, closeInspect, err = withPromptInspect(cmd, "whatsapp", client)
					return client, err
				},
				OpenGateway: func(ctx context.Context, logger *slog.Logger, cb whatsappruntime.GatewayCallbacks) (whatsappruntime.Gateway, error) {
					client, err := waclient.Open(ctx, waclient.Options{
						StoreDSN:    storeDSN,
						Logger:      logger,
						QRWriter:    cmd.OutOrStdout(),
						OnMessage:   cb.OnMessage,
						OnConnected: cb.OnConnected,
					})
					if err != nil {
						return nil, err
					}
					return client, nil
				},
			}

			listen := ""
			if !flagOrViperBool(cmd, "no-api", "server.disabled") {
				bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
				if bind == "" {
					bind = "127.0.0.1"
				}
				port := flagOrViperInt(cmd, "server-port", "server.port")
				if port <= 0 {
					port = 3001
				}
				listen = net.JoinHostPort(bind, strconv.Itoa(port))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return whatsappruntime.Run(ctx, deps, whatsappruntime.RunOptions{
				TriggerPrefix:            flagOrViperString(cmd, "trigger-prefix", "whatsapp.trigger_prefix"),
				Persona:                  viper.GetString("whatsapp.persona"),
				Timezone:                 flagOrViperString(cmd, "timezone", "whatsapp.timezone"),
				TaskTimeout:              flagOrViperDuration(cmd, "task-timeout", "whatsapp.task_timeout"),
				MaxConcurrency:           flagOrViperInt(cmd, "max-concurrency", "whatsapp.max_concurrency"),
				AutomationBaseURL:        flagOrViperString(cmd, "automation-url", "automation.base_url"),
				AutomationRequestTimeout: viper.GetDuration("automation.request_timeout"),
				RunTimeout:               viper.GetDuration("automation.run_timeout"),
				ServerListen:             listen,
				ServerAuthToken:          flagOrViperString(cmd, "server-auth-token", "server.auth_token"),
				MaxUploadBytes:           flagOrViperInt64(cmd, "server-max-upload-bytes", "server.max_upload_bytes"),
			})
		},
	}

	cmd.Flags().String("trigger-prefix", "#TanyaBadru", "Messages must start with this prefix to reach the assistant.")
	cmd.Flags().String("timezone", "Asia/Jakarta", "Civil timezone used for today's date and run_at times.")
	cmd.Flags().Duration("task-timeout", 0, "Max time to handle one inbound message.")
	cmd.Flags().Int("max-concurrency", 4, "Max chats handled at the same time.")
	cmd.Flags().String("automation-url", "", "Base URL of the test automation backend.")
	cmd.Flags().String("store-dsn", "", "SQLite DSN for the WhatsApp session store.")
	cmd.Flags().String("server-bind", "127.0.0.1", "REST API bind address.")
	cmd.Flags().Int("server-port", 3001, "REST API port.")
	cmd.Flags().String("server-auth-token", "", "Bearer token required for all endpoints except / and /health.")
	cmd.Flags().Int64("server-max-upload-bytes", 32<<20, "Max multipart upload size for /send-file.")
	cmd.Flags().Bool("no-api", false, "Do not start the REST API.")
	addInspectFlags(cmd)

	return cmd
}
