package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/badrusalam11/whatsapp-bot/agent"
	"github.com/badrusalam11/whatsapp-bot/internal/llmutil"
	"github.com/badrusalam11/whatsapp-bot/internal/logutil"
	"github.com/badrusalam11/whatsapp-bot/internal/suitecache"
)

// consoleMessenger prints chat replies instead of sending them.
type consoleMessenger struct {
	mu sync.Mutex
	w  io.Writer
}

func (m *consoleMessenger) SendText(_ context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := fmt.Fprintf(m.w, "[%s] %s\n", chatID, text)
	return err
}

type askOutput struct {
	Reply      string        `json:"reply"`
	Recognized bool          `json:"recognized"`
	Intent     *agent.Intent `json:"intent,omitempty"`
	DecodeErr  string        `json:"decode_error,omitempty"`
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one prompt through the assistant and print what it understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			llmCfg := llmutil.ConfigFromViper()
			client, err := llmutil.ClientFromConfig(llmCfg)
			if err != nil {
				return err
			}
			client, closeInspect, err := withPromptInspect(cmd, "ask", client)
			if err != nil {
				return err
			}
			defer closeInspect()

			backend := automationFromViper(cmd)
			suites := suitecache.New(backend, logger)
			refreshCtx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("automation.request_timeout"))
			_ = suites.Refresh(refreshCtx)
			cancel()

			out := cmd.OutOrStdout()
			messenger := &consoleMessenger{w: out}
			location := agent.LoadLocation(viper.GetString("whatsapp.timezone"))
			dispatcher, err := agent.NewDispatcher(agent.DispatcherOptions{
				Messenger:  messenger,
				Backend:    backend,
				Directory:  suites,
				Logger:     logger,
				RunTimeout: viper.GetDuration("automation.run_timeout"),
				Location:   location,
			})
			if err != nil {
				return err
			}
			handler, err := agent.NewHandler(agent.HandlerOptions{
				LLM:        client,
				Model:      llmCfg.Model,
				Messenger:  messenger,
				Dispatcher: dispatcher,
				Prompt: agent.PromptBuilder{
					Persona:   viper.GetString("whatsapp.persona"),
					Directory: suites,
					Location:  location,
				},
				TriggerPrefix: viper.GetString("whatsapp.trigger_prefix"),
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			ctx, cancelAsk := context.WithTimeout(cmd.Context(), viper.GetDuration("whatsapp.task_timeout"))
			defer cancelAsk()
			prompt := strings.TrimSpace(strings.Join(args, " "))

			if chatID := strings.TrimSpace(flagOrViperString(cmd, "dispatch-to", "")); chatID != "" {
				text := viper.GetString("whatsapp.trigger_prefix") + " " + prompt
				err := handler.HandleMessage(ctx, agent.InboundMessage{ChatID: chatID, Text: text})
				handler.Wait()
				return err
			}

			in, err := handler.Interpret(ctx, prompt)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return writeAskOutput(out, in, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print the interpretation as JSON.")
	cmd.Flags().String("dispatch-to", "", "Run the full command loop for this chat id, printing replies instead of sending them.")
	cmd.Flags().String("automation-url", "", "Base URL of the test automation backend.")
	addInspectFlags(cmd)
	return cmd
}

func writeAskOutput(w io.Writer, in agent.Interpretation, asJSON bool) error {
	out := askOutput{Reply: in.Reply, Recognized: in.Recognized}
	if in.Recognized {
		intent := in.Intent
		out.Intent = &intent
	}
	if in.DecodeErr != nil {
		out.DecodeErr = in.DecodeErr.Error()
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	intent := "none"
	if out.Intent != nil {
		intent = out.Intent.String()
	}
	if _, err := fmt.Fprintf(w, "intent: %s\n", intent); err != nil {
		return err
	}
	if out.DecodeErr != "" {
		if _, err := fmt.Fprintf(w, "decode error: %s\n", out.DecodeErr); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "reply:\n%s\n", out.Reply)
	return err
}
