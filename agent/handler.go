package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/logutil"
	"github.com/badrusalam11/whatsapp-bot/internal/metrics"
	"github.com/badrusalam11/whatsapp-bot/internal/outputfmt"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

const DefaultTriggerPrefix = "#TanyaBadru"

type InboundMessage struct {
	ID         string
	ChatID     string
	SenderID   string
	Text       string
	ReceivedAt time.Time
}

// Interpretation is what the model said about one prompt.
type Interpretation struct {
	Reply      string
	Intent     Intent
	Recognized bool
	DecodeErr  error
}

type HandlerOptions struct {
	LLM           llm.Client
	Model         string
	Messenger     Messenger
	Dispatcher    *Dispatcher
	Prompt        PromptBuilder
	TriggerPrefix string
	Logger        *slog.Logger
}

type Handler struct {
	llm        llm.Client
	model      string
	messenger  Messenger
	dispatcher *Dispatcher
	prompt     PromptBuilder
	prefix     string
	logger     *slog.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.LLM == nil {
		return nil, fmt.Errorf("handler: llm client is required")
	}
	if opts.Messenger == nil {
		return nil, fmt.Errorf("handler: messenger is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("handler: dispatcher is required")
	}
	prefix := opts.TriggerPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultTriggerPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		llm:        opts.LLM,
		model:      strings.TrimSpace(opts.Model),
		messenger:  opts.Messenger,
		dispatcher: opts.Dispatcher,
		prompt:     opts.Prompt,
		prefix:     prefix,
		logger:     logger,
	}, nil
}

// Triggered reports whether text is addressed to the bot.
func (h *Handler) Triggered(text string) bool {
	return strings.HasPrefix(text, h.prefix)
}

// HandleMessage runs one inbound message through the AI command loop.
// Messages without the trigger prefix are ignored. A model failure is reported
// to the sender and is not returned; the returned error is a gateway failure.
func (h *Handler) HandleMessage(ctx context.Context, msg InboundMessage) error {
	if !h.Triggered(msg.Text) {
		return nil
	}
	logger := h.logger.With("chat_id", msg.ChatID, "message_id", msg.ID)
	userPrompt := strings.TrimSpace(strings.TrimPrefix(msg.Text, h.prefix))

	if err := h.messenger.SendText(ctx, msg.ChatID, msgProcessing); err != nil {
		return fmt.Errorf("send processing notice: %w", err)
	}

	in, err := h.Interpret(ctx, userPrompt)
	if err != nil {
		logger.Error("ai_call_failed", "error", err.Error())
		text := msgAIErrorPrefix + outputfmt.FormatErrorForDisplay(err)
		if sendErr := h.messenger.SendText(ctx, msg.ChatID, text); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return nil
	}
	if in.DecodeErr != nil {
		logger.Warn("intent_decode_failed", "error", in.DecodeErr.Error(), "reply", logutil.Truncate(in.Reply, 500))
	}

	var outcome Outcome
	if in.Recognized {
		logger.Info("intent_dispatch", "intent", in.Intent.String())
		outcome, err = h.dispatcher.Dispatch(ctx, msg.ChatID, in.Intent)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", in.Intent.Action, err)
		}
	}

	if outcome.Handled || outcome.Failed {
		return nil
	}
	if err := h.messenger.SendText(ctx, msg.ChatID, in.Reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// Interpret builds the system prompt, calls the model and parses its reply.
// It has no side effects on the chat.
func (h *Handler) Interpret(ctx context.Context, userPrompt string) (Interpretation, error) {
	system, err := h.prompt.Build()
	if err != nil {
		return Interpretation{}, err
	}

	started := time.Now()
	res, err := h.llm.Generate(ctx, llm.Request{
		Model:  h.model,
		System: system,
		Prompt: userPrompt,
	})
	metrics.LLMDuration.WithLabelValues(metrics.Outcome(err)).Observe(time.Since(started).Seconds())
	if err != nil {
		return Interpretation{}, err
	}

	reply := strings.TrimSpace(res.Text)
	h.logger.Debug("ai_response", "model", res.Model, "tokens", res.Usage.TotalTokens, "duration", res.Duration.String(), "reply", logutil.Truncate(reply, 2000))

	intent, ok, decodeErr := ParseIntent(reply)
	switch {
	case decodeErr != nil:
		metrics.Intents.WithLabelValues("decode_error").Inc()
	case ok:
		metrics.Intents.WithLabelValues(string(intent.Action)).Inc()
	default:
		metrics.Intents.WithLabelValues("none").Inc()
	}
	return Interpretation{
		Reply:      reply,
		Intent:     intent,
		Recognized: ok,
		DecodeErr:  decodeErr,
	}, nil
}

// Wait blocks until background work started by dispatch has finished.
func (h *Handler) Wait() {
	h.dispatcher.Wait()
}
