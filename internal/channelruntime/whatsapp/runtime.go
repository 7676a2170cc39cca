// Package whatsapp runs the bridge: inbound WhatsApp messages go through the
// AI command loop on a per-chat worker, and the REST API shares the same
// session.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/badrusalam11/whatsapp-bot/agent"
	"github.com/badrusalam11/whatsapp-bot/internal/automation"
	runtimeworker "github.com/badrusalam11/whatsapp-bot/internal/channelruntime/worker"
	"github.com/badrusalam11/whatsapp-bot/internal/httpapi"
	"github.com/badrusalam11/whatsapp-bot/internal/metrics"
	"github.com/badrusalam11/whatsapp-bot/internal/suitecache"
	"github.com/badrusalam11/whatsapp-bot/internal/waclient"
)

type whatsappJob struct {
	ID  string
	Msg agent.InboundMessage
}

// Run blocks until ctx is cancelled or the gateway or API fails.
func Run(ctx context.Context, d Dependencies, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = normalizeRunOptions(opts)

	logger, err := loggerFromDeps(d)
	if err != nil {
		return err
	}

	llmCfg := llmConfigFromDeps(d)
	client, err := llmClientFromDeps(d, llmCfg)
	if err != nil {
		return err
	}

	backend := automation.New(&http.Client{Timeout: opts.AutomationRequestTimeout}, opts.AutomationBaseURL)
	suites := suitecache.New(backend, logger)

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var handler *agent.Handler
	pool := runtimeworker.NewPool(workersCtx, runtimeworker.Options[whatsappJob]{
		MaxConcurrency: opts.MaxConcurrency,
		Handle: func(workerCtx context.Context, job whatsappJob) {
			runCtx, cancel := context.WithTimeout(workerCtx, opts.TaskTimeout)
			defer cancel()
			started := time.Now()
			err := handler.HandleMessage(runCtx, job.Msg)
			if err != nil {
				logger.Error("whatsapp_handle_failed", "job_id", job.ID, "chat_id", job.Msg.ChatID, "error", err.Error())
				return
			}
			logger.Info("whatsapp_handled", "job_id", job.ID, "chat_id", job.Msg.ChatID, "duration", time.Since(started).String())
		},
	})

	callbacks := GatewayCallbacks{
		OnConnected: func() {
			refreshCtx, cancel := context.WithTimeout(ctx, opts.AutomationRequestTimeout)
			defer cancel()
			_ = suites.Refresh(refreshCtx)
		},
		OnMessage: func(in waclient.IncomingMessage) {
			if handler == nil || !handler.Triggered(in.Text) {
				metrics.InboundMessages.WithLabelValues("ignored").Inc()
				return
			}
			metrics.InboundMessages.WithLabelValues("triggered").Inc()
			job := whatsappJob{
				ID: uuid.NewString(),
				Msg: agent.InboundMessage{
					ID:         in.ID,
					ChatID:     in.ChatID,
					SenderID:   in.SenderID,
					Text:       in.Text,
					ReceivedAt: in.Timestamp,
				},
			}
			logger.Info("whatsapp_inbound", "job_id", job.ID, "chat_id", in.ChatID, "message_id", in.ID, "group", in.IsGroup)
			if err := pool.Enqueue(ctx, in.ChatID, job); err != nil {
				logger.Warn("whatsapp_enqueue_failed", "job_id", job.ID, "chat_id", in.ChatID, "error", err.Error())
			}
		},
	}

	gateway, err := openGatewayFromDeps(ctx, d, logger, callbacks)
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("whatsapp_close_failed", "error", err.Error())
		}
	}()

	messenger := countingMessenger{gateway: gateway}
	location := agent.LoadLocation(opts.Timezone)
	dispatcher, err := agent.NewDispatcher(agent.DispatcherOptions{
		Messenger:  messenger,
		Backend:    backend,
		Directory:  suites,
		Logger:     logger,
		RunTimeout: opts.RunTimeout,
		Location:   location,
	})
	if err != nil {
		return err
	}
	handler, err = agent.NewHandler(agent.HandlerOptions{
		LLM:        client,
		Model:      llmCfg.Model,
		Messenger:  messenger,
		Dispatcher: dispatcher,
		Prompt: agent.PromptBuilder{
			Persona:   opts.Persona,
			Directory: suites,
			Location:  location,
		},
		TriggerPrefix: opts.TriggerPrefix,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gateway.Connect(gctx); err != nil {
			return err
		}
		logger.Info("whatsapp_start", "trigger_prefix", opts.TriggerPrefix, "max_concurrency", opts.MaxConcurrency, "automation", backend.BaseURL())
		<-gctx.Done()
		return nil
	})
	if opts.ServerListen != "" {
		api, err := httpapi.New(httpapi.Options{
			Gateway:        gateway,
			Logger:         logger,
			AuthToken:      opts.ServerAuthToken,
			MaxUploadBytes: opts.MaxUploadBytes,
			Metrics:        metrics.Handler(),
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return api.ListenAndServe(gctx, opts.ServerListen)
		})
	}

	runErr := g.Wait()
	stopWorkers()
	pool.Wait()
	handler.Wait()
	logger.Info("whatsapp_stop")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("whatsapp runtime: %w", runErr)
	}
	return nil
}

// countingMessenger records outbound chat texts sent by the AI loop.
type countingMessenger struct {
	gateway Gateway
}

func (m countingMessenger) SendText(ctx context.Context, chatID, text string) error {
	err := m.gateway.SendText(ctx, chatID, text)
	metrics.OutboundMessages.WithLabelValues("text", metrics.Outcome(err)).Inc()
	return err
}
