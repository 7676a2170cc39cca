package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/badrusalam11/whatsapp-bot/internal/asyncutil"
	"github.com/badrusalam11/whatsapp-bot/internal/automation"
	"github.com/badrusalam11/whatsapp-bot/internal/metrics"
)

type Messenger interface {
	SendText(ctx context.Context, chatID, text string) error
}

type Backend interface {
	TriggerRun(ctx context.Context, req automation.RunRequest) (int, error)
	CreateSchedule(ctx context.Context, req automation.ScheduleRequest) error
}

// Outcome is the result of dispatching one intent. Failed suppresses the
// conversational fallback reply for the rest of the message.
type Outcome struct {
	Handled bool
	Failed  bool
	Status  string
}

type DispatcherOptions struct {
	Messenger  Messenger
	Backend    Backend
	Directory  SuiteDirectory
	Logger     *slog.Logger
	RunTimeout time.Duration
	// Location is the civil zone run_at is expressed in. Defaults to Asia/Jakarta.
	Location *time.Location
}

type Dispatcher struct {
	messenger Messenger
	backend   Backend
	directory SuiteDirectory
	logger    *slog.Logger
	location  *time.Location
	runs      *asyncutil.Group
}

func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Messenger == nil {
		return nil, fmt.Errorf("dispatcher: messenger is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("dispatcher: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	location := opts.Location
	if location == nil {
		location = JakartaLocation()
	}
	return &Dispatcher{
		messenger: opts.Messenger,
		backend:   opts.Backend,
		directory: opts.Directory,
		logger:    logger,
		location:  location,
		runs:      &asyncutil.Group{Logger: logger, Timeout: opts.RunTimeout},
	}, nil
}

// Dispatch performs the side effect for in and reports status to chatID.
// Every external call is attempted at most once. A gateway send failure aborts
// dispatch and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID string, in Intent) (Outcome, error) {
	switch in.Action {
	case ActionList:
		return d.list(ctx, chatID)
	case ActionRun:
		return d.run(ctx, chatID, in.SuitePath)
	case ActionSchedule:
		return d.schedule(ctx, chatID, in.SuitePath, in.RunAt)
	default:
		return Outcome{}, fmt.Errorf("dispatch: unsupported action %q", in.Action)
	}
}

// Wait blocks until detached run requests have finished.
func (d *Dispatcher) Wait() {
	d.runs.Wait()
}

func (d *Dispatcher) list(ctx context.Context, chatID string) (Outcome, error) {
	directory := ""
	if d.directory != nil {
		directory = d.directory.Text()
	}
	text := msgSuiteListHeader + directory
	if err := d.messenger.SendText(ctx, chatID, text); err != nil {
		return Outcome{}, err
	}
	return Outcome{Handled: true, Status: text}, nil
}

func (d *Dispatcher) run(ctx context.Context, chatID, suitePath string) (Outcome, error) {
	if err := d.messenger.SendText(ctx, chatID, msgRunStarting(suitePath)); err != nil {
		return Outcome{}, err
	}

	req := automation.RunRequest{TestSuitePath: suitePath, PhoneNumber: chatID}
	d.runs.Go("run_trigger", func(runCtx context.Context) error {
		status, err := d.backend.TriggerRun(runCtx, req)
		metrics.BackendRequests.WithLabelValues("run", metrics.Outcome(err)).Inc()
		if err != nil {
			return err
		}
		d.logger.Debug("run_trigger_status", "suite", suitePath, "status", status)
		return nil
	}, "suite", suitePath, "chat_id", chatID)

	if err := d.messenger.SendText(ctx, chatID, msgRunBackground); err != nil {
		return Outcome{}, err
	}
	return Outcome{Handled: true, Status: msgRunBackground}, nil
}

func (d *Dispatcher) schedule(ctx context.Context, chatID, suitePath, runAt string) (Outcome, error) {
	if err := d.messenger.SendText(ctx, chatID, msgScheduling(suitePath, runAt, d.zoneAbbrev())); err != nil {
		return Outcome{}, err
	}

	err := d.backend.CreateSchedule(ctx, automation.ScheduleRequest{
		TestSuitePath: suitePath,
		PhoneNumber:   chatID,
		RunAt:         runAt,
		Status:        automation.StatusScheduled,
	})
	metrics.BackendRequests.WithLabelValues("schedule", metrics.Outcome(err)).Inc()

	if err != nil {
		reply := msgScheduleError
		if errors.Is(err, automation.ErrScheduleRejected) {
			reply = msgScheduleRejected
		}
		d.logger.Warn("schedule_failed", "suite", suitePath, "run_at", runAt, "chat_id", chatID, "error", err.Error())
		if sendErr := d.messenger.SendText(ctx, chatID, reply); sendErr != nil {
			return Outcome{Failed: true}, sendErr
		}
		return Outcome{Failed: true, Status: reply}, nil
	}

	d.logger.Info("schedule_created", "suite", suitePath, "run_at", runAt, "chat_id", chatID)
	if err := d.messenger.SendText(ctx, chatID, msgScheduleConfirmed); err != nil {
		return Outcome{}, err
	}
	return Outcome{Handled: true, Status: msgScheduleConfirmed}, nil
}

// zoneAbbrev names the dispatcher's zone the same way the system prompt does.
func (d *Dispatcher) zoneAbbrev() string {
	abbrev, _ := time.Now().In(d.location).Zone()
	return abbrev
}
