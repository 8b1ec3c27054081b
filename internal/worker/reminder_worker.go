package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"studio/internal/core"
	"studio/internal/log"
)

// ReminderJob is the unit of work the worker schedules
type ReminderJob interface {
	ProcessDueReminders(ctx context.Context, now time.Time) (int, error)
}

// Schedule says when the job runs: daily at At (HH:MM, local time) or, when
// Every is positive, at a fixed interval starting immediately.
type Schedule struct {
	At    string
	Every time.Duration
}

func (s Schedule) Validate() error {
	if s.Every < 0 {
		return fmt.Errorf("reminder interval must not be negative")
	}
	if s.Every == 0 && !core.ValidTime(s.At) {
		return fmt.Errorf("reminder time must be HH:MM, got %q", s.At)
	}
	return nil
}

func (s Schedule) String() string {
	if s.Every > 0 {
		return "every " + s.Every.String()
	}
	return "daily at " + s.At
}

// ReminderWorker runs a ReminderJob on a gocron scheduler
type ReminderWorker struct {
	job      ReminderJob
	schedule Schedule
	logger   *log.Logger
	now      func() time.Time

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

func NewReminderWorker(job ReminderJob, schedule Schedule, logger *log.Logger) (*ReminderWorker, error) {
	if job == nil {
		return nil, fmt.Errorf("reminder job is required")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &ReminderWorker{
		job:      job,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RunOnce processes due reminders immediately
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	sent, err := w.job.ProcessDueReminders(ctx, w.now())
	if err != nil {
		w.logger.ErrorContext(ctx, "Reminder run failed", log.FieldError, err)
		return sent, err
	}
	w.logger.InfoContext(ctx, "Reminder run complete", "sent", sent)
	return sent, nil
}

// Start schedules the job and returns at once. Runs stop when ctx is
// cancelled or Stop is called.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler != nil {
		return fmt.Errorf("reminder worker already running")
	}

	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()

	var job *gocron.Scheduler
	if w.schedule.Every > 0 {
		job = scheduler.Every(w.schedule.Every)
	} else {
		job = scheduler.Every(1).Day().At(w.schedule.At)
	}
	if _, err := job.Do(func() {
		if ctx.Err() != nil {
			return
		}
		w.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	scheduler.StartAsync()
	w.scheduler = scheduler
	w.logger.InfoContext(ctx, "Reminder worker started", "schedule", w.schedule.String())

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts the scheduler. It is safe to call more than once.
func (w *ReminderWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler == nil {
		return
	}
	w.scheduler.Stop()
	w.scheduler = nil
	w.logger.Info("Reminder worker stopped")
}

func (w *ReminderWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduler != nil
}
