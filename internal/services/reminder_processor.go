// Package services holds background jobs that operate on the practice data.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"studio/internal/amqp"
	"studio/internal/clinic"
	"studio/internal/core"
	"studio/internal/log"
)

// ReminderPublisher delivers a reminder for one appointment
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderProcessor publishes reminders for the next day's appointments and
// flags each one as reminded once the broker accepted it.
type ReminderProcessor struct {
	repo      *clinic.Repository
	publisher ReminderPublisher
	logger    *log.Logger
}

func NewReminderProcessor(repo *clinic.Repository, publisher ReminderPublisher, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.Default(log.ComponentReminder)
	}
	return &ReminderProcessor{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// DueReminders selects the appointments on date that are not cancelled and
// have not been reminded yet, ordered by time.
func DueReminders(appointments []core.Appointment, date string) []core.Appointment {
	var due []core.Appointment
	for _, a := range appointments {
		if a.Date == date && a.Status != core.StatusCancelled && !a.ReminderSent {
			due = append(due, a)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Time < due[j].Time })
	return due
}

// ProcessDueReminders handles every appointment scheduled for the day after
// now. A failed publish leaves the appointment unflagged so the next run
// retries it. It returns how many reminders were sent.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.repo == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	tomorrow, err := core.AddDays(core.Today(now), 1)
	if err != nil {
		return 0, err
	}

	appointments, err := p.repo.Appointments.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load appointments: %w", err)
	}
	due := DueReminders(appointments, tomorrow)

	p.logger.InfoContext(ctx, "Processing appointment reminders",
		log.FieldDate, tomorrow,
		log.FieldCount, len(due))

	sent := 0
	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if err := p.publisher.PublishReminder(ctx, amqp.NewReminderMessage(a)); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish reminder",
				log.FieldEntityID, a.ID,
				log.FieldPatientID, a.PatientID,
				log.FieldError, err)
			continue
		}

		_, ok, err := p.repo.Appointments.Modify(ctx, a.ID, func(cur core.Appointment) core.Appointment {
			cur.ReminderSent = true
			return cur
		})
		if err != nil {
			// Published but not flagged: the next run sends it again.
			p.logger.ErrorContext(ctx, "Failed to flag reminded appointment",
				log.FieldEntityID, a.ID,
				log.FieldError, err)
			continue
		}
		if !ok {
			p.logger.WarnContext(ctx, "Appointment deleted while reminding", log.FieldEntityID, a.ID)
		}

		sent++
	}

	p.logger.InfoContext(ctx, "Reminder processing complete",
		"sent", sent,
		"total_checked", len(due))

	return sent, nil
}
