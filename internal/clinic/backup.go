package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"studio/internal/core"
	"studio/internal/log"
)

// Backup is the full snapshot exchanged by backup and restore
type Backup struct {
	Patients        []core.Patient        `json:"patients"`
	Documents       []core.Document       `json:"documents"`
	Treatments      []core.Treatment      `json:"treatments"`
	Appointments    []core.Appointment    `json:"appointments"`
	Quotes          []core.Quote          `json:"quotes"`
	Payments        []core.Payment        `json:"payments"`
	TreatmentPrices []core.TreatmentPrice `json:"treatmentPrices"`
	Timestamp       string                `json:"timestamp"`
}

// BackupFilename is the download name for a backup taken on date
func BackupFilename(date string) string {
	return "backup-dentist-" + date + ".json"
}

// Export loads every collection into a Backup
func (r *Repository) Export(ctx context.Context) (Backup, error) {
	var b Backup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { b.Patients, err = r.Patients.All(gctx); return })
	g.Go(func() (err error) { b.Documents, err = r.Documents.All(gctx); return })
	g.Go(func() (err error) { b.Treatments, err = r.Treatments.All(gctx); return })
	g.Go(func() (err error) { b.Appointments, err = r.Appointments.All(gctx); return })
	g.Go(func() (err error) { b.Quotes, err = r.Quotes.All(gctx); return })
	g.Go(func() (err error) { b.Payments, err = r.Payments.All(gctx); return })
	g.Go(func() (err error) { b.TreatmentPrices, err = r.Prices.All(gctx); return })
	if err := g.Wait(); err != nil {
		return Backup{}, fmt.Errorf("export collections: %w", err)
	}
	b.Timestamp = core.Timestamp(r.now())
	return b, nil
}

// BackupJSON renders Export as indented JSON
func (r *Repository) BackupJSON(ctx context.Context) ([]byte, error) {
	b, err := r.Export(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	r.logger.InfoContext(ctx, "Backup exported", log.FieldOperation, log.OpBackup,
		"patients", len(b.Patients), "appointments", len(b.Appointments))
	return out, nil
}

// Restore parses data and, only if it parses, overwrites every collection.
// Missing collections become empty. A parse failure is logged and reported
// as false with the stored data untouched; the error return is reserved for
// backend failures, after which the collections already written are put
// back from a snapshot taken first.
func (r *Repository) Restore(ctx context.Context, data []byte) (bool, error) {
	var b Backup
	err := json.Unmarshal(data, &b)
	if err == nil && bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		err = errors.New("backup document is null")
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Errore nel ripristino", log.FieldOperation, log.OpRestore, log.FieldError, err)
		return false, nil
	}

	prev, err := r.Export(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot before restore: %w", err)
	}
	if err := r.apply(ctx, b, prev); err != nil {
		return false, err
	}

	r.logger.InfoContext(ctx, "Backup restored", log.FieldOperation, log.OpRestore,
		"timestamp", b.Timestamp, "patients", len(b.Patients))
	return true, nil
}

type collectionWrite struct {
	key   string
	write func(context.Context) error
}

func (r *Repository) writes(b Backup) []collectionWrite {
	return []collectionWrite{
		{KeyPatients, func(ctx context.Context) error { return r.Patients.Replace(ctx, orEmpty(b.Patients)) }},
		{KeyDocuments, func(ctx context.Context) error { return r.Documents.Replace(ctx, orEmpty(b.Documents)) }},
		{KeyTreatments, func(ctx context.Context) error { return r.Treatments.Replace(ctx, orEmpty(b.Treatments)) }},
		{KeyAppointments, func(ctx context.Context) error { return r.Appointments.Replace(ctx, orEmpty(b.Appointments)) }},
		{KeyQuotes, func(ctx context.Context) error { return r.Quotes.Replace(ctx, orEmpty(b.Quotes)) }},
		{KeyPayments, func(ctx context.Context) error { return r.Payments.Replace(ctx, orEmpty(b.Payments)) }},
		{KeyTreatmentPrices, func(ctx context.Context) error { return r.Prices.Replace(ctx, orEmpty(b.TreatmentPrices)) }},
	}
}

// apply writes next collection by collection. When a write fails, the
// collections already written are rewritten from prev.
func (r *Repository) apply(ctx context.Context, next, prev Backup) error {
	forward, undo := r.writes(next), r.writes(prev)
	for i, w := range forward {
		err := w.write(ctx)
		if err == nil {
			continue
		}

		var rolledBack, stuck []string
		for _, u := range undo[:i] {
			if uerr := u.write(ctx); uerr != nil {
				stuck = append(stuck, u.key)
				continue
			}
			rolledBack = append(rolledBack, u.key)
		}
		r.logger.ErrorContext(ctx, "Restore failed, rolled back",
			log.FieldOperation, log.OpRestore, log.FieldError, err,
			"failed_collection", w.key, "rolled_back", rolledBack, "not_rolled_back", stuck)
		if len(stuck) > 0 {
			return fmt.Errorf("restore %s: %w (rollback failed for %v)", w.key, err, stuck)
		}
		return fmt.Errorf("restore %s: %w", w.key, err)
	}
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
