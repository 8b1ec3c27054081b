// Package clinic wires the seven record stores of the practice together and
// owns the operations that span collections: seeding, backup and restore,
// patient name resolution and re-sync.
package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studio/internal/core"
	"studio/internal/dashboard"
	"studio/internal/log"
	"studio/internal/record"
	"studio/internal/storage"
)

// Collection keys of the persisted layout
const (
	KeyPatients        = "dentist_patients"
	KeyDocuments       = "dentist_documents"
	KeyTreatments      = "dentist_treatments"
	KeyAppointments    = "dentist_appointments"
	KeyQuotes          = "dentist_quotes"
	KeyPayments        = "dentist_payments"
	KeyTreatmentPrices = "dentist_treatment_prices"
)

type Repository struct {
	Patients     *record.Store[core.Patient]
	Documents    *record.Store[core.Document]
	Treatments   *record.Store[core.Treatment]
	Appointments *record.Store[core.Appointment]
	Quotes       *record.Store[core.Quote]
	Payments     *record.Store[core.Payment]
	Prices       *record.Store[core.TreatmentPrice]

	backend storage.Backend
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Repository)

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock replaces time.Now, used for "today" and timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDs replaces the UUID generator
func WithIDs(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// New builds the repository over backend. Observer, if given, is attached
// to every store.
func New(backend storage.Backend, observer record.Observer, opts ...Option) *Repository {
	r := &Repository{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default(log.ComponentClinic)
	}

	ropts := []record.Option{record.WithLogger(r.logger.WithComponent(log.ComponentRecord))}
	if observer != nil {
		ropts = append(ropts, record.WithObserver(observer))
	}
	r.Patients = record.New[core.Patient](backend, KeyPatients, ropts...)
	r.Documents = record.New[core.Document](backend, KeyDocuments, ropts...)
	r.Treatments = record.New[core.Treatment](backend, KeyTreatments, ropts...)
	r.Appointments = record.New[core.Appointment](backend, KeyAppointments, ropts...)
	r.Quotes = record.New[core.Quote](backend, KeyQuotes, ropts...)
	r.Payments = record.New[core.Payment](backend, KeyPayments, ropts...)
	r.Prices = record.New[core.TreatmentPrice](backend, KeyTreatmentPrices, ropts...)
	return r
}

func (r *Repository) Now() time.Time { return r.now() }

// Today is the local date of the repository clock
func (r *Repository) Today() string { return core.Today(r.now()) }

func (r *Repository) NewID() string { return r.newID() }

func (r *Repository) Ping(ctx context.Context) error { return r.backend.Ping(ctx) }

// PatientName resolves a patient id to a display name. Missing patients
// resolve to core.UnknownPatient.
func (r *Repository) PatientName(ctx context.Context, id string) (string, error) {
	p, ok, err := r.Patients.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return core.UnknownPatient, nil
	}
	return p.Name, nil
}

// Names returns a resolver over an already loaded patient list
func Names(patients []core.Patient) func(id string) string {
	idx := make(map[string]string, len(patients))
	for _, p := range patients {
		idx[p.ID] = p.Name
	}
	return func(id string) string {
		if n, ok := idx[id]; ok {
			return n
		}
		return core.UnknownPatient
	}
}

// SyncPatientName copies the patient's current name onto every appointment
// and quote that references it. It returns how many records changed.
func (r *Repository) SyncPatientName(ctx context.Context, patientID, name string) (int, error) {
	stale := func(id, current string) bool { return id == patientID && current != name }

	na, err := r.Appointments.ModifyWhere(ctx,
		func(a core.Appointment) bool { return stale(a.PatientID, a.PatientName) },
		func(a core.Appointment) core.Appointment { a.PatientName = name; return a })
	if err != nil {
		return 0, fmt.Errorf("sync appointment names: %w", err)
	}
	nq, err := r.Quotes.ModifyWhere(ctx,
		func(q core.Quote) bool { return stale(q.PatientID, q.PatientName) },
		func(q core.Quote) core.Quote { q.PatientName = name; return q })
	if err != nil {
		return na, fmt.Errorf("sync quote names: %w", err)
	}

	if na+nq > 0 {
		r.logger.InfoContext(ctx, "Patient name re-synced",
			log.FieldPatientID, patientID, "appointments", na, "quotes", nq)
	}
	return na + nq, nil
}

// Snapshot loads the collections the dashboard reads, concurrently
func (r *Repository) Snapshot(ctx context.Context) (dashboard.Data, error) {
	var data dashboard.Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { data.Patients, err = r.Patients.All(gctx); return })
	g.Go(func() (err error) { data.Appointments, err = r.Appointments.All(gctx); return })
	g.Go(func() (err error) { data.Quotes, err = r.Quotes.All(gctx); return })
	g.Go(func() (err error) { data.Payments, err = r.Payments.All(gctx); return })
	if err := g.Wait(); err != nil {
		return dashboard.Data{}, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// Dashboard computes today's stats
func (r *Repository) Dashboard(ctx context.Context) (dashboard.Stats, error) {
	data, err := r.Snapshot(ctx)
	if err != nil {
		return dashboard.Stats{}, err
	}
	return dashboard.Compute(r.Today(), data), nil
}
