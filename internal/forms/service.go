package forms

import (
	"context"
	"errors"
	"fmt"

	"studio/internal/clinic"
	"studio/internal/core"
	"studio/internal/log"
	"studio/internal/record"
)

var ErrNotFound = errors.New("record not found")

// Service validates forms and creates or updates the matching records.
// An empty id creates; any other id updates by merging over the stored record.
type Service struct {
	repo   *clinic.Repository
	logger *log.Logger
}

func NewService(repo *clinic.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default(log.ComponentForms)
	}
	return &Service{repo: repo, logger: logger}
}

func reject(errs Errors) error {
	return &ValidationError{Fields: errs}
}

func (s *Service) patientName(ctx context.Context, id string) (string, error) {
	p, ok, err := s.repo.Patients.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", reject(Errors{"patientId": messages["patientId.required"]})
	}
	return p.Name, nil
}

func patchOf(form any, extra record.Patch) (record.Patch, error) {
	p, err := record.PatchOf(form)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		p[k] = v
	}
	return p, nil
}

func update[T record.Entity](ctx context.Context, store *record.Store[T], id string, form any, extra record.Patch) (T, error) {
	var zero T
	patch, err := patchOf(form, extra)
	if err != nil {
		return zero, err
	}
	saved, ok, err := store.Update(ctx, id, patch)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", store.Key(), err)
	}
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", store.Key(), id, ErrNotFound)
	}
	return saved, nil
}

// SavePatient creates or updates a patient. Renaming a patient re-syncs the
// copied name on their appointments and quotes.
func (s *Service) SavePatient(ctx context.Context, id string, f PatientForm) (core.Patient, error) {
	if errs := Validate(f); len(errs) > 0 {
		return core.Patient{}, reject(errs)
	}
	now := core.Timestamp(s.repo.Now())

	if id == "" {
		p := core.Patient{
			ID:            s.repo.NewID(),
			Name:          f.Name,
			Phone:         f.Phone,
			Email:         f.Email,
			ClinicalNotes: f.ClinicalNotes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		created, err := s.repo.Patients.Create(ctx, p)
		if err != nil {
			return core.Patient{}, fmt.Errorf("create patient: %w", err)
		}
		s.logger.InfoContext(ctx, "Patient created", log.FieldEntityID, created.ID)
		return created, nil
	}

	saved, err := update(ctx, s.repo.Patients, id, f, record.Patch{"updatedAt": now})
	if err != nil {
		return core.Patient{}, err
	}
	if _, err := s.repo.SyncPatientName(ctx, saved.ID, saved.Name); err != nil {
		return saved, err
	}
	return saved, nil
}

// SaveAppointment creates or updates an appointment, copying the selected
// patient's current name onto it.
func (s *Service) SaveAppointment(ctx context.Context, id string, f AppointmentForm) (core.Appointment, error) {
	f.applyDefaults()
	if errs := Validate(f); len(errs) > 0 {
		return core.Appointment{}, reject(errs)
	}
	name, err := s.patientName(ctx, f.PatientID)
	if err != nil {
		return core.Appointment{}, err
	}

	if id == "" {
		a := core.Appointment{
			ID:           s.repo.NewID(),
			PatientID:    f.PatientID,
			PatientName:  name,
			Date:         f.Date,
			Time:         f.Time,
			Duration:     f.Duration,
			Status:       f.Status,
			Notes:        f.Notes,
			ReminderSent: false,
		}
		created, err := s.repo.Appointments.Create(ctx, a)
		if err != nil {
			return core.Appointment{}, fmt.Errorf("create appointment: %w", err)
		}
		s.logger.InfoContext(ctx, "Appointment created",
			log.FieldEntityID, created.ID, log.FieldDate, created.Date)
		return created, nil
	}
	extra := record.Patch{"patientName": name}
	current, ok, err := s.repo.Appointments.Get(ctx, id)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("read appointment: %w", err)
	}
	if ok && current.Date != f.Date {
		extra["reminderSent"] = false
	}
	return update(ctx, s.repo.Appointments, id, f, extra)
}

// QuickEditAppointment changes date and time, plus status and notes when
// given. Moving to another day makes the appointment due for a new reminder.
func (s *Service) QuickEditAppointment(ctx context.Context, id string, f QuickEdit) (core.Appointment, error) {
	if errs := Validate(f); len(errs) > 0 {
		return core.Appointment{}, reject(errs)
	}
	saved, ok, err := s.repo.Appointments.Modify(ctx, id, func(a core.Appointment) core.Appointment {
		if a.Date != f.Date {
			a.ReminderSent = false
		}
		a.Date, a.Time = f.Date, f.Time
		if f.Status != "" {
			a.Status = f.Status
		}
		if f.Notes != nil {
			a.Notes = *f.Notes
		}
		return a
	})
	if err != nil {
		return core.Appointment{}, fmt.Errorf("update %s: %w", s.repo.Appointments.Key(), err)
	}
	if !ok {
		return core.Appointment{}, fmt.Errorf("%s %s: %w", s.repo.Appointments.Key(), id, ErrNotFound)
	}
	return saved, nil
}

// SetAppointmentStatus moves an appointment to any status
func (s *Service) SetAppointmentStatus(ctx context.Context, id string, status core.AppointmentStatus) (core.Appointment, error) {
	if !status.Valid() {
		return core.Appointment{}, reject(Errors{"status": messages["status.oneof"]})
	}
	return update(ctx, s.repo.Appointments, id, struct{}{}, record.Patch{"status": status})
}

// SaveQuote creates or updates a quote. Line totals and the quote total are
// always recomputed from the rows.
func (s *Service) SaveQuote(ctx context.Context, id string, f QuoteForm) (core.Quote, error) {
	f.applyDefaults()
	if errs := Validate(f); len(errs) > 0 {
		return core.Quote{}, reject(errs)
	}
	name, err := s.patientName(ctx, f.PatientID)
	if err != nil {
		return core.Quote{}, err
	}

	q := core.Quote{
		PatientID:   f.PatientID,
		PatientName: name,
		Items:       f.quoteItems(),
		ValidUntil:  f.ValidUntil,
		Status:      f.Status,
	}
	q.Recompute()

	if id == "" {
		q.ID = s.repo.NewID()
		q.CreatedAt = core.Timestamp(s.repo.Now())
		created, err := s.repo.Quotes.Create(ctx, q)
		if err != nil {
			return core.Quote{}, fmt.Errorf("create quote: %w", err)
		}
		s.logger.InfoContext(ctx, "Quote created",
			log.FieldEntityID, created.ID, log.FieldAmount, created.TotalAmount.Cents)
		return created, nil
	}
	return update(ctx, s.repo.Quotes, id, struct{}{}, record.Patch{
		"patientId":   q.PatientID,
		"patientName": q.PatientName,
		"items":       q.Items,
		"totalAmount": q.TotalAmount,
		"validUntil":  q.ValidUntil,
		"status":      q.Status,
	})
}

// SetQuoteStatus moves a quote to any status
func (s *Service) SetQuoteStatus(ctx context.Context, id string, status core.QuoteStatus) (core.Quote, error) {
	if !status.Valid() {
		return core.Quote{}, reject(Errors{"status": messages["status.oneof"]})
	}
	return update(ctx, s.repo.Quotes, id, struct{}{}, record.Patch{"status": status})
}

func (s *Service) SavePayment(ctx context.Context, id string, f PaymentForm) (core.Payment, error) {
	f.applyDefaults()
	if errs := Validate(f); len(errs) > 0 {
		return core.Payment{}, reject(errs)
	}

	if id == "" {
		p := core.Payment{
			ID:        s.repo.NewID(),
			PatientID: f.PatientID,
			QuoteID:   f.QuoteID,
			Amount:    f.Amount,
			Date:      f.Date,
			Method:    f.Method,
			Notes:     f.Notes,
		}
		created, err := s.repo.Payments.Create(ctx, p)
		if err != nil {
			return core.Payment{}, fmt.Errorf("create payment: %w", err)
		}
		s.logger.InfoContext(ctx, "Payment recorded",
			log.FieldEntityID, created.ID, log.FieldAmount, created.Amount.Cents)
		return created, nil
	}
	return update(ctx, s.repo.Payments, id, f, nil)
}

func (s *Service) SavePrice(ctx context.Context, id string, f PriceForm) (core.TreatmentPrice, error) {
	if errs := Validate(f); len(errs) > 0 {
		return core.TreatmentPrice{}, reject(errs)
	}
	if id == "" {
		return s.repo.Prices.Create(ctx, core.TreatmentPrice{
			ID:           s.repo.NewID(),
			Name:         f.Name,
			Description:  f.Description,
			Category:     f.Category,
			DefaultPrice: f.DefaultPrice,
		})
	}
	return update(ctx, s.repo.Prices, id, f, nil)
}

func (s *Service) SaveDocument(ctx context.Context, id string, f DocumentForm) (core.Document, error) {
	f.applyDefaults(s.repo.Today())
	if errs := Validate(f); len(errs) > 0 {
		return core.Document{}, reject(errs)
	}
	if id == "" {
		return s.repo.Documents.Create(ctx, core.Document{
			ID:          s.repo.NewID(),
			PatientID:   f.PatientID,
			FileName:    f.FileName,
			FileType:    f.FileType,
			FileURL:     f.FileURL,
			UploadDate:  f.UploadDate,
			Description: f.Description,
		})
	}
	return update(ctx, s.repo.Documents, id, f, nil)
}

func (s *Service) SaveTreatment(ctx context.Context, id string, f TreatmentForm) (core.Treatment, error) {
	f.applyDefaults()
	if errs := Validate(f); len(errs) > 0 {
		return core.Treatment{}, reject(errs)
	}
	if id == "" {
		return s.repo.Treatments.Create(ctx, core.Treatment{
			ID:            s.repo.NewID(),
			PatientID:     f.PatientID,
			TreatmentName: f.TreatmentName,
			Description:   f.Description,
			Cost:          f.Cost,
			Date:          f.Date,
			Status:        f.Status,
		})
	}
	return update(ctx, s.repo.Treatments, id, f, nil)
}
