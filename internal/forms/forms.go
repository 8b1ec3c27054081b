package forms

import (
	"studio/internal/core"
)

const (
	DefaultAppointmentTime     = "09:00"
	DefaultAppointmentDuration = 60
	QuoteValidityDays          = 30
)

type PatientForm struct {
	Name          string `json:"name" validate:"notblank"`
	Phone         string `json:"phone" validate:"notblank"`
	Email         string `json:"email" validate:"notblank,loose_email"`
	ClinicalNotes string `json:"clinicalNotes"`
}

type AppointmentForm struct {
	PatientID string                 `json:"patientId" validate:"required"`
	Date      string                 `json:"date" validate:"required,isodate"`
	Time      string                 `json:"time" validate:"required,clock"`
	Duration  int                    `json:"duration" validate:"gte=0"`
	Status    core.AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled"`
	Notes     string                 `json:"notes"`
}

// QuickEdit is the reduced appointment form opened from the dashboard. An
// empty Status and a nil Notes keep the stored values.
type QuickEdit struct {
	Date   string                 `json:"date" validate:"required,isodate"`
	Time   string                 `json:"time" validate:"required,clock"`
	Status core.AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled"`
	Notes  *string                `json:"notes"`
}

type ItemForm struct {
	TreatmentName string     `json:"treatmentName" validate:"notblank"`
	Description   string     `json:"description"`
	Quantity      int        `json:"quantity" validate:"gte=1"`
	UnitPrice     core.Money `json:"unitPrice" validate:"gte=0"`
}

type QuoteForm struct {
	PatientID  string           `json:"patientId" validate:"required"`
	ValidUntil string           `json:"validUntil" validate:"required,isodate"`
	Status     core.QuoteStatus `json:"status" validate:"omitempty,oneof=draft sent accepted rejected"`
	Items      []ItemForm       `json:"items" validate:"min=1,dive"`
}

type PaymentForm struct {
	PatientID string             `json:"patientId" validate:"required"`
	QuoteID   string             `json:"quoteId"`
	Amount    core.Money         `json:"amount" validate:"gt=0"`
	Date      string             `json:"date" validate:"required,isodate"`
	Method    core.PaymentMethod `json:"method" validate:"omitempty,oneof=cash card transfer other"`
	Notes     string             `json:"notes"`
}

type PriceForm struct {
	Name         string     `json:"name" validate:"notblank"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	DefaultPrice core.Money `json:"defaultPrice" validate:"gt=0"`
}

type DocumentForm struct {
	PatientID   string            `json:"patientId" validate:"required"`
	FileName    string            `json:"fileName" validate:"notblank"`
	FileType    core.DocumentType `json:"fileType" validate:"omitempty,oneof=rx photo pdf other"`
	FileURL     string            `json:"fileUrl"`
	UploadDate  string            `json:"uploadDate" validate:"omitempty,isodate"`
	Description string            `json:"description"`
}

type TreatmentForm struct {
	PatientID     string               `json:"patientId" validate:"required"`
	TreatmentName string               `json:"treatmentName" validate:"notblank"`
	Description   string               `json:"description"`
	Cost          core.Money           `json:"cost" validate:"gte=0"`
	Date          string               `json:"date" validate:"required,isodate"`
	Status        core.TreatmentStatus `json:"status" validate:"omitempty,oneof=planned in-progress completed"`
}

// NewAppointmentForm returns the blank form, preselecting date when the
// calendar opened it on a specific day.
func NewAppointmentForm(date string) AppointmentForm {
	return AppointmentForm{
		Date:     date,
		Time:     DefaultAppointmentTime,
		Duration: DefaultAppointmentDuration,
		Status:   core.StatusScheduled,
	}
}

func NewQuoteForm(today string) QuoteForm {
	validUntil, err := core.AddDays(today, QuoteValidityDays)
	if err != nil {
		validUntil = ""
	}
	return QuoteForm{
		ValidUntil: validUntil,
		Status:     core.QuoteDraft,
		Items:      []ItemForm{},
	}
}

// NewItem is the empty row added by "add treatment"
func NewItem() ItemForm {
	return ItemForm{Quantity: 1}
}

// PrefillItem copies a catalog entry into a quote row
func PrefillItem(p core.TreatmentPrice) ItemForm {
	return ItemForm{
		TreatmentName: p.Name,
		Description:   p.Description,
		Quantity:      1,
		UnitPrice:     p.DefaultPrice,
	}
}

func NewPaymentForm(today string) PaymentForm {
	return PaymentForm{Date: today, Method: core.MethodCash}
}

func (f *AppointmentForm) applyDefaults() {
	if f.Duration == 0 {
		f.Duration = DefaultAppointmentDuration
	}
	if f.Status == "" {
		f.Status = core.StatusScheduled
	}
}

func (f *QuoteForm) applyDefaults() {
	if f.Status == "" {
		f.Status = core.QuoteDraft
	}
}

func (f *PaymentForm) applyDefaults() {
	if f.Method == "" {
		f.Method = core.MethodCash
	}
}

func (f *DocumentForm) applyDefaults(today string) {
	if f.FileType == "" {
		f.FileType = core.DocumentOther
	}
	if f.UploadDate == "" {
		f.UploadDate = today
	}
}

func (f *TreatmentForm) applyDefaults() {
	if f.Status == "" {
		f.Status = core.TreatmentPlanned
	}
}

// quoteItems converts the rows to line items with computed totals
func (f QuoteForm) quoteItems() []core.QuoteItem {
	items := make([]core.QuoteItem, len(f.Items))
	for i, it := range f.Items {
		items[i] = core.QuoteItem{
			TreatmentName: it.TreatmentName,
			Description:   it.Description,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
		}
	}
	return items
}
