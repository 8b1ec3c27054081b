package core

import (
	"errors"
)

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"

	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"

	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"

	DocumentRx    DocumentType = "rx"
	DocumentPhoto DocumentType = "photo"
	DocumentPDF   DocumentType = "pdf"
	DocumentOther DocumentType = "other"

	TreatmentPlanned    TreatmentStatus = "planned"
	TreatmentInProgress TreatmentStatus = "in-progress"
	TreatmentCompleted  TreatmentStatus = "completed"
)

// UnknownPatient is shown wherever a patient reference no longer resolves
const UnknownPatient = "Paziente sconosciuto"

type (
	AppointmentStatus string
	QuoteStatus       string
	PaymentMethod     string
	DocumentType      string
	TreatmentStatus   string

	Money struct {
		Cents int64
	}

	Patient struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Phone         string `json:"phone"`
		Email         string `json:"email"`
		ClinicalNotes string `json:"clinicalNotes"`
		CreatedAt     string `json:"createdAt"`
		UpdatedAt     string `json:"updatedAt"`
	}

	Appointment struct {
		ID           string            `json:"id"`
		PatientID    string            `json:"patientId"`
		PatientName  string            `json:"patientName"`
		Date         string            `json:"date"`
		Time         string            `json:"time"`
		Duration     int               `json:"duration"`
		Status       AppointmentStatus `json:"status"`
		Notes        string            `json:"notes,omitempty"`
		ReminderSent bool              `json:"reminderSent"`
	}

	QuoteItem struct {
		TreatmentName string `json:"treatmentName"`
		Description   string `json:"description"`
		Quantity      int    `json:"quantity"`
		UnitPrice     Money  `json:"unitPrice"`
		Total         Money  `json:"total"`
	}

	Quote struct {
		ID          string      `json:"id"`
		PatientID   string      `json:"patientId"`
		PatientName string      `json:"patientName"`
		Items       []QuoteItem `json:"items"`
		TotalAmount Money       `json:"totalAmount"`
		CreatedAt   string      `json:"createdAt"`
		ValidUntil  string      `json:"validUntil"`
		Status      QuoteStatus `json:"status"`
	}

	Payment struct {
		ID        string        `json:"id"`
		PatientID string        `json:"patientId"`
		QuoteID   string        `json:"quoteId,omitempty"`
		Amount    Money         `json:"amount"`
		Date      string        `json:"date"`
		Method    PaymentMethod `json:"method"`
		Notes     string        `json:"notes,omitempty"`
	}

	TreatmentPrice struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		Category     string `json:"category"`
		DefaultPrice Money  `json:"defaultPrice"`
	}

	Document struct {
		ID          string       `json:"id"`
		PatientID   string       `json:"patientId"`
		FileName    string       `json:"fileName"`
		FileType    DocumentType `json:"fileType"`
		FileURL     string       `json:"fileUrl"`
		UploadDate  string       `json:"uploadDate"`
		Description string       `json:"description,omitempty"`
	}

	Treatment struct {
		ID            string          `json:"id"`
		PatientID     string          `json:"patientId"`
		TreatmentName string          `json:"treatmentName"`
		Description   string          `json:"description"`
		Cost          Money           `json:"cost"`
		Date          string          `json:"date"`
		Status        TreatmentStatus `json:"status"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

func (p Patient) EntityID() string        { return p.ID }
func (a Appointment) EntityID() string    { return a.ID }
func (q Quote) EntityID() string          { return q.ID }
func (p Payment) EntityID() string        { return p.ID }
func (t TreatmentPrice) EntityID() string { return t.ID }
func (d Document) EntityID() string       { return d.ID }
func (t Treatment) EntityID() string      { return t.ID }

// Recompute derives every line total and the quote total from quantity and
// unit price. Totals received from clients are never trusted.
func (q *Quote) Recompute() {
	var sum Money
	for i := range q.Items {
		q.Items[i].Total = q.Items[i].UnitPrice.Times(q.Items[i].Quantity)
		sum = sum.Add(q.Items[i].Total)
	}
	q.TotalAmount = sum
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s AppointmentStatus) Label() string {
	switch s {
	case StatusScheduled:
		return "Programmato"
	case StatusConfirmed:
		return "Confermato"
	case StatusCompleted:
		return "Completato"
	case StatusCancelled:
		return "Annullato"
	}
	return string(s)
}

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected:
		return true
	}
	return false
}

func (s QuoteStatus) Label() string {
	switch s {
	case QuoteDraft:
		return "Bozza"
	case QuoteSent:
		return "Inviato"
	case QuoteAccepted:
		return "Accettato"
	case QuoteRejected:
		return "Rifiutato"
	}
	return string(s)
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodOther:
		return true
	}
	return false
}

func (m PaymentMethod) Label() string {
	switch m {
	case MethodCash:
		return "Contanti"
	case MethodCard:
		return "Carta"
	case MethodTransfer:
		return "Bonifico"
	case MethodOther:
		return "Altro"
	}
	return string(m)
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentRx, DocumentPhoto, DocumentPDF, DocumentOther:
		return true
	}
	return false
}

func (s TreatmentStatus) Valid() bool {
	switch s {
	case TreatmentPlanned, TreatmentInProgress, TreatmentCompleted:
		return true
	}
	return false
}
