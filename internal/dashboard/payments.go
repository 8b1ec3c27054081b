package dashboard

import (
	"sort"
	"strings"

	"studio/internal/core"
)

// PaymentFilter narrows the payments list. Empty fields match everything.
type PaymentFilter struct {
	Method     core.PaymentMethod
	DatePrefix string
}

// FilterPayments applies f and returns the payments newest first
func FilterPayments(payments []core.Payment, f PaymentFilter) []core.Payment {
	out := make([]core.Payment, 0, len(payments))
	for _, p := range payments {
		if f.Method != "" && p.Method != f.Method {
			continue
		}
		if f.DatePrefix != "" && !strings.HasPrefix(p.Date, f.DatePrefix) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// PaymentRow is a payment as listed, with the patient name resolved
type PaymentRow struct {
	core.Payment
	PatientName string `json:"patientName"`
}

// WithPatientNames pairs each payment with resolve(patientId)
func WithPatientNames(payments []core.Payment, resolve func(id string) string) []PaymentRow {
	out := make([]PaymentRow, len(payments))
	for i, p := range payments {
		out[i] = PaymentRow{Payment: p, PatientName: resolve(p.PatientID)}
	}
	return out
}

// SortQuotes orders quotes newest first by creation timestamp
func SortQuotes(quotes []core.Quote) []core.Quote {
	out := append([]core.Quote(nil), quotes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// SearchPatients matches name, email or phone case-insensitively
func SearchPatients(patients []core.Patient, term string) []core.Patient {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]core.Patient{}, patients...)
	}
	out := []core.Patient{}
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Email), term) ||
			strings.Contains(strings.ToLower(p.Phone), term) {
			out = append(out, p)
		}
	}
	return out
}
