package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/cache"
	"studio/internal/calendar"
	"studio/internal/clinic"
	"studio/internal/core"
	"studio/internal/dashboard"
	"studio/internal/document"
	"studio/internal/forms"
	"studio/internal/log"
)

// handleListPatients lists patients, narrowed by ?q= on name, email or phone
func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.repo.Patients.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(dashboard.SearchPatients(patients, r.URL.Query().Get("q"))).Write(w)
}

// handleListAppointments serves the list view (?status=) or, with ?date=,
// the full agenda of one day.
func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := core.AppointmentStatus(sanitizeInput(q.Get("status")))
	if status != "" && !status.Valid() {
		BadRequestError("Stato non valido").Write(w)
		return
	}
	date := sanitizeInput(q.Get("date"))
	if date != "" {
		if _, err := core.ParseDate(date); err != nil {
			BadRequestError("Data non valida").Write(w)
			return
		}
	}

	appts, err := s.repo.Appointments.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if date != "" {
		appts = calendar.Day(appts, date)
	}
	NewResponse().JSON(calendar.List(appts, status)).Write(w)
}

func (s *Server) handleQuickEditAppointment(w http.ResponseWriter, r *http.Request) {
	var form forms.QuickEdit
	if err := decodeJSON(w, r, &form); err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}
	appt, err := s.forms.QuickEditAppointment(r.Context(), pathID(r), form)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().TriggerChanged("appointment", appt.ID).JSON(appt).Write(w)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}
	appt, err := s.forms.SetAppointmentStatus(r.Context(), pathID(r), core.AppointmentStatus(req.Status))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().TriggerChanged("appointment", appt.ID).JSON(appt).Write(w)
}

// handleListQuotes lists quotes newest first, optionally by ?status=
func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	status := core.QuoteStatus(sanitizeInput(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		BadRequestError("Stato non valido").Write(w)
		return
	}
	quotes, err := s.repo.Quotes.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]core.Quote, 0, len(quotes))
	for _, q := range dashboard.SortQuotes(quotes) {
		if status == "" || q.Status == status {
			out = append(out, q)
		}
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}
	quote, err := s.forms.SetQuoteStatus(r.Context(), pathID(r), core.QuoteStatus(req.Status))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().TriggerChanged("quote", quote.ID).JSON(quote).Write(w)
}

type renderedPDF struct {
	data     []byte
	filename string
}

// handleQuotePDF renders the printable quote as a download. Renders are
// cached per quote content and day.
func (s *Server) handleQuotePDF(w http.ResponseWriter, r *http.Request) {
	quote, ok, err := s.repo.Quotes.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	if !ok {
		NotFoundError("Preventivo non trovato").Write(w)
		return
	}

	now := s.repo.Now()
	key, err := cache.ContentKey(quote, s.studio, core.Today(now))
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	pdf, err := s.pdfCache.GetOrLoad(key, func() (renderedPDF, error) {
		data, filename, err := document.QuotePDF(quote, s.studio, now)
		return renderedPDF{data: data, filename: filename}, err
	})
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().Attachment(pdf.filename, "application/pdf", pdf.data).Write(w)
}

// handleListPayments filters by ?method= and by ?date= prefix (YYYY or
// YYYY-MM or a full date). Each row carries the patient's current name.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := dashboard.PaymentFilter{
		Method:     core.PaymentMethod(sanitizeInput(q.Get("method"))),
		DatePrefix: sanitizeInput(q.Get("date")),
	}
	if filter.Method != "" && !filter.Method.Valid() {
		BadRequestError("Metodo di pagamento non valido").Write(w)
		return
	}

	payments, err := s.repo.Payments.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	patients, err := s.repo.Patients.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	rows := dashboard.WithPatientNames(dashboard.FilterPayments(payments, filter), clinic.Names(patients))
	NewResponse().JSON(rows).Write(w)
}

// handlePriceItem returns a quote row prefilled from a catalog entry
func (s *Server) handlePriceItem(w http.ResponseWriter, r *http.Request) {
	price, ok, err := s.repo.Prices.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if !ok {
		NotFoundError("Trattamento non trovato").Write(w)
		return
	}
	NewResponse().JSON(forms.PrefillItem(price)).Write(w)
}

// handleFormDefaults returns a blank form with its default values filled in
func (s *Server) handleFormDefaults(w http.ResponseWriter, r *http.Request) {
	today := s.repo.Today()
	var form interface{}
	switch chi.URLParam(r, "kind") {
	case "appointment":
		form = forms.NewAppointmentForm(sanitizeInput(r.URL.Query().Get("date")))
	case "quote":
		form = forms.NewQuoteForm(today)
	case "quote-item":
		form = forms.NewItem()
	case "payment":
		form = forms.NewPaymentForm(today)
	default:
		NotFoundError("Modulo sconosciuto").Write(w)
		return
	}
	NewResponse().JSON(form).Write(w)
}
