package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/calendar"
	"studio/internal/clinic"
	"studio/internal/core"
	"studio/internal/dashboard"
	"studio/internal/log"
	"studio/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(stats).Write(w)
}

type revenueResponse struct {
	dashboard.RevenueSummary
	ByMonth []core.PeriodAmount `json:"byMonth"`
}

// handleRevenue returns the payments page totals and the monthly series
func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	payments, err := s.repo.Payments.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(revenueResponse{
		RevenueSummary: dashboard.Revenue(s.repo.Today(), payments),
		ByMonth:        dashboard.RevenueByMonth(payments),
	}).Write(w)
}

// handleCalendarMonth builds the 42-cell grid for ?year=&month=, narrowed
// by ?status= like the list view
func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.repo.Now())
	if err != nil {
		BadRequestError("Mese non valido").Write(w)
		return
	}
	status := core.AppointmentStatus(sanitizeInput(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		BadRequestError("Stato non valido").Write(w)
		return
	}
	appts, err := s.repo.Appointments.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	appts = calendar.WithStatus(appts, status)
	NewResponse().JSON(calendar.Month(params.Year, params.Month, s.repo.Today(), appts)).Write(w)
}

// handleCalendarDay lists every appointment of one day
func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	date := sanitizeInput(chi.URLParam(r, "date"))
	if _, err := core.ParseDate(date); err != nil {
		BadRequestError("Data non valida").Write(w)
		return
	}
	appts, err := s.repo.Appointments.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(map[string]interface{}{
		"date":         date,
		"appointments": calendar.Day(appts, date),
	}).Write(w)
}

// handleBackup downloads every collection as one JSON document
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.repo.BackupJSON(r.Context())
	if err != nil {
		writeError(w, r, log.OpBackup, err)
		return
	}
	NewResponse().
		Attachment(clinic.BackupFilename(s.repo.Today()), "application/json", data).
		Write(w)
}

// handleRestore overwrites every collection with the uploaded backup. A
// document that does not parse leaves the data untouched.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}
	ok, err := s.repo.Restore(r.Context(), data)
	if err != nil {
		writeError(w, r, log.OpRestore, err)
		return
	}
	if !ok {
		NewResponse().
			TriggerErrorNotification("Errore nel ripristino del backup").
			Status(http.StatusBadRequest).
			JSON(map[string]interface{}{"restored": false, "error": "Backup non valido"}).
			Write(w)
		return
	}
	NewResponse().
		Trigger("data:restored", struct{}{}).
		Trigger("dashboard:refresh", struct{}{}).
		TriggerSuccessNotification("Backup ripristinato").
		JSON(map[string]bool{"restored": true}).
		Write(w)
}

// handlePaymentsReport exports payments and revenue buckets as XLSX
func (s *Server) handlePaymentsReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	data, err := report.PaymentsXLSX(snap.Payments, clinic.Names(snap.Patients))
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().Attachment(report.Filename(s.repo.Today()), xlsxContentType, data).Write(w)
}
