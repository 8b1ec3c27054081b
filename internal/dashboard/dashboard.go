// Package dashboard computes the figures shown on the home view and the
// revenue summaries. Everything here is a pure function of the collections.
package dashboard

import (
	"sort"
	"strings"

	"studio/internal/core"
)

const (
	upcomingDays  = 7
	upcomingLimit = 5
	pendingLimit  = 5
)

// Data is the set of collections the aggregations read
type Data struct {
	Patients     []core.Patient
	Appointments []core.Appointment
	Quotes       []core.Quote
	Payments     []core.Payment
}

type PendingPayment struct {
	Patient       core.Patient `json:"patient"`
	PendingAmount core.Money   `json:"pendingAmount"`
}

type Stats struct {
	TodayAppointments    []core.Appointment `json:"todayAppointments"`
	UpcomingAppointments []core.Appointment `json:"upcomingAppointments"`
	PendingPayments      []PendingPayment   `json:"pendingPayments"`
	TotalPatients        int                `json:"totalPatients"`
	TodayRevenue         core.Money         `json:"todayRevenue"`
}

// Compute builds the dashboard for the given local date (YYYY-MM-DD).
func Compute(today string, data Data) Stats {
	stats := Stats{
		TodayAppointments:    []core.Appointment{},
		UpcomingAppointments: []core.Appointment{},
		PendingPayments:      []PendingPayment{},
		TotalPatients:        len(data.Patients),
	}

	horizon, err := core.AddDays(today, upcomingDays)
	if err != nil {
		horizon = today
	}

	for _, a := range data.Appointments {
		if a.Status == core.StatusCancelled {
			continue
		}
		switch {
		case a.Date == today:
			stats.TodayAppointments = append(stats.TodayAppointments, a)
		case a.Date > today && a.Date <= horizon:
			stats.UpcomingAppointments = append(stats.UpcomingAppointments, a)
		}
	}
	sort.SliceStable(stats.UpcomingAppointments, func(i, j int) bool {
		return stats.UpcomingAppointments[i].Date < stats.UpcomingAppointments[j].Date
	})
	if len(stats.UpcomingAppointments) > upcomingLimit {
		stats.UpcomingAppointments = stats.UpcomingAppointments[:upcomingLimit]
	}

	stats.PendingPayments = Pending(data.Patients, data.Quotes, data.Payments, pendingLimit)

	for _, p := range data.Payments {
		if p.Date == today {
			stats.TodayRevenue = stats.TodayRevenue.Add(p.Amount)
		}
	}
	return stats
}

// Pending nets every payment of a patient against all of their accepted
// quotes. Payments are not matched to quotes through quoteId. Only positive
// balances are kept, largest first; limit <= 0 keeps all.
func Pending(patients []core.Patient, quotes []core.Quote, payments []core.Payment, limit int) []PendingPayment {
	due := make(map[string]core.Money)
	for _, q := range quotes {
		if q.Status == core.QuoteAccepted {
			due[q.PatientID] = due[q.PatientID].Add(q.TotalAmount)
		}
	}
	paid := make(map[string]core.Money)
	for _, p := range payments {
		paid[p.PatientID] = paid[p.PatientID].Add(p.Amount)
	}

	out := []PendingPayment{}
	for _, patient := range patients {
		pending := due[patient.ID].Sub(paid[patient.ID])
		if pending.IsPositive() {
			out = append(out, PendingPayment{Patient: patient, PendingAmount: pending})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PendingAmount.Cents > out[j].PendingAmount.Cents
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type RevenueSummary struct {
	Total core.Money `json:"total"`
	Month core.Money `json:"month"`
	Today core.Money `json:"today"`
}

// Revenue sums all payments, those of the current month (date prefix) and
// those of today.
func Revenue(today string, payments []core.Payment) RevenueSummary {
	var s RevenueSummary
	month := core.MonthPrefix(today)
	for _, p := range payments {
		s.Total = s.Total.Add(p.Amount)
		if strings.HasPrefix(p.Date, month) {
			s.Month = s.Month.Add(p.Amount)
		}
		if strings.HasPrefix(p.Date, today) {
			s.Today = s.Today.Add(p.Amount)
		}
	}
	return s
}

// RevenueByDay buckets payments by date, oldest first
func RevenueByDay(payments []core.Payment) []core.PeriodAmount {
	return bucket(payments, func(p core.Payment) string { return p.Date })
}

// RevenueByMonth buckets payments by YYYY-MM, oldest first
func RevenueByMonth(payments []core.Payment) []core.PeriodAmount {
	return bucket(payments, func(p core.Payment) string { return core.MonthPrefix(p.Date) })
}

func bucket(payments []core.Payment, key func(core.Payment) string) []core.PeriodAmount {
	idx := make(map[string]int)
	out := []core.PeriodAmount{}
	for _, p := range payments {
		k := key(p)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, core.PeriodAmount{Period: k})
		}
		out[i].Amount = out[i].Amount.Add(p.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
