package dashboard

import (
	"testing"

	"studio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const today = "2024-03-15"

func appt(id, date string, status core.AppointmentStatus) core.Appointment {
	return core.Appointment{ID: id, PatientID: "p1", Date: date, Time: "09:00", Duration: 60, Status: status}
}

func TestCompute_TodayAppointments(t *testing.T) {
	data := Data{Appointments: []core.Appointment{
		appt("a", today, core.StatusScheduled),
		appt("b", today, core.StatusCancelled),
		appt("c", "2024-03-14", core.StatusScheduled),
		appt("d", today, core.StatusCompleted),
	}}

	stats := Compute(today, data)

	ids := []string{}
	for _, a := range stats.TodayAppointments {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "d"}, ids)
}

func TestCompute_TodayDisappearsWhenCancelled(t *testing.T) {
	a := appt("a", today, core.StatusScheduled)
	stats := Compute(today, Data{Appointments: []core.Appointment{a}})
	require.Len(t, stats.TodayAppointments, 1)

	a.Status = core.StatusCancelled
	stats = Compute(today, Data{Appointments: []core.Appointment{a}})
	assert.Empty(t, stats.TodayAppointments)
}

func TestCompute_Upcoming(t *testing.T) {
	data := Data{Appointments: []core.Appointment{
		appt("late", "2024-03-22", core.StatusScheduled), // today+7, inclusive
		appt("out", "2024-03-23", core.StatusScheduled),  // today+8
		appt("today", today, core.StatusScheduled),
		appt("x", "2024-03-16", core.StatusCancelled),
		appt("1", "2024-03-18", core.StatusConfirmed),
		appt("2", "2024-03-16", core.StatusScheduled),
		appt("3", "2024-03-17", core.StatusScheduled),
		appt("4", "2024-03-16", core.StatusScheduled),
		appt("5", "2024-03-20", core.StatusScheduled),
	}}

	stats := Compute(today, data)

	ids := []string{}
	for _, a := range stats.UpcomingAppointments {
		ids = append(ids, a.ID)
	}
	// ascending by date, stable for equal dates, first 5
	assert.Equal(t, []string{"2", "4", "3", "1", "5"}, ids)
}

func TestCompute_UpcomingAcrossMonthEnd(t *testing.T) {
	data := Data{Appointments: []core.Appointment{appt("a", "2024-04-03", core.StatusScheduled)}}
	stats := Compute("2024-03-28", data)
	assert.Len(t, stats.UpcomingAppointments, 1)
}

func TestPending(t *testing.T) {
	patients := []core.Patient{{ID: "p1", Name: "Mario"}, {ID: "p2", Name: "Lucia"}, {ID: "p3", Name: "Anna"}}
	quotes := []core.Quote{
		{ID: "q1", PatientID: "p1", Status: core.QuoteAccepted, TotalAmount: core.Euro(200)},
		{ID: "q2", PatientID: "p1", Status: core.QuoteAccepted, TotalAmount: core.Euro(100)},
		{ID: "q3", PatientID: "p1", Status: core.QuoteDraft, TotalAmount: core.Euro(900)},
		{ID: "q4", PatientID: "p2", Status: core.QuoteAccepted, TotalAmount: core.Euro(300)},
		{ID: "q5", PatientID: "p3", Status: core.QuoteAccepted, TotalAmount: core.Euro(50)},
	}
	payments := []core.Payment{
		{ID: "x1", PatientID: "p1", Amount: core.Euro(100)},
		{ID: "x2", PatientID: "p1", Amount: core.Euro(20), QuoteID: "q3"},
		{ID: "x3", PatientID: "p2", Amount: core.Euro(300)},
	}

	got := Pending(patients, quotes, payments, 5)

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].Patient.ID)
	assert.Equal(t, int64(18000), got[0].PendingAmount.Cents)
	assert.Equal(t, "p3", got[1].Patient.ID)
	assert.Equal(t, int64(5000), got[1].PendingAmount.Cents)
}

func TestPending_Truncates(t *testing.T) {
	var patients []core.Patient
	var quotes []core.Quote
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		patients = append(patients, core.Patient{ID: id})
		quotes = append(quotes, core.Quote{PatientID: id, Status: core.QuoteAccepted, TotalAmount: core.Euro(int64(10 * (i + 1)))})
	}

	got := Pending(patients, quotes, nil, 5)

	require.Len(t, got, 5)
	assert.Equal(t, "g", got[0].Patient.ID)
	assert.Equal(t, "c", got[4].Patient.ID)
	assert.Len(t, Pending(patients, quotes, nil, 0), 7)
}

func TestCompute_TodayRevenueAndTotals(t *testing.T) {
	data := Data{
		Patients: []core.Patient{{ID: "p1"}, {ID: "p2"}},
		Payments: []core.Payment{
			{PatientID: "p1", Date: today, Amount: core.Cents(5050)},
			{PatientID: "p2", Date: today, Amount: core.Euro(20)},
			{PatientID: "p2", Date: "2024-03-14", Amount: core.Euro(999)},
		},
	}

	stats := Compute(today, data)

	assert.Equal(t, 2, stats.TotalPatients)
	assert.Equal(t, int64(7050), stats.TodayRevenue.Cents)
	assert.NotNil(t, stats.PendingPayments)
}

func TestRevenue(t *testing.T) {
	payments := []core.Payment{
		{Date: today, Amount: core.Euro(10)},
		{Date: "2024-03-01", Amount: core.Euro(20)},
		{Date: "2024-02-29", Amount: core.Euro(40)},
	}

	r := Revenue(today, payments)

	assert.Equal(t, int64(7000), r.Total.Cents)
	assert.Equal(t, int64(3000), r.Month.Cents)
	assert.Equal(t, int64(1000), r.Today.Cents)
}

func TestRevenueBuckets(t *testing.T) {
	payments := []core.Payment{
		{Date: "2024-03-02", Amount: core.Euro(10)},
		{Date: "2024-02-10", Amount: core.Euro(5)},
		{Date: "2024-03-02", Amount: core.Euro(1)},
		{Date: "2024-03-20", Amount: core.Euro(4)},
	}

	days := RevenueByDay(payments)
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-10", days[0].Period)
	assert.Equal(t, core.PeriodAmount{Period: "2024-03-02", Amount: core.Euro(11), Count: 2}, days[1])

	months := RevenueByMonth(payments)
	require.Len(t, months, 2)
	assert.Equal(t, core.PeriodAmount{Period: "2024-03", Amount: core.Euro(15), Count: 3}, months[1])
}

func TestFilterPayments(t *testing.T) {
	payments := []core.Payment{
		{ID: "1", Date: "2024-03-01", Method: core.MethodCash},
		{ID: "2", Date: "2024-03-10", Method: core.MethodCard},
		{ID: "3", Date: "2024-02-10", Method: core.MethodCash},
		{ID: "4", Date: "2024-03-05", Method: core.MethodCash},
	}

	got := FilterPayments(payments, PaymentFilter{Method: core.MethodCash, DatePrefix: "2024-03"})
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "1", got[1].ID)

	all := FilterPayments(payments, PaymentFilter{})
	assert.Equal(t, "2", all[0].ID)
}

func TestWithPatientNames(t *testing.T) {
	payments := []core.Payment{{ID: "1", PatientID: "p1"}, {ID: "2", PatientID: "gone"}}
	resolve := func(id string) string {
		if id == "p1" {
			return "Mario Rossi"
		}
		return core.UnknownPatient
	}

	rows := WithPatientNames(payments, resolve)
	require.Len(t, rows, 2)
	assert.Equal(t, "Mario Rossi", rows[0].PatientName)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "Paziente sconosciuto", rows[1].PatientName)
}

func TestSortQuotes(t *testing.T) {
	quotes := []core.Quote{{ID: "old", CreatedAt: "2024-01-01T10:00:00.000Z"}, {ID: "new", CreatedAt: "2024-03-01T10:00:00.000Z"}}
	got := SortQuotes(quotes)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", quotes[0].ID, "input untouched")
}

func TestSearchPatients(t *testing.T) {
	patients := []core.Patient{
		{ID: "1", Name: "Mario Rossi", Email: "mario@example.com", Phone: "333 111"},
		{ID: "2", Name: "Lucia Bianchi", Email: "lucia@example.com", Phone: "347 222"},
	}
	assert.Len(t, SearchPatients(patients, "ROSSI"), 1)
	assert.Len(t, SearchPatients(patients, "example"), 2)
	assert.Equal(t, "2", SearchPatients(patients, "347")[0].ID)
	assert.Len(t, SearchPatients(patients, "  "), 2)
	assert.Empty(t, SearchPatients(patients, "zzz"))
}
