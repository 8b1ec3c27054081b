// Package calendar lays out the month grid and groups appointments by day.
package calendar

import (
	"sort"
	"time"

	"studio/internal/core"
)

const (
	// GridCells is six Monday-first weeks
	GridCells = 42
	// VisibleChips is how many appointments a month cell shows before "+N altri"
	VisibleChips = 2
)

// DayCell is one square of the month grid
type DayCell struct {
	Date           string `json:"date"`
	Day            int    `json:"day"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
	IsToday        bool   `json:"isToday"`
}

// Grid returns the 42 cells for year/month: trailing days of the previous
// month, the month itself, then leading days of the next month.
func Grid(year int, month time.Month, today string) []DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Sunday is 0 in time.Weekday; shift so Monday opens the week.
	lead := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -lead)

	cells := make([]DayCell, GridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		date := d.Format(core.DateLayout)
		cells[i] = DayCell{
			Date:           date,
			Day:            d.Day(),
			IsCurrentMonth: d.Month() == first.Month() && d.Year() == first.Year(),
			IsToday:        date == today,
		}
	}
	return cells
}

// Shift moves year/month by delta months
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// ForDate returns the appointments whose date equals date, in stored order
func ForDate(appointments []core.Appointment, date string) []core.Appointment {
	out := []core.Appointment{}
	for _, a := range appointments {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out
}

// Index groups appointments by date, keeping stored order inside each day
func Index(appointments []core.Appointment) map[string][]core.Appointment {
	idx := make(map[string][]core.Appointment)
	for _, a := range appointments {
		idx[a.Date] = append(idx[a.Date], a)
	}
	return idx
}

// MonthCell is a grid cell with its appointment chips
type MonthCell struct {
	DayCell
	Visible []core.Appointment `json:"appointments"`
	More    int                `json:"more"`
	Total   int                `json:"total"`
}

// MonthRef names a month for navigation
type MonthRef struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

type MonthView struct {
	Year  int         `json:"year"`
	Month time.Month  `json:"month"`
	Prev  MonthRef    `json:"prev"`
	Next  MonthRef    `json:"next"`
	Cells []MonthCell `json:"cells"`
}

// Month builds the grid and attaches up to VisibleChips appointments per
// cell; More counts the hidden remainder.
func Month(year int, month time.Month, today string, appointments []core.Appointment) MonthView {
	idx := Index(appointments)
	grid := Grid(year, month, today)
	view := MonthView{Year: year, Month: month, Cells: make([]MonthCell, len(grid))}
	view.Prev.Year, view.Prev.Month = Shift(year, month, -1)
	view.Next.Year, view.Next.Month = Shift(year, month, 1)
	for i, c := range grid {
		day := idx[c.Date]
		visible := day
		if len(visible) > VisibleChips {
			visible = visible[:VisibleChips]
		}
		view.Cells[i] = MonthCell{
			DayCell: c,
			Visible: append([]core.Appointment{}, visible...),
			More:    len(day) - len(visible),
			Total:   len(day),
		}
	}
	return view
}

// Day lists every appointment on date sorted by time
func Day(appointments []core.Appointment, date string) []core.Appointment {
	out := ForDate(appointments, date)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// WithStatus keeps the appointments in status, in stored order. An empty
// status keeps all of them.
func WithStatus(appointments []core.Appointment, status core.AppointmentStatus) []core.Appointment {
	out := []core.Appointment{}
	for _, a := range appointments {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// List is the list view: optional status filter, ordered by date then time
func List(appointments []core.Appointment, status core.AppointmentStatus) []core.Appointment {
	out := WithStatus(appointments, status)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}
