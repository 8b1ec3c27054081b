// Package report exports revenue spreadsheets.
package report

import (
	"bytes"
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"

	"studio/internal/core"
	"studio/internal/dashboard"
)

const (
	SheetPayments = "Pagamenti"
	SheetByDay    = "Incassi giornalieri"
	SheetByMonth  = "Incassi mensili"
)

// Filename is the download name for a report generated on date
func Filename(date string) string {
	return "pagamenti-" + date + ".xlsx"
}

// PaymentsXLSX writes the payments list (newest first) and the revenue
// buckets by day and by month. Patient names resolve through resolve.
func PaymentsXLSX(payments []core.Payment, resolve func(id string) string) ([]byte, error) {
	file := excelize.NewFile()
	file.NewSheet(SheetPayments)
	file.NewSheet(SheetByDay)
	file.NewSheet(SheetByMonth)
	file.DeleteSheet("Sheet1")

	headers := []string{"Data", "Paziente", "Metodo", "Importo", "Note"}
	for i, h := range headers {
		file.SetCellValue(SheetPayments, cell(i, 1), h)
	}
	var total core.Money
	for i, p := range dashboard.FilterPayments(payments, dashboard.PaymentFilter{}) {
		row := i + 2
		file.SetCellValue(SheetPayments, cell(0, row), p.Date)
		file.SetCellValue(SheetPayments, cell(1, row), resolve(p.PatientID))
		file.SetCellValue(SheetPayments, cell(2, row), p.Method.Label())
		file.SetCellValue(SheetPayments, cell(3, row), p.Amount.Euros())
		file.SetCellValue(SheetPayments, cell(4, row), p.Notes)
		total = total.Add(p.Amount)
	}
	last := len(payments) + 2
	file.SetCellValue(SheetPayments, cell(2, last), "Totale")
	file.SetCellValue(SheetPayments, cell(3, last), total.Euros())

	writeBuckets(file, SheetByDay, "Giorno", dashboard.RevenueByDay(payments))
	writeBuckets(file, SheetByMonth, "Mese", dashboard.RevenueByMonth(payments))

	file.SetActiveSheet(file.GetSheetIndex(SheetPayments))

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write payments report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBuckets(file *excelize.File, sheet, label string, buckets []core.PeriodAmount) {
	file.SetCellValue(sheet, "A1", label)
	file.SetCellValue(sheet, "B1", "Pagamenti")
	file.SetCellValue(sheet, "C1", "Incasso")
	for i, b := range buckets {
		row := i + 2
		file.SetCellValue(sheet, cell(0, row), b.Period)
		file.SetCellValue(sheet, cell(1, row), b.Count)
		file.SetCellValue(sheet, cell(2, row), b.Amount.Euros())
	}
}

// cell maps a zero-based column and one-based row to an A1 reference
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
