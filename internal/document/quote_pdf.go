// Package document renders printable documents for the practice.
package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"studio/internal/core"
)

// Studio is the letterhead printed on every document
type Studio struct {
	Name    string
	Address string
	Email   string
}

func DefaultStudio() Studio {
	return Studio{
		Name:    "Studio Dentistico",
		Address: "Via Roma 123, Milano - Tel: 02 1234567",
		Email:   "info@studiodentistico.it",
	}
}

var quoteNotes = []string{
	"Questo preventivo ha validità fino alla data indicata.",
	"I prezzi si intendono IVA inclusa dove applicabile.",
	"Per accettare il preventivo, contattare lo studio.",
}

const (
	margin    = 20.0
	pageWidth = 210.0
)

var whitespace = regexp.MustCompile(`\s+`)

// QuoteFilename derives the download name from patient name and date
func QuoteFilename(patientName string, now time.Time) string {
	return fmt.Sprintf("Preventivo_%s_%s.pdf", whitespace.ReplaceAllString(patientName, "_"), core.Today(now))
}

// itDate renders an ISO date or timestamp the way it-IT short dates read
func itDate(s string) string {
	if len(s) >= 10 {
		if t, err := time.Parse(core.DateLayout, s[:10]); err == nil {
			return t.Format("2/1/2006")
		}
	}
	return s
}

// QuotePDF renders quote and returns the document with its filename
func QuotePDF(quote core.Quote, studio Studio, now time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 25)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generated := "Preventivo generato il " + now.Format("2/1/2006, 15:04:05")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 5, tr(generated), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	contentWidth := pageWidth - 2*margin

	// letterhead
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(studio.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(studio.Address), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("Email: "+studio.Email), "", 1, "L", false, 0, "")
	pdf.Ln(8)
	pdf.SetLineWidth(0.5)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "PREVENTIVO", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		"Paziente: " + quote.PatientName,
		"Data emissione: " + itDate(quote.CreatedAt),
		"Valido fino al: " + itDate(quote.ValidUntil),
		"Stato: " + quote.Status.Label(),
	} {
		pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Trattamenti:", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	cols := []float64{contentWidth - 85, 20, 35, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range []string{"Descrizione", "Qtà", "Prezzo Unit.", "Totale"} {
		align := "L"
		if i == 3 {
			align = "R"
		}
		pdf.CellFormat(cols[i], 10, tr(h), "", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for i, item := range quote.Items {
		fill := i%2 == 0
		pdf.SetFillColor(250, 250, 250)
		pdf.CellFormat(cols[0], 8, tr(item.TreatmentName), "", 0, "L", fill, 0, "")
		pdf.CellFormat(cols[1], 8, strconv.Itoa(item.Quantity), "", 0, "L", fill, 0, "")
		pdf.CellFormat(cols[2], 8, tr(item.UnitPrice.Format()), "", 0, "L", fill, 0, "")
		pdf.CellFormat(cols[3], 8, tr(item.Total.Format()), "", 1, "R", fill, 0, "")

		if item.Description != "" {
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(100, 100, 100)
			pdf.SetX(margin + 5)
			pdf.MultiCell(contentWidth-10, 4, tr(item.Description), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(2)
	}

	pdf.Ln(5)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth-40, 8, "TOTALE:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, tr(quote.TotalAmount.Format()), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	for _, note := range quoteNotes {
		pdf.CellFormat(0, 5, tr(note), "", 1, "L", false, 0, "")
	}

	if pdf.Err() {
		return nil, "", fmt.Errorf("render quote %s: %w", quote.ID, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("write quote %s: %w", quote.ID, err)
	}
	return buf.Bytes(), QuoteFilename(quote.PatientName, now), nil
}
