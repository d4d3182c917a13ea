// Package export renders the loaded trade rows as downloadable files.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"trading-journal-console/internal/models"
)

// Columns are the list table headers, in display order.
var Columns = []string{"ID", "Symbol", "Type", "Entry Price", "Exit Price", "Leverage", "Exchange", "Trade Date"}

// Row returns the displayed cell values of a trade.
func Row(t models.Trade) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Symbol,
		t.Type,
		number(t.EntryPrice),
		number(t.ExitPrice),
		number(t.Leverage),
		t.Exchange,
		t.TradeDate,
	}
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// CSV writes a header line and one comma-joined line per trade. Cells are not
// quoted, so embedded commas are written as they are.
func CSV(w io.Writer, trades []models.Trade) error {
	lines := make([]string, 0, len(trades)+1)
	lines = append(lines, strings.Join(Columns, ","))
	for _, t := range trades {
		lines = append(lines, strings.Join(Row(t), ","))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

var pdfWidths = []float64{18, 40, 24, 34, 34, 24, 40, 50}

// PDF writes the trades as a single table on landscape A4 pages.
func PDF(w io.Writer, title string, trades []models.Trade) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range Columns {
			pdf.CellFormat(pdfWidths[i], 8, col, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, t := range trades {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		for i, cell := range Row(t) {
			pdf.CellFormat(pdfWidths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
