package services

import (
	"fmt"
	"io"
	"time"

	"backend/models"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WriteComparisonPDF renders the quote comparison report for an RFQ: one
// table row per line item with the best price and the supplier who offered
// it. The layout follows the portrait A4 report format used elsewhere in
// the app.
func WriteComparisonPDF(w io.Writer, rfq models.RFQ, baselines []models.LineItemBaseline, supplierCount int) error {
	titleCaser := cases.Title(language.Und)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Title banner
	pdf.SetFillColor(46, 94, 140)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(190, 12, "Quote Comparison Report", "1", 1, "C", true, 0, "")
	pdf.SetFillColor(255, 255, 255)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// RFQ summary block
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 10, "RFQ Details", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	details := [][2]string{
		{"RFQ ID", rfq.RFQID},
		{"Title", rfq.Title},
		{"Status", titleCaser.String(rfq.Status)},
		{"Currency", rfq.Currency},
		{"Due Date", rfq.DueDate.Format("2006-01-02")},
		{"Suppliers Compared", fmt.Sprintf("%d", supplierCount)},
		{"Generated", time.Now().Format("2006-01-02 15:04")},
	}
	for _, d := range details {
		pdf.CellFormat(60, 8, d[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(130, 8, d[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Line item table
	writeBaselineHeader := func() {
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(80, 8, "Line Item", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 8, "Best Price", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 8, "Best Supplier", "1", 0, "C", true, 0, "")
		pdf.CellFormat(20, 8, "Offers", "1", 1, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 10, "Lowest Offers by Line Item", "1", 1, "C", true, 0, "")
	writeBaselineHeader()

	pdf.SetFont("Arial", "", 9)
	for _, b := range baselines {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			writeBaselineHeader()
			pdf.SetFont("Arial", "", 9)
		}
		description := b.Description
		if description == "" {
			description = b.RowID
		}
		supplier := b.SupplierName
		if supplier == "" {
			supplier = b.SupplierID
		}
		pdf.CellFormat(80, 8, truncate(description, 55), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", b.BestPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, 8, truncate(supplier, 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", b.Offers), "1", 1, "C", false, 0, "")
	}

	if len(baselines) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(190, 10, "No priced line items found in the submitted quotes.", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error generating PDF: %v", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
