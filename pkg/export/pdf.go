package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// RenderPDF lays the document out as a single A4 table, sizing each column by
// its widest cell.
func RenderPDF(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	}
	if len(doc.Meta) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, line := range doc.Meta {
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	widths := columnWidths(pdf, doc)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range doc.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(pdf *gofpdf.Fpdf, doc Document) []float64 {
	pdf.SetFont("Arial", "B", 10)
	widest := make([]float64, len(doc.Headers))
	for i, header := range doc.Headers {
		widest[i] = pdf.GetStringWidth(header) + 4
	}
	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Rows {
		for i, cell := range row {
			if w := pdf.GetStringWidth(cell) + 4; w > widest[i] {
				widest[i] = w
			}
		}
	}

	var total float64
	for _, w := range widest {
		total += w
	}
	widths := make([]float64, len(widest))
	for i, w := range widest {
		widths[i] = pageWidth * w / total
	}
	return widths
}
