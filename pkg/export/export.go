// Package export renders tabular documents such as transcripts to CSV and PDF.
package export

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf, case-insensitively.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Document is a titled table. Title and Meta only appear in PDF output.
type Document struct {
	Title   string
	Meta    []string
	Headers []string
	Rows    [][]string
}

func (d Document) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("document requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}

// Render encodes the document in the requested format.
func Render(format Format, doc Document) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RenderCSV(doc)
	case FormatPDF:
		return RenderPDF(doc)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
