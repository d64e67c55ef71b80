// Package pdf extracts plain text from PDF files for ingestion.
package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction holds the result of reading a PDF file.
type Extraction struct {
	// Text is the concatenated plain text of all pages, in order.
	Text string

	// PageCount is the number of pages in the document.
	PageCount int
}

// Extract reads the PDF at path and returns its plain text page by
// page. Pages with no extractable text (scans, pure images) are kept
// as empty and do not fail the extraction.
func Extract(path string) (*Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		if sb.Len() > 0 && text != "" {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return &Extraction{
		Text:      sb.String(),
		PageCount: total,
	}, nil
}
