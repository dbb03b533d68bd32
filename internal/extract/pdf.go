package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of all pages in page order, with no separator between pages.
func extractPDF(content []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	text, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read PDF text: %w", err)
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, text); err != nil {
		return "", fmt.Errorf("read PDF text: %w", err)
	}
	return out.String(), nil
}
