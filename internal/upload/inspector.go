package upload

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFInspector opens documents with the pdf reader to confirm they are
// structurally sound and to pull their text for job matching.
type PDFInspector struct{}

func NewPDFInspector() *PDFInspector {
	return &PDFInspector{}
}

// Inspect returns the page count, or an error if the document cannot be opened.
func (pi *PDFInspector) Inspect(content []byte) (pages int, err error) {
	defer recoverInto(&err)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	pages = r.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}

// ExtractText concatenates the plain text of every readable page.
func (pi *PDFInspector) ExtractText(content []byte) (text string, err error) {
	defer recoverInto(&err)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped, the rest still helps matching
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	text = cleanText(textBuilder.String())
	if text == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return text, nil
}

// the reader panics on some malformed cross reference tables
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed PDF: %v", r)
	}
}

func cleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
