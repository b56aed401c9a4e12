package extractors

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// PDFExtractor extracts text from PDF files. Per-page text is
// concatenated with double newlines as page breaks; pages yielding
// empty text are skipped.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(path string) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: parsing %s: %v", domain.ErrExtractionFailed, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, path, err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d of %s: %v", domain.ErrExtractionFailed, i, path, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n\n"), nil
}

func (e *PDFExtractor) SupportedTypes() []string {
	return []string{"application/pdf"}
}

func (e *PDFExtractor) Priority() int { return 10 }
