package extractors

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// TextExtractor handles plain text and Markdown files, read as UTF-8
// verbatim.
type TextExtractor struct{}

func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", domain.ErrExtractionFailed, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtractionFailed, path)
	}
	return string(data), nil
}

func (e *TextExtractor) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown", "text/md"}
}

func (e *TextExtractor) Priority() int { return 10 }
