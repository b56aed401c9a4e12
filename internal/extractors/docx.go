package extractors

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCXExtractor extracts text from DOCX files by reading the
// word/document.xml part of the OOXML package. Non-empty paragraph
// texts are joined by double newlines.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Extract(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, path, err)
	}
	defer archive.Close()

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: %s has no word/document.xml", domain.ErrExtractionFailed, path)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", domain.ErrExtractionFailed, path, err)
	}
	defer rc.Close()

	paragraphs, err := parseParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", domain.ErrExtractionFailed, path, err)
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

func (e *DOCXExtractor) SupportedTypes() []string {
	return []string{docxContentType}
}

func (e *DOCXExtractor) Priority() int { return 10 }

// parseParagraphs streams the WordprocessingML body, collecting the
// text runs (w:t) of each paragraph (w:p). Empty paragraphs are
// dropped.
func parseParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := decoder.DecodeElement(&text, &t); err != nil {
						return nil, err
					}
					current.WriteString(text)
				}
			case "tab":
				if inParagraph {
					current.WriteByte('\t')
				}
			case "br":
				if inParagraph {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	return paragraphs, nil
}
