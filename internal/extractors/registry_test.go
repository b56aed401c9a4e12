package extractors

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

func TestRegistry_Get(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		mimeType string
		found    bool
	}{
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"text/markdown", true},
		{"application/pdf", true},
		{docxContentType, true},
		{"image/png", false},
		{"application/zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			e := r.Get(tt.mimeType)
			if tt.found && e == nil {
				t.Errorf("expected extractor for %q", tt.mimeType)
			}
			if !tt.found && e != nil {
				t.Errorf("expected no extractor for %q", tt.mimeType)
			}
		})
	}
}

type wildcardExtractor struct{ prio int }

func (e *wildcardExtractor) Extract(string) (string, error) { return "", nil }
func (e *wildcardExtractor) SupportedTypes() []string       { return []string{"text/*"} }
func (e *wildcardExtractor) Priority() int                  { return e.prio }

func TestRegistry_PrioritySelection(t *testing.T) {
	r := NewRegistry()
	low := &wildcardExtractor{prio: 1}
	high := &wildcardExtractor{prio: 100}
	r.Register(low)
	r.Register(high)

	if got := r.Get("text/plain"); got != high {
		t.Error("expected highest priority extractor to win")
	}
}

func TestRegistry_List(t *testing.T) {
	r := DefaultRegistry()
	types := r.List()
	if len(types) == 0 {
		t.Fatal("expected registered types")
	}
	seen := make(map[string]bool)
	for _, mt := range types {
		seen[mt] = true
	}
	for _, want := range []string{"text/plain", "application/pdf", docxContentType} {
		if !seen[want] {
			t.Errorf("missing type %s", want)
		}
	}
}

func TestTextExtractor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	content := "first paragraph\n\nsecond paragraph"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &TextExtractor{}
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != content {
		t.Errorf("expected verbatim content, got %q", got)
	}
}

func TestTextExtractor_MissingFile(t *testing.T) {
	e := &TextExtractor{}
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestTextExtractor_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o644); err != nil {
		t.Fatal(err)
	}

	e := &TextExtractor{}
	_, err := e.Extract(path)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

// writeTestDocx builds a minimal OOXML package with the given paragraphs.
func writeTestDocx(t *testing.T, path string, paragraphs []string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}

	body := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`

	if _, err := doc.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDOCXExtractor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeTestDocx(t, path, []string{"Introduction text.", "", "Body of the document."})

	e := &DOCXExtractor{}
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Introduction text.\n\nBody of the document."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDOCXExtractor_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &DOCXExtractor{}
	_, err := e.Extract(path)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestPDFExtractor_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 truncated garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &PDFExtractor{}
	_, err := e.Extract(path)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}
