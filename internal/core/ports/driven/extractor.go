package driven

// Extractor converts a raw file into plain text, dispatching purely on
// the declared MIME type; no content sniffing.
type Extractor interface {
	// Extract reads the file at path and returns its plain text.
	// Fails with domain.ErrExtractionFailed (wrapping the cause) when the
	// file cannot be parsed; an empty result is not an error here.
	Extract(path string) (string, error)

	// SupportedTypes returns the MIME types this extractor handles.
	// Wildcards are allowed (e.g. "text/*").
	SupportedTypes() []string

	// Priority breaks ties when multiple extractors match a MIME type;
	// higher wins.
	Priority() int
}

// ExtractorRegistry selects an extractor for a declared content type.
type ExtractorRegistry interface {
	// Register registers an extractor.
	Register(e Extractor)

	// Get retrieves the best-matching extractor for a MIME type,
	// or nil if none is registered for it.
	Get(mimeType string) Extractor

	// List returns all registered MIME types.
	List() []string
}
