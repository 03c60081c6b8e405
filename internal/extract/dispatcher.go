// Package extract routes downloaded files to format-specific text extractors.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ExtractFunc extracts plain text from the file at path.
type ExtractFunc func(ctx context.Context, path string) (string, error)

// MatchFunc decides whether an extractor handles the given file. ext is the
// lowercased filename extension (including the dot); contentType is the
// declared MIME type, lowercased.
type MatchFunc func(ext, contentType string) bool

type rule struct {
	name    string
	match   MatchFunc
	extract ExtractFunc
}

// Dispatcher routes a file to the first registered extractor whose matcher
// accepts it. Extension is checked before content type by each matcher.
// A file no extractor claims yields an empty string, not an error: it is
// the "nothing to index" signal, so the pipeline stops cleanly instead of
// retrying an unsupported format forever.
type Dispatcher struct {
	rules []rule
}

// NewDispatcher returns a dispatcher with the default format table:
// images via OCR, PDF, Word, and plain text.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{}
	d.Register("ocr", matchImage, extractImage)
	d.Register("pdf", matchPDF, extractPDF)
	d.Register("word", matchWord, extractWord)
	d.Register("text", matchText, extractTextFile)
	return d
}

// Register appends an extractor rule. Rules are evaluated in registration
// order, so more specific matchers should be registered first.
func (d *Dispatcher) Register(name string, match MatchFunc, extract ExtractFunc) {
	d.rules = append(d.rules, rule{name: name, match: match, extract: extract})
}

// Extract dispatches the file at path to its extractor. Extractor-internal
// failures propagate; an unmatched format returns ("", nil).
func (d *Dispatcher) Extract(ctx context.Context, path, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(contentType)

	for _, r := range d.rules {
		if !r.match(ext, ct) {
			continue
		}
		text, err := r.extract(ctx, path)
		if err != nil {
			return "", fmt.Errorf("%s extraction failed for %q: %w", r.name, filename, err)
		}
		return text, nil
	}

	return "", nil
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
}

func matchImage(ext, contentType string) bool {
	return imageExtensions[ext] || strings.Contains(contentType, "image/")
}

func matchPDF(ext, contentType string) bool {
	return ext == ".pdf" || contentType == "application/pdf"
}

func matchWord(ext, contentType string) bool {
	return ext == ".docx" || ext == ".doc" || strings.Contains(contentType, "word")
}

var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

func matchText(ext, contentType string) bool {
	return textExtensions[ext] ||
		strings.Contains(contentType, "text/") ||
		strings.Contains(contentType, "plain")
}
