// Package extract provides text extraction from corpus documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

type extractFunc func(content []byte, ext string) (string, error)

// formats maps a lowercase extension to its decoder. Anything missing is read as plain text.
var formats = map[string]extractFunc{
	".pdf":  func(b []byte, _ string) (string, error) { return extractPDF(b) },
	".xlsx": func(b []byte, _ string) (string, error) { return extractExcel(b) },
	".docx": extractDocconv,
	".odt":  extractDocconv,
	".pptx": extractDocconv,
	".rtf":  extractDocconv,
	".html": extractDocconv,
	".htm":  extractDocconv,
	".xml":  extractDocconv,
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content in source order.
// Any failure to open or parse the file is reported as errs.ErrIO.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Wrap("extract", errs.ErrIO, err)
	}
	text, err := e.ExtractBytes(content, filepath.Ext(path))
	if err != nil {
		return "", errs.Wrap("extract", errs.ErrIO, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	return text, nil
}

// ExtractBytes decodes content according to ext, e.g. ".pdf". The result is always valid
// UTF-8; invalid sequences become U+FFFD.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	fn, ok := formats[ext]
	if !ok {
		return extractPlain(content)
	}
	text, err := fn(content, ext)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(text, "\uFFFD"), nil
}

// Formats lists the extensions that get a dedicated decoder, sorted.
func Formats() []string {
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether ext matches one of allowed. The leading dot and case are ignored.
func Supports(ext string, allowed []string) bool {
	want := normalizeExt(ext)
	if want == "" {
		return false
	}
	for _, a := range allowed {
		if normalizeExt(a) == want {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
