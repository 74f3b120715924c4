// Package document turns uploaded plan files into plain text for the parser.
package document

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for files that are neither PDF nor text.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEmptyDocument is returned when a file decodes to no text at all.
	ErrEmptyDocument = errors.New("document contains no text")
)

// Extractor decodes one document format.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// Registry picks an extractor by file extension, then by declared content
// type, then by sniffing the first bytes.
type Registry struct {
	byExt  map[string]Extractor
	byMIME map[string]Extractor
}

// NewRegistry creates a registry for PDF and plain-text plans.
func NewRegistry(pdf *PDFText) *Registry {
	text := PlainText{}
	return &Registry{
		byExt: map[string]Extractor{
			".pdf": pdf,
			".txt": text,
			".md":  text,
		},
		byMIME: map[string]Extractor{
			"application/pdf": pdf,
			"text/plain":      text,
			"text/markdown":   text,
		},
	}
}

// Supported reports whether a file name has a known extension.
func (r *Registry) Supported(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract decodes data to text using the matching extractor.
func (r *Registry) Extract(ctx context.Context, name, contentType string, data []byte) (string, error) {
	ex, err := r.lookup(name, contentType, data)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(ctx, name, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}
	return text, nil
}

func (r *Registry) lookup(name, contentType string, data []byte) (Extractor, error) {
	if ex, ok := r.byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return ex, nil
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ex, ok := r.byMIME[mediaType]; ok {
			return ex, nil
		}
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if ex, ok := r.byMIME[sniffed]; ok {
		return ex, nil
	}
	return nil, fmt.Errorf("%s (%s): %w", name, contentType, ErrUnsupportedType)
}
