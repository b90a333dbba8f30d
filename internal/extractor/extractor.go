// Package extractor turns source files into plain text for the session.
package extractor

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"paperqa/internal/domain"
	"paperqa/internal/logger"
)

// Extractor dispatches on file extension.
type Extractor struct {
	log zerolog.Logger
}

var _ domain.Extractor = (*Extractor)(nil)

// New creates an extractor. A nil logger discards output.
func New(l *logger.Logger) *Extractor {
	if l == nil {
		l = logger.Nop()
	}
	return &Extractor{log: l.Component("extractor")}
}

// Supported reports whether path has an extension Extract understands.
func Supported(path string) bool {
	switch ext(path) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// Extract returns the text of the file at path. PDF pages are each followed
// by a newline.
func (e *Extractor) Extract(path string) (string, error) {
	switch ext(path) {
	case ".pdf":
		return e.pdfText(path)
	case ".txt", ".md":
		return readPlain(path)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Base(path))
	}
}

// Metadata returns descriptive fields of the file. For PDFs these are the
// Info dictionary entries.
func (e *Extractor) Metadata(path string) (map[string]string, error) {
	switch ext(path) {
	case ".pdf":
		return pdfInfo(path)
	case ".txt", ".md":
		return plainInfo(path)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Base(path))
	}
}

// Load extracts path into a Document ready for the session.
func (e *Extractor) Load(path string) (domain.Document, error) {
	text, err := e.Extract(path)
	if err != nil {
		return domain.Document{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := sha1.Sum([]byte(abs))
	e.log.Debug().Str("path", abs).Int("chars", len(text)).Msg("extracted")
	return domain.Document{ID: hex.EncodeToString(h[:8]), Path: abs, Content: text}, nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
