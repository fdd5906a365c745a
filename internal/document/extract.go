// Package document turns uploaded PDF bytes into plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction means no text could be recovered from the file.
var ErrExtraction = errors.New("could not extract text from the PDF")

// ExtractionError wraps ErrExtraction with the underlying cause.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	if e.Cause == nil {
		return ErrExtraction.Error()
	}
	return fmt.Sprintf("%s: %v", ErrExtraction, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

// Extractor reads the text layer of a PDF.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of every page, pages separated by a blank line.
// A file without any text layer yields an *ExtractionError.
func (e *Extractor) Extract(data []byte) (text string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ExtractionError{Cause: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Cause: fmt.Errorf("page %d: %w", i, err)}
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}

	if len(pages) == 0 {
		return "", &ExtractionError{Cause: errors.New("no text layer")}
	}
	return strings.Join(pages, "\n\n"), nil
}
