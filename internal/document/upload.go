package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes caps uploaded files at 10MB.
const DefaultMaxUploadBytes = 10 << 20

var (
	ErrNotPDF    = errors.New("please select a PDF file")
	ErrEmptyFile = errors.New("the uploaded file is empty")
	ErrTooLarge  = errors.New("file is too large")
)

// ValidateUpload accepts a non-empty PDF no larger than maxBytes. Either the
// content type or the extension must say PDF.
func ValidateUpload(filename, contentType string, size, maxBytes int64) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(filename))
	if ct != "application/pdf" && ext != ".pdf" {
		return ErrNotPDF
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: must be less than %dMB", ErrTooLarge, maxBytes>>20)
	}
	return nil
}
