package document

import (
	"errors"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
		want        error
	}{
		{"pdf content type", "notes", "application/pdf", 1024, nil},
		{"pdf extension", "Paper.PDF", "application/octet-stream", 1024, nil},
		{"content type with params", "a", "application/pdf; charset=binary", 10, nil},
		{"not a pdf", "image.png", "image/png", 1024, ErrNotPDF},
		{"empty", "a.pdf", "application/pdf", 0, ErrEmptyFile},
		{"too large", "a.pdf", "application/pdf", DefaultMaxUploadBytes + 1, ErrTooLarge},
		{"exactly max", "a.pdf", "application/pdf", DefaultMaxUploadBytes, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.contentType, tt.size, DefaultMaxUploadBytes)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("definitely not a pdf"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
}

func TestExtractionErrorMessage(t *testing.T) {
	err := &ExtractionError{}
	if err.Error() != ErrExtraction.Error() {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
