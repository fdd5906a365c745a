package chat

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// RenderConversation lays out a conversation log as an A4 PDF.
func RenderConversation(filename string, entries []models.ConversationEntry, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Conversation about "+filename), false)
	pdf.SetAuthor("PDF Chat", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 10, tr(filename), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Exported on %s - %d messages", generated.Format("2006-01-02 15:04"), len(entries)))
	pdf.Ln(10)

	for _, e := range entries {
		writeEntry(pdf, tr, e)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render conversation: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(pdf *gofpdf.Fpdf, tr func(string) string, e models.ConversationEntry) {
	speaker := "You"
	if e.Role == models.RoleAssistant {
		speaker = "Assistant"
		if e.Source == models.SourceModel {
			speaker = "Assistant (OpenAI)"
		}
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("%s  %s", speaker, e.Timestamp.Format("15:04")))
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range strings.Split(strings.TrimSpace(e.Content), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			pdf.Ln(3)
			continue
		}
		pdf.MultiCell(0, 5.5, tr(line), "", "L", false)
	}
	pdf.Ln(5)
}
