package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayush/pdf-chat/backend/internal/billing"
	"github.com/ayush/pdf-chat/backend/internal/document"
	"github.com/ayush/pdf-chat/backend/internal/models"
	"github.com/ayush/pdf-chat/backend/internal/store"
)

// DocumentStore persists the active document and its conversation.
type DocumentStore interface {
	SetActive(ctx context.Context, doc *models.Document) error
	GetActive(ctx context.Context, userID string) (*models.Document, error)
	DeleteActive(ctx context.Context, userID string) error
	AppendEntry(ctx context.Context, entry *models.ConversationEntry) error
	ListEntries(ctx context.Context, userID string) ([]models.ConversationEntry, error)
	ClearEntries(ctx context.Context, userID string) error
}

// FileStore defines the interface for file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// TextExtractor pulls plain text out of PDF bytes.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// SettingsSource returns a user's saved model settings.
type SettingsSource interface {
	GetSettings(ctx context.Context, userID string) (models.Settings, error)
}

// Options tunes the service.
type Options struct {
	MaxUploadBytes int64
	DefaultModel   string
	// ServerAPIKey answers for users on a plan with AI responses who have
	// not saved a key of their own.
	ServerAPIKey string
}

// Service implements the chat use cases for one active document per user.
type Service struct {
	docs      DocumentStore
	files     FileStore
	extractor TextExtractor
	settings  SettingsSource
	tracker   *billing.Tracker
	answers   *Orchestrator
	gate      *Gate
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewService(
	docs DocumentStore,
	files FileStore,
	extractor TextExtractor,
	settings SettingsSource,
	tracker *billing.Tracker,
	answers *Orchestrator,
	opts Options,
	log *zap.Logger,
) *Service {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = document.DefaultMaxUploadBytes
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = DefaultModel
	}
	return &Service{
		docs:      docs,
		files:     files,
		extractor: extractor,
		settings:  settings,
		tracker:   tracker,
		answers:   answers,
		gate:      NewGate(),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// UploadResult is the accepted document plus the greeting posted for it.
type UploadResult struct {
	Document *models.Document         `json:"document"`
	Welcome  models.ConversationEntry `json:"welcome"`
}

// Upload replaces the user's active document with a new PDF. It returns
// ErrBusy while a question about the current document is pending.
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (*UploadResult, error) {
	if err := s.gate.Begin(userID); err != nil {
		return nil, err
	}
	defer s.gate.Done(userID)

	status, err := s.tracker.CheckLimit(ctx, userID, models.MonthlyUploads)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return nil, billing.Denied(status)
	}

	if err := document.ValidateUpload(filename, contentType, int64(len(data)), s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:        uuid.New().String(),
		UserID:    userID,
		Filename:  filename,
		RawText:   text,
		SizeBytes: int64(len(data)),
		CharCount: len([]rune(text)),
		CreatedAt: s.now(),
	}
	doc.ObjectKey = store.ObjectKey(userID, doc.ID)

	if err := s.files.Upload(ctx, doc.ObjectKey, data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}

	if err := s.clear(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.docs.SetActive(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.tracker.ResetDocument(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.tracker.Increment(ctx, userID, models.MonthlyUploads, 1); err != nil {
		return nil, err
	}

	key, _, err := s.resolveKey(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}
	welcome := models.ConversationEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		DocumentID: doc.ID,
		Role:       models.RoleAssistant,
		Content:    WelcomeMessage(filename, key != ""),
		Timestamp:  s.now(),
	}
	if err := s.docs.AppendEntry(ctx, &welcome); err != nil {
		return nil, fmt.Errorf("save welcome: %w", err)
	}

	s.log.Info("document uploaded",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
		zap.Int64("size_bytes", doc.SizeBytes),
		zap.Int("char_count", doc.CharCount),
	)
	return &UploadResult{Document: doc, Welcome: welcome}, nil
}

// Ask answers one question about the active document. apiKey and model
// override the saved settings when non-empty.
func (s *Service) Ask(ctx context.Context, userID, question, apiKey, model string) (models.ConversationEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ConversationEntry{}, ErrEmptyQuestion
	}

	if err := s.gate.Begin(userID); err != nil {
		return models.ConversationEntry{}, err
	}
	defer s.gate.Done(userID)

	doc, err := s.docs.GetActive(ctx, userID)
	if err != nil {
		return models.ConversationEntry{}, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return models.ConversationEntry{}, ErrNoDocument
	}

	status, err := s.tracker.CheckLimit(ctx, userID, models.QuestionsPerPDF)
	if err != nil {
		return models.ConversationEntry{}, err
	}
	if !status.Allowed {
		return models.ConversationEntry{}, billing.Denied(status)
	}

	key, model, err := s.resolveKey(ctx, userID, apiKey, model)
	if err != nil {
		return models.ConversationEntry{}, err
	}
	if key != "" {
		ai, err := s.tracker.CheckLimit(ctx, userID, models.AIResponses)
		if err != nil {
			return models.ConversationEntry{}, err
		}
		if !ai.Allowed {
			return models.ConversationEntry{}, billing.Denied(ai)
		}
	}

	userEntry := models.ConversationEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		DocumentID: doc.ID,
		Role:       models.RoleUser,
		Content:    question,
		Timestamp:  s.now(),
	}
	if err := s.docs.AppendEntry(ctx, &userEntry); err != nil {
		return models.ConversationEntry{}, fmt.Errorf("save question: %w", err)
	}
	if _, err := s.tracker.Increment(ctx, userID, models.QuestionsPerPDF, 1); err != nil {
		return models.ConversationEntry{}, err
	}

	answer, err := s.answers.Answer(ctx, question, doc.RawText, AnswerOptions{
		UseModel: key != "",
		APIKey:   key,
		Model:    model,
	})
	if err != nil {
		s.log.Warn("answer failed", zap.String("user_id", userID), zap.Error(causeOf(err)))
		return models.ConversationEntry{}, err
	}

	reply := models.ConversationEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		DocumentID: doc.ID,
		Role:       models.RoleAssistant,
		Content:    answer.Content,
		Source:     answer.Source,
		Timestamp:  answer.Timestamp,
	}
	if err := s.docs.AppendEntry(ctx, &reply); err != nil {
		return models.ConversationEntry{}, fmt.Errorf("save answer: %w", err)
	}

	s.log.Debug("question answered",
		zap.String("user_id", userID),
		zap.String("source", string(answer.Source)),
	)
	return reply, nil
}

// MaxUploadBytes is the size cap applied to uploads.
func (s *Service) MaxUploadBytes() int64 {
	return s.opts.MaxUploadBytes
}

// Busy reports whether the user has a question in flight.
func (s *Service) Busy(userID string) bool {
	return s.gate.Busy(userID)
}

// History returns the conversation of the active document, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]models.ConversationEntry, error) {
	entries, err := s.docs.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if entries == nil {
		entries = []models.ConversationEntry{}
	}
	return entries, nil
}

// Reset drops the active document, its file and its conversation. It
// returns ErrBusy while a question is pending.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if err := s.gate.Begin(userID); err != nil {
		return err
	}
	defer s.gate.Done(userID)

	if err := s.clear(ctx, userID); err != nil {
		return err
	}
	return s.tracker.ResetDocument(ctx, userID)
}

// Document returns the active document's metadata.
func (s *Service) Document(ctx context.Context, userID string) (*models.Document, error) {
	doc, err := s.docs.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	return doc, nil
}

// PDF returns the original bytes of the active document.
func (s *Service) PDF(ctx context.Context, userID string) ([]byte, *models.Document, error) {
	doc, err := s.Document(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	data, _, err := s.files.Download(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load pdf: %w", err)
	}
	return data, doc, nil
}

// Export renders the conversation to a PDF for plans that include it.
func (s *Service) Export(ctx context.Context, userID string) ([]byte, *models.Document, error) {
	ok, err := s.tracker.CanExport(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrExportNotIncluded
	}

	doc, err := s.Document(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.History(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	data, err := RenderConversation(doc.Filename, entries, s.now())
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

// clear removes whatever the user currently has loaded.
func (s *Service) clear(ctx context.Context, userID string) error {
	prev, err := s.docs.GetActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if prev != nil && prev.ObjectKey != "" {
		if err := s.files.Remove(ctx, prev.ObjectKey); err != nil {
			s.log.Warn("remove previous pdf", zap.String("key", prev.ObjectKey), zap.Error(err))
		}
	}
	if err := s.docs.DeleteActive(ctx, userID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.docs.ClearEntries(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// resolveKey picks the API key and model for a request: the override, then
// the saved settings, then the server key for plans with AI responses.
func (s *Service) resolveKey(ctx context.Context, userID, overrideKey, overrideModel string) (string, string, error) {
	st, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("load settings: %w", err)
	}

	model := firstNonEmpty(overrideModel, st.Model, s.opts.DefaultModel)
	key := firstNonEmpty(strings.TrimSpace(overrideKey), st.APIKey)
	if key != "" || s.opts.ServerAPIKey == "" {
		return key, model, nil
	}

	ok, err := s.tracker.HasAccess(ctx, userID, models.AIResponses)
	if err != nil {
		return "", "", err
	}
	if ok {
		key = s.opts.ServerAPIKey
	}
	return key, model, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func causeOf(err error) error {
	var me *ModelError
	if errors.As(err, &me) && me.Cause != nil {
		return me.Cause
	}
	return err
}

// WelcomeMessage is the first assistant entry after an upload.
func WelcomeMessage(filename string, modelEnabled bool) string {
	msg := fmt.Sprintf("Hello! I've analyzed your PDF \"%s\". Feel free to ask me any questions about its content, "+
		"and I'll help you find the information you need.", filename)
	if modelEnabled {
		return msg + " I'm powered by OpenAI for more accurate responses!"
	}
	return msg + " Add your OpenAI API key in settings for enhanced AI responses."
}

var suggestedQuestions = []string{
	"What is the main topic of this document?",
	"Can you summarize the key points?",
	"What are the conclusions?",
	"Are there any important dates or numbers mentioned?",
	"Explain the methodology used in this document",
	"What are the key findings or results?",
}

// SuggestedQuestions returns starter questions for a fresh document.
func SuggestedQuestions() []string {
	out := make([]string, len(suggestedQuestions))
	copy(out, suggestedQuestions)
	return out
}
