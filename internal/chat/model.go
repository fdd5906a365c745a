package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultModel = "gpt-4o"

	maxContentRunes = 8000
	truncatedMarker = "...[content truncated]"
	maxTokens       = 1000
	temperature     = 0.3

	emptyCompletion = "I apologize, but I couldn't generate a response. Please try again."
)

// Model failure kinds. A *ModelError unwraps to exactly one of them.
var (
	ErrAuth               = errors.New("model api key rejected")
	ErrRateLimit          = errors.New("model rate limit exceeded")
	ErrServiceUnavailable = errors.New("model service unavailable")
	ErrRequest            = errors.New("model request failed")
)

var userMessages = map[error]string{
	ErrAuth:               "Invalid API key. Please check your OpenAI API key in settings.",
	ErrRateLimit:          "Rate limit exceeded. Please try again in a moment.",
	ErrServiceUnavailable: "OpenAI service is temporarily unavailable. Please try again later.",
	ErrRequest:            "Failed to get AI response. Please try again.",
}

// UserMessage returns the text shown to users for a model failure kind.
// Unknown kinds get the generic request failure text.
func UserMessage(kind error) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[ErrRequest]
}

// SupportedModels are the completion models users may pick in settings.
var SupportedModels = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"}

// IsSupportedModel reports whether model is in SupportedModels.
func IsSupportedModel(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// ModelError is a failed model call. Error() is the message shown to the
// user; Cause keeps the upstream error for logs.
type ModelError struct {
	Kind  error
	Cause error
}

func (e *ModelError) Error() string {
	return UserMessage(e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Kind
}

const systemPrompt = `You are an AI assistant that helps users understand PDF documents. You have access to the content of a PDF document and should answer questions based on that content.

Guidelines:
- Provide accurate, helpful responses based on the PDF content
- If information isn't in the document, clearly state that
- Use specific quotes or references when possible
- Be concise but thorough
- If asked to summarize, focus on key points
- For factual questions, provide specific details from the document`

// ModelResponder answers by forwarding the question and document to a
// completion API. One attempt per call, no retries.
type ModelResponder struct {
	completer Completer
}

func NewModelResponder(completer Completer) *ModelResponder {
	return &ModelResponder{completer: completer}
}

// Respond returns the first completion's text, or a *ModelError.
func (m *ModelResponder) Respond(ctx context.Context, question, text, apiKey, model string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", &ModelError{Kind: ErrAuth, Cause: errors.New("api key is not configured")}
	}
	if model == "" {
		model = DefaultModel
	}

	res, err := m.completer.Complete(ctx, CompletionRequest{
		APIKey:       apiKey,
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(question, text),
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return emptyCompletion, nil
	}
	return res.Text, nil
}

func buildUserPrompt(question, text string) string {
	return fmt.Sprintf("Based on the following PDF content, please answer this question: \"%s\"\n\n"+
		"PDF Content:\n%s\n\n"+
		"Please provide a helpful and accurate response based on the document content.",
		question, truncate(text))
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContentRunes {
		return text
	}
	return string(runes[:maxContentRunes]) + truncatedMarker
}

func classify(err error) *ModelError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &ModelError{Kind: ErrRequest, Cause: err}
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return &ModelError{Kind: ErrAuth, Cause: err}
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return &ModelError{Kind: ErrRateLimit, Cause: err}
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return &ModelError{Kind: ErrServiceUnavailable, Cause: err}
	default:
		return &ModelError{Kind: ErrRequest, Cause: err}
	}
}
