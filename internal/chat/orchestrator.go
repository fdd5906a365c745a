package chat

import (
	"context"
	"time"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// AnswerOptions selects the responder for one question.
type AnswerOptions struct {
	UseModel bool
	APIKey   string
	Model    string
}

// Orchestrator picks the model or heuristic responder and tags the answer
// with the one that produced it.
type Orchestrator struct {
	heuristic *HeuristicResponder
	model     *ModelResponder
	now       func() time.Time
}

func NewOrchestrator(heuristic *HeuristicResponder, model *ModelResponder) *Orchestrator {
	return &Orchestrator{heuristic: heuristic, model: model, now: time.Now}
}

// Answer uses the model when opts.UseModel is set and a key is present.
// Model errors are returned as-is; there is no heuristic fallback.
func (o *Orchestrator) Answer(ctx context.Context, question, text string, opts AnswerOptions) (models.Answer, error) {
	if opts.UseModel && opts.APIKey != "" {
		content, err := o.model.Respond(ctx, question, text, opts.APIKey, opts.Model)
		if err != nil {
			return models.Answer{}, err
		}
		return models.Answer{Content: content, Source: models.SourceModel, Timestamp: o.now()}, nil
	}

	content := o.heuristic.Respond(ctx, question, text)
	return models.Answer{Content: content, Source: models.SourceHeuristic, Timestamp: o.now()}, nil
}
