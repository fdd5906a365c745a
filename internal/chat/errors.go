package chat

import "errors"

var (
	// ErrNoDocument means the user has not uploaded a document yet.
	ErrNoDocument = errors.New("no document uploaded")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is required")
	// ErrExportNotIncluded means the plan has no conversation export.
	ErrExportNotIncluded = errors.New("exporting conversations requires a Premium or Pro plan")
)
