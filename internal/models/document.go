package models

import "time"

// Document is the active PDF of a user, stored in MongoDB. A user has at most
// one; uploading a new file replaces it.
type Document struct {
	ID        string    `json:"id"         bson:"_id"`
	UserID    string    `json:"user_id"    bson:"user_id"`
	Filename  string    `json:"filename"   bson:"filename"`
	RawText   string    `json:"-"          bson:"raw_text"`
	ObjectKey string    `json:"-"          bson:"object_key"`
	SizeBytes int64     `json:"size_bytes" bson:"size_bytes"`
	CharCount int       `json:"char_count" bson:"char_count"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Role of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source names the responder that produced an answer.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
)

// Answer is the unified result of answering one question.
type Answer struct {
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationEntry is one message in the log of the active document.
type ConversationEntry struct {
	ID         string    `json:"id"               bson:"_id"`
	UserID     string    `json:"-"                bson:"user_id"`
	DocumentID string    `json:"document_id"      bson:"document_id"`
	Role       Role      `json:"role"             bson:"role"`
	Content    string    `json:"content"          bson:"content"`
	Source     Source    `json:"source,omitempty" bson:"source,omitempty"`
	Timestamp  time.Time `json:"timestamp"        bson:"timestamp"`
	// Seq breaks timestamp ties; BSON dates only keep milliseconds.
	Seq        int64     `json:"-"                bson:"seq"`
}

// AskRequest is the JSON body for POST /api/chat. APIKey and Model override
// the saved settings for this one question.
type AskRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
}
