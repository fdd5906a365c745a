package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// MongoStore keeps each user's active document and its conversation log.
type MongoStore struct {
	docs  *mongo.Collection
	convs *mongo.Collection
	seq   sequencer
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		docs:  db.Collection("documents"),
		convs: db.Collection("conversations"),
	}
}

// EnsureIndexes makes user_id unique on documents and orders conversation reads.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.docs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo documents index: %w", err)
	}
	_, err = s.convs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo conversations index: %w", err)
	}
	return nil
}

// SetActive replaces the user's active document. The _id changes with every
// upload, so the old row is dropped instead of replaced in place.
func (s *MongoStore) SetActive(ctx context.Context, doc *models.Document) error {
	if _, err := s.docs.DeleteMany(ctx, bson.M{"user_id": doc.UserID}); err != nil {
		return fmt.Errorf("mongo drop previous document: %w", err)
	}
	if _, err := s.docs.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo set active document: %w", err)
	}
	return nil
}

// GetActive returns nil, nil when the user has no document.
func (s *MongoStore) GetActive(ctx context.Context, userID string) (*models.Document, error) {
	var doc models.Document
	err := s.docs.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get active document: %w", err)
	}
	return &doc, nil
}

func (s *MongoStore) DeleteActive(ctx context.Context, userID string) error {
	if _, err := s.docs.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("mongo delete active document: %w", err)
	}
	return nil
}

// AppendEntry stores entry, assigning its sequence number when unset.
func (s *MongoStore) AppendEntry(ctx context.Context, entry *models.ConversationEntry) error {
	if entry.Seq == 0 {
		entry.Seq = s.seq.next(time.Now())
	}
	if _, err := s.convs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo append entry: %w", err)
	}
	return nil
}

// ListEntries returns the conversation in chronological order.
func (s *MongoStore) ListEntries(ctx context.Context, userID string) ([]models.ConversationEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := s.convs.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list entries: %w", err)
	}
	defer cur.Close(ctx)

	var entries []models.ConversationEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("mongo decode entries: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) ClearEntries(ctx context.Context, userID string) error {
	if _, err := s.convs.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("mongo clear entries: %w", err)
	}
	return nil
}
