package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nexasphere/internal/domain"
)

const conversationsCollection = "conversations"

type ConversationStore struct {
	col *mongo.Collection
}

func NewConversationStore(db *mongo.Database) *ConversationStore {
	return &ConversationStore{col: db.Collection(conversationsCollection)}
}

var _ domain.ConversationStore = (*ConversationStore)(nil)

// pairKey canonicalizes the unordered participant pair. The unique index on
// this field is what prevents duplicate conversations under concurrent
// first-sends.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (s *ConversationStore) FindOrCreate(ctx context.Context, a, b string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	filter := bson.M{"pair_key": pairKey(a, b)}
	update := bson.M{"$setOnInsert": conversationDocument{
		ID:           uuid.NewString(),
		Participants: []string{a, b},
		PairKey:      pairKey(a, b),
		MessageIDs:   []string{},
		CreatedAt:    now.UnixMilli(),
		UpdatedAt:    now.UnixMilli(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// two first-sends raced on the upsert; the unique pair_key index
		// rejected one, and the conversation now exists for a plain read
		err = s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("find or create conversation: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *ConversationStore) Get(ctx context.Context, a, b string) (*domain.Conversation, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*domain.Conversation, error) {
		var doc conversationDocument
		err := s.col.FindOne(ctx, bson.M{"pair_key": pairKey(a, b)}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		return doc.toDomain(), nil
	})
}

func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID, messageID string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$push": bson.M{"message_ids": messageID},
		"$set":  bson.M{"updated_at": time.Now().UTC().UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type conversationDocument struct {
	ID           string   `bson:"_id"`
	Participants []string `bson:"participants"`
	PairKey      string   `bson:"pair_key"`
	MessageIDs   []string `bson:"message_ids"`
	CreatedAt    int64    `bson:"created_at"`
	UpdatedAt    int64    `bson:"updated_at"`
}

func (d conversationDocument) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:           d.ID,
		Participants: d.Participants,
		MessageIDs:   d.MessageIDs,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
