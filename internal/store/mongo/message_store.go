package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"nexasphere/internal/domain"
)

const messagesCollection = "messages"

type MessageStore struct {
	col *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{col: db.Collection(messagesCollection)}
}

var _ domain.MessageStore = (*MessageStore)(nil)

func (s *MessageStore) Create(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, newMessageDocument(m)); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*domain.Message, error) {
		var doc messageDocument
		err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get message: %w", err)
		}
		return doc.toDomain(), nil
	})
}

// ListByIDs returns messages in the order of ids. Ids that no longer resolve
// (hard-deleted messages) are skipped, not errors.
func (s *MessageStore) ListByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	if len(ids) == 0 {
		return []*domain.Message{}, nil
	}
	return withReadRetry(ctx, func(ctx context.Context) ([]*domain.Message, error) {
		cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		defer cur.Close(ctx)

		byID := make(map[string]*domain.Message, len(ids))
		for cur.Next(ctx) {
			var doc messageDocument
			if err := cur.Decode(&doc); err != nil {
				return nil, fmt.Errorf("decode message: %w", err)
			}
			byID[doc.ID] = doc.toDomain()
		}
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		res := make([]*domain.Message, 0, len(byID))
		for _, id := range ids {
			if m, ok := byID[id]; ok {
				res = append(res, m)
			}
		}
		return res, nil
	})
}

func (s *MessageStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := s.col.UpdateMany(ctx, bson.M{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"read":        false,
	}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MessageStore) SoftDelete(ctx context.Context, id, userID string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"deleted_for": userID},
	})
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MessageStore) HardDelete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type messageDocument struct {
	ID         string   `bson:"_id"`
	SenderID   string   `bson:"sender_id"`
	ReceiverID string   `bson:"receiver_id"`
	Body       string   `bson:"body"`
	Read       bool     `bson:"read"`
	DeletedFor []string `bson:"deleted_for"`
	CreatedAt  int64    `bson:"created_at"`
}

func newMessageDocument(m *domain.Message) messageDocument {
	deletedFor := m.DeletedFor
	if deletedFor == nil {
		deletedFor = []string{}
	}
	return messageDocument{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		Read:       m.Read,
		DeletedFor: deletedFor,
		CreatedAt:  m.CreatedAt.UnixMilli(),
	}
}

func (d messageDocument) toDomain() *domain.Message {
	return &domain.Message{
		ID:         d.ID,
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Body:       d.Body,
		Read:       d.Read,
		DeletedFor: d.DeletedFor,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
}
