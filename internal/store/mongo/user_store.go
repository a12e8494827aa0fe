package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"nexasphere/internal/domain"
)

const usersCollection = "users"

// UserStore is the read-only window onto the users collection owned by the
// identity service. Only display info and the follow relationship are read.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(usersCollection)}
}

var _ domain.UserDirectory = (*UserStore)(nil)

func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return withReadRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		var u domain.User
		err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		return &u, nil
	})
}
