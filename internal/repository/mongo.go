package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

const chatsCollection = "chats"

// MongoStore implements Store on a MongoDB collection with one document per
// session, keyed by a unique sessionId index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the sessionId index exists.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	coll := client.Database(database).Collection(chatsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create sessionId index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// GetSession retrieves a session by ID.
func (s *MongoStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.coll.FindOne(ctx, sessionFilter(sessionID)).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}
	return &session, nil
}

// AppendMessages pushes msgs onto the log with a single upserting update.
func (s *MongoStore) AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	_, err := s.coll.UpdateOne(ctx,
		sessionFilter(sessionID),
		appendUpdate(msgs, time.Now()),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// DeleteSession deletes a session document.
func (s *MongoStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.coll.DeleteOne(ctx, sessionFilter(sessionID))
	return err
}

func sessionFilter(sessionID string) bson.M {
	return bson.M{"sessionId": sessionID}
}

// appendUpdate builds the update document. On insert, sessionId comes from
// the equality filter.
func appendUpdate(msgs []domain.Message, now time.Time) bson.M {
	return bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": msgs}},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
