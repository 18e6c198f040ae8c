package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

func TestAppendUpdateDocument(t *testing.T) {
	now := time.Now()
	msgs := []domain.Message{
		domain.NewMessage(domain.RoleUser, "hello", now),
		domain.NewMessage(domain.RoleAssistant, "hi", now),
	}

	update := appendUpdate(msgs, now)

	push, ok := update["$push"].(bson.M)
	require.True(t, ok)
	each, ok := push["messages"].(bson.M)["$each"].([]domain.Message)
	require.True(t, ok)
	assert.Equal(t, msgs, each)
	assert.Equal(t, bson.M{"updatedAt": now}, update["$set"])
	assert.Equal(t, bson.M{"createdAt": now}, update["$setOnInsert"])
}

func TestMessageBSONRoundTrip(t *testing.T) {
	session := domain.Session{
		SessionID: "s1",
		Messages:  []domain.Message{domain.NewMessage(domain.RoleUser, "hello", time.Now())},
	}

	data, err := bson.Marshal(session)
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, "s1", raw["sessionId"])
	assert.Contains(t, raw, "messages")
}

func mockNamespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestMongoStoreMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	badValue := mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}

	mt.Run("missing session is nil", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch))

		session, err := store.GetSession(ctx, "absent")
		require.NoError(mt, err)
		assert.Nil(mt, session)
	})

	mt.Run("existing session decodes in order", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch, bson.D{
			{Key: "sessionId", Value: "s1"},
			{Key: "messages", Value: bson.A{
				bson.D{{Key: "role", Value: "user"}, {Key: "content", Value: "hi"}, {Key: "timestamp", Value: ts}},
				bson.D{{Key: "role", Value: "assistant"}, {Key: "content", Value: "hello"}, {Key: "timestamp", Value: ts}},
			}},
		}))

		session, err := store.GetSession(ctx, "s1")
		require.NoError(mt, err)
		require.NotNil(mt, session)
		assert.Equal(mt, "s1", session.SessionID)
		require.Len(mt, session.Messages, 2)
		assert.Equal(mt, domain.RoleUser, session.Messages[0].Role)
		assert.Equal(mt, "hello", session.Messages[1].Content)
		assert.True(mt, ts.Equal(session.Messages[1].Timestamp))
	})

	mt.Run("session without messages has empty log", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNamespace(mt), mtest.FirstBatch,
			bson.D{{Key: "sessionId", Value: "s1"}}))

		session, err := store.GetSession(ctx, "s1")
		require.NoError(mt, err)
		require.NotNil(mt, session)
		assert.NotNil(mt, session.Messages)
		assert.Empty(mt, session.Messages)
	})

	mt.Run("find error propagates", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(badValue))

		session, err := store.GetSession(ctx, "s1")
		assert.Error(mt, err)
		assert.Nil(mt, session)
	})

	mt.Run("append upserts with ordered push", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
		))

		now := time.Now()
		err := store.AppendMessages(ctx, "s1",
			domain.NewMessage(domain.RoleUser, "hello", now),
			domain.NewMessage(domain.RoleAssistant, "hi", now))
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)

		updates, err := evt.Command.Lookup("updates").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, updates, 1)
		stmt := updates[0].Document()

		upsert, ok := stmt.Lookup("upsert").BooleanOK()
		require.True(mt, ok)
		assert.True(mt, upsert)
		assert.Equal(mt, "s1", stmt.Lookup("q", "sessionId").StringValue())

		each, err := stmt.Lookup("u", "$push", "messages", "$each").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, each, 2)
		assert.Equal(mt, "hello", each[0].Document().Lookup("content").StringValue())
		assert.Equal(mt, "assistant", each[1].Document().Lookup("role").StringValue())
	})

	mt.Run("append nothing sends no command", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}

		require.NoError(mt, store.AppendMessages(ctx, "s1"))
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("append error propagates", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 2, Message: "boom"}))

		err := store.AppendMessages(ctx, "s1", domain.NewMessage(domain.RoleUser, "hello", time.Time{}))
		assert.ErrorContains(mt, err, "failed to append messages")
	})

	mt.Run("delete of absent session is not an error", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		require.NoError(mt, store.DeleteSession(ctx, "absent"))
	})

	mt.Run("delete error propagates", func(mt *mtest.T) {
		store := &MongoStore{client: mt.Client, coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(badValue))

		assert.Error(mt, store.DeleteSession(ctx, "s1"))
	})
}
