package repository

import (
	"FirstContact/bot/chat"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type dialogStateDoc struct {
	UserID    string            `bson:"user_id"`
	Phase     chat.Phase        `bson:"phase"`
	Variables map[string]string `bson:"variables"`
	UpdatedAt time.Time         `bson:"updated_at"`
	ExpiresAt time.Time         `bson:"expires_at"`
}

// SaveDialogState upserts a user's dialog state and pushes its expiry forward.
func (m *MongoDB) SaveDialogState(ctx context.Context, state *chat.DialogState) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dialogStatesCollection)

	now := time.Now()
	doc := dialogStateDoc{
		UserID:    state.UserID,
		Phase:     state.Phase,
		Variables: state.Variables,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.stateTTL),
	}

	filter := bson.D{{Key: "user_id", Value: state.UserID}}
	update := bson.D{{Key: "$set", Value: doc}}
	opts := options.Update().SetUpsert(true)

	if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb save dialog state: %w", err)
	}
	return nil
}

// LoadDialogState returns nil, nil when the state is absent or expired.
// The TTL monitor runs once a minute, so expiry is also checked here.
func (m *MongoDB) LoadDialogState(ctx context.Context, userID string) (*chat.DialogState, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dialogStatesCollection)

	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now()}}},
	}

	var doc dialogStateDoc
	err = collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb load dialog state: %w", err)
	}
	if doc.Variables == nil {
		doc.Variables = make(map[string]string)
	}

	return &chat.DialogState{
		UserID:    doc.UserID,
		Phase:     doc.Phase,
		Variables: doc.Variables,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (m *MongoDB) DeleteDialogState(ctx context.Context, userID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dialogStatesCollection)

	if _, err = collection.DeleteOne(ctx, bson.D{{Key: "user_id", Value: userID}}); err != nil {
		return fmt.Errorf("mongodb delete dialog state: %w", err)
	}
	return nil
}

// EnsureDialogStateIndexes creates the unique user index and the TTL index.
func (m *MongoDB) EnsureDialogStateIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dialogStatesCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err = collection.Indexes().CreateMany(m.ctx, indexes); err != nil {
		return fmt.Errorf("mongodb create dialog state indexes: %w", err)
	}
	return nil
}
