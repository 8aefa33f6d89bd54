package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FirstContact/bot/chat"
	"FirstContact/internal/lib/sl"

	"github.com/redis/go-redis/v9"
)

const dialogStateKeyPrefix = "dialog_state:"

// RedisStore keeps dialog states as JSON values with an inactivity TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

type dialogRecord struct {
	Phase     chat.Phase        `json:"phase"`
	Vars      map[string]string `json:"vars"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewRedisStore(url string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opt), ttl, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    logger.With(sl.Module("redis")),
	}
}

func dialogStateKey(userID string) string {
	return dialogStateKeyPrefix + userID
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*chat.DialogState, error) {
	data, err := s.client.Get(ctx, dialogStateKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get dialog state: %w", err)
	}

	var record dialogRecord
	if err = json.Unmarshal(data, &record); err != nil {
		s.log.Warn("discarding unreadable dialog state",
			slog.String("user_id", userID),
			sl.Err(err),
		)
		return nil, nil
	}
	if record.Vars == nil {
		record.Vars = make(map[string]string)
	}

	return &chat.DialogState{
		UserID:    userID,
		Phase:     record.Phase,
		Variables: record.Vars,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, state *chat.DialogState) error {
	data, err := json.Marshal(dialogRecord{
		Phase:     state.Phase,
		Vars:      state.Variables,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("encoding dialog state: %w", err)
	}
	if err = s.client.Set(ctx, dialogStateKey(state.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set dialog state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, dialogStateKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete dialog state: %w", err)
	}
	return nil
}
