package core

import (
	"FirstContact/bot/chat"
	"FirstContact/entity"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotAvailable = errors.New("service not available")
	ErrUserRequired = errors.New("user id is required")
)

// HandleMessage runs a dialog turn for callers that deliver the reply themselves.
func (c *Core) HandleMessage(ctx context.Context, m chat.Messenger, msg entity.InboundMessage) (string, error) {
	if c.engine == nil {
		return chat.FallbackReply, ErrNotAvailable
	}
	return c.engine.HandleMessage(ctx, m, msg)
}

func (c *Core) GetDialogState(ctx context.Context, userID string) (*chat.DialogState, error) {
	if c.engine == nil {
		return nil, ErrNotAvailable
	}
	if userID == "" {
		return nil, ErrUserRequired
	}
	return c.engine.State(ctx, userID)
}

func (c *Core) ResetDialog(ctx context.Context, userID string) error {
	if c.engine == nil {
		return ErrNotAvailable
	}
	if userID == "" {
		return ErrUserRequired
	}

	if err := c.engine.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset dialog: %w", err)
	}
	c.log.With(
		slog.String("user_id", userID),
	).Info("reset dialog")

	if c.wsHub != nil {
		c.wsHub.BroadcastReset(userID)
	}
	return nil
}

func (c *Core) GetChatMessages(userID string, limit, offset int) ([]entity.ChatMessage, error) {
	if c.repo == nil {
		return nil, ErrNotAvailable
	}
	if userID == "" {
		return nil, ErrUserRequired
	}
	return c.repo.GetChatMessages(userID, limit, offset)
}

// SaveAndBroadcastChatMessage journals a transcript entry and pushes it to operators.
func (c *Core) SaveAndBroadcastChatMessage(msg entity.ChatMessage) {
	if c.repo != nil {
		if err := c.repo.SaveChatMessage(msg); err != nil {
			c.log.Error("failed to save chat message",
				slog.String("channel", msg.Channel),
				slog.String("user_id", msg.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	if c.wsHub != nil {
		c.wsHub.BroadcastMessage(msg)
	}
}

func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	if c.authKey != "" && token == c.authKey {
		return &entity.UserAuth{Username: "internal", Token: token}, nil
	}

	c.mu.RLock()
	username, ok := c.keys[token]
	c.mu.RUnlock()
	if ok {
		return &entity.UserAuth{Username: username, Token: token}, nil
	}

	if c.repo == nil {
		return nil, fmt.Errorf("invalid token")
	}
	username, err := c.repo.CheckApiKey(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	c.mu.Lock()
	c.keys[token] = username
	c.mu.Unlock()

	return &entity.UserAuth{Username: username, Token: token}, nil
}

func (c *Core) GenerateApiKey(username string) (string, error) {
	if c.repo == nil {
		return "", fmt.Errorf("repository is not set")
	}

	apiKey, err := c.repo.GenerateApiKey(username)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	c.mu.Lock()
	c.keys[apiKey] = username
	c.mu.Unlock()
	return apiKey, nil
}
