package dialog

import (
	"FirstContact/bot/chat"
	"FirstContact/entity"
	"context"
)

type Core interface {
	GetDialogState(ctx context.Context, userID string) (*chat.DialogState, error)
	ResetDialog(ctx context.Context, userID string) error
	GetChatMessages(userID string, limit, offset int) ([]entity.ChatMessage, error)
}
