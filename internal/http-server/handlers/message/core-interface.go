package message

import (
	"FirstContact/bot/chat"
	"FirstContact/entity"
	"context"
)

type Core interface {
	HandleMessage(ctx context.Context, m chat.Messenger, msg entity.InboundMessage) (string, error)
}
