package chat

import "FirstContact/entity"

// MessageListener receives every inbound and outbound dialog message.
// This keeps transcript storage and broadcasting out of the chat packages.
type MessageListener interface {
	SaveAndBroadcastChatMessage(msg entity.ChatMessage)
}
