package chat

// Messenger is the platform UI adapter interface.
type Messenger interface {
	SendText(chatID, text string) error
	SendTyping(chatID string) error
}
