package telegram

import (
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Telegram rejects longer message texts.
const maxMessageLength = 4096

// TelegramAPI defines the Telegram bot methods needed by the messenger.
type TelegramAPI interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
	SendChatAction(chatId int64, action string, opts *tgbotapi.SendChatActionOpts) (bool, error)
}

// Messenger implements chat.Messenger for Telegram.
type Messenger struct {
	api TelegramAPI
}

func NewMessenger(api TelegramAPI) *Messenger {
	return &Messenger{api: api}
}

// SendText sends plain text; generated replies are not valid HTML or Markdown.
func (m *Messenger) SendText(chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	for _, part := range splitText(text, maxMessageLength) {
		if _, err = m.api.SendMessage(id, part, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *Messenger) SendTyping(chatID string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = m.api.SendChatAction(id, "typing", nil)
	return err
}

// splitText cuts text into parts of at most limit runes, preferring line breaks.
func splitText(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}
		parts = append(parts, string(runes[:cut]))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
