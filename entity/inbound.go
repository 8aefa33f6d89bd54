package entity

import (
	"FirstContact/internal/lib/validate"
	"net/http"
	"strings"
)

// InboundMessage is one raw text message from a chat transport.
type InboundMessage struct {
	UserID  string `json:"user_id" validate:"required"`
	ChatID  string `json:"chat_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Text    string `json:"text" validate:"required"`
	Channel string `json:"channel,omitempty"`
}

// Chat returns the reply address, falling back to the user id.
func (m InboundMessage) Chat() string {
	if m.ChatID != "" {
		return m.ChatID
	}
	return m.UserID
}

func (m *InboundMessage) Bind(_ *http.Request) error {
	m.UserID = strings.TrimSpace(m.UserID)
	m.Text = strings.TrimSpace(m.Text)
	return validate.Struct(m)
}
