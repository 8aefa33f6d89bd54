package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatMessage is a single transcript entry of a qualification dialog.
type ChatMessage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Channel   string             `json:"channel" bson:"channel"`
	UserID    string             `json:"user_id" bson:"user_id"`
	ChatID    string             `json:"chat_id" bson:"chat_id"`
	Direction string             `json:"direction" bson:"direction"` // "incoming" | "outgoing"
	Sender    string             `json:"sender" bson:"sender"`       // "user" | "bot"
	Text      string             `json:"text" bson:"text"`
	Phase     string             `json:"phase,omitempty" bson:"phase,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
