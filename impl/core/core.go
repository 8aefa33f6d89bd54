package core

import (
	"FirstContact/bot/chat"
	"FirstContact/entity"
	"FirstContact/internal/lib/sl"
	"context"
	"log/slog"
	"sync"
)

type Repository interface {
	CheckApiKey(key string) (string, error)
	GenerateApiKey(username string) (string, error)

	SaveChatMessage(msg entity.ChatMessage) error
	GetChatMessages(userID string, limit, offset int) ([]entity.ChatMessage, error)
}

type DialogEngine interface {
	HandleMessage(ctx context.Context, m chat.Messenger, msg entity.InboundMessage) (string, error)
	State(ctx context.Context, userID string) (*chat.DialogState, error)
	Reset(ctx context.Context, userID string) error
}

type LeadService interface {
	SubmitLead(ctx context.Context, lead entity.LeadPayload) error
}

type Retriever interface {
	Ready() bool
}

type Notifier interface {
	NotifyLead(lead entity.LeadPayload)
}

type WsHub interface {
	BroadcastMessage(msg entity.ChatMessage)
	BroadcastReset(userID string)
}

type Core struct {
	engine    DialogEngine
	repo      Repository
	crm       LeadService
	retriever Retriever
	notifier  Notifier
	wsHub     WsHub
	authKey   string
	keys      map[string]string
	mu        sync.RWMutex
	log       *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:  log.With(sl.Module("core")),
		keys: make(map[string]string),
	}
}

func (c *Core) SetDialogEngine(engine DialogEngine) {
	c.engine = engine
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetLeadService(crm LeadService) {
	c.crm = crm
}

func (c *Core) SetRetriever(retriever Retriever) {
	c.retriever = retriever
}

func (c *Core) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}

func (c *Core) SetWsHub(hub WsHub) {
	c.wsHub = hub
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

func (c *Core) Health() entity.Health {
	return entity.Health{
		Status:          "ok",
		Agent:           "FirstContact AI",
		Agency:          "NeuroPragmat",
		RetrieverLoaded: c.retriever != nil && c.retriever.Ready(),
	}
}
