package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"FirstContact/bot/chat"
	"FirstContact/bot/chat/telegram"
	"FirstContact/entity"
	"FirstContact/internal/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

const (
	turnTimeout   = 60 * time.Second
	maxVoiceBytes = 20 << 20
)

const voiceUnsupportedReply = "Не получилось разобрать голосовое сообщение. Напишите, пожалуйста, текстом."

// MessageHandler runs one dialog turn for an inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, m chat.Messenger, msg entity.InboundMessage) (string, error)
}

// Transcriber converts a voice message to text.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, r io.Reader) (string, error)
}

// UserBot is the Telegram bot that talks to prospects.
type UserBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	channel     string
	messenger   *telegram.Messenger
	handler     MessageHandler
	transcriber Transcriber
}

func NewUserBot(botName, apiKey, channel string, log *slog.Logger) (*UserBot, error) {
	bot := &UserBot{
		log:         log.With(sl.Module("userbot")),
		botUsername: botName,
		channel:     channel,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	bot.api = api
	bot.messenger = telegram.NewMessenger(api)

	return bot, nil
}

func (b *UserBot) SetMessageHandler(handler MessageHandler) {
	b.handler = handler
}

func (b *UserBot) SetTranscriber(transcriber Transcriber) {
	b.transcriber = transcriber
}

// Start polls for updates until ctx is cancelled.
func (b *UserBot) Start(ctx context.Context) error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(bot *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			b.log.Error("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", b.handleStart))
	dispatcher.AddHandler(handlers.NewMessage(message.Contact, b.handleContact))
	dispatcher.AddHandler(handlers.NewMessage(message.Voice, b.handleVoice))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, b.handleMessage))

	err := updater.StartPolling(b.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	b.log.Info("user bot started", slog.String("username", b.botUsername))

	<-ctx.Done()
	return updater.Stop()
}

// handleStart greets a new chat without touching the dialog state.
func (b *UserBot) handleStart(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.messenger.SendText(strconv.FormatInt(ctx.EffectiveChat.Id, 10), chat.IntroReply)
}

// handleContact turns a shared contact card into a text turn.
func (b *UserBot) handleContact(_ *tgbotapi.Bot, ctx *ext.Context) error {
	contact := ctx.EffectiveMessage.Contact
	text := strings.TrimSpace(contact.FirstName + " " + contact.PhoneNumber)
	return b.dispatch(inboundMessage(ctx.EffectiveUser, ctx.EffectiveChat, text, b.channel))
}

func (b *UserBot) handleMessage(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return b.dispatch(inboundMessage(ctx.EffectiveUser, ctx.EffectiveChat, ctx.EffectiveMessage.Text, b.channel))
}

// handleVoice transcribes a voice message and runs it as a text turn.
func (b *UserBot) handleVoice(bot *tgbotapi.Bot, ctx *ext.Context) error {
	chatID := strconv.FormatInt(ctx.EffectiveChat.Id, 10)
	if b.transcriber == nil {
		return b.messenger.SendText(chatID, voiceUnsupportedReply)
	}

	voice := ctx.EffectiveMessage.Voice
	if voice.FileSize > maxVoiceBytes {
		return b.messenger.SendText(chatID, voiceUnsupportedReply)
	}

	c, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	text, err := b.transcribe(c, bot, voice.FileId)
	if err != nil || text == "" {
		b.log.Warn("voice message not transcribed",
			slog.Int64("user_id", ctx.EffectiveUser.Id),
			sl.Err(err),
		)
		return b.messenger.SendText(chatID, voiceUnsupportedReply)
	}

	return b.dispatch(inboundMessage(ctx.EffectiveUser, ctx.EffectiveChat, text, b.channel))
}

func (b *UserBot) transcribe(ctx context.Context, bot *tgbotapi.Bot, fileID string) (string, error) {
	file, err := bot.GetFile(fileID, nil)
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", tgbotapi.DefaultAPIURL, bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download voice: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download voice: status %d", resp.StatusCode)
	}

	return b.transcriber.Transcribe(ctx, path.Base(file.FilePath), io.LimitReader(resp.Body, maxVoiceBytes))
}

func (b *UserBot) dispatch(msg entity.InboundMessage) error {
	if b.handler == nil {
		b.log.Warn("message handler not set")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	if _, err := b.handler.HandleMessage(ctx, b.messenger, msg); err != nil {
		b.log.Error("dialog turn",
			slog.String("user_id", msg.UserID),
			sl.Err(err),
		)
	}
	return nil
}

func inboundMessage(user *tgbotapi.User, tgChat *tgbotapi.Chat, text, channel string) entity.InboundMessage {
	msg := entity.InboundMessage{
		Text:    text,
		Channel: channel,
	}
	if user != nil {
		msg.UserID = strconv.FormatInt(user.Id, 10)
		msg.Name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	if tgChat != nil {
		msg.ChatID = strconv.FormatInt(tgChat.Id, 10)
	}
	return msg
}
