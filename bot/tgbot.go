package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"FirstContact/entity"
	"FirstContact/internal/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

// TgBot delivers service notices to the admin chat.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start(ctx context.Context) error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Warn("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("id", t.handleId))

	err := updater.StartPolling(t.api, &ext.PollingOpts{
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

	<-ctx.Done()
	return updater.Stop()
}

// handleId tells a chat its id, used to fill admin_id.
func (t *TgBot) handleId(b *tgbotapi.Bot, ctx *ext.Context) error {
	_, err := b.SendMessage(ctx.EffectiveChat.Id, fmt.Sprintf("chat id: %d", ctx.EffectiveChat.Id), nil)
	return err
}

// SendMessage forwards a notice to the admin chat.
func (t *TgBot) SendMessage(msg string) {
	t.plainResponse(t.adminId, msg)
}

// NotifyLead announces a lead accepted by the CRM.
func (t *TgBot) NotifyLead(lead entity.LeadPayload) {
	t.plainResponse(t.adminId, FormatLeadNotice(lead))
}

func FormatLeadNotice(lead entity.LeadPayload) string {
	var sb strings.Builder
	if lead.IsHot() {
		sb.WriteString("🔥 Горячий лид\n")
	} else {
		sb.WriteString("Новый лид\n")
	}
	fmt.Fprintf(&sb, "Имя: %s\n", lead.Name)
	if lead.Phone != "" {
		fmt.Fprintf(&sb, "Телефон: %s\n", lead.Phone)
	}
	if lead.Goal != "" {
		fmt.Fprintf(&sb, "Задача: %s\n", lead.Goal)
	}
	if lead.BusinessType != "" {
		fmt.Fprintf(&sb, "Бизнес: %s\n", lead.BusinessType)
	}
	if lead.Crm != "" {
		fmt.Fprintf(&sb, "CRM: %s\n", lead.Crm)
	}
	if lead.Channel != "" {
		fmt.Fprintf(&sb, "Канал: %s", lead.Channel)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	if t.adminId == 0 {
		return
	}

	sanitized := sanitize(text)
	if sanitized == "" {
		t.log.With(
			slog.Int64("id", chatId),
		).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(
			slog.Int64("id", chatId),
		).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			// no error logging here: it would loop back into this chat
			t.log.With(
				slog.Int64("id", chatId),
			).Debug("sending safe message", slog.String("error", err.Error()))
		}
	}
}

// sanitize escapes MarkdownV2 reserved characters.
func sanitize(input string) string {
	const reservedChars = "\\`_*[]{}()#+-=.!|~>"

	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
