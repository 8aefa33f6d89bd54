package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	logFileName = "firstcontact.log"
)

func SetupLogger(env, logPath string) *slog.Logger {
	var out io.Writer = os.Stdout

	if logPath != "" {
		f, err := os.OpenFile(filepath.Join(logPath, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	var handler slog.Handler
	switch env {
	case envDev:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return slog.New(handler)
}

// MessageSender delivers a plain text notice to the admin chat.
type MessageSender interface {
	SendMessage(msg string)
}

// SetupTelegramHandler duplicates records at or above level to the admin chat.
func SetupTelegramHandler(log *slog.Logger, sender MessageSender, level slog.Level) *slog.Logger {
	if sender == nil {
		return log
	}
	return slog.New(&telegramHandler{
		next:   log.Handler(),
		sender: sender,
		level:  level,
	})
}

type telegramHandler struct {
	next   slog.Handler
	sender MessageSender
	level  slog.Level
	attrs  []slog.Attr
}

func (h *telegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *telegramHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		msg := r.Level.String() + ": " + r.Message
		for _, a := range h.attrs {
			msg += "\n" + a.Key + ": " + a.Value.String()
		}
		r.Attrs(func(a slog.Attr) bool {
			msg += "\n" + a.Key + ": " + a.Value.String()
			return true
		})
		go h.sender.SendMessage(msg)
	}
	return h.next.Handle(ctx, r)
}

func (h *telegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &telegramHandler{
		next:   h.next.WithAttrs(attrs),
		sender: h.sender,
		level:  h.level,
		attrs:  merged,
	}
}

func (h *telegramHandler) WithGroup(name string) slog.Handler {
	return &telegramHandler{
		next:   h.next.WithGroup(name),
		sender: h.sender,
		level:  h.level,
		attrs:  h.attrs,
	}
}
