package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
	done chan struct{}
}

func (r *recordingSender) SendMessage(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func TestTelegramHandlerForwardsOnlyAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sender := &recordingSender{done: make(chan struct{}, 4)}

	log := SetupTelegramHandler(base, sender, slog.LevelError).With(slog.String("module", "test"))
	log.Info("quiet")
	log.Error("loud", slog.String("user_id", "42"))

	select {
	case <-sender.done:
	case <-time.After(time.Second):
		t.Fatal("error record was not forwarded")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.msgs) != 1 {
		t.Fatalf("forwarded %d messages, want 1", len(sender.msgs))
	}
	for _, want := range []string{"ERROR: loud", "module: test", "user_id: 42"} {
		if !strings.Contains(sender.msgs[0], want) {
			t.Errorf("forwarded message %q lacks %q", sender.msgs[0], want)
		}
	}
	if !strings.Contains(buf.String(), "quiet") {
		t.Error("info record must still reach the base handler")
	}
}

func TestSetupTelegramHandlerNilSender(t *testing.T) {
	base := slog.Default()
	if got := SetupTelegramHandler(base, nil, slog.LevelError); got != base {
		t.Error("nil sender must return the original logger")
	}
}
