package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"FirstContact/bot/chat"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, 2*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil))), s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()

	state := chat.NewDialogState("42", chat.Phase4A)
	state.Merge(map[string]string{chat.VarGoal: "лидогенерация"})
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !s.Exists("dialog_state:42") {
		t.Fatal("key dialog_state:42 not written")
	}
	if ttl := s.TTL("dialog_state:42"); ttl != 2*time.Hour {
		t.Errorf("ttl = %v, want 2h", ttl)
	}

	got, err := store.Load(ctx, "42")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Phase != chat.Phase4A || got.Get(chat.VarGoal) != "лидогенерация" || got.UserID != "42" {
		t.Errorf("loaded %+v", got)
	}
}

func TestRedisStoreMissingAndExpired(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()

	if got, err := store.Load(ctx, "nobody"); err != nil || got != nil {
		t.Fatalf("Load missing = %+v, %v", got, err)
	}

	if err := store.Save(ctx, chat.NewDialogState("7", chat.Phase2A)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.FastForward(2*time.Hour + time.Second)
	if got, err := store.Load(ctx, "7"); err != nil || got != nil {
		t.Errorf("Load expired = %+v, %v", got, err)
	}
}

func TestRedisStoreReadsLegacyRecord(t *testing.T) {
	store, s := newTestStore(t)
	if err := s.Set("dialog_state:9", `{"phase": "phase6A", "vars": {"crm": "AmoCRM"}}`); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(context.Background(), "9")
	if err != nil || got == nil {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if got.Phase != chat.Phase6A || got.Get(chat.VarCrm) != "AmoCRM" {
		t.Errorf("loaded %+v", got)
	}
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	store, s := newTestStore(t)
	if err := s.Set("dialog_state:9", "not json"); err != nil {
		t.Fatal(err)
	}
	if got, err := store.Load(context.Background(), "9"); err != nil || got != nil {
		t.Errorf("Load corrupt = %+v, %v", got, err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, chat.NewDialogState("5", chat.Phase1)); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "5"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("dialog_state:5") {
		t.Error("key still present")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, s := newTestStore(t)
	s.Close()
	if _, err := store.Load(context.Background(), "1"); err == nil {
		t.Error("expected error from closed server")
	}
}
