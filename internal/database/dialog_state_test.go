package repository

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

func unreachableMongo() *MongoDB {
	return &MongoDB{
		ctx: context.Background(),
		clientOptions: options.Client().
			ApplyURI("mongodb://127.0.0.1:1").
			SetServerSelectionTimeout(200 * time.Millisecond),
		database: "test",
		stateTTL: time.Hour,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestDialogStateErrorsAreWrapped(t *testing.T) {
	m := unreachableMongo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.DeleteDialogState(ctx, "u1"); err == nil || !strings.HasPrefix(err.Error(), "mongodb delete dialog state: ") {
		t.Errorf("DeleteDialogState error = %v", err)
	}
	if _, err := m.LoadDialogState(ctx, "u1"); err == nil || !strings.HasPrefix(err.Error(), "mongodb load dialog state: ") {
		t.Errorf("LoadDialogState error = %v", err)
	}
}
