package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"FirstContact/bot/chat"
	"FirstContact/entity"
)

type fakeEngine struct {
	reset []string
}

func (f *fakeEngine) HandleMessage(_ context.Context, _ chat.Messenger, msg entity.InboundMessage) (string, error) {
	return "echo: " + msg.Text, nil
}

func (f *fakeEngine) State(_ context.Context, userID string) (*chat.DialogState, error) {
	return chat.NewDialogState(userID, chat.Phase2A), nil
}

func (f *fakeEngine) Reset(_ context.Context, userID string) error {
	f.reset = append(f.reset, userID)
	return nil
}

type fakeRepo struct {
	keys    map[string]string
	saved   []entity.ChatMessage
	saveErr error
	checks  int
}

func (f *fakeRepo) CheckApiKey(key string) (string, error) {
	f.checks++
	if u, ok := f.keys[key]; ok {
		return u, nil
	}
	return "", errors.New("no documents")
}

func (f *fakeRepo) GenerateApiKey(username string) (string, error) {
	key := "key-" + username
	f.keys[key] = username
	return key, nil
}

func (f *fakeRepo) SaveChatMessage(msg entity.ChatMessage) error {
	f.saved = append(f.saved, msg)
	return f.saveErr
}

func (f *fakeRepo) GetChatMessages(userID string, _, _ int) ([]entity.ChatMessage, error) {
	var out []entity.ChatMessage
	for _, m := range f.saved {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCrm struct {
	err error
}

func (f *fakeCrm) SubmitLead(context.Context, entity.LeadPayload) error {
	return f.err
}

type fakeNotifier struct {
	leads []entity.LeadPayload
}

func (f *fakeNotifier) NotifyLead(lead entity.LeadPayload) {
	f.leads = append(f.leads, lead)
}

type fakeHub struct {
	messages []entity.ChatMessage
	resets   []string
}

func (f *fakeHub) BroadcastMessage(msg entity.ChatMessage) { f.messages = append(f.messages, msg) }
func (f *fakeHub) BroadcastReset(userID string) { f.resets = append(f.resets, userID) }

type readyRetriever bool

func (r readyRetriever) Ready() bool { return bool(r) }

func newCore() *Core {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSubmitLeadNotifiesHotLeads(t *testing.T) {
	c := newCore()
	notifier := &fakeNotifier{}
	c.SetLeadService(&fakeCrm{})
	c.SetNotifier(notifier)

	hot := entity.LeadPayload{Name: "Иван", Phone: "+79001234567", Goal: "обработки заявок"}
	regular := entity.LeadPayload{Name: "Клиент", Goal: entity.Undecided}

	if err := c.SubmitLead(context.Background(), hot); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitLead(context.Background(), regular); err != nil {
		t.Fatal(err)
	}
	if len(notifier.leads) != 1 || notifier.leads[0].Name != "Иван" {
		t.Errorf("notified = %+v, want hot lead only", notifier.leads)
	}
}

func TestSubmitLeadFailureSkipsNotice(t *testing.T) {
	c := newCore()
	notifier := &fakeNotifier{}
	c.SetLeadService(&fakeCrm{err: errors.New("webhook down")})
	c.SetNotifier(notifier)

	err := c.SubmitLead(context.Background(), entity.LeadPayload{Phone: "+79001234567", Goal: "продаж"})
	if err == nil || len(notifier.leads) != 0 {
		t.Errorf("err = %v, notices = %d", err, len(notifier.leads))
	}

	if err = newCore().SubmitLead(context.Background(), entity.LeadPayload{}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("without crm err = %v", err)
	}
}

func TestAuthenticateByToken(t *testing.T) {
	c := newCore()
	repo := &fakeRepo{keys: map[string]string{"k1": "operator"}}
	c.SetRepository(repo)
	c.SetAuthKey("static")

	user, err := c.AuthenticateByToken("static")
	if err != nil || user.Username != "internal" {
		t.Errorf("static key: user=%+v err=%v", user, err)
	}

	for i := 0; i < 2; i++ {
		user, err = c.AuthenticateByToken("k1")
		if err != nil || user.Username != "operator" {
			t.Fatalf("stored key: user=%+v err=%v", user, err)
		}
	}
	if repo.checks != 1 {
		t.Errorf("repository checks = %d, want cached after first", repo.checks)
	}

	if _, err = c.AuthenticateByToken("unknown"); err == nil {
		t.Error("unknown key accepted")
	}
	if _, err = c.AuthenticateByToken(""); err == nil {
		t.Error("empty key accepted")
	}
}

func TestGenerateApiKey(t *testing.T) {
	c := newCore()
	if _, err := c.GenerateApiKey("ops"); err == nil {
		t.Error("expected error without repository")
	}

	repo := &fakeRepo{keys: map[string]string{}}
	c.SetRepository(repo)
	key, err := c.GenerateApiKey("ops")
	if err != nil {
		t.Fatal(err)
	}
	user, err := c.AuthenticateByToken(key)
	if err != nil || user.Username != "ops" || repo.checks != 0 {
		t.Errorf("user=%+v err=%v checks=%d", user, err, repo.checks)
	}
}

func TestDialogOperations(t *testing.T) {
	c := newCore()
	ctx := context.Background()

	if _, err := c.GetDialogState(ctx, "u1"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("without engine err = %v", err)
	}

	engine := &fakeEngine{}
	hub := &fakeHub{}
	c.SetDialogEngine(engine)
	c.SetWsHub(hub)

	reply, err := c.HandleMessage(ctx, nil, entity.InboundMessage{UserID: "u1", Text: "hi"})
	if err != nil || reply != "echo: hi" {
		t.Errorf("reply = %q, err = %v", reply, err)
	}

	state, err := c.GetDialogState(ctx, "u1")
	if err != nil || state.Phase != chat.Phase2A {
		t.Errorf("state = %+v, err = %v", state, err)
	}
	if _, err = c.GetDialogState(ctx, ""); !errors.Is(err, ErrUserRequired) {
		t.Errorf("empty user err = %v", err)
	}

	if err = c.ResetDialog(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if len(engine.reset) != 1 || len(hub.resets) != 1 || hub.resets[0] != "u1" {
		t.Errorf("reset engine=%v hub=%v", engine.reset, hub.resets)
	}
}

func TestSaveAndBroadcastChatMessage(t *testing.T) {
	c := newCore()
	hub := &fakeHub{}
	c.SetWsHub(hub)

	msg := entity.ChatMessage{UserID: "u1", Text: "Здравствуйте"}
	c.SaveAndBroadcastChatMessage(msg)
	if len(hub.messages) != 1 {
		t.Fatalf("broadcasts = %d without repository", len(hub.messages))
	}

	repo := &fakeRepo{keys: map[string]string{}, saveErr: errors.New("mongo down")}
	c.SetRepository(repo)
	c.SaveAndBroadcastChatMessage(msg)
	if len(repo.saved) != 1 || len(hub.messages) != 2 {
		t.Errorf("saved=%d broadcasts=%d, broadcast must not depend on journal", len(repo.saved), len(hub.messages))
	}

	got, err := c.GetChatMessages("u1", 10, 0)
	if err != nil || len(got) != 1 {
		t.Errorf("messages = %v, err = %v", got, err)
	}
}

func TestHealth(t *testing.T) {
	c := newCore()
	if c.Health().RetrieverLoaded {
		t.Error("retriever loaded without retriever")
	}
	c.SetRetriever(readyRetriever(true))
	h := c.Health()
	if h.Status != "ok" || !h.RetrieverLoaded || h.Agency != "NeuroPragmat" {
		t.Errorf("health = %+v", h)
	}
}
