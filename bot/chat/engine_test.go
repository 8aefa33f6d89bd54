package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"FirstContact/entity"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]DialogState
	saves  int
	err    error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]DialogState)}
}

func (s *memStore) Load(_ context.Context, userID string) (*DialogState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	st, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	st.Variables = cloneVars(st.Variables)
	return &st, nil
}

func (s *memStore) Save(_ context.Context, state *DialogState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *state
	st.Variables = cloneVars(state.Variables)
	s.states[state.UserID] = st
	s.saves++
	return nil
}

func (s *memStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

func (s *memStore) get(userID string) (DialogState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	return st, ok
}

func cloneVars(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type recordingMessenger struct {
	sent []string
}

func (m *recordingMessenger) SendText(_, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *recordingMessenger) SendTyping(string) error { return nil }

type fakeSubmitter struct {
	leads []entity.LeadPayload
	err   error
}

func (s *fakeSubmitter) SubmitLead(_ context.Context, lead entity.LeadPayload) error {
	s.leads = append(s.leads, lead)
	return s.err
}

type fakeRetriever struct {
	text string
	err  error
}

func (r fakeRetriever) Retrieve(context.Context, string) (string, error) {
	return r.text, r.err
}

type mapRegistry map[Phase]PhaseHandler

func (r mapRegistry) Resolve(p Phase) (PhaseHandler, bool) {
	h, ok := r[p]
	return h, ok
}

func (r mapRegistry) Initial() Phase { return Phase1 }

type listenerFunc func(entity.ChatMessage)

func (f listenerFunc) SaveAndBroadcastChatMessage(msg entity.ChatMessage) { f(msg) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixed(reply string, next Phase, updates map[string]string) PhaseHandler {
	return PhaseHandlerFunc(func(context.Context, PhaseInput) (PhaseResult, error) {
		return PhaseResult{Reply: reply, NextPhase: next, VariableUpdates: updates}, nil
	})
}

func inbound(text string) entity.InboundMessage {
	return entity.InboundMessage{UserID: "u1", Name: "Иван", Text: text, Channel: "test"}
}

func TestEngineGreetingShortCircuit(t *testing.T) {
	store := newMemStore()
	sub := &fakeSubmitter{}
	engine := NewEngine(mapRegistry{Phase1: fixed("phase1", Phase2A, nil)}, store, discardLogger())
	engine.SetLeadSubmitter(sub)
	m := &recordingMessenger{}

	reply, err := engine.HandleMessage(context.Background(), m, inbound("Привет"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply != IntroReply || len(m.sent) != 1 {
		t.Errorf("reply = %q, sent = %v", reply, m.sent)
	}
	if store.saves != 0 || len(sub.leads) != 0 {
		t.Errorf("greeting must not touch state or CRM: saves=%d leads=%d", store.saves, len(sub.leads))
	}
}

func TestEngineGreetingNeedsWholeWord(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(mapRegistry{Phase1: fixed("phase1", Phase2A, nil)}, store, discardLogger())

	reply, err := engine.HandleMessage(context.Background(), nil, inbound("Nothing"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply != "phase1" {
		t.Errorf("reply = %q, want phase handler reply", reply)
	}
	if st, _ := store.get("u1"); st.Phase != Phase2A {
		t.Errorf("phase = %s, want %s", st.Phase, Phase2A)
	}
}

func TestEngineAdvancesAndMerges(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase3A, Variables: map[string]string{VarName: "Анна"}}
	var seen PhaseInput
	registry := mapRegistry{
		Phase1: fixed("phase1", Phase1, nil),
		Phase3A: PhaseHandlerFunc(func(_ context.Context, in PhaseInput) (PhaseResult, error) {
			seen = in
			return PhaseResult{Reply: "какой бизнес?", NextPhase: Phase4A, VariableUpdates: map[string]string{VarGoal: "лидогенерация"}}, nil
		}),
		Phase4A: fixed("x", Phase5A, nil),
	}
	engine := NewEngine(registry, store, discardLogger())
	engine.SetRetriever(fakeRetriever{text: "контекст"})

	reply, err := engine.HandleMessage(context.Background(), nil, inbound("нужны лиды"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply != "какой бизнес?" {
		t.Errorf("reply = %q", reply)
	}
	if seen.Context != "контекст" || seen.Message != "нужны лиды" || seen.Variables[VarName] != "Анна" {
		t.Errorf("handler input = %+v", seen)
	}
	st, _ := store.get("u1")
	if st.Phase != Phase4A || st.Variables[VarGoal] != "лидогенерация" || st.Variables[VarName] != "Анна" {
		t.Errorf("stored state = %+v", st)
	}
}

func TestEngineHandlerFailureKeepsState(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase4A, Variables: map[string]string{VarGoal: "g"}}
	registry := mapRegistry{
		Phase1: fixed("phase1", Phase1, nil),
		Phase4A: PhaseHandlerFunc(func(context.Context, PhaseInput) (PhaseResult, error) {
			return PhaseResult{}, ErrGenerationFailed
		}),
	}
	engine := NewEngine(registry, store, discardLogger())
	m := &recordingMessenger{}

	reply, err := engine.HandleMessage(context.Background(), m, inbound("B2B"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply != FallbackReply {
		t.Errorf("reply = %q", reply)
	}
	if store.saves != 0 {
		t.Errorf("state saved on handler failure")
	}
}

func TestEngineUnknownPhaseFallsBack(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase("phase9"), Variables: map[string]string{}}
	engine := NewEngine(mapRegistry{Phase1: fixed("начнём", Phase2A, nil), Phase2A: fixed("", Phase3A, nil)}, store, discardLogger())

	reply, _ := engine.HandleMessage(context.Background(), nil, inbound("да, расскажите"))
	if reply != "начнём" {
		t.Errorf("reply = %q", reply)
	}
	if st, _ := store.get("u1"); st.Phase != Phase2A {
		t.Errorf("phase = %s, want %s", st.Phase, Phase2A)
	}
}

func TestEngineUnregisteredNextPhase(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase2A, Variables: map[string]string{}}
	engine := NewEngine(mapRegistry{Phase1: fixed("", Phase1, nil), Phase2A: fixed("созвонимся", Phase3B, nil)}, store, discardLogger())

	if _, err := engine.HandleMessage(context.Background(), nil, inbound("хочу созвон")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if st, _ := store.get("u1"); st.Phase != Phase1 {
		t.Errorf("phase = %s, want %s", st.Phase, Phase1)
	}
}

func TestEngineCompletedDialogRestarts(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: PhaseCompleted, Variables: map[string]string{VarName: "Иван", VarGoal: "g"}}
	var seen PhaseInput
	registry := mapRegistry{
		Phase1: PhaseHandlerFunc(func(_ context.Context, in PhaseInput) (PhaseResult, error) {
			seen = in
			return PhaseResult{Reply: "снова здесь", NextPhase: Phase1}, nil
		}),
	}
	engine := NewEngine(registry, store, discardLogger())

	if _, err := engine.HandleMessage(context.Background(), nil, inbound("ещё вопрос по ценам")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(seen.Variables) != 0 {
		t.Errorf("handler saw stale variables %v", seen.Variables)
	}
	st, _ := store.get("u1")
	if st.Phase != Phase1 || len(st.Variables) != 0 {
		t.Errorf("state after restart = %+v", st)
	}
}

func TestEngineMarkerSubmitsLead(t *testing.T) {
	tests := []struct {
		name      string
		submitErr error
	}{
		{"crm ok", nil},
		{"crm unreachable", errors.New("dial tcp: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.states["u1"] = DialogState{UserID: "u1", Phase: PhaseCompleted, Variables: map[string]string{VarName: "Иван"}}
			sub := &fakeSubmitter{err: tt.submitErr}
			engine := NewEngine(mapRegistry{Phase1: fixed("x", Phase1, nil)}, store, discardLogger())
			engine.SetLeadSubmitter(sub)
			m := &recordingMessenger{}

			lead := BuildLead(map[string]string{VarName: "Иван", VarPhone: "+79991234567"}, "q")
			reply, err := engine.HandleMessage(context.Background(), m, inbound(CompletionReply("Иван")+"\n\n"+BuildMarker(lead)))
			lead.UserID, lead.Channel = "u1", "test"
			if err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if reply != "" || len(m.sent) != 0 {
				t.Errorf("marker turn must not reply, got %q", reply)
			}
			if len(sub.leads) != 1 || sub.leads[0] != lead {
				t.Errorf("submitted = %+v", sub.leads)
			}
			st, _ := store.get("u1")
			if st.Phase != PhaseCompleted || len(st.Variables) != 0 {
				t.Errorf("state = %+v", st)
			}
		})
	}
}

func TestEngineMalformedMarkerDropped(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase5A, Variables: map[string]string{VarGoal: "g"}}
	sub := &fakeSubmitter{}
	engine := NewEngine(mapRegistry{Phase1: fixed("x", Phase1, nil)}, store, discardLogger())
	engine.SetLeadSubmitter(sub)

	for _, text := range []string{
		"【systemTextByAi: {broken】",
		`【systemTextByAi: {"trigger": %%"OTHER"%%}】`,
	} {
		reply, err := engine.HandleMessage(context.Background(), nil, inbound(text))
		if err != nil || reply != "" {
			t.Errorf("HandleMessage(%q) = %q, %v", text, reply, err)
		}
	}
	if len(sub.leads) != 0 || store.saves != 0 {
		t.Errorf("malformed marker changed state: leads=%d saves=%d", len(sub.leads), store.saves)
	}
}

func TestEngineDirectSubmitMode(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase7, Variables: map[string]string{VarName: "Иван"}}
	lead := BuildLead(map[string]string{VarName: "Иван", VarGoal: "лидогенерация"}, "q")
	registry := mapRegistry{
		Phase1: fixed("x", Phase1, nil),
		Phase7: fixed(CompletionReply("Иван")+"\n\n"+BuildMarker(lead), PhaseCompleted, nil),
	}
	sub := &fakeSubmitter{}
	engine := NewEngine(registry, store, discardLogger())
	engine.SetLeadSubmitter(sub)
	engine.SetSubmitMode(SubmitDirect)

	reply, err := engine.HandleMessage(context.Background(), nil, inbound("спасибо"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	lead.UserID, lead.Channel = "u1", "test"
	if strings.Contains(reply, "systemTextByAi") {
		t.Errorf("marker leaked into reply %q", reply)
	}
	if len(sub.leads) != 1 || sub.leads[0] != lead {
		t.Errorf("submitted = %+v", sub.leads)
	}
	if st, _ := store.get("u1"); st.Phase != PhaseCompleted {
		t.Errorf("phase = %s", st.Phase)
	}
}

func TestEngineClassifiesLeadBeforeSubmit(t *testing.T) {
	store := newMemStore()
	sub := &fakeSubmitter{}
	gen := &scriptedGenerator{reply: `{"intent": "заказать_услугу", "name": "", "contact": "", "summary": "Нужен бот для заявок", "is_hot": true}`}
	engine := NewEngine(mapRegistry{Phase1: fixed("x", Phase1, nil)}, store, discardLogger())
	engine.SetLeadSubmitter(sub)
	engine.SetClassifier(NewClassifier(gen, discardLogger()))

	lead := BuildLead(map[string]string{VarName: "Иван", VarPhone: "+79991234567"}, "Нужен бот")
	if _, err := engine.HandleMessage(context.Background(), nil, inbound(BuildMarker(lead))); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sub.leads) != 1 {
		t.Fatalf("submitted %d leads", len(sub.leads))
	}
	got := sub.leads[0]
	if got.Summarize != "Нужен бот для заявок" || !got.IsHot() || got.Name != "Иван" {
		t.Errorf("submitted lead = %+v", got)
	}
	if gen.vars["input"] != "Нужен бот" {
		t.Errorf("classified %q, want the lead request", gen.vars["input"])
	}
}

func TestEngineRetrieverNotReady(t *testing.T) {
	store := newMemStore()
	var seen PhaseInput
	registry := mapRegistry{Phase1: PhaseHandlerFunc(func(_ context.Context, in PhaseInput) (PhaseResult, error) {
		seen = in
		return PhaseResult{Reply: "ok", NextPhase: Phase1}, nil
	})}
	engine := NewEngine(registry, store, discardLogger())
	engine.SetRetriever(fakeRetriever{err: ErrRetrieverNotReady})

	reply, err := engine.HandleMessage(context.Background(), nil, inbound("сколько стоит бот?"))
	if err != nil || reply != "ok" {
		t.Fatalf("HandleMessage = %q, %v", reply, err)
	}
	if seen.Context != "" {
		t.Errorf("context = %q, want empty", seen.Context)
	}
}

func TestEngineLoadFailureApologizes(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("redis down")
	engine := NewEngine(mapRegistry{Phase1: fixed("x", Phase1, nil)}, store, discardLogger())

	reply, err := engine.HandleMessage(context.Background(), nil, inbound("вопрос"))
	if err == nil {
		t.Error("expected error")
	}
	if reply != FallbackReply {
		t.Errorf("reply = %q", reply)
	}
}

func TestEngineNotifiesListener(t *testing.T) {
	var got []entity.ChatMessage
	engine := NewEngine(mapRegistry{Phase1: fixed("ответ", Phase2A, nil), Phase2A: fixed("", Phase3A, nil)}, newMemStore(), discardLogger())
	engine.SetMessageListener(listenerFunc(func(msg entity.ChatMessage) { got = append(got, msg) }))

	if _, err := engine.HandleMessage(context.Background(), nil, inbound("интересно")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listener got %d messages", len(got))
	}
	if got[0].Direction != entity.DirectionIncoming || got[1].Direction != entity.DirectionOutgoing || got[1].Text != "ответ" {
		t.Errorf("unexpected transcript %+v", got)
	}
}

func TestEngineReset(t *testing.T) {
	store := newMemStore()
	store.states["u1"] = DialogState{UserID: "u1", Phase: Phase6A}
	engine := NewEngine(mapRegistry{}, store, discardLogger())
	if err := engine.Reset(context.Background(), "u1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st, _ := engine.State(context.Background(), "u1"); st != nil {
		t.Errorf("state after reset = %+v", st)
	}
}
