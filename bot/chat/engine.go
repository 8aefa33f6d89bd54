package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"FirstContact/entity"
	"FirstContact/internal/lib/sl"
)

const (
	SubmitViaMarker = "marker"
	SubmitDirect    = "direct"

	maxGreetingWords       = 3
	defaultRetrieveTimeout = 3 * time.Second
)

const (
	IntroReply = "Здравствуйте! Я Анастасия, ИИ-ассистент агентства NeuroPragmat. " +
		"Мы создаём ИИ-ассистентов, которые 24/7 квалифицируют лиды и передают их в AmoCRM. " +
		"Хотите узнать, как это может работать в вашем бизнесе?"
	FallbackReply = "Спасибо за обращение! Менеджер свяжется с вами в ближайшее время."
)

// Engine runs qualification dialog turns on top of a phase registry.
type Engine struct {
	registry        Registry
	storage         StateStore
	retriever       Retriever
	submitter       LeadSubmitter
	classifier      LeadClassifier
	messageListener MessageListener
	locks           *UserLocks
	submitMode      string
	retrieveTimeout time.Duration
	log             *slog.Logger
}

func NewEngine(registry Registry, storage StateStore, log *slog.Logger) *Engine {
	return &Engine{
		registry:        registry,
		storage:         storage,
		locks:           NewUserLocks(),
		submitMode:      SubmitViaMarker,
		retrieveTimeout: defaultRetrieveTimeout,
		log:             log.With(sl.Module("chat.engine")),
	}
}

func (e *Engine) SetRetriever(r Retriever) {
	e.retriever = r
}

func (e *Engine) SetLeadSubmitter(s LeadSubmitter) {
	e.submitter = s
}

func (e *Engine) SetClassifier(c LeadClassifier) {
	e.classifier = c
}

func (e *Engine) SetMessageListener(l MessageListener) {
	e.messageListener = l
}

// SetSubmitMode selects how completed leads reach the CRM: by the marker
// echoed back through the transport, or directly when phase7 completes.
func (e *Engine) SetSubmitMode(mode string) {
	if mode == SubmitDirect {
		e.submitMode = SubmitDirect
		return
	}
	e.submitMode = SubmitViaMarker
}

func (e *Engine) SetRetrieveTimeout(d time.Duration) {
	if d > 0 {
		e.retrieveTimeout = d
	}
}

// State returns the stored dialog state of a user, nil if there is none.
func (e *Engine) State(ctx context.Context, userID string) (*DialogState, error) {
	return e.storage.Load(ctx, userID)
}

// Reset drops the stored dialog state of a user.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)
	return e.storage.Delete(ctx, userID)
}

// HandleMessage processes one inbound message and returns the reply that was
// sent through m (m may be nil when the caller delivers the reply itself).
// An empty reply means the turn produced nothing to send. The reply is always
// safe to deliver; a non-nil error reports an internal failure that has
// already been degraded for the user.
func (e *Engine) HandleMessage(ctx context.Context, m Messenger, msg entity.InboundMessage) (string, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.UserID == "" {
		return "", nil
	}

	e.locks.Lock(msg.UserID)
	defer e.locks.Unlock(msg.UserID)

	log := e.log.With(
		slog.String("user_id", msg.UserID),
		slog.String("channel", msg.Channel),
	)

	e.notify(msg, entity.DirectionIncoming, text, "")

	if HasMarker(text) {
		return "", e.handleMarker(ctx, log, msg, text)
	}

	state, err := e.storage.Load(ctx, msg.UserID)
	if err != nil {
		log.Error("loading dialog state", sl.Err(err))
		return e.reply(m, msg, FallbackReply, PhaseUnknown), fmt.Errorf("loading state: %w", err)
	}

	initial := e.registry.Initial()
	if state == nil {
		state = NewDialogState(msg.UserID, initial)
	}
	if state.Phase == PhaseCompleted {
		log.Debug("completed dialog restarted")
		state.Reset(initial)
	}

	if state.Phase == initial && HasGreetingWord(text) && WordCount(text) <= maxGreetingWords {
		log.Debug("greeting answered with introduction")
		return e.reply(m, msg, IntroReply, state.Phase), nil
	}

	handler, ok := e.registry.Resolve(state.Phase)
	if !ok {
		log.Warn("unknown phase, falling back to initial", slog.String("phase", string(state.Phase)))
		state.Phase = initial
		handler, ok = e.registry.Resolve(initial)
		if !ok {
			return e.reply(m, msg, FallbackReply, PhaseUnknown), fmt.Errorf("initial phase %s not registered", initial)
		}
	}

	if m != nil {
		_ = m.SendTyping(msg.Chat())
	}

	result, err := handler.Handle(ctx, PhaseInput{
		Message:   text,
		Context:   e.retrieve(ctx, log, text),
		Variables: state.Snapshot(),
	})
	if err != nil {
		// state stays unsaved so the next message retries the same phase
		log.Error("phase handler failed", slog.String("phase", string(state.Phase)), sl.Err(err))
		return e.reply(m, msg, FallbackReply, state.Phase), nil
	}

	next := e.checkPhase(log, state.Phase, result.NextPhase)
	state.Merge(result.VariableUpdates)
	reply := result.Reply

	if next == PhaseCompleted && e.submitMode == SubmitDirect {
		if lead, err := FindMarker(reply); err == nil {
			e.submit(ctx, log, msg, lead)
		} else {
			log.Warn("completion reply without usable marker", sl.Err(err))
		}
		reply = StripMarker(reply)
	}

	log.Debug("dialog turn completed",
		slog.String("phase", string(state.Phase)),
		slog.String("next_phase", string(next)),
	)
	state.Phase = next
	state.UpdatedAt = time.Now()

	var saveErr error
	if err = e.storage.Save(ctx, state); err != nil {
		log.Error("saving dialog state", sl.Err(err))
		saveErr = fmt.Errorf("saving state: %w", err)
	}

	return e.reply(m, msg, reply, next), saveErr
}

// handleMarker submits a lead echoed back by the transport and closes the dialog.
func (e *Engine) handleMarker(ctx context.Context, log *slog.Logger, msg entity.InboundMessage, text string) error {
	lead, err := FindMarker(text)
	if err != nil {
		log.Warn("dropping completion marker", sl.Err(err))
		return nil
	}
	if lead.Trigger != entity.TriggerNewLead {
		log.Warn("ignoring completion marker", slog.String("trigger", lead.Trigger))
		return nil
	}

	e.submit(ctx, log, msg, lead)

	state := NewDialogState(msg.UserID, PhaseCompleted)
	if err = e.storage.Save(ctx, state); err != nil {
		log.Error("saving completed state", sl.Err(err))
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

func (e *Engine) submit(ctx context.Context, log *slog.Logger, msg entity.InboundMessage, lead entity.LeadPayload) {
	lead.UserID = msg.UserID
	lead.Channel = msg.Channel
	if e.submitter == nil {
		log.Warn("lead submitter not set, lead dropped")
		return
	}
	if e.classifier != nil {
		request := lead.Quest
		if strings.TrimSpace(request) == "" {
			request = lead.Summarize
		}
		info := e.classifier.Classify(ctx, request, e.retrieve(ctx, log, request))
		lead = ApplyClassification(lead, info)
	}
	if err := e.submitter.SubmitLead(ctx, lead); err != nil {
		log.Error("lead submission failed", sl.Err(err))
		return
	}
	log.Info("lead submitted", slog.String("intent", lead.Intent()))
}

// checkPhase keeps the persisted phase within the registered set.
func (e *Engine) checkPhase(log *slog.Logger, current, next Phase) Phase {
	if next == PhaseUnknown {
		return current
	}
	if next == PhaseCompleted {
		return next
	}
	if _, ok := e.registry.Resolve(next); !ok {
		log.Warn("unregistered next phase, restarting dialog",
			slog.String("phase", string(current)),
			slog.String("next_phase", string(next)),
		)
		return e.registry.Initial()
	}
	return next
}

func (e *Engine) retrieve(ctx context.Context, log *slog.Logger, query string) string {
	if e.retriever == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, e.retrieveTimeout)
	defer cancel()

	text, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		if errors.Is(err, ErrRetrieverNotReady) {
			log.Debug("retriever not ready")
		} else {
			log.Warn("knowledge retrieval failed", sl.Err(err))
		}
		return ""
	}
	return text
}

func (e *Engine) reply(m Messenger, msg entity.InboundMessage, text string, phase Phase) string {
	if text == "" {
		return ""
	}
	if m != nil {
		if err := m.SendText(msg.Chat(), text); err != nil {
			e.log.Error("sending reply",
				slog.String("user_id", msg.UserID),
				sl.Err(err),
			)
		}
	}
	e.notify(msg, entity.DirectionOutgoing, text, phase)
	return text
}

func (e *Engine) notify(msg entity.InboundMessage, direction, text string, phase Phase) {
	if e.messageListener == nil {
		return
	}
	sender := entity.SenderUser
	if direction == entity.DirectionOutgoing {
		sender = entity.SenderBot
	}
	e.messageListener.SaveAndBroadcastChatMessage(entity.ChatMessage{
		Channel:   msg.Channel,
		UserID:    msg.UserID,
		ChatID:    msg.Chat(),
		Direction: direction,
		Sender:    sender,
		Text:      text,
		Phase:     string(phase),
		CreatedAt: time.Now(),
	})
}
