package chat

import (
	"context"

	"FirstContact/entity"
)

// PhaseInput is what a phase handler sees of the current turn.
type PhaseInput struct {
	Message   string
	Context   string
	Variables map[string]string
}

// PhaseResult is the outcome of a phase handler.
type PhaseResult struct {
	Reply           string
	NextPhase       Phase
	VariableUpdates map[string]string
}

// PhaseHandler processes one user message within a phase.
type PhaseHandler interface {
	Handle(ctx context.Context, in PhaseInput) (PhaseResult, error)
}

// PhaseHandlerFunc adapts a function to PhaseHandler.
type PhaseHandlerFunc func(ctx context.Context, in PhaseInput) (PhaseResult, error)

func (f PhaseHandlerFunc) Handle(ctx context.Context, in PhaseInput) (PhaseResult, error) {
	return f(ctx, in)
}

// Registry maps phase identifiers to handlers.
type Registry interface {
	Resolve(phase Phase) (PhaseHandler, bool)
	Initial() Phase
}

// StateStore persists dialog states with expiry. Load returns nil, nil
// when no state exists for the user.
type StateStore interface {
	Load(ctx context.Context, userID string) (*DialogState, error)
	Save(ctx context.Context, state *DialogState) error
	Delete(ctx context.Context, userID string) error
}

// Generator composes reply text from a prompt template and its variables.
type Generator interface {
	Generate(ctx context.Context, prompt string, vars map[string]string) (string, error)
}

// Retriever returns knowledge base passages relevant to the query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// LeadSubmitter delivers a finalized lead to the CRM.
type LeadSubmitter interface {
	SubmitLead(ctx context.Context, lead entity.LeadPayload) error
}

// LeadClassifier reads intent and urgency from a lead request.
type LeadClassifier interface {
	Classify(ctx context.Context, message, knowledge string) entity.LeadInfo
}
