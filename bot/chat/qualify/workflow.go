package qualify

import "FirstContact/bot/chat"

// Registry holds the handlers of the lead qualification dialog.
// phase3B (call request) has no handler; the engine restarts such dialogs.
type Registry struct {
	handlers map[chat.Phase]chat.PhaseHandler
}

func NewRegistry(generator chat.Generator) *Registry {
	r := &Registry{
		handlers: make(map[chat.Phase]chat.PhaseHandler),
	}

	r.handlers[chat.Phase1] = &InterestStep{generator: generator}
	r.handlers[chat.Phase2A] = &OfferStep{generator: generator}
	r.handlers[chat.Phase3A] = &GoalStep{generator: generator}
	r.handlers[chat.Phase4A] = &BusinessStep{generator: generator}
	r.handlers[chat.Phase5A] = &CrmStep{generator: generator}
	r.handlers[chat.Phase6A] = &ContactStep{generator: generator}
	r.handlers[chat.Phase7] = &FinalStep{}

	return r
}

func (r *Registry) Initial() chat.Phase { return chat.Phase1 }

func (r *Registry) Resolve(phase chat.Phase) (chat.PhaseHandler, bool) {
	h, ok := r.handlers[phase]
	return h, ok
}
