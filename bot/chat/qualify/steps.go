package qualify

import (
	"context"
	"fmt"
	"strings"

	"FirstContact/bot/chat"
	"FirstContact/entity"
)

// compose asks the generator for the phase reply.
func compose(ctx context.Context, g chat.Generator, prompt string, in chat.PhaseInput) (string, error) {
	vars := map[string]string{
		"message":            in.Message,
		"context":            in.Context,
		chat.VarGoal:         in.Variables[chat.VarGoal],
		chat.VarBusinessType: in.Variables[chat.VarBusinessType],
		chat.VarCrm:          in.Variables[chat.VarCrm],
	}
	text, err := g.Generate(ctx, prompt, vars)
	if err != nil {
		return "", fmt.Errorf("%w: %v", chat.ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty reply", chat.ErrGenerationFailed)
	}
	return text, nil
}

// InterestStep — pitch the value and gauge interest.
type InterestStep struct {
	generator chat.Generator
}

func (s *InterestStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptInterest, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}

	next := chat.Phase1
	switch {
	case chat.ContainsAny(in.Message, "да", "хочу", "расскажи", "интересно", "нужно", "требуется"):
		next = chat.Phase2A
	case chat.ContainsAny(in.Message, "нет", "не хочу", "не интересно"):
		// a decline still gets the product overview
		next = chat.Phase2A
	}
	return chat.PhaseResult{Reply: reply, NextPhase: next}, nil
}

// OfferStep — explain the product, offer questions or a call.
type OfferStep struct {
	generator chat.Generator
}

func (s *OfferStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptOffer, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}

	next := chat.Phase3A
	if chat.ContainsAny(in.Message, "звон", "созвон", "телефон", "связь") {
		next = chat.Phase3B
	}
	return chat.PhaseResult{Reply: reply, NextPhase: next}, nil
}

// GoalStep — ask what should be automated.
type GoalStep struct {
	generator chat.Generator
}

func (s *GoalStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptGoal, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}
	return chat.PhaseResult{
		Reply:           reply,
		NextPhase:       chat.Phase4A,
		VariableUpdates: map[string]string{chat.VarGoal: DetectGoal(in.Message)},
	}, nil
}

// BusinessStep — ask the business type.
type BusinessStep struct {
	generator chat.Generator
}

func (s *BusinessStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptBusiness, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}
	return chat.PhaseResult{
		Reply:           reply,
		NextPhase:       chat.Phase5A,
		VariableUpdates: map[string]string{chat.VarBusinessType: DetectBusinessType(in.Message)},
	}, nil
}

// CrmStep — ask which CRM is in use.
type CrmStep struct {
	generator chat.Generator
}

func (s *CrmStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptCrm, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}
	return chat.PhaseResult{
		Reply:           reply,
		NextPhase:       chat.Phase6A,
		VariableUpdates: map[string]string{chat.VarCrm: DetectCrm(in.Message)},
	}, nil
}

// ContactStep — collect name and phone, looping until both are known.
type ContactStep struct {
	generator chat.Generator
}

func (s *ContactStep) Handle(ctx context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	reply, err := compose(ctx, s.generator, promptContact, in)
	if err != nil {
		return chat.PhaseResult{}, err
	}

	updates := make(map[string]string)
	if name := chat.ExtractName(in.Message); name != "" {
		updates[chat.VarName] = name
	}
	if phone := chat.ExtractPhone(in.Message); phone != "" {
		updates[chat.VarPhone] = chat.NormalizePhone(phone)
	}

	name, phone := in.Variables[chat.VarName], in.Variables[chat.VarPhone]
	if v, ok := updates[chat.VarName]; ok {
		name = v
	}
	if v, ok := updates[chat.VarPhone]; ok {
		phone = v
	}

	next := chat.Phase6A
	if name != "" && phone != "" {
		next = chat.Phase7
	}
	return chat.PhaseResult{Reply: reply, NextPhase: next, VariableUpdates: updates}, nil
}

// FinalStep — build the lead and emit the completion marker.
type FinalStep struct{}

func (s *FinalStep) Handle(_ context.Context, in chat.PhaseInput) (chat.PhaseResult, error) {
	lead := chat.BuildLead(in.Variables, in.Message)
	return chat.PhaseResult{
		Reply:     chat.CompletionReply(lead.Name) + "\n\n" + chat.BuildMarker(lead),
		NextPhase: chat.PhaseCompleted,
	}, nil
}

func DetectGoal(message string) string {
	switch {
	case chat.ContainsAny(message, "лид", "лидогенер"):
		return "лидогенерация"
	case chat.ContainsAny(message, "поддерж", "вопрос"):
		return "поддержка клиентов"
	case chat.ContainsAny(message, "заказ", "обработ"):
		return "обработка заказов"
	}
	return entity.Undecided
}

func DetectBusinessType(message string) string {
	switch {
	case chat.ContainsAny(message, "b2b", "юр", "компани"):
		return "B2B"
	case chat.ContainsAny(message, "b2c", "физ", "частн"):
		return "B2C"
	case chat.ContainsAny(message, "фриланс", "самозанят"):
		return "фриланс"
	case chat.ContainsAny(message, "ип"):
		return "ИП"
	}
	return entity.Undecided
}

func DetectCrm(message string) string {
	switch {
	case chat.ContainsAny(message, "amo", "амо"):
		return "AmoCRM"
	case chat.ContainsAny(message, "bitrix", "битрикс"):
		return "Bitrix24"
	case chat.ContainsAny(message, "нет", "не используем"):
		return "нет"
	case chat.ContainsAny(message, "друг"):
		return "другая"
	}
	return entity.Undecided
}
