package chat

import (
	"fmt"
	"strings"

	"FirstContact/entity"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "RU"

// CanonicalPhone returns the number in E.164 form when it can be
// recognized, otherwise the input verbatim.
func CanonicalPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if normalized := NormalizePhone(raw); normalized != raw || strings.HasPrefix(raw, "+7") {
		return normalized
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// BuildLead assembles the finalized lead from accumulated dialog variables.
func BuildLead(vars map[string]string, quest string) entity.LeadPayload {
	name := vars[VarName]
	if name == "" {
		name = entity.DefaultClientName
	}
	goal := vars[VarGoal]
	businessType := vars[VarBusinessType]
	crm := vars[VarCrm]

	return entity.LeadPayload{
		Trigger:      entity.TriggerNewLead,
		Name:         name,
		Phone:        CanonicalPhone(vars[VarPhone]),
		Summarize:    fmt.Sprintf("Клиент заинтересован в автоматизации %s для %s. Использует CRM: %s.", goal, businessType, crm),
		Quest:        quest,
		BusinessType: businessType,
		Goal:         goal,
		Crm:          crm,
	}
}

// CompletionReply is the thank-you text sent when the dialog completes.
func CompletionReply(name string) string {
	return fmt.Sprintf("Отлично, %s! 🙌\n\nВаша заявка принята. Менеджер NeuroPragmat свяжется с вами в ближайшее время.\n\nХорошего дня!", name)
}
