package entity

const (
	TriggerNewLead = "NEWLEAD"

	IntentPrice    = "узнать_цену"
	IntentOrder    = "заказать_услугу"
	IntentQuestion = "задать_вопрос"
	IntentManager  = "связаться_с_менеджером"

	TagFirstContact = "firstcontact_ai"
	TagHotLead      = "hot_lead"
	TagRegular      = "regular"

	// Undecided is the placeholder recorded when a qualification answer
	// had no recognizable keyword.
	Undecided = "уточнить позже"

	DefaultClientName = "Клиент"
)

// LeadPayload is the finalized lead carried by the completion marker.
type LeadPayload struct {
	Trigger      string `json:"trigger"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Summarize    string `json:"summarize"`
	Quest        string `json:"quest"`
	BusinessType string `json:"business_type"`
	Goal         string `json:"goal"`
	Crm          string `json:"crm"`

	// set by the receiving side, not carried in the marker
	UserID  string    `json:"-"`
	Channel string    `json:"-"`
	Info    *LeadInfo `json:"-"`
}

// LeadInfo is the model's structured reading of a lead request.
type LeadInfo struct {
	Intent  string `json:"intent"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Summary string `json:"summary"`
	IsHot   bool   `json:"is_hot"`
}

func ValidIntent(intent string) bool {
	switch intent {
	case IntentPrice, IntentOrder, IntentQuestion, IntentManager:
		return true
	}
	return false
}

// Intent classifies the lead for CRM tagging. A model classification wins
// over the goal heuristic.
func (l LeadPayload) Intent() string {
	if l.Info != nil && ValidIntent(l.Info.Intent) {
		return l.Info.Intent
	}
	if l.Goal == "" || l.Goal == Undecided {
		return IntentQuestion
	}
	return IntentOrder
}

// IsHot reports whether the lead needs urgent manual follow-up.
func (l LeadPayload) IsHot() bool {
	if l.Info != nil {
		return l.Info.IsHot
	}
	return l.Phone != "" && l.Intent() == IntentOrder
}

// CrmLead is the webhook body accepted by the CRM integration.
type CrmLead struct {
	PipelineID   int64          `json:"pipeline_id"`
	Name         string         `json:"name"`
	Contact      CrmContact     `json:"contact"`
	Query        string         `json:"query"`
	Tags         []string       `json:"tags"`
	CustomFields CrmCustomField `json:"custom_fields"`
}

type CrmContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type CrmCustomField struct {
	Source    string `json:"source"`
	AiSummary string `json:"ai_summary"`
	Intent    string `json:"intent"`
	LeadID    string `json:"lead_id"`
}
