package chat

import "time"

// Phase identifies a step of the qualification dialog.
type Phase string

const (
	PhaseUnknown   Phase = ""
	Phase1         Phase = "phase1"
	Phase2A        Phase = "phase2A"
	Phase3A        Phase = "phase3A"
	Phase3B        Phase = "phase3B"
	Phase4A        Phase = "phase4A"
	Phase5A        Phase = "phase5A"
	Phase6A        Phase = "phase6A"
	Phase7         Phase = "phase7"
	PhaseCompleted Phase = "completed"
)

// Variable keys accumulated over a dialog.
const (
	VarGoal         = "goal"
	VarBusinessType = "business_type"
	VarCrm          = "crm"
	VarName         = "name"
	VarPhone        = "phone"
)

// DialogState is the per-user position in the qualification dialog.
type DialogState struct {
	UserID    string            `json:"user_id" bson:"user_id"`
	Phase     Phase             `json:"phase" bson:"phase"`
	Variables map[string]string `json:"variables" bson:"variables"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}

// NewDialogState creates a fresh state positioned at the initial phase.
func NewDialogState(userID string, initial Phase) *DialogState {
	return &DialogState{
		UserID:    userID,
		Phase:     initial,
		Variables: make(map[string]string),
		UpdatedAt: time.Now(),
	}
}

// Get returns a variable value or an empty string.
func (s *DialogState) Get(key string) string {
	return s.Variables[key]
}

// Merge adds updates to the variables. Keys absent from updates keep their values.
func (s *DialogState) Merge(updates map[string]string) {
	if s.Variables == nil {
		s.Variables = make(map[string]string)
	}
	for k, v := range updates {
		s.Variables[k] = v
	}
}

// Reset moves the state back to the initial phase and drops all variables.
func (s *DialogState) Reset(initial Phase) {
	s.Phase = initial
	s.Variables = make(map[string]string)
}

// Snapshot returns a copy of the variables safe to hand to a phase handler.
func (s *DialogState) Snapshot() map[string]string {
	vars := make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = v
	}
	return vars
}
