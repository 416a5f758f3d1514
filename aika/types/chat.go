package types

// Role of a chat participant as it appears on the wire and in history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModuleEvent asks the backend to start a guided module instead of
// answering free text.
type ModuleEvent struct {
	Type     string `json:"type"`
	ModuleID string `json:"module_id"`
}

// TurnRequest is the payload sent to the Aika chat endpoint, both for the
// plain POST mode and as the opening frame of a streamed turn.
type TurnRequest struct {
	Message        string         `json:"message,omitempty"`
	Event          *ModuleEvent   `json:"event,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
	GoogleSub      string         `json:"google_sub,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	SystemPrompt   string         `json:"system_prompt,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
}

// ChatResponse is the non-streaming reply shape.
type ChatResponse struct {
	Response     string         `json:"response"`
	ProviderUsed string         `json:"provider_used"`
	ModelUsed    string         `json:"model_used"`
	History      []HistoryEntry `json:"history,omitempty"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type RiskAssessment struct {
	RiskLevel   RiskLevel `json:"risk_level"`
	RiskScore   float64   `json:"risk_score"`
	Confidence  float64   `json:"confidence"`
	RiskFactors []string  `json:"risk_factors,omitempty"`
}

// TurnMetadata arrives once per turn and is attached to the last bubble.
type TurnMetadata struct {
	SessionID           string          `json:"session_id,omitempty"`
	UserRole            string          `json:"user_role,omitempty"`
	Intent              string          `json:"intent,omitempty"`
	AgentsInvoked       []string        `json:"agents_invoked,omitempty"`
	ActionsTaken        []string        `json:"actions_taken,omitempty"`
	ProcessingTimeMs    int64           `json:"processing_time_ms,omitempty"`
	RiskAssessment      *RiskAssessment `json:"risk_assessment,omitempty"`
	EscalationTriggered bool            `json:"escalation_triggered"`
	CaseID              string          `json:"case_id,omitempty"`
}
