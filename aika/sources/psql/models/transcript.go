package models

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptMessage is one archived bubble of a finished turn. Streaming
// placeholders are never written; only finalized content lands here.
type TranscriptMessage struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID      string    `json:"session_id" gorm:"type:varchar(255);not null;index"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(255);not null;index"`
	Role           string    `json:"role" gorm:"type:varchar(50);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	IsContinuation bool      `json:"is_continuation" gorm:"not null;default:false"`
	IsError        bool      `json:"is_error" gorm:"not null;default:false"`

	// flattened turn metadata, present on the last bubble of a turn
	Intent              string  `json:"intent,omitempty" gorm:"type:varchar(255)"`
	RiskLevel           string  `json:"risk_level,omitempty" gorm:"type:varchar(50)"`
	RiskScore           float64 `json:"risk_score,omitempty"`
	EscalationTriggered bool    `json:"escalation_triggered" gorm:"not null;default:false"`
	CaseID              string  `json:"case_id,omitempty" gorm:"type:varchar(255)"`
	ProcessingTimeMs    int64   `json:"processing_time_ms,omitempty"`

	Timestamp time.Time `json:"timestamp" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
