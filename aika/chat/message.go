package chat

import (
	"time"

	"aika/aika/types"

	"github.com/google/uuid"
)

// ChatMessage is one rendered bubble. User messages are immutable after
// creation; an assistant message may only be mutated while IsStreaming.
type ChatMessage struct {
	ID             string              `json:"id"`
	Role           types.Role          `json:"role"`
	Content        string              `json:"content"`
	Timestamp      time.Time           `json:"timestamp"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	SessionID      string              `json:"session_id,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
	IsStreaming    bool                `json:"is_streaming"`
	IsContinuation bool                `json:"is_continuation"`
	TurnMetadata   *types.TurnMetadata `json:"turn_metadata,omitempty"`
	IsError        bool                `json:"is_error"`
}

func newMessage(role types.Role, content, sessionID, conversationID string) *ChatMessage {
	now := time.Now()
	return &ChatMessage{
		ID:             uuid.New().String(),
		Role:           role,
		Content:        content,
		Timestamp:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
		SessionID:      sessionID,
		ConversationID: conversationID,
	}
}
