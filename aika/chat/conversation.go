package chat

import (
	"time"

	"aika/aika/types"
)

// Conversation is the ordered message list for one conversation id. It is
// not safe for concurrent use on its own; the Client serializes access.
type Conversation struct {
	ID        string
	SessionID string
	messages  []*ChatMessage
}

func NewConversation(sessionID, conversationID string) *Conversation {
	return &Conversation{ID: conversationID, SessionID: sessionID}
}

func (c *Conversation) Messages() []ChatMessage {
	out := make([]ChatMessage, len(c.messages))
	for i, m := range c.messages {
		out[i] = *m
	}
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }

// AppendUser records the submitted text. User messages are final at birth.
func (c *Conversation) AppendUser(text string) *ChatMessage {
	m := newMessage(types.RoleUser, text, c.SessionID, c.ID)
	c.messages = append(c.messages, m)
	return m
}

func (c *Conversation) streaming() *ChatMessage {
	for _, m := range c.messages {
		if m.IsStreaming {
			return m
		}
	}
	return nil
}

// EnsureStreaming returns the current streaming assistant message,
// creating it on the first partial chunk of a turn. At most one message
// streams at a time.
func (c *Conversation) EnsureStreaming() *ChatMessage {
	if m := c.streaming(); m != nil {
		return m
	}
	m := newMessage(types.RoleAssistant, "", c.SessionID, c.ID)
	m.IsStreaming = true
	c.messages = append(c.messages, m)
	return m
}

// AppendStreamText appends a partial chunk to the streaming message.
func (c *Conversation) AppendStreamText(text string) *ChatMessage {
	m := c.EnsureStreaming()
	m.Content += text
	m.UpdatedAt = time.Now()
	return m
}

// FinalizeTurn replaces the streaming placeholder with the finished
// bubbles for the turn. All but the first are continuations; only the last
// carries the turn metadata.
func (c *Conversation) FinalizeTurn(sections []string, meta *types.TurnMetadata) []*ChatMessage {
	idx := len(c.messages)
	if m := c.streaming(); m != nil {
		for i, existing := range c.messages {
			if existing == m {
				idx = i
				break
			}
		}
		c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
	}

	bubbles := make([]*ChatMessage, 0, len(sections))
	for i, section := range sections {
		m := newMessage(types.RoleAssistant, section, c.SessionID, c.ID)
		m.IsContinuation = i > 0
		if i == len(sections)-1 {
			m.TurnMetadata = meta
		}
		bubbles = append(bubbles, m)
	}
	tail := append([]*ChatMessage{}, c.messages[idx:]...)
	c.messages = append(append(c.messages[:idx], bubbles...), tail...)
	return bubbles
}

// FailStreaming converts the in-progress message into an error bubble, or
// appends a fresh one when no message was streaming yet. It never leaves a
// message in a perpetual streaming state.
func (c *Conversation) FailStreaming(text string) *ChatMessage {
	m := c.streaming()
	if m == nil {
		m = newMessage(types.RoleAssistant, "", c.SessionID, c.ID)
		c.messages = append(c.messages, m)
	}
	m.IsStreaming = false
	m.IsError = true
	m.Content = text
	m.UpdatedAt = time.Now()
	return m
}

// CancelStreaming replaces partially filled content with a cancellation
// notice. Cancellation is an expected outcome, not an error bubble.
func (c *Conversation) CancelStreaming(notice string) *ChatMessage {
	m := c.streaming()
	if m == nil {
		return nil
	}
	m.IsStreaming = false
	m.Content = notice
	m.UpdatedAt = time.Now()
	return m
}

// AppendAssistant records a complete (non-streamed) assistant reply.
func (c *Conversation) AppendAssistant(text string, meta *types.TurnMetadata) *ChatMessage {
	m := newMessage(types.RoleAssistant, text, c.SessionID, c.ID)
	m.TurnMetadata = meta
	c.messages = append(c.messages, m)
	return m
}

// History returns the last window turns as wire history entries, skipping
// error bubbles and anything still streaming.
func (c *Conversation) History(window int) []types.HistoryEntry {
	var out []types.HistoryEntry
	for _, m := range c.messages {
		if m.IsError || m.IsStreaming {
			continue
		}
		out = append(out, types.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	if window > 0 && len(out) > window*2 {
		out = out[len(out)-window*2:]
	}
	return out
}

func (c *Conversation) Clear() {
	c.messages = nil
}
