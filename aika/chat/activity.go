package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityAgentStart  ActivityType = "agent_start"
	ActivityAgentUpdate ActivityType = "agent_update"
	ActivityToolStart   ActivityType = "tool_start"
	ActivityToolEnd     ActivityType = "tool_end"
	ActivityStatus      ActivityType = "status"
	ActivityError       ActivityType = "error"
)

// ActivityEvent is a transient record of backend agent/tool execution. It
// drives the "which agents are working" indicator and is never part of the
// conversation history.
type ActivityEvent struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Agent     string       `json:"agent,omitempty"`
	Tools     []string     `json:"tools,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ActivityLog is a bounded ring of recent activity events. When full, the
// oldest entry is evicted.
type ActivityLog struct {
	mu      sync.Mutex
	cap     int
	entries []ActivityEvent
}

const DefaultMaxLogs = 100

func NewActivityLog(maxLogs int) *ActivityLog {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &ActivityLog{cap: maxLogs}
}

func (l *ActivityLog) Add(t ActivityType, agent string, tools []string, message string) ActivityEvent {
	ev := ActivityEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Agent:     agent,
		Tools:     tools,
		Message:   message,
		Timestamp: time.Now(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ev)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	return ev
}

func (l *ActivityLog) Snapshot() []ActivityEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
