package types

import (
	"encoding/json"
	"fmt"
)

// EventType is the tag of one streamed frame from the Aika backend.
type EventType string

const (
	EventAgentStart    EventType = "agent_start"
	EventAgentUpdate   EventType = "agent_update"
	EventToolStart     EventType = "tool_start"
	EventToolEnd       EventType = "tool_end"
	EventFinalResponse EventType = "final_response"
	EventMetadata      EventType = "metadata"
	EventError         EventType = "error"

	// EventStreamEnd is synthetic: transports emit it when the channel
	// closes so the interpreter can fail a turn that never finished.
	EventStreamEnd EventType = "stream_end"
)

const StatusPartialResponse = "partial_response"

type AgentStartData struct {
	Agent string `json:"agent"`
}

type AgentUpdateData struct {
	Agent  string `json:"agent,omitempty"`
	Status string `json:"status"`
	Text   string `json:"text"`
}

type ToolData struct {
	Agent string   `json:"agent,omitempty"`
	Tool  string   `json:"tool,omitempty"`
	Tools []string `json:"tools,omitempty"`
}

type FinalResponseData struct {
	Response string `json:"response"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// StreamEvent is the decoded form of one frame. Exactly the field matching
// Type is set; everything else is nil.
type StreamEvent struct {
	Type          EventType
	AgentStart    *AgentStartData
	AgentUpdate   *AgentUpdateData
	Tool          *ToolData
	FinalResponse *FinalResponseData
	Metadata      *TurnMetadata
	Error         *ErrorData
}

// eventEnvelope is the WebSocket framing: {"type": "...", "data": {...}}.
// Over SSE the name travels in the event: line and data stands alone.
type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeStreamEvent decodes one named frame. Unknown names are an error so
// the transport can log and drop the frame instead of silently ignoring it.
func DecodeStreamEvent(name string, data []byte) (StreamEvent, error) {
	ev := StreamEvent{Type: EventType(name)}
	switch ev.Type {
	case EventAgentStart:
		ev.AgentStart = &AgentStartData{}
		if err := json.Unmarshal(data, ev.AgentStart); err != nil {
			return StreamEvent{}, fmt.Errorf("decode agent_start: %w", err)
		}
	case EventAgentUpdate:
		ev.AgentUpdate = &AgentUpdateData{}
		if err := json.Unmarshal(data, ev.AgentUpdate); err != nil {
			return StreamEvent{}, fmt.Errorf("decode agent_update: %w", err)
		}
	case EventToolStart, EventToolEnd:
		ev.Tool = &ToolData{}
		if err := json.Unmarshal(data, ev.Tool); err != nil {
			return StreamEvent{}, fmt.Errorf("decode %s: %w", name, err)
		}
	case EventFinalResponse:
		ev.FinalResponse = &FinalResponseData{}
		if err := json.Unmarshal(data, ev.FinalResponse); err != nil {
			return StreamEvent{}, fmt.Errorf("decode final_response: %w", err)
		}
	case EventMetadata:
		ev.Metadata = &TurnMetadata{}
		if err := json.Unmarshal(data, ev.Metadata); err != nil {
			return StreamEvent{}, fmt.Errorf("decode metadata: %w", err)
		}
	case EventError:
		ev.Error = &ErrorData{}
		if err := json.Unmarshal(data, ev.Error); err != nil {
			return StreamEvent{}, fmt.Errorf("decode error event: %w", err)
		}
	case EventStreamEnd:
		// no payload
	default:
		return StreamEvent{}, fmt.Errorf("unrecognized event type %q", name)
	}
	return ev, nil
}

// DecodeEnvelope decodes a WebSocket text frame carrying {"type","data"}.
func DecodeEnvelope(frame []byte) (StreamEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return StreamEvent{}, fmt.Errorf("decode frame envelope: %w", err)
	}
	if env.Type == "" {
		return StreamEvent{}, fmt.Errorf("frame missing event type")
	}
	data := env.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	return DecodeStreamEvent(string(env.Type), data)
}

// EncodeEnvelope is the inverse of DecodeEnvelope, used by the mock server
// and by tests that script backend frames.
func EncodeEnvelope(name EventType, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{Type: name, Data: raw})
}
