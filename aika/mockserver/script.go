package mockserver

import (
	"strings"
	"time"

	"aika/aika/types"
)

// Frame is one scripted backend event with an optional delay before it.
type Frame struct {
	Event types.EventType
	Data  interface{}
	Delay time.Duration
}

// ScriptFunc decides what stream a turn request gets back.
type ScriptFunc func(req types.TurnRequest) []Frame

// EchoScript is the default development script: one support agent, the
// reply streamed in two chunks, low risk.
func EchoScript(req types.TurnRequest) []Frame {
	reply := "Aku di sini untuk mendengarkan. Ceritakan lebih banyak tentang " +
		strings.TrimSpace(req.Message)
	if req.Event != nil {
		reply = "Baik, kita mulai modul " + req.Event.ModuleID + "."
	}
	half := len(reply) / 2
	return []Frame{
		{Event: types.EventAgentStart, Data: types.AgentStartData{Agent: "STA"}},
		{Event: types.EventAgentUpdate, Data: types.AgentUpdateData{Status: types.StatusPartialResponse, Text: reply[:half]}, Delay: 10 * time.Millisecond},
		{Event: types.EventAgentUpdate, Data: types.AgentUpdateData{Status: types.StatusPartialResponse, Text: reply[half:]}, Delay: 10 * time.Millisecond},
		{Event: types.EventMetadata, Data: types.TurnMetadata{
			SessionID:        req.SessionID,
			Intent:           "emotional_support",
			AgentsInvoked:    []string{"STA"},
			ProcessingTimeMs: 20,
			RiskAssessment:   &types.RiskAssessment{RiskLevel: types.RiskLow, RiskScore: 0.1, Confidence: 0.9},
		}},
		{Event: types.EventFinalResponse, Data: types.FinalResponseData{Response: reply}},
	}
}

// FixedScript replays the same frames for every request; handy in tests.
func FixedScript(frames []Frame) ScriptFunc {
	return func(types.TurnRequest) []Frame { return frames }
}

// FinalText digs the final_response text out of a script, for the
// non-streaming chat mode.
func FinalText(frames []Frame) string {
	for _, f := range frames {
		if f.Event == types.EventFinalResponse {
			if d, ok := f.Data.(types.FinalResponseData); ok {
				return d.Response
			}
		}
	}
	return ""
}
