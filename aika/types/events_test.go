package types

import (
	"testing"
)

func TestDecodeStreamEventKnownTags(t *testing.T) {
	ev, err := DecodeStreamEvent("agent_start", []byte(`{"agent":"STA"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Type != EventAgentStart || ev.AgentStart.Agent != "STA" {
		t.Errorf("bad decode: %+v", ev)
	}

	ev, err = DecodeStreamEvent("metadata", []byte(`{
		"session_id":"s1","intent":"support","agents_invoked":["STA","SCA"],
		"processing_time_ms":812,
		"risk_assessment":{"risk_level":"high","risk_score":0.72,"confidence":0.9,"risk_factors":["isolation"]},
		"escalation_triggered":true,"case_id":"case-9"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := ev.Metadata
	if meta.Intent != "support" || len(meta.AgentsInvoked) != 2 {
		t.Errorf("bad metadata: %+v", meta)
	}
	if meta.RiskAssessment == nil || meta.RiskAssessment.RiskLevel != RiskHigh {
		t.Errorf("bad risk assessment: %+v", meta.RiskAssessment)
	}
	if !meta.EscalationTriggered || meta.CaseID != "case-9" {
		t.Errorf("bad escalation fields: %+v", meta)
	}
}

func TestDecodeStreamEventRejectsUnknownTag(t *testing.T) {
	if _, err := DecodeStreamEvent("telemetry_blob", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeStreamEventRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeStreamEvent("final_response", []byte(`{"response":`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	frame, err := EncodeEnvelope(EventAgentUpdate, AgentUpdateData{Status: StatusPartialResponse, Text: "halo"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ev, err := DecodeEnvelope(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventAgentUpdate || ev.AgentUpdate.Text != "halo" {
		t.Errorf("round trip lost data: %+v", ev)
	}
}

func TestDecodeEnvelopeMissingType(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"data":{}}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}
