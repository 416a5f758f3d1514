package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"aika/aika/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, tr *SSETransport) []types.StreamEvent {
	t.Helper()
	var out []types.StreamEvent
	for {
		select {
		case ev := <-tr.Events():
			out = append(out, ev)
			if ev.Type == types.EventStreamEnd {
				return out
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("stream never ended, got %d events", len(out))
		}
	}
}

func TestSSEStreamParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/aika/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: agent_start\ndata: {\"agent\":\"STA\"}\n\n")
		fmt.Fprint(w, ": keepalive comment, ignored\n\n")
		fmt.Fprint(w, "event: agent_update\ndata: {\"status\":\"partial_response\",\"text\":\"Aku di sini.\"}\n\n")
		// unknown tag and malformed payloads are dropped, not fatal
		fmt.Fprint(w, "event: telemetry_blob\ndata: {}\n\n")
		fmt.Fprint(w, "event: metadata\ndata: {not valid json}\n\n")
		fmt.Fprint(w, "event: final_response\ndata: {\"response\":\"Aku di sini.\"}\n\n")
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return testToken(t) })
	require.NoError(t, tr.Send(context.Background(), testTurnRequest()))

	events := collectEvents(t, tr)
	var kinds []types.EventType
	for _, ev := range events {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []types.EventType{
		types.EventAgentStart,
		types.EventAgentUpdate,
		types.EventFinalResponse,
		types.EventStreamEnd,
	}, kinds)

	assert.Equal(t, "STA", events[0].AgentStart.Agent)
	assert.Equal(t, "Aku di sini.", events[1].AgentUpdate.Text)
	assert.Equal(t, "Aku di sini.", events[2].FinalResponse.Response)
}

func TestSSEMultilineDataFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: final_response\ndata: {\"response\":\ndata: \"baris dua\"}\n\n")
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return testToken(t) })
	require.NoError(t, tr.Send(context.Background(), testTurnRequest()))

	events := collectEvents(t, tr)
	require.Len(t, events, 2)
	assert.Equal(t, "baris dua", events[0].FinalResponse.Response)
}

func TestSSEFieldsWithoutSpaceAfterColon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:agent_start\ndata:{\"agent\":\"SCA\"}\n\n")
		fmt.Fprint(w, "event:final_response\ndata:{\"response\":\"selesai\"}\n\n")
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return testToken(t) })
	require.NoError(t, tr.Send(context.Background(), testTurnRequest()))

	events := collectEvents(t, tr)
	require.Len(t, events, 3)
	assert.Equal(t, "SCA", events[0].AgentStart.Agent)
	assert.Equal(t, "selesai", events[1].FinalResponse.Response)
}

func TestSSENewTurnDrainsAbortedStream(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, "event: agent_update\ndata: {\"status\":\"partial_response\",\"text\":\"lama\"}\n\n")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, "event: final_response\ndata: {\"response\":\"turn kedua\"}\n\n")
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return testToken(t) })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tr.Send(ctx, testTurnRequest()))

	// wait for the first turn's partial, then abandon it mid-stream
	select {
	case ev := <-tr.Events():
		require.Equal(t, types.EventAgentUpdate, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never streamed")
	}
	cancel()

	// the next Send must absorb the aborted stream's leftovers, including
	// its synthetic stream end
	require.NoError(t, tr.Send(context.Background(), testTurnRequest()))
	events := collectEvents(t, tr)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventFinalResponse, events[0].Type)
	assert.Equal(t, "turn kedua", events[0].FinalResponse.Response)
	assert.Equal(t, types.EventStreamEnd, events[1].Type)
}

func TestSSESendWithoutCredential(t *testing.T) {
	tr := NewSSETransport("http://127.0.0.1:1", func() string { return "" })
	err := tr.Send(context.Background(), testTurnRequest())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, Disconnected, tr.State())
}

func TestSSESendSurfacesBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return testToken(t) })
	err := tr.Send(context.Background(), testTurnRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSSEAuthHeaderForwarded(t *testing.T) {
	token := testToken(t)
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL, func() string { return token })
	require.NoError(t, tr.Send(context.Background(), testTurnRequest()))
	collectEvents(t, tr)
	assert.Equal(t, "Bearer "+token, got)
}
