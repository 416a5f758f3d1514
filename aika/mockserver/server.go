// Package mockserver replays scripted Aika streams over the same three
// surfaces the real orchestration service exposes: plain POST, SSE and
// WebSocket. It backs the e2e tests and local development.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"aika/aika/types"
	"aika/aika/utils/jsonutils"
	"aika/aika/utils/logging"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	script ScriptFunc
}

func New(script ScriptFunc) *Server {
	if script == nil {
		script = EchoScript
	}
	return &Server{script: script}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/v1/aika/chat", s.handleChat)
	r.Post("/api/v1/aika/stream", s.handleStream)
	r.HandleFunc("/api/v1/aika/ws", s.handleWS)
	r.Post("/api/v1/session/end", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := types.ChatResponse{
		Response:     FinalText(s.script(req)),
		ProviderUsed: "mock",
		ModelUsed:    "mock",
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, frame := range s.script(req) {
		if frame.Delay > 0 {
			time.Sleep(frame.Delay)
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Event, jsonutils.Compact(frame.Data))
		flusher.Flush()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Write(ctx, websocket.MessageText, []byte(`{"type":"error","data":{"message":"unsupported data"}}`))
			continue
		}
		var req types.TurnRequest
		if err := json.Unmarshal(data, &req); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"type":"error","data":{"message":"invalid json"}}`))
			continue
		}
		for _, frame := range s.script(req) {
			if frame.Delay > 0 {
				time.Sleep(frame.Delay)
			}
			payload, err := types.EncodeEnvelope(frame.Event, frame.Data)
			if err != nil {
				logging.ErrorLogger.Error("script frame encode error", zap.Error(err))
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
