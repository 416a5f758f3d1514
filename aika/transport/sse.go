package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"aika/aika/types"
	httputils "aika/aika/utils/http"
	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

const streamPath = "/api/v1/aika/stream"

// SSETransport runs one turn per HTTP POST, reading the reply as a
// Server-Sent-Events stream. There is no long-lived socket, so Connect only
// verifies the credential and marks the transport ready.
type SSETransport struct {
	mu       sync.Mutex
	baseURL  string
	creds    CredentialSource
	client   *http.Client
	events   chan types.StreamEvent
	state    State
	cancel   context.CancelFunc // active stream, nil when idle
	loopDone chan struct{}      // closed when the active read loop exits
}

func NewSSETransport(baseURL string, creds CredentialSource) *SSETransport {
	return &SSETransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{},
		events:  make(chan types.StreamEvent, 64),
	}
}

func (t *SSETransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Connected {
		return nil
	}
	if !hasValidCredential(t.creds()) {
		logging.AppLogger.Warn("sse connect skipped, no valid credential")
		t.state = Disconnected
		return nil
	}
	t.state = Connected
	return nil
}

func (t *SSETransport) Send(ctx context.Context, req types.TurnRequest) error {
	t.mu.Lock()
	if t.state != Connected {
		t.mu.Unlock()
		if err := t.Connect(ctx); err != nil {
			return err
		}
		t.mu.Lock()
		if t.state != Connected {
			t.mu.Unlock()
			return ErrNotConnected
		}
	}
	// A new turn cancels a stream left over from an aborted one and waits
	// for its read loop to wind down, so a stale frame or its synthetic
	// stream end can never be attributed to this turn.
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	prev := t.loopDone
	t.loopDone = nil
	token := t.creds()
	t.mu.Unlock()

	if prev != nil {
		t.drainUntilClosed(prev)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	body, err := httputils.PostStream(streamCtx, t.client, t.baseURL+streamPath, token, req)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.loopDone = done
	t.mu.Unlock()

	go t.readLoop(streamCtx, body, done)
	return nil
}

// drainUntilClosed consumes events from the aborted stream until its read
// loop exits, then clears whatever it left in the buffer.
func (t *SSETransport) drainUntilClosed(done chan struct{}) {
	for {
		select {
		case <-done:
			for {
				select {
				case <-t.events:
				default:
					return
				}
			}
		case <-t.events:
		}
	}
}

func (t *SSETransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.state = Disconnected
	return nil
}

func (t *SSETransport) Events() <-chan types.StreamEvent { return t.events }

func (t *SSETransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *SSETransport) Persistent() bool { return false }

// readLoop parses one SSE stream: "event:" names the frame, "data:" lines
// accumulate its payload, a blank line dispatches it.
func (t *SSETransport) readLoop(ctx context.Context, body io.ReadCloser, done chan struct{}) {
	defer body.Close()
	defer func() {
		t.mu.Lock()
		t.cancel = nil
		t.mu.Unlock()
		t.events <- types.StreamEvent{Type: types.EventStreamEnd}
		close(done)
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	eventName := "message"
	var eventData bytes.Buffer

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if line == "" {
			if eventData.Len() > 0 {
				t.dispatch(eventName, bytes.TrimSuffix(eventData.Bytes(), []byte("\n")))
			}
			eventName = "message"
			eventData.Reset()
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = sseValue(line, "event:")
		case strings.HasPrefix(line, "data:"):
			eventData.WriteString(sseValue(line, "data:"))
			eventData.WriteByte('\n')
		case strings.HasPrefix(line, ":"):
			// comment, keepalive
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logging.ErrorLogger.Error("sse stream read error", zap.Error(err))
	}
}

// sseValue strips a field prefix and the single optional space after the
// colon that the SSE format allows.
func sseValue(line, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, prefix), " ")
}

func (t *SSETransport) dispatch(name string, data []byte) {
	ev, err := types.DecodeStreamEvent(name, data)
	if err != nil {
		// one bad frame never kills the stream
		logging.StreamLogger.Warn("dropping malformed sse frame",
			zap.String("event", name),
			zap.Error(err),
		)
		return
	}
	t.events <- ev
}
