package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"aika/aika/types"
	"aika/aika/utils/logging"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// WSTransport keeps one persistent WebSocket to the Aika endpoint and
// reconnects with exponential backoff when it drops. After
// MaxReconnectAttempts consecutive failures it goes Failed and stays down
// until Connect is called again.
type WSTransport struct {
	mu     sync.Mutex
	url    string
	creds  CredentialSource
	conn   *websocket.Conn
	state  State
	events chan types.StreamEvent

	timer      *time.Timer
	attempts   int
	connecting bool
	closing    bool
	readCancel context.CancelFunc

	// OnConnectionLost fires once when reconnection attempts are
	// exhausted, so the chat surface can show a terminal notice.
	OnConnectionLost func()

	// test hooks
	dialFn  func(ctx context.Context, url, token string) (*websocket.Conn, error)
	delayFn func(attempt int) time.Duration
}

func NewWSTransport(url string, creds CredentialSource) *WSTransport {
	return &WSTransport{
		url:     url,
		creds:   creds,
		events:  make(chan types.StreamEvent, 64),
		dialFn:  dialWebSocket,
		delayFn: ReconnectDelay,
	}
}

func dialWebSocket(ctx context.Context, url, token string) (*websocket.Conn, error) {
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil || t.connecting {
		t.mu.Unlock()
		return nil
	}
	if t.state == Failed {
		// explicit reconnect after giving up starts a fresh budget
		t.attempts = 0
	}
	token := t.creds()
	if !hasValidCredential(token) {
		logging.AppLogger.Warn("websocket connect skipped, no valid credential")
		t.state = Disconnected
		t.mu.Unlock()
		return nil
	}
	t.connecting = true
	t.closing = false
	if t.attempts > 0 {
		t.state = Reconnecting
	} else {
		t.state = Connecting
	}
	t.mu.Unlock()

	conn, err := t.dialFn(ctx, t.url, token)

	t.mu.Lock()
	t.connecting = false
	if err != nil {
		logging.ErrorLogger.Error("websocket dial failed",
			zap.String("url", t.url),
			zap.Int("attempt", t.attempts),
			zap.Error(err),
		)
		t.scheduleReconnectLocked()
		t.mu.Unlock()
		return err
	}
	if t.closing {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	t.conn = conn
	t.state = Connected
	t.attempts = 0
	readCtx, cancel := context.WithCancel(context.Background())
	t.readCancel = cancel
	t.mu.Unlock()

	logging.AppLogger.Info("websocket connected", zap.String("url", t.url))
	go t.readLoop(readCtx, conn)
	return nil
}

func (t *WSTransport) Send(ctx context.Context, req types.TurnRequest) error {
	t.mu.Lock()
	if t.conn == nil {
		failed := t.state == Failed
		t.mu.Unlock()
		if failed {
			return ErrConnectionLost
		}
		go t.Connect(context.Background())
		return ErrReconnecting
	}
	conn := t.conn
	t.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (t *WSTransport) Disconnect() error {
	t.mu.Lock()
	t.closing = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.readCancel != nil {
		t.readCancel()
		t.readCancel = nil
	}
	conn := t.conn
	t.conn = nil
	t.state = Disconnected
	t.attempts = 0
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (t *WSTransport) Events() <-chan types.StreamEvent { return t.events }

func (t *WSTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *WSTransport) Persistent() bool { return true }

func (t *WSTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.mu.Lock()
			deliberate := t.closing || ctx.Err() != nil
			if t.conn == conn {
				t.conn = nil
			}
			if !deliberate {
				logging.ErrorLogger.Error("websocket closed unexpectedly", zap.Error(err))
				t.state = Disconnected
				t.scheduleReconnectLocked()
			}
			t.mu.Unlock()
			if !deliberate {
				t.events <- types.StreamEvent{Type: types.EventStreamEnd}
			}
			return
		}
		if typ != websocket.MessageText {
			logging.StreamLogger.Warn("skipping non-text websocket frame")
			continue
		}
		ev, err := types.DecodeEnvelope(data)
		if err != nil {
			logging.StreamLogger.Warn("dropping malformed websocket frame", zap.Error(err))
			continue
		}
		t.events <- ev
	}
}

// scheduleReconnectLocked arms the single reconnect timer. Callers hold
// t.mu. An existing timer is cleared first so attempts never race.
func (t *WSTransport) scheduleReconnectLocked() {
	if t.closing {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.attempts >= MaxReconnectAttempts {
		t.state = Failed
		logging.ErrorLogger.Error("websocket reconnect attempts exhausted",
			zap.Int("attempts", t.attempts),
		)
		if t.OnConnectionLost != nil {
			go t.OnConnectionLost()
		}
		return
	}
	delay := t.delayFn(t.attempts)
	t.attempts++
	t.state = Reconnecting
	t.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		t.Connect(context.Background())
	})
}
