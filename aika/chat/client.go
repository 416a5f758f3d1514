package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"aika/aika/config"
	"aika/aika/notify"
	"aika/aika/session"
	"aika/aika/transport"
	"aika/aika/types"
	httputils "aika/aika/utils/http"
	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

const chatPath = "/api/v1/aika/chat"

// ErrTurnInFlight is returned when a send arrives while a previous turn is
// still streaming on the same conversation.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// TranscriptArchiver persists finalized bubbles. Optional; implemented by
// the postgres DAO.
type TranscriptArchiver interface {
	SaveMessages(ctx context.Context, msgs []ChatMessage) error
}

// Client is the one chat surface implementation. The web client grew
// several copy-pasted hook variants; here the differences (transport kind,
// splitting, history window, activity cap) are SurfaceConfig fields.
type Client struct {
	mu sync.Mutex

	cfg     config.Config
	surface config.SurfaceConfig

	tr       transport.Transport
	store    *session.Store
	notifier notify.Notifier
	activity *ActivityLog
	archiver TranscriptArchiver

	conv       *Conversation
	turn       *TurnInterpreter
	loading    bool
	cancelTurn context.CancelFunc
	turnStart  int
}

// NewClient wires a surface over an explicit transport. Most callers want
// NewClientFromConfig instead.
func NewClient(cfg config.Config, surface config.SurfaceConfig, tr transport.Transport, store *session.Store, notifier notify.Notifier) (*Client, error) {
	sessionID, err := store.Current()
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	c := &Client{
		cfg:      cfg,
		surface:  surface,
		tr:       tr,
		store:    store,
		notifier: notifier,
		activity: NewActivityLog(surface.MaxActivityLogs),
		conv:     NewConversation(sessionID, store.NewConversationID()),
	}
	return c, nil
}

// NewClientFromConfig picks the transport named by the surface profile.
func NewClientFromConfig(cfg config.Config, surface config.SurfaceConfig, store *session.Store, notifier notify.Notifier) (*Client, error) {
	creds := func() string { return cfg.AuthToken }
	var tr transport.Transport
	switch surface.Transport {
	case "websocket":
		ws := transport.NewWSTransport(wsURL(cfg.AikaBaseURL), creds)
		if notifier != nil {
			ws.OnConnectionLost = func() {
				notifier.Notify(notify.Notice{
					Level: notify.LevelUrgent,
					Title: "Koneksi terputus",
					Body:  "Tidak dapat terhubung ke Aika. Coba sambungkan ulang secara manual.",
				})
			}
		}
		tr = ws
	case "sse", "":
		tr = transport.NewSSETransport(cfg.AikaBaseURL, creds)
	default:
		return nil, errors.New("unknown transport kind: " + surface.Transport)
	}
	return NewClient(cfg, surface, tr, store, notifier)
}

func wsURL(base string) string {
	u := strings.TrimRight(base, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/api/v1/aika/ws"
}

// Messages returns a snapshot of the conversation.
func (c *Client) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Messages()
}

func (c *Client) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// ActiveAgents lists agents working on the in-flight turn.
func (c *Client) ActiveAgents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == nil {
		return nil
	}
	return c.turn.ActiveAgents()
}

func (c *Client) Activity() []ActivityEvent { return c.activity.Snapshot() }

func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.ID
}

// Connect opens the underlying channel ahead of the first send.
func (c *Client) Connect(ctx context.Context) error {
	return c.tr.Connect(ctx)
}

// SendMessage submits one user turn and streams the reply into the
// conversation. It refuses a second send while a turn is in flight.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	req := types.TurnRequest{Message: text}
	return c.sendTurn(ctx, text, req)
}

// SendModuleStart asks the backend to begin a guided module.
func (c *Client) SendModuleStart(ctx context.Context, moduleID string) error {
	req := types.TurnRequest{Event: &types.ModuleEvent{Type: "start_module", ModuleID: moduleID}}
	return c.sendTurn(ctx, "", req)
}

func (c *Client) sendTurn(ctx context.Context, userText string, req types.TurnRequest) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.loading = true
	c.turnStart = c.conv.Len()
	if userText != "" {
		c.conv.AppendUser(userText)
	}
	c.fillRequestLocked(&req)
	ti := NewTurnInterpreter(c.conv, c.activity, c.notifier, c.surface.SplitLongResponses)
	c.turn = ti
	c.mu.Unlock()

	c.drainStaleEvents()

	turnCtx, cancel := context.WithTimeout(ctx, c.surface.SendTimeout)
	if err := c.tr.Send(turnCtx, req); err != nil {
		cancel()
		c.mu.Lock()
		c.loading = false
		c.turn = nil
		c.mu.Unlock()
		if errors.Is(err, transport.ErrReconnecting) {
			c.notifier.Notify(notify.Notice{
				Level: notify.LevelInfo,
				Title: "Menyambung ulang",
				Body:  "Koneksi sedang dipulihkan. Coba kirim lagi sebentar lagi.",
			})
			return err
		}
		logging.ErrorLogger.Error("send failed", zap.Error(err))
		c.mu.Lock()
		c.conv.FailStreaming("Pesan gagal terkirim: " + err.Error())
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.cancelTurn = cancel
	c.mu.Unlock()
	go c.consume(turnCtx, cancel, ti)
	return nil
}

func (c *Client) fillRequestLocked(req *types.TurnRequest) {
	req.History = c.conv.History(c.surface.HistoryWindow)
	req.SessionID = c.conv.SessionID
	req.ConversationID = c.conv.ID
	req.GoogleSub = c.cfg.GoogleSub
	if req.Provider == "" {
		req.Provider = firstNonEmpty(c.surface.Provider, c.cfg.Provider)
	}
	if req.Model == "" {
		req.Model = firstNonEmpty(c.surface.Model, c.cfg.Model)
	}
	if req.SystemPrompt == "" {
		req.SystemPrompt = firstNonEmpty(c.surface.SystemPrompt, c.cfg.SystemPrompt)
	}
}

// consume is the per-turn event loop. Events are applied strictly in
// arrival order under the client lock.
func (c *Client) consume(ctx context.Context, cancel context.CancelFunc, ti *TurnInterpreter) {
	defer cancel()
	defer logging.LogDuration(ctx, "ConsumeTurn")()
	events := c.tr.Events()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// the turn timer ran out; that is a failure, not a cancel
				c.conv.FailStreaming(timeoutNotice)
			} else {
				c.conv.CancelStreaming(cancelledNotice)
			}
			c.finishTurnLocked(false)
			c.mu.Unlock()
			return
		case ev := <-events:
			c.mu.Lock()
			done := ti.HandleEvent(ev)
			c.mu.Unlock()
			if !done {
				continue
			}
			// For the per-turn SSE stream, keep draining so the trailing
			// stream_end never leaks into the next turn.
			if !c.tr.Persistent() && ev.Type != types.EventStreamEnd {
				continue
			}
			c.mu.Lock()
			c.finishTurnLocked(!ti.Failed())
			c.mu.Unlock()
			return
		}
	}
}

func (c *Client) finishTurnLocked(archive bool) {
	if !c.loading {
		return
	}
	c.loading = false
	c.cancelTurn = nil
	c.turn = nil
	if archive && c.archiver != nil {
		msgs := c.conv.Messages()[c.turnStart:]
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), config.DefaultSendTimeout)
			defer cancel()
			if err := c.archiver.SaveMessages(ctx, msgs); err != nil {
				logging.ErrorLogger.Error("transcript archive failed", zap.Error(err))
			}
		}()
	}
}

// Cancel aborts the in-flight turn, if any. The partially streamed content
// is replaced with a cancellation notice.
func (c *Client) Cancel() {
	c.mu.Lock()
	cancel := c.cancelTurn
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// drainStaleEvents clears events left over from a previous aborted turn so
// a new turn never accumulates into stale state.
func (c *Client) drainStaleEvents() {
	for {
		select {
		case <-c.tr.Events():
		default:
			return
		}
	}
}

// Ask does one non-streaming request and returns the full reply.
func (c *Client) Ask(ctx context.Context, text string) (string, error) {
	defer logging.LogDuration(ctx, "Ask")()
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return "", ErrTurnInFlight
	}
	c.loading = true
	c.conv.AppendUser(text)
	req := types.TurnRequest{Message: text}
	c.fillRequestLocked(&req)
	c.mu.Unlock()

	var resp types.ChatResponse
	err := httputils.PostJSON(ctx, nil, strings.TrimRight(c.cfg.AikaBaseURL, "/")+chatPath, c.cfg.AuthToken, req, &resp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.conv.FailStreaming("Pesan gagal terkirim: " + err.Error())
		return "", err
	}
	c.conv.AppendAssistant(resp.Response, nil)
	return resp.Response, nil
}

// NewTopic finalizes nothing, clears the view and mints a fresh
// conversation id within the same session.
func (c *Client) NewTopic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = NewConversation(c.conv.SessionID, c.store.NewConversationID())
}

// ClearConversation drops the message list (session-scoped; there is no
// persistence behind the surface itself).
func (c *Client) ClearConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv.Clear()
}

// Close disconnects the transport. The session itself is ended separately
// through the session store.
func (c *Client) Close() error {
	c.Cancel()
	return c.tr.Disconnect()
}

// SetArchiver attaches the optional transcript archive.
func (c *Client) SetArchiver(a TranscriptArchiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archiver = a
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
