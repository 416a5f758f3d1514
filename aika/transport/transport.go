package transport

import (
	"context"
	"errors"

	"aika/aika/types"
)

// State of a transport channel. Failed is terminal until the caller asks
// for an explicit Connect again.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrReconnecting means the send was not delivered because the channel
	// was down; a reconnect has been kicked off and the caller may retry.
	ErrReconnecting   = errors.New("channel not open, reconnecting")
	ErrNotConnected   = errors.New("not connected")
	ErrConnectionLost = errors.New("connection lost")
)

// CredentialSource supplies the bearer token for the Aika endpoint.
// Returning "" means no credential is available right now.
type CredentialSource func() string

// Transport is one channel to the Aika chat endpoint. Implementations
// deliver decoded stream events on Events; malformed frames are logged and
// dropped without closing the channel.
type Transport interface {
	// Connect is idempotent: a no-op when the channel is already open or a
	// connection attempt is in progress. Without a valid credential it
	// logs, stays disconnected and returns nil.
	Connect(ctx context.Context) error
	// Send delivers one turn request. When no channel is open it triggers
	// Connect and returns ErrReconnecting instead of blocking.
	Send(ctx context.Context, req types.TurnRequest) error
	// Disconnect closes the channel and cancels any pending reconnect
	// timer. Idempotent.
	Disconnect() error
	Events() <-chan types.StreamEvent
	State() State
	// Persistent reports whether the channel outlives a single turn
	// (WebSocket) or is opened per turn (SSE over HTTP).
	Persistent() bool
}
