package transport

import "time"

const (
	// MaxReconnectAttempts bounds automatic reconnection; after this many
	// consecutive failures the transport goes Failed and stays there.
	MaxReconnectAttempts = 5

	baseReconnectDelay = 1000 * time.Millisecond
	maxReconnectDelay  = 30000 * time.Millisecond
)

// ReconnectDelay returns the backoff before reconnect attempt n (0-based):
// min(1000 * 2^n, 30000) milliseconds.
func ReconnectDelay(attempt int) time.Duration {
	d := baseReconnectDelay << uint(attempt)
	if d > maxReconnectDelay || d <= 0 {
		return maxReconnectDelay
	}
	return d
}
