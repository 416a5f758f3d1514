package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aika/aika/types"
	"aika/aika/utils/logging"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitLogger()
	m.Run()
}

func testToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func testTurnRequest() types.TurnRequest {
	return types.TurnRequest{Message: "halo", SessionID: "sess-test"}
}

func TestConnectWithoutCredentialStaysDisconnected(t *testing.T) {
	dials := 0
	tr := NewWSTransport("ws://127.0.0.1:1/ws", func() string { return "" })
	tr.dialFn = func(ctx context.Context, url, token string) (*websocket.Conn, error) {
		dials++
		return nil, errors.New("unreachable")
	}

	require.NoError(t, tr.Connect(context.Background()))
	assert.Equal(t, Disconnected, tr.State())
	assert.Equal(t, 0, dials, "no dial without a credential")
}

func TestSendWithoutChannelTriggersReconnect(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	tok := testToken(t)
	tr := NewWSTransport("ws://127.0.0.1:1/ws", func() string { return tok })
	tr.delayFn = func(int) time.Duration { return time.Hour } // park retries
	tr.dialFn = func(ctx context.Context, url, token string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("refused")
	}

	err := tr.Send(context.Background(), testTurnRequest())
	assert.ErrorIs(t, err, ErrReconnecting)

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		d := dials
		mu.Unlock()
		if d >= 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	assert.Equal(t, 1, dials)
	mu.Unlock()

	tr.Disconnect()
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	var delayAttempts []int

	tok := testToken(t)
	tr := NewWSTransport("ws://127.0.0.1:1/ws", func() string { return tok })
	tr.dialFn = func(ctx context.Context, url, token string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("refused")
	}
	tr.delayFn = func(attempt int) time.Duration {
		mu.Lock()
		delayAttempts = append(delayAttempts, attempt)
		mu.Unlock()
		return 0
	}
	lost := make(chan struct{}, 1)
	tr.OnConnectionLost = func() { lost <- struct{}{} }

	err := tr.Connect(context.Background())
	require.Error(t, err)

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("connection-lost notice never fired")
	}

	assert.Equal(t, Failed, tr.State())
	mu.Lock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, delayAttempts, "backoff consulted for exactly 5 retries")
	// one explicit dial plus five retries, then nothing
	assert.Equal(t, 6, dials)
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 6, dials, "no sixth retry after going Failed")
	mu.Unlock()

	// Send while Failed does not quietly restart the cycle
	assert.ErrorIs(t, tr.Send(context.Background(), testTurnRequest()), ErrConnectionLost)

	// an explicit Connect starts a fresh budget
	_ = tr.Connect(context.Background())
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		d := dials
		mu.Unlock()
		if d >= 7 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	assert.GreaterOrEqual(t, dials, 7)
	mu.Unlock()
	tr.Disconnect()
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	tok := testToken(t)
	tr := NewWSTransport("ws://127.0.0.1:1/ws", func() string { return tok })
	tr.dialFn = func(ctx context.Context, url, token string) (*websocket.Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("refused")
	}
	tr.delayFn = func(int) time.Duration { return 30 * time.Millisecond }

	_ = tr.Connect(context.Background())
	require.NoError(t, tr.Disconnect())

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, dials, "reconnect timer must be cancelled by Disconnect")
	mu.Unlock()
	assert.Equal(t, Disconnected, tr.State())
}
