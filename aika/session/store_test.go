package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"aika/aika/utils/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitLogger()
	m.Run()
}

func TestCurrentMintsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, "http://unused", "")

	id, err := store.Current()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	// a second store over the same file reuses the identity
	again := NewStore(path, "http://unused", "")
	id2, err := again.Current()
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestCurrentRemintsAfterExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, "http://unused", "")

	id, err := store.Current()
	require.NoError(t, err)

	// fast-forward past the validity window
	store.now = func() time.Time { return time.Now().Add(MaxSessionAge + time.Minute) }
	id2, err := store.Current()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestCurrentIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o600))

	store := NewStore(path, "http://unused", "")
	id, err := store.Current()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestEndNotifiesBackendAndClears(t *testing.T) {
	var beacons atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == endSessionPath && r.Method == http.MethodPost {
			beacons.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, srv.URL, "")

	id, err := store.Current()
	require.NoError(t, err)

	store.End(context.Background())
	assert.Equal(t, int32(1), beacons.Load())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "session file must be cleared")

	id2, err := store.Current()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestEndSurvivesUnreachableBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, "http://127.0.0.1:1", "")

	_, err := store.Current()
	require.NoError(t, err)

	// best effort only; must not error or panic
	store.End(context.Background())
}

func TestStartNewEndsAndMints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path, srv.URL, "")

	id, err := store.Current()
	require.NoError(t, err)

	id2, err := store.StartNew(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, id2, current)
}

func TestNewConversationIDsAreUnique(t *testing.T) {
	store := NewStore("", "http://unused", "")
	a := store.NewConversationID()
	b := store.NewConversationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
