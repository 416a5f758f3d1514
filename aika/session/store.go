// Package session keeps the client-side identity the web widget kept in
// localStorage: a session id valid for 24 hours across restarts, plus a
// fresh conversation id per chat topic.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	httputils "aika/aika/utils/http"
	"aika/aika/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxSessionAge is the reuse window for a stored session id.
const MaxSessionAge = 24 * time.Hour

const endSessionPath = "/api/v1/session/end"

type persistedSession struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store loads or mints the session identity and notifies the backend when
// a session ends. The end notification is fire-and-forget.
type Store struct {
	mu      sync.Mutex
	path    string
	baseURL string
	token   string
	client  *http.Client
	current *persistedSession

	now func() time.Time // test hook
}

func NewStore(path, baseURL, token string) *Store {
	return &Store{
		path:    path,
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
		now:     time.Now,
	}
}

// DefaultPath puts the session file under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "aika", "session.json")
}

// Current returns the active session id, reusing the stored one while it
// is younger than MaxSessionAge and minting a fresh one otherwise.
func (s *Store) Current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.freshLocked(s.current) {
		return s.current.SessionID, nil
	}
	if loaded := s.loadLocked(); loaded != nil && s.freshLocked(loaded) {
		s.current = loaded
		return loaded.SessionID, nil
	}
	return s.mintLocked()
}

// NewConversationID mints a conversation id for one chat topic. Several
// conversations can share a session.
func (s *Store) NewConversationID() string {
	return uuid.New().String()
}

// End notifies the backend that the session is over and clears the stored
// identity. Best effort: a failed notification is logged and forgotten.
func (s *Store) End(ctx context.Context) {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	path := s.path
	s.mu.Unlock()

	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.AppLogger.Warn("failed to clear session file", zap.Error(err))
		}
	}
	if cur == nil {
		return
	}
	payload := map[string]string{"session_id": cur.SessionID}
	if err := httputils.PostJSON(ctx, s.client, s.baseURL+endSessionPath, s.token, payload, nil); err != nil {
		logging.AppLogger.Warn("session end beacon failed",
			zap.String("session_id", cur.SessionID),
			zap.Error(err),
		)
	}
}

// StartNew ends the current session and mints the next one immediately.
func (s *Store) StartNew(ctx context.Context) (string, error) {
	s.End(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mintLocked()
}

func (s *Store) freshLocked(p *persistedSession) bool {
	return s.now().Sub(p.CreatedAt) < MaxSessionAge
}

func (s *Store) loadLocked() *persistedSession {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		logging.AppLogger.Warn("ignoring corrupt session file", zap.String("path", s.path))
		return nil
	}
	return &p
}

func (s *Store) mintLocked() (string, error) {
	p := &persistedSession{
		SessionID: uuid.New().String(),
		CreatedAt: s.now(),
	}
	s.current = p
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return "", fmt.Errorf("create session dir: %w", err)
		}
		data, _ := json.MarshalIndent(p, "", "  ")
		if err := os.WriteFile(s.path, data, 0o600); err != nil {
			return "", fmt.Errorf("persist session: %w", err)
		}
	}
	return p.SessionID, nil
}
