package auth

import (
	"sync"
	"time"

	"github.com/quillhq/quill/internal/model"
)

// SessionMap is the process-wide token table. Lifetime is the process
// lifetime: nothing is persisted, a restart logs everyone out. It is an
// injected instance rather than package state so tests get isolated
// maps and handlers carry no hidden coupling.
type SessionMap struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewSessionMap() *SessionMap {
	return &SessionMap{sessions: make(map[string]model.Session)}
}

func (m *SessionMap) Put(token, username string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = model.Session{Username: username, ExpiresAt: expiresAt}
}

// Get resolves a token to its username. Expired sessions are treated as
// absent; a zero ExpiresAt never expires.
func (m *SessionMap) Get(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		m.mu.Lock()
		// Re-check under the write lock: a Put may have refreshed the
		// token between lock acquisitions.
		sess, ok = m.sessions[token]
		if ok && !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
			delete(m.sessions, token)
			ok = false
		}
		m.mu.Unlock()
		if !ok {
			return "", false
		}
	}
	return sess.Username, true
}

func (m *SessionMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
