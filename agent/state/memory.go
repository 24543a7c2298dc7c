package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// InMemoryStore keeps sessions in a process-local map. It backs local
// development and tests when no Redis credentials are configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]byte)}
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	raw, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	var st SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &st, nil
}

func (s *InMemoryStore) Save(_ context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return ErrInvalidSession
	}
	// Stored as JSON so callers keep no aliases into the stored copy.
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	s.mu.Lock()
	s.sessions[st.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
