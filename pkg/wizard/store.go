package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrSessionNotFound is returned when no session exists for an ID or owner.
var ErrSessionNotFound = errors.New("wizard session not found")

// Store persists wizard sessions between HTTP requests. Implementations must
// return copies safe to mutate without a write-back.
type Store interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	FindByOwner(ctx context.Context, owner string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory, suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	byOwner  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		byOwner:  make(map[string]string),
	}
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode wizard session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = data

	if session.Owner != "" {
		s.byOwner[session.Owner] = session.ID
	}

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	return decodeSession(data)
}

func (s *MemoryStore) FindByOwner(ctx context.Context, owner string) (*Session, error) {
	s.mu.RLock()
	id, ok := s.byOwner[owner]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	return s.Get(ctx, id)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[id]
	if !ok {
		return nil
	}

	delete(s.sessions, id)

	if session, err := decodeSession(data); err == nil && session.Owner != "" {
		if s.byOwner[session.Owner] == id {
			delete(s.byOwner, session.Owner)
		}
	}

	return nil
}

func decodeSession(data []byte) (*Session, error) {
	session := &Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("decode wizard session: %w", err)
	}

	return session, nil
}
