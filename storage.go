package ai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session groups the messages of one conversation.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]string
}

// StoredMessage is a conversation message as kept by a Storage.
type StoredMessage struct {
	ID        string
	SessionID string
	Message   Message
	CreatedAt time.Time

	// Set on assistant messages.
	ModelID      string
	FinishReason FinishReason
	Usage        *Usage
}

// Storage persists conversation sessions and their messages. Implementations
// must be safe for concurrent use and return *StorageError on failure.
//
// GetMessages returns messages in insertion order. A limit <= 0 means all of
// them; otherwise the most recent limit messages are returned.
type Storage interface {
	GenerateSessionID() string
	GenerateMessageID() string

	StoreSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	StoreMessages(ctx context.Context, sessionID string, msgs []StoredMessage) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error)
	// ListSessions returns sessions by most recent update first.
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type memoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]Session
	messages map[string][]StoredMessage
}

// NewMemoryStorage returns a process-local Storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{
		sessions: map[string]Session{},
		messages: map[string][]StoredMessage{},
	}
}

func (m *memoryStorage) GenerateSessionID() string { return uuid.NewString() }
func (m *memoryStorage) GenerateMessageID() string { return uuid.NewString() }

func (m *memoryStorage) StoreSession(ctx context.Context, s Session) error {
	if s.ID == "" {
		return &StorageError{Kind: StorageInvalidInput, Op: "store session", Cause: errors.New("session id is required")}
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStorage) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &StorageError{Kind: StorageNotFound, Op: "get session " + id}
	}
	return &s, nil
}

func (m *memoryStorage) StoreMessages(ctx context.Context, sessionID string, msgs []StoredMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return &StorageError{Kind: StorageNotFound, Op: "store messages " + sessionID}
	}
	for _, msg := range msgs {
		if msg.ID == "" {
			return &StorageError{Kind: StorageInvalidInput, Op: "store messages", Cause: errors.New("message id is required")}
		}
	}
	now := time.Now()
	for _, msg := range msgs {
		msg.SessionID = sessionID
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		m.messages[sessionID] = append(m.messages[sessionID], msg)
	}
	s.UpdatedAt = now
	m.sessions[sessionID] = s
	return nil
}

func (m *memoryStorage) GetMessages(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, &StorageError{Kind: StorageNotFound, Op: "get messages " + sessionID}
	}
	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]StoredMessage(nil), msgs...), nil
}

func (m *memoryStorage) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStorage) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &StorageError{Kind: StorageNotFound, Op: "delete session " + id}
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}
