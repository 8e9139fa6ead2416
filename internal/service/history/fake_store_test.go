package history_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"sessionhistory/internal/models"
	"sessionhistory/internal/storage"
)

// memoryStore is an in-memory storage.Store used by the service tests.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	messages map[string]*models.Message

	failWith     error
	annotateErr  error
	annotateHits int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: map[string]*models.Session{},
		messages: map[string]*models.Message{},
	}
}

var _ storage.Store = (*memoryStore)(nil)

func (m *memoryStore) addSession(id, owner string) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Session{ID: id, UserID: owner, Title: "Session " + id, Mode: models.ModeGuided, Status: models.StatusActive}
	m.sessions[id] = s
	return s
}

func (m *memoryStore) addMessage(msg models.Message) *models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := msg
	if stored.Metadata == nil {
		stored.Metadata = map[string]any{}
	}
	m.messages[stored.ID] = &stored
	if s, ok := m.sessions[stored.SessionID]; ok {
		s.TotalMessages++
	}
	return &stored
}

func (m *memoryStore) message(id string) models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.messages[id]
}

func (m *memoryStore) GetSessionForUser(_ context.Context, sessionID, userID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) ListMessages(_ context.Context, sessionID string, offset, limit int) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var all []*models.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			cp := *msg
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Order < all[j].Order })
	out := []*models.Message{}
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *memoryStore) GetMessageWithOwner(_ context.Context, messageID string) (*storage.OwnedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	s, ok := m.sessions[msg.SessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *msg
	return &storage.OwnedMessage{Message: &cp, OwnerID: s.UserID}, nil
}

func (m *memoryStore) AnnotateMessage(_ context.Context, messageID string, a models.Annotation, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.annotateHits++
	if m.annotateErr != nil {
		return m.annotateErr
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return storage.ErrNotFound
	}
	if rating, ok := a.UserRating.Get(); ok {
		msg.UserRating = &rating
	}
	if helpful, ok := a.UserFoundHelpful.Get(); ok {
		msg.UserFoundHelpful = &helpful
	}
	msg.UpdatedAt = now
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) Close() error { return nil }
