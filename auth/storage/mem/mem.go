// Package mem is a process-local AuthStorage. Only suitable for a single
// server instance and for tests.
package mem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
)

type Storage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]users.User
	byName   map[string]uuid.UUID
	byEmail  map[string]uuid.UUID
	sessions map[string]users.Session
}

var _ storage.AuthStorage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]users.User),
		byName:   make(map[string]uuid.UUID),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[string]users.Session),
	}
}

func (s *Storage) CreateUser(_ context.Context, user users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[user.Name]; ok {
		return &storage.DuplicateKeyError{Field: storage.FieldUsername}
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return &storage.DuplicateKeyError{Field: storage.FieldEmail}
	}
	s.users[user.ID] = user
	s.byName[user.Name] = user.ID
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Storage) GetUser(_ context.Context, id uuid.UUID) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return users.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return users.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Storage) ListUsers(_ context.Context) ([]users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]users.User, 0, len(s.users))
	for _, user := range s.users {
		list = append(list, user)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RegisteredAt.Before(list[j].RegisteredAt)
	})
	return list, nil
}

func (s *Storage) SetRole(_ context.Context, id uuid.UUID, role users.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.Role = role
	s.users[id] = user
	return nil
}

func (s *Storage) CreateSession(_ context.Context, session users.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.TokenHash] = session
	return nil
}

func (s *Storage) GetSession(_ context.Context, tokenHash string) (users.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return users.Session{}, storage.ErrNotFound
	}
	return session, nil
}

func (s *Storage) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

func (s *Storage) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, session := range s.sessions {
		if session.ExpiredAt(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (s *Storage) Close() error {
	return nil
}
