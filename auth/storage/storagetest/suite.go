// Package storagetest holds the behaviour every storage.AuthStorage driver
// must share. Driver packages run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
)

type Suite struct {
	suite.Suite

	// New returns an empty storage for every test.
	New func(t *testing.T) storage.AuthStorage

	store storage.AuthStorage
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.New(s.T())
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func newUser(name, email string) users.User {
	return users.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhashnotarealhashnot",
		Role:         users.RoleUser,
		RegisteredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *Suite) TestCreateAndGetUser() {
	u := newUser("alice", "a@x.com")
	s.Require().NoError(s.store.CreateUser(s.ctx, u))

	got, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Equal("alice", got.Name)
	s.Equal("a@x.com", got.Email)
	s.Equal(u.PasswordHash, got.PasswordHash)
	s.Equal(users.RoleUser, got.Role)
	s.True(u.RegisteredAt.Equal(got.RegisteredAt), "registered at %v, got %v", u.RegisteredAt, got.RegisteredAt)

	byEmail, err := s.store.GetUserByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
}

func (s *Suite) TestGetUnknownUser() {
	_, err := s.store.GetUser(s.ctx, uuid.New())
	s.ErrorIs(err, storage.ErrNotFound)

	_, err = s.store.GetUserByEmail(s.ctx, "nobody@x.com")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestDuplicateUsername() {
	s.Require().NoError(s.store.CreateUser(s.ctx, newUser("alice", "a@x.com")))

	err := s.store.CreateUser(s.ctx, newUser("alice", "b@x.com"))
	var dup *storage.DuplicateKeyError
	s.Require().ErrorAs(err, &dup)
	s.Equal(storage.FieldUsername, dup.Field)

	list, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *Suite) TestDuplicateEmail() {
	s.Require().NoError(s.store.CreateUser(s.ctx, newUser("alice", "a@x.com")))

	err := s.store.CreateUser(s.ctx, newUser("bob", "a@x.com"))
	var dup *storage.DuplicateKeyError
	s.Require().ErrorAs(err, &dup)
	s.Equal(storage.FieldEmail, dup.Field)
}

func (s *Suite) TestDuplicateBothReportsUsername() {
	s.Require().NoError(s.store.CreateUser(s.ctx, newUser("alice", "a@x.com")))

	err := s.store.CreateUser(s.ctx, newUser("alice", "a@x.com"))
	var dup *storage.DuplicateKeyError
	s.Require().ErrorAs(err, &dup)
	s.Equal(storage.FieldUsername, dup.Field)
}

func (s *Suite) TestConcurrentSignupSameUsername() {
	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dups      int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.CreateUser(s.ctx, newUser("alice", fmt.Sprintf("a%d@x.com", i)))
			mu.Lock()
			defer mu.Unlock()
			var dup *storage.DuplicateKeyError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &dup):
				dups++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(n-1, dups)
	list, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *Suite) TestListUsersOrdered() {
	first := newUser("alice", "a@x.com")
	second := newUser("bob", "b@x.com")
	second.RegisteredAt = first.RegisteredAt.Add(time.Second)
	s.Require().NoError(s.store.CreateUser(s.ctx, second))
	s.Require().NoError(s.store.CreateUser(s.ctx, first))

	list, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("alice", list[0].Name)
	s.Equal("bob", list[1].Name)
}

func (s *Suite) TestSetRole() {
	u := newUser("alice", "a@x.com")
	s.Require().NoError(s.store.CreateUser(s.ctx, u))

	s.Require().NoError(s.store.SetRole(s.ctx, u.ID, users.RoleAdmin))
	got, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(users.RoleAdmin, got.Role)

	// same role again is a no-op success
	s.Require().NoError(s.store.SetRole(s.ctx, u.ID, users.RoleAdmin))

	s.Require().NoError(s.store.SetRole(s.ctx, u.ID, users.RoleUser))
	got, err = s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(users.RoleUser, got.Role)
}

func (s *Suite) TestSetRoleUnknownUser() {
	s.ErrorIs(s.store.SetRole(s.ctx, uuid.New(), users.RoleAdmin), storage.ErrNotFound)
}

func (s *Suite) TestSessionLifecycle() {
	u := newUser("alice", "a@x.com")
	s.Require().NoError(s.store.CreateUser(s.ctx, u))

	now := time.Now().UTC().Truncate(time.Millisecond)
	session := users.Session{
		TokenHash: "hash-1",
		Identity:  u.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	s.Require().NoError(s.store.CreateSession(s.ctx, session))

	got, err := s.store.GetSession(s.ctx, "hash-1")
	s.Require().NoError(err)
	s.Equal(u.ID, got.Identity.ID)
	s.Equal("alice", got.Identity.Name)
	s.Equal(users.RoleUser, got.Identity.Role)
	s.True(session.ExpiresAt.Equal(got.ExpiresAt))
	s.True(session.CreatedAt.Equal(got.CreatedAt))

	s.Require().NoError(s.store.DeleteSession(s.ctx, "hash-1"))
	_, err = s.store.GetSession(s.ctx, "hash-1")
	s.ErrorIs(err, storage.ErrNotFound)

	// deleting again is not an error
	s.NoError(s.store.DeleteSession(s.ctx, "hash-1"))
	s.NoError(s.store.DeleteSession(s.ctx, "never-existed"))
}

func (s *Suite) TestSessionSnapshotSurvivesRoleChange() {
	u := newUser("alice", "a@x.com")
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	now := time.Now().UTC()
	s.Require().NoError(s.store.CreateSession(s.ctx, users.Session{
		TokenHash: "hash-1",
		Identity:  u.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	s.Require().NoError(s.store.SetRole(s.ctx, u.ID, users.RoleAdmin))

	got, err := s.store.GetSession(s.ctx, "hash-1")
	s.Require().NoError(err)
	s.Equal(users.RoleUser, got.Identity.Role)
}

func (s *Suite) TestDeleteExpiredSessions() {
	u := newUser("alice", "a@x.com")
	s.Require().NoError(s.store.CreateUser(s.ctx, u))

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, expiresAt := range []time.Time{now.Add(-time.Minute), now, now.Add(time.Minute)} {
		s.Require().NoError(s.store.CreateSession(s.ctx, users.Session{
			TokenHash: fmt.Sprintf("hash-%d", i),
			Identity:  u.Identity(),
			CreatedAt: expiresAt.Add(-time.Hour),
			ExpiresAt: expiresAt,
		}))
	}

	n, err := s.store.DeleteExpiredSessions(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	_, err = s.store.GetSession(s.ctx, "hash-2")
	s.NoError(err)
	_, err = s.store.GetSession(s.ctx, "hash-0")
	s.ErrorIs(err, storage.ErrNotFound)
}
