package users

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	RegisteredAt time.Time
}

// Identity is the read-only snapshot of a user embedded in a session.
// It is not updated when the user's role changes later on.
type Identity struct {
	ID   uuid.UUID
	Name string
	Role Role
}

func (u User) Identity() Identity {
	return Identity{
		ID:   u.ID,
		Name: u.Name,
		Role: u.Role,
	}
}

// Authenticated is false for the zero Identity of an anonymous caller.
func (i Identity) Authenticated() bool {
	return i.ID != uuid.Nil
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Session struct {
	TokenHash string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the session is no longer valid at t.
func (s Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
