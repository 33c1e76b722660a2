package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goserg/memberportal/auth/users"
)

type UserStorage interface {
	// CreateUser inserts the user atomically. A taken username or email
	// yields *DuplicateKeyError.
	CreateUser(ctx context.Context, user users.User) error
	GetUser(ctx context.Context, id uuid.UUID) (users.User, error)
	GetUserByEmail(ctx context.Context, email string) (users.User, error)
	ListUsers(ctx context.Context) ([]users.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role users.Role) error
}

type SessionStorage interface {
	CreateSession(ctx context.Context, session users.Session) error
	GetSession(ctx context.Context, tokenHash string) (users.Session, error)
	// DeleteSession is a no-op for unknown hashes.
	DeleteSession(ctx context.Context, tokenHash string) error
	// DeleteExpiredSessions removes sessions with ExpiresAt <= now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuthStorage interface {
	UserStorage
	SessionStorage
	Close() error
}
