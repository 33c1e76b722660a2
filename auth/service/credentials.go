package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goserg/memberportal/auth/password"
	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/normalize"
)

// Credentials creates and looks up users. Uniqueness of username and email
// is left to the storage, which rejects the second of two racing inserts.
type Credentials struct {
	storage storage.UserStorage
	hasher  password.Hasher
	now     func() time.Time
}

func NewCredentials(s storage.UserStorage, hasher password.Hasher) *Credentials {
	return &Credentials{
		storage: s,
		hasher:  hasher,
		now:     time.Now,
	}
}

func (c *Credentials) CreateUser(ctx context.Context, username, email, plaintext string) (users.User, error) {
	return c.createUser(ctx, username, email, plaintext, users.RoleUser)
}

func (c *Credentials) createUser(ctx context.Context, username, email, plaintext string, role users.Role) (users.User, error) {
	username = normalize.Name(username)
	email = normalize.Email(email)

	var missing []string
	if username == "" {
		missing = append(missing, FieldUsername)
	}
	if email == "" {
		missing = append(missing, FieldEmail)
	}
	if strings.TrimSpace(plaintext) == "" {
		missing = append(missing, FieldPassword)
	}
	if len(missing) > 0 {
		return users.User{}, &ValidationError{Fields: missing}
	}

	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return users.User{}, &ValidationError{Fields: []string{FieldPassword}, Err: err}
		}
		return users.User{}, err
	}

	user := users.User{
		ID:           uuid.New(),
		Name:         username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		RegisteredAt: c.now().UTC().Truncate(time.Millisecond),
	}
	if err := c.storage.CreateUser(ctx, user); err != nil {
		return users.User{}, err
	}
	return user, nil
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (users.User, error) {
	return c.storage.GetUserByEmail(ctx, normalize.Email(email))
}

func (c *Credentials) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return c.storage.GetUser(ctx, id)
}

func (c *Credentials) ListUsers(ctx context.Context) ([]users.User, error) {
	return c.storage.ListUsers(ctx)
}

// SetRole is idempotent. Existing sessions of the user keep the role they
// were created with.
func (c *Credentials) SetRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	return c.storage.SetRole(ctx, id, role)
}
