// Package session issues opaque session tokens and resolves them back to the
// identity snapshot taken at login. Only the HMAC digest of a token is ever
// handed to the store.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/metrics"
)

const (
	DefaultTTL = time.Hour
	tokenBytes = 32
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Manager struct {
	store   storage.SessionStorage
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

type Option func(m *Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func New(store storage.SessionStorage, secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty session secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		store:  store,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for user and returns the plaintext token the
// client has to present.
func (m *Manager) Create(ctx context.Context, user users.User) (string, users.Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", users.Session{}, fmt.Errorf("session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := m.now().UTC()
	session := users.Session{
		TokenHash: m.digest(token),
		Identity:  user.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", users.Session{}, err
	}
	m.metrics.SessionCreated()
	return token, session, nil
}

// Resolve returns the identity snapshot of a live session. Empty, unknown and
// expired tokens give ErrUnauthenticated; store failures are returned as is.
func (m *Manager) Resolve(ctx context.Context, token string) (users.Identity, error) {
	if token == "" {
		return users.Identity{}, ErrUnauthenticated
	}
	session, err := m.store.GetSession(ctx, m.digest(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return users.Identity{}, ErrUnauthenticated
		}
		return users.Identity{}, err
	}
	if session.ExpiredAt(m.now()) {
		return users.Identity{}, ErrUnauthenticated
	}
	return session.Identity, nil
}

// Destroy ends the session. Unknown and empty tokens are not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, m.digest(token))
}

func (m *Manager) digest(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
