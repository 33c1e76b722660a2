package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goserg/memberportal/auth/password"
	"github.com/goserg/memberportal/auth/session"
	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/storage/mem"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/logger"
	"github.com/goserg/memberportal/internal/metrics"
)

type env struct {
	svc      *Service
	store    *mem.Storage
	sessions *session.Manager
	metrics  *metrics.Metrics
}

func newEnv(t *testing.T, cfg Config) env {
	t.Helper()
	store := mem.New()
	mt := metrics.New()
	sessions, err := session.New(store, []byte("test-secret"), time.Hour, session.WithMetrics(mt))
	require.NoError(t, err)
	svc, err := New(cfg, store, password.New(bcrypt.MinCost), sessions, logger.Discard(), mt)
	require.NoError(t, err)
	return env{svc: svc, store: store, sessions: sessions, metrics: mt}
}

func (e env) sessionsCreated() float64 {
	return testutil.ToFloat64(e.metrics.SessionsCreated)
}

func (e env) makeAdmin(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, e.store.SetRole(context.Background(), id, users.RoleAdmin))
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})

	token, sess, err := e.svc.SignUp(ctx, "  alice ", " Alice@X.com ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Identity.Name)
	assert.Equal(t, users.RoleUser, sess.Identity.Role)

	identity, err := e.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.Identity, identity)

	user, err := e.store.GetUserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.Equal(t, user.ID, identity.ID)
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		email      string
		password   string
		wantFields []string
		wantErr    error
	}{
		{name: "all missing", wantFields: []string{FieldUsername, FieldEmail, FieldPassword}},
		{name: "blank username", username: "   ", email: "a@x.com", password: "pw", wantFields: []string{FieldUsername}},
		{name: "no email", username: "alice", password: "pw", wantFields: []string{FieldEmail}},
		{name: "blank password", username: "alice", email: "a@x.com", password: "  ", wantFields: []string{FieldPassword}},
		{
			name:       "password too long",
			username:   "alice",
			email:      "a@x.com",
			password:   strings.Repeat("p", 73),
			wantFields: []string{FieldPassword},
			wantErr:    password.ErrPasswordTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, Config{})
			_, _, err := e.svc.SignUp(context.Background(), tt.username, tt.email, tt.password)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantFields, verr.Fields)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 0.0, e.sessionsCreated())
		})
	}
}

func TestSignUp_Duplicates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw")
	require.NoError(t, err)

	tests := []struct {
		name      string
		username  string
		email     string
		wantField string
	}{
		{name: "username", username: "alice", email: "other@x.com", wantField: storage.FieldUsername},
		{name: "email other case", username: "bob", email: "A@X.COM", wantField: storage.FieldEmail},
		{name: "both", username: "alice", email: "a@x.com", wantField: storage.FieldUsername},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.svc.SignUp(ctx, tt.username, tt.email, "pw")
			var dup *storage.DuplicateKeyError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.wantField, dup.Field)
		})
	}
	assert.Equal(t, 1.0, e.sessionsCreated())
	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.SignupsTotal.WithLabelValues(metrics.ResultDuplicate)))
}

func TestSignUp_Concurrent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})

	const n = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		oks   int
		dups  int
		other []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw")
			mu.Lock()
			defer mu.Unlock()
			var dup *storage.DuplicateKeyError
			switch {
			case err == nil:
				oks++
			case errors.As(err, &dup):
				dups++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, n-1, dups)
	assert.Empty(t, other)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, signup, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	token, sess, err := e.svc.Login(ctx, "A@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, signup.Identity, sess.Identity)
	_, err = e.sessions.Resolve(ctx, token)
	assert.NoError(t, err)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	before := e.sessionsCreated()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "wrong password", email: "a@x.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@x.com", password: "pw1", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := e.svc.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, token)
		})
	}

	_, _, err = e.svc.Login(ctx, "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{FieldEmail, FieldPassword}, verr.Fields)

	assert.Equal(t, before, e.sessionsCreated())
}

func TestLogin_NoLockout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, _, err := e.svc.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err = e.svc.Login(ctx, "a@x.com", "pw1")
	assert.NoError(t, err)
}

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, alice, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	_, bob, err := e.svc.SignUp(ctx, "bob", "b@x.com", "pw2")
	require.NoError(t, err)
	e.makeAdmin(t, bob.Identity.ID)
	before := e.sessionsCreated()

	_, _, err = e.svc.AdminLogin(ctx, "a@x.com", "pw1")
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, before, e.sessionsCreated())

	_, _, err = e.svc.AdminLogin(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, sess, err := e.svc.AdminLogin(ctx, "b@x.com", "pw2")
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, sess.Identity.Role)
	identity, err := e.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
	assert.NotEqual(t, alice.Identity.ID, identity.ID)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	token, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, e.svc.Logout(ctx, token))
	_, err = e.sessions.Resolve(ctx, token)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.NoError(t, e.svc.Logout(ctx, token))
}

func TestPromoteDemote(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, admin, err := e.svc.SignUp(ctx, "root", "root@x.com", "pw")
	require.NoError(t, err)
	e.makeAdmin(t, admin.Identity.ID)
	_, _, err = e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	aliceToken, alice, err := e.svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	adminID := users.Identity{ID: admin.Identity.ID, Name: "root", Role: users.RoleAdmin}

	require.NoError(t, e.svc.Promote(ctx, adminID, alice.Identity.ID))
	user, err := e.store.GetUser(ctx, alice.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, user.Role)

	// promoting twice is fine
	require.NoError(t, e.svc.Promote(ctx, adminID, alice.Identity.ID))

	// the session alice already holds keeps the old role
	stale, err := e.sessions.Resolve(ctx, aliceToken)
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, stale.Role)

	_, fresh, err := e.svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, fresh.Identity.Role)

	require.NoError(t, e.svc.Demote(ctx, adminID, alice.Identity.ID))
	user, err = e.store.GetUser(ctx, alice.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, user.Role)

	assert.ErrorIs(t, e.svc.Promote(ctx, adminID, uuid.New()), storage.ErrNotFound)
}

func TestPromote_ByUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, alice, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	_, bob, err := e.svc.SignUp(ctx, "bob", "b@x.com", "pw2")
	require.NoError(t, err)

	assert.ErrorIs(t, e.svc.Promote(ctx, alice.Identity, bob.Identity.ID), ErrForbidden)
	assert.ErrorIs(t, e.svc.Promote(ctx, alice.Identity, alice.Identity.ID), ErrForbidden)
	assert.ErrorIs(t, e.svc.Demote(ctx, users.Identity{}, bob.Identity.ID), ErrForbidden)

	user, err := e.store.GetUser(ctx, bob.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, user.Role)
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.RoleChanges.WithLabelValues("admin", metrics.ResultForbidden)))
}

func TestDemote_Self(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, admin, err := e.svc.SignUp(ctx, "root", "root@x.com", "pw")
	require.NoError(t, err)
	e.makeAdmin(t, admin.Identity.ID)
	caller := admin.Identity
	caller.Role = users.RoleAdmin

	require.NoError(t, e.svc.Demote(ctx, caller, caller.ID))
	user, err := e.store.GetUser(ctx, caller.ID)
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, user.Role)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{})
	_, alice, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = e.svc.ListUsers(ctx, alice.Identity)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := alice.Identity
	admin.Role = users.RoleAdmin
	list, err := e.svc.ListUsers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Name)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{RootEmail: "Root@X.com", RootPassword: "rootpw"})

	require.NoError(t, e.svc.Bootstrap(ctx))
	require.NoError(t, e.svc.Bootstrap(ctx))

	list, err := e.store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "root", list[0].Name)
	assert.Equal(t, "root@x.com", list[0].Email)
	assert.Equal(t, users.RoleAdmin, list[0].Role)

	_, sess, err := e.svc.AdminLogin(ctx, "root@x.com", "rootpw")
	require.NoError(t, err)
	assert.True(t, sess.Identity.IsAdmin())
}

func TestBootstrap_NotConfigured(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{RootEmail: "root@x.com"})

	require.NoError(t, e.svc.Bootstrap(ctx))
	list, err := e.store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBootstrap_ExistingEmailKeepsRole(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Config{RootUsername: "boss", RootEmail: "a@x.com", RootPassword: "pw"})
	_, _, err := e.svc.SignUp(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, e.svc.Bootstrap(ctx))
	user, err := e.store.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, user.Role)
}
