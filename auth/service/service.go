package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/password"
	"github.com/goserg/memberportal/auth/session"
	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/metrics"
	"github.com/goserg/memberportal/internal/normalize"
)

type Service struct {
	creds    *Credentials
	hasher   password.Hasher
	sessions *session.Manager
	cfg      Config
	log      *logrus.Entry
	metrics  *metrics.Metrics

	// verified against when the email is unknown so both failure paths
	// cost one bcrypt compare
	dummyHash string
}

func New(cfg Config, s storage.UserStorage, hasher password.Hasher, sessions *session.Manager, l *logrus.Logger, mt *metrics.Metrics) (*Service, error) {
	dummyHash, err := hasher.Hash("memberportal-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Service{
		creds:    NewCredentials(s, hasher),
		hasher:   hasher,
		sessions: sessions,
		cfg:      cfg,
		log: l.WithFields(map[string]interface{}{
			"from": "auth-service",
		}),
		metrics:   mt,
		dummyHash: dummyHash,
	}, nil
}

func (s *Service) Credentials() *Credentials {
	return s.creds
}

// SignUp creates a user with the user role and logs them in.
func (s *Service) SignUp(ctx context.Context, username, email, plaintext string) (string, users.Session, error) {
	user, err := s.creds.CreateUser(ctx, username, email, plaintext)
	if err != nil {
		s.metrics.Signup(signupResult(err))
		return "", users.Session{}, err
	}
	s.metrics.Signup(metrics.ResultOK)
	s.log.WithFields(logrus.Fields{"user": user.ID, "name": user.Name}).Info("user signed up")
	return s.sessions.Create(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, plaintext string) (string, users.Session, error) {
	user, err := s.authenticate(ctx, email, plaintext)
	if err != nil {
		s.metrics.Login(metrics.KindLogin, loginResult(err))
		return "", users.Session{}, err
	}
	s.metrics.Login(metrics.KindLogin, metrics.ResultOK)
	return s.sessions.Create(ctx, user)
}

// AdminLogin is Login for admins only. A non-admin with valid credentials
// gets ErrNotAdmin and no session.
func (s *Service) AdminLogin(ctx context.Context, email, plaintext string) (string, users.Session, error) {
	user, err := s.authenticate(ctx, email, plaintext)
	if err == nil && user.Role != users.RoleAdmin {
		err = ErrNotAdmin
	}
	if err != nil {
		s.metrics.Login(metrics.KindAdminLogin, loginResult(err))
		return "", users.Session{}, err
	}
	s.metrics.Login(metrics.KindAdminLogin, metrics.ResultOK)
	s.log.WithField("user", user.ID).Info("admin logged in")
	return s.sessions.Create(ctx, user)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

func (s *Service) ListUsers(ctx context.Context, caller users.Identity) ([]users.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.creds.ListUsers(ctx)
}

// Bootstrap creates the configured root account with the admin role unless
// a user with that email already exists.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.RootEmail == "" || s.cfg.RootPassword == "" {
		return nil
	}
	_, err := s.creds.FindByEmail(ctx, s.cfg.RootEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	name := s.cfg.RootUsername
	if name == "" {
		name = "root"
	}
	root, err := s.creds.createUser(ctx, name, s.cfg.RootEmail, s.cfg.RootPassword, users.RoleAdmin)
	if err != nil {
		return fmt.Errorf("bootstrap root user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user": root.ID, "name": root.Name}).Info("root user created")
	return nil
}

func (s *Service) authenticate(ctx context.Context, email, plaintext string) (users.User, error) {
	email = normalize.Email(email)
	var missing []string
	if email == "" {
		missing = append(missing, FieldEmail)
	}
	if strings.TrimSpace(plaintext) == "" {
		missing = append(missing, FieldPassword)
	}
	if len(missing) > 0 {
		return users.User{}, &ValidationError{Fields: missing}
	}

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(plaintext, s.dummyHash)
			return users.User{}, ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return users.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func signupResult(err error) string {
	var (
		dup     *storage.DuplicateKeyError
		invalid *ValidationError
	)
	switch {
	case errors.As(err, &dup):
		return metrics.ResultDuplicate
	case errors.As(err, &invalid):
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}

func loginResult(err error) string {
	var invalid *ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.As(err, &invalid):
		return metrics.ResultInvalid
	case errors.Is(err, ErrForbidden):
		return metrics.ResultForbidden
	}
	return metrics.ResultError
}
