package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/gen/sqlite/model"
	"github.com/goserg/memberportal/gen/sqlite/table"
	"github.com/goserg/memberportal/internal/migrate"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.AuthStorage = (*Storage)(nil)

func New(l *logrus.Logger, fileName string) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "auth-storage",
	})
	db, err := sql.Open("sqlite3", buildSource(fileName))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = migrate.UpSqlite(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	err = db.Ping()
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	log.Info("auth storage connected")
	return &Storage{
		db:  db,
		log: log,
	}, nil
}

func buildSource(fileName string) string {
	return "file:" + fileName + "?cache=shared&_busy_timeout=5000"
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateUser(ctx context.Context, user users.User) error {
	dbUser := model.Users{
		ID:           user.ID.String(),
		Username:     user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role.String(),
		CreatedAt:    user.RegisteredAt.UnixMilli(),
	}
	_, err := table.Users.
		INSERT(table.Users.AllColumns).
		MODEL(dbUser).
		ExecContext(ctx, s.db)
	if err != nil {
		return s.duplicateField(ctx, user.Name, convertInsertError(err))
	}
	return nil
}

// duplicateField reports the username when both unique keys collide. sqlite
// names whichever index it checked first.
func (s *Storage) duplicateField(ctx context.Context, username string, err error) error {
	var dup *storage.DuplicateKeyError
	if !errors.As(err, &dup) || dup.Field != storage.FieldEmail {
		return err
	}
	taken, lookupErr := s.usernameTaken(ctx, username)
	if lookupErr != nil {
		return errors.Join(err, lookupErr)
	}
	if taken {
		return &storage.DuplicateKeyError{Field: storage.FieldUsername}
	}
	return err
}

func (s *Storage) usernameTaken(ctx context.Context, username string) (bool, error) {
	var dbUsers []model.Users
	err := table.Users.
		SELECT(table.Users.ID).
		FROM(table.Users).
		WHERE(table.Users.Username.EQ(sqlite.String(username))).
		LIMIT(1).
		QueryContext(ctx, s.db, &dbUsers)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return false, err
	}
	return len(dbUsers) > 0, nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return s.getUser(ctx, table.Users.ID.EQ(sqlite.String(id.String())))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.getUser(ctx, table.Users.Email.EQ(sqlite.String(email)))
}

func (s *Storage) getUser(ctx context.Context, where sqlite.BoolExpression) (users.User, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns).
		FROM(table.Users).
		WHERE(where).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, storage.ErrNotFound
		}
		return users.User{}, err
	}
	return convertUserToModel(dbUser)
}

func (s *Storage) ListUsers(ctx context.Context) ([]users.User, error) {
	var dbUsers []model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns).
		FROM(table.Users).
		ORDER_BY(table.Users.CreatedAt.ASC(), table.Users.Username.ASC()).
		QueryContext(ctx, s.db, &dbUsers)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, err
	}
	list := make([]users.User, 0, len(dbUsers))
	for _, dbUser := range dbUsers {
		u, err := convertUserToModel(dbUser)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, nil
}

func (s *Storage) SetRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	res, err := table.Users.
		UPDATE(table.Users.Role).
		SET(sqlite.String(role.String())).
		WHERE(table.Users.ID.EQ(sqlite.String(id.String()))).
		ExecContext(ctx, s.db)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateSession(ctx context.Context, session users.Session) error {
	dbSession := model.Sessions{
		TokenHash: session.TokenHash,
		UserID:    session.Identity.ID.String(),
		Username:  session.Identity.Name,
		Role:      session.Identity.Role.String(),
		CreatedAt: session.CreatedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	}
	_, err := table.Sessions.
		INSERT(table.Sessions.AllColumns).
		MODEL(dbSession).
		ExecContext(ctx, s.db)
	return err
}

func (s *Storage) GetSession(ctx context.Context, tokenHash string) (users.Session, error) {
	var dbSession model.Sessions
	err := table.Sessions.
		SELECT(table.Sessions.AllColumns).
		FROM(table.Sessions).
		WHERE(table.Sessions.TokenHash.EQ(sqlite.String(tokenHash))).
		QueryContext(ctx, s.db, &dbSession)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.Session{}, storage.ErrNotFound
		}
		return users.Session{}, err
	}
	return convertSessionToModel(dbSession)
}

func (s *Storage) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := table.Sessions.
		DELETE().
		WHERE(table.Sessions.TokenHash.EQ(sqlite.String(tokenHash))).
		ExecContext(ctx, s.db)
	return err
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := table.Sessions.
		DELETE().
		WHERE(table.Sessions.ExpiresAt.LT_EQ(sqlite.Int(now.UnixMilli()))).
		ExecContext(ctx, s.db)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// convertInsertError maps sqlite's "UNIQUE constraint failed: users.username"
// onto storage.DuplicateKeyError.
func convertInsertError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return &storage.DuplicateKeyError{Field: storage.FieldUsername}
	case strings.Contains(msg, "users.email"):
		return &storage.DuplicateKeyError{Field: storage.FieldEmail}
	}
	return err
}

func convertUserToModel(user model.Users) (users.User, error) {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return users.User{}, err
	}
	role, err := users.ParseRole(user.Role)
	if err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:           id,
		Name:         user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         role,
		RegisteredAt: time.UnixMilli(user.CreatedAt).UTC(),
	}, nil
}

func convertSessionToModel(session model.Sessions) (users.Session, error) {
	id, err := uuid.Parse(session.UserID)
	if err != nil {
		return users.Session{}, err
	}
	role, err := users.ParseRole(session.Role)
	if err != nil {
		return users.Session{}, err
	}
	return users.Session{
		TokenHash: session.TokenHash,
		Identity: users.Identity{
			ID:   id,
			Name: session.Username,
			Role: role,
		},
		CreatedAt: time.UnixMilli(session.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(session.ExpiresAt).UTC(),
	}, nil
}
