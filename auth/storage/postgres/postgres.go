package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // postgresql driver
	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/gen/auth/public/model"
	"github.com/goserg/memberportal/gen/auth/public/table"
	"github.com/goserg/memberportal/internal/config"
	"github.com/goserg/memberportal/internal/migrate"
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.AuthStorage = (*Storage)(nil)

func New(ctx context.Context, l *logrus.Logger, cfg config.Postgres) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "auth-storage",
	})
	dsn := cfg.URL
	if dsn == "" {
		dsn = NewURLConnectionString(
			"postgres",
			cfg.Host+":"+strconv.Itoa(cfg.Port),
			cfg.DBName,
			cfg.Username,
			cfg.Password,
			cfg.SSLMode,
		)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := migrate.UpPostgres(db); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := syncRoles(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	log.Info("auth storage connected")
	return &Storage{
		db:  db,
		log: log,
	}, nil
}

// syncRoles inserts any role of the users.Role enum missing from the roles
// table.
func syncRoles(ctx context.Context, db *sql.DB) error {
	var dbRoles []model.Roles
	err := table.Roles.SELECT(table.Roles.AllColumns).QueryContext(ctx, db, &dbRoles)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return err
	}
	dbRoleSet := mapset.NewSet[string]()
	for _, role := range dbRoles {
		dbRoleSet.Add(role.ID)
	}
	for _, role := range users.Roles() {
		if dbRoleSet.Contains(role.String()) {
			continue
		}
		dbRole := model.Roles{
			ID: role.String(),
		}
		_, err := table.Roles.INSERT(table.Roles.AllColumns).MODEL(dbRole).ExecContext(ctx, db)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateUser(ctx context.Context, user users.User) error {
	dbUser := model.Users{
		ID:           user.ID,
		Username:     user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role.String(),
		CreatedAt:    user.RegisteredAt,
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

// duplicateField reports the username when both unique keys collide, whatever
// constraint postgres checked first.
func (s *Storage) duplicateField(ctx context.Context, username string, err error) error {
	var dup *storage.DuplicateKeyError
	if !errors.As(err, &dup) || dup.Field != storage.FieldEmail {
		return err
	}
	var dbUsers []model.Users
	lookupErr := table.Users.
		SELECT(table.Users.ID).
		FROM(table.Users).
		WHERE(table.Users.Username.EQ(postgres.String(username))).
		LIMIT(1).
		QueryContext(ctx, s.db, &dbUsers)
	if lookupErr != nil && !errors.Is(lookupErr, qrm.ErrNoRows) {
		return errors.Join(err, lookupErr)
	}
	if len(dbUsers) > 0 {
		return &storage.DuplicateKeyError{Field: storage.FieldUsername}
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	return s.getUser(ctx, table.Users.ID.EQ(postgres.UUID(id)))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.getUser(ctx, table.Users.Email.EQ(postgres.String(email)))
}

func (s *Storage) getUser(ctx context.Context, where postgres.BoolExpression) (users.User, error) {
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
	return convertDBUserToModel(dbUser)
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
		u, err := convertDBUserToModel(dbUser)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, nil
}

func (s *Storage) SetRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	return inTxSimple(ctx, s.db, func(tx *sql.Tx) error {
		res, err := table.Users.
			UPDATE(table.Users.Role).
			SET(postgres.String(role.String())).
			WHERE(table.Users.ID.EQ(postgres.UUID(id))).
			ExecContext(ctx, tx)
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
	})
}

func (s *Storage) CreateSession(ctx context.Context, session users.Session) error {
	dbSession := model.Sessions{
		TokenHash: session.TokenHash,
		UserID:    session.Identity.ID,
		Username:  session.Identity.Name,
		Role:      session.Identity.Role.String(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
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
		WHERE(table.Sessions.TokenHash.EQ(postgres.String(tokenHash))).
		QueryContext(ctx, s.db, &dbSession)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.Session{}, storage.ErrNotFound
		}
		return users.Session{}, err
	}
	role, err := users.ParseRole(dbSession.Role)
	if err != nil {
		return users.Session{}, err
	}
	return users.Session{
		TokenHash: dbSession.TokenHash,
		Identity: users.Identity{
			ID:   dbSession.UserID,
			Name: dbSession.Username,
			Role: role,
		},
		CreatedAt: dbSession.CreatedAt,
		ExpiresAt: dbSession.ExpiresAt,
	}, nil
}

func (s *Storage) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := table.Sessions.
		DELETE().
		WHERE(table.Sessions.TokenHash.EQ(postgres.String(tokenHash))).
		ExecContext(ctx, s.db)
	return err
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := table.Sessions.
		DELETE().
		WHERE(table.Sessions.ExpiresAt.LT_EQ(postgres.TimestampzT(now))).
		ExecContext(ctx, s.db)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func convertInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return &storage.DuplicateKeyError{Field: storage.FieldUsername}
	case emailConstraint:
		return &storage.DuplicateKeyError{Field: storage.FieldEmail}
	}
	return err
}

func convertDBUserToModel(user model.Users) (users.User, error) {
	role, err := users.ParseRole(user.Role)
	if err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:           user.ID,
		Name:         user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         role,
		RegisteredAt: user.CreatedAt,
	}, nil
}

func inTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	value, err := fn(tx)
	if err != nil {
		return zero, errors.Join(err, tx.Rollback())
	}
	return value, tx.Commit()
}

func inTxSimple(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	_, err := inTx(ctx, db, func(tx *sql.Tx) (struct{}, error) { return struct{}{}, fn(tx) })
	return err
}

func NewURLConnectionString(protocol, host, dbName, username, password, sslMode string) string {
	v := make(url.Values)
	if sslMode != "" {
		v.Set("sslmode", sslMode)
	}
	u := url.URL{
		Scheme:   protocol,
		Host:     host,
		Path:     dbName,
		User:     url.UserPassword(username, password),
		RawQuery: v.Encode(),
	}
	return u.String()
}
