package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/storage/mem"
	"github.com/goserg/memberportal/auth/storage/postgres"
	"github.com/goserg/memberportal/auth/storage/sqlite"
	"github.com/goserg/memberportal/internal/config"
)

// openStorage connects the configured driver. The sql drivers migrate their
// schema on open.
func openStorage(ctx context.Context, cfg config.Storage, l *logrus.Logger) (storage.AuthStorage, error) {
	switch cfg.Driver {
	case config.DriverSqlite:
		return sqlite.New(l, cfg.SqliteFile)
	case config.DriverPostgres:
		return postgres.New(ctx, l, cfg.Postgres)
	case config.DriverMemory:
		l.Warn("memory storage, users and sessions are lost on restart")
		return mem.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
