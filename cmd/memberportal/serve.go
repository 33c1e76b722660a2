package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goserg/memberportal/auth/gate"
	"github.com/goserg/memberportal/auth/password"
	authservice "github.com/goserg/memberportal/auth/service"
	"github.com/goserg/memberportal/auth/session"
	"github.com/goserg/memberportal/internal/config"
	"github.com/goserg/memberportal/internal/logger"
	"github.com/goserg/memberportal/internal/metrics"
	"github.com/goserg/memberportal/internal/web"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger.New(cfg.Server))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, l *logrus.Logger) (err error) {
	store, err := openStorage(ctx, cfg.Storage, l)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	mt := metrics.New()
	sessions, err := session.New(store, []byte(cfg.Auth.SessionSecret), cfg.Auth.SessionTTL.Duration, session.WithMetrics(mt))
	if err != nil {
		return err
	}
	authService, err := authservice.New(authservice.Config{
		RootUsername: cfg.Auth.RootUsername,
		RootEmail:    cfg.Auth.RootEmail,
		RootPassword: cfg.Auth.RootPassword,
	}, store, password.New(cfg.Auth.BcryptCost), sessions, l, mt)
	if err != nil {
		return err
	}
	if err := authService.Bootstrap(ctx); err != nil {
		return err
	}

	server, err := web.New(cfg.Server, authService, gate.New(sessions, l), mt, l)
	if err != nil {
		return err
	}

	housekeeper := session.NewHousekeeper(store, l, cfg.Auth.HousekeepingInterval.Duration, mt)
	housekeeper.Start()
	defer housekeeper.Stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
