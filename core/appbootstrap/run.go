package appbootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"

	"cryout/api"
	"cryout/config"
	"cryout/core/store"
)

func newLogger(cfg *config.AppConfig) log.Interface {
	logger := &log.Logger{Level: log.InfoLevel}
	if cfg.AppEnv == "development" {
		logger.Handler = text.New(os.Stderr)
		logger.Level = log.DebugLevel
	} else {
		logger.Handler = json.New(os.Stderr)
	}
	return logger
}

// Run boots the service: config, database, migrations, background workers,
// HTTP server, and blocks until SIGINT/SIGTERM triggers a graceful shutdown.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return err
	}

	comp, err := composeRuntime(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	for _, w := range comp.workers {
		if err := w.Start(); err != nil {
			return err
		}
	}
	defer func() {
		for _, w := range comp.workers {
			w.Stop()
		}
	}()

	server := api.NewServer(cfg, comp.serverDeps, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Seed opens the database and installs the sample organizations if none
// exist yet.
func Seed(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return err
	}
	comp, err := composeRuntime(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	return comp.orgsSvc.Seed(ctx)
}
