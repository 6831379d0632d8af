// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/jason-s-yu/drawphone/internal/database"
	"github.com/jason-s-yu/drawphone/internal/game"
	"github.com/jason-s-yu/drawphone/internal/handlers"
	"github.com/jason-s-yu/drawphone/internal/lobby"
	"github.com/jason-s-yu/drawphone/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.1.0"

	timeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func newLogger(cfg *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// Serve runs the game server until ctx is cancelled.
func Serve(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	registry := game.NewRegistry(game.NewMemoryStore(), game.NewTopics(cfg.topics))
	gw := handlers.NewGateway(lobby.New(), registry, logger)

	if cfg.redisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.redisAddr, 0)
		if err != nil {
			return err
		}
		actions := cache.NewActionLog(rdb, cfg.redisQueue)
		defer actions.Close()
		gw.Actions = actions
		logger.WithField("queue", actions.Queue()).Info("Publishing session actions to Redis")
	}

	if cfg.databaseURL != "" {
		pool, err := database.Connect(ctx, cfg.databaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		archive := database.NewArchive(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			return err
		}
		gw.Archive = archive
		logger.Info("Archiving completed sessions to Postgres")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Prefix:  cfg.prefix,
		Version: releaseVersion,
	}, gw, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           middleware.LogMiddleware(logger)(router),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}

	go game.RunReaper(ctx, registry, cfg.sessionTimeout, logger)

	errs := make(chan error, 1)
	go func() {
		logger.Infof("Listening on http://%s%s/", srv.Addr, cfg.prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	gw.Wait()
	return err
}
