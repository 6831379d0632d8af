// cmd/historian is an asynchronous service that pops session actions from a
// Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/drawphone/internal/cache"
	"github.com/jason-s-yu/drawphone/internal/database"
	"github.com/jason-s-yu/drawphone/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if getEnv("HISTORIAN_VERBOSE", "") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0))
	if err != nil {
		logger.WithError(err).Fatal("Redis unavailable")
	}
	actions := cache.NewActionLog(rdb, getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName))
	defer actions.Close()

	pool, err := database.Connect(ctx, getEnv("DATABASE_URL", "postgres://localhost:5432/drawphone"))
	if err != nil {
		logger.WithError(err).Fatal("Postgres unavailable")
	}
	defer pool.Close()

	archive := database.NewArchive(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to apply schema")
	}

	svc := historian.New(actions, archive, historian.Config{
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}, logger)

	logger.WithField("queue", actions.Queue()).Info("drawphone-historian started")
	svc.Run(ctx)
	logger.Info("Historian shutdown complete")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
