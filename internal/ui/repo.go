package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/cache"
	"github.com/javiermolinar/dayplan/internal/config"
	"github.com/javiermolinar/dayplan/internal/db"
	"github.com/javiermolinar/dayplan/internal/gormstore"
	"github.com/javiermolinar/dayplan/internal/plan"
)

const redisConnectTimeout = 5 * time.Second

// openRepository opens the configured storage driver and, when a Redis address
// is set, wraps it with the plan cache. The returned closers release anything
// the repository's own Close does not.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (plan.Repository, []io.Closer, error) {
	var (
		repo plan.Repository
		err  error
	)
	switch cfg.Storage.Driver {
	case "mysql":
		repo, err = gormstore.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing database: %w", err)
		}
	default:
		repo, err = openSQLite(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, err
		}
	}

	if !cfg.CacheEnabled() {
		return repo, nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		// The cache is optional; run uncached rather than fail.
		logger.Warnw("plan cache disabled", "addr", cfg.Cache.RedisAddr, "err", err)
		return repo, nil, nil
	}
	logger.Debugw("plan cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.CacheTTL())
	return cache.New(repo, rc, cfg.CacheTTL(), logger), []io.Closer{rc}, nil
}

func openSQLite(dbPath string) (*db.SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	repo, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return repo, nil
}
