package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gitlab.com/offlinejudge.net/internal/adapter/catalog/builtin"
	"gitlab.com/offlinejudge.net/internal/adapter/catalog/filestore"
	memorycache "gitlab.com/offlinejudge.net/internal/adapter/memory/problemcache"
	rediscache "gitlab.com/offlinejudge.net/internal/adapter/redis/problemcache"
	"gitlab.com/offlinejudge.net/internal/adapter/sandbox"
	"gitlab.com/offlinejudge.net/internal/adapter/sqldb/problemrepository"
	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/core/services/catalog"
	"gitlab.com/offlinejudge.net/internal/core/services/judge"
)

// app holds the wired services for one command invocation
type app struct {
	catalogSvc *catalog.CatalogService
	judgeSvc   *judge.JudgeService

	// reloadable is set when the catalog source can pick up edits
	reloadable secondary.Reloadable
	// writer is set for the SQL catalog
	writer secondary.ProblemWriter

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to release resource", "error", err)
		}
	}
}

func newApp(ctx context.Context, withCaches bool) (*app, error) {
	a := &app{}
	repo, err := a.openCatalog(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var caches []secondary.ProblemCache
	if withCaches {
		caches = append(caches, memorycache.NewProblemCache(sysCfg.CacheConfig.Size, sysCfg.CacheConfig.TTL))
		if sysCfg.RedisConfig.Enabled {
			redisClient, err := setupRedis(ctx, sysCfg.RedisConfig)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.closers = append(a.closers, redisClient.Close)
			caches = append(caches, rediscache.NewProblemCache(redisClient, sysCfg.CacheConfig.TTL, logger))
		}
	}

	a.catalogSvc = catalog.NewCatalogService(repo, logger, caches...)
	loader, err := newLoader(sysCfg.JudgeConfig)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.judgeSvc = judge.NewJudgeService(a.catalogSvc, loader, sysCfg.JudgeConfig, logger)
	return a, nil
}

// newLoader picks the candidate interpreter
func newLoader(judgeCfg *config.JudgeConfig) (secondary.CandidateLoader, error) {
	switch judgeCfg.Runtime {
	case config.RuntimePython, "":
		return sandbox.NewPythonLoader(judgeCfg, logger), nil
	case config.RuntimeStarlark:
		return sandbox.NewStarlarkLoader(judgeCfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown judge runtime %q", judgeCfg.Runtime)
	}
}

func (a *app) openCatalog(ctx context.Context) (secondary.ProblemRepository, error) {
	catalogCfg := sysCfg.CatalogConfig
	switch catalogCfg.Source {
	case config.CatalogSourceBuiltin, "":
		return builtin.New()
	case config.CatalogSourceFile:
		store, err := filestore.Open(ctx, catalogCfg.File, logger)
		if err != nil {
			return nil, err
		}
		a.reloadable = store
		return store, nil
	case config.CatalogSourceSQL:
		db, err := setupDatabase(ctx, sysCfg.DBConfig)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := problemrepository.New(db, logger, sysCfg.DBConfig.Schema)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.writer = repo
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", catalogCfg.Source)
	}
}

// setupDatabase opens the SQL catalog connection
func setupDatabase(ctx context.Context, dbCfg *config.DBConfig) (*sqlx.DB, error) {
	if dbCfg.Driver != "postgres" && dbCfg.Driver != "sqlite" {
		return nil, errors.New("DB_DRIVER must be postgres or sqlite")
	}
	db, err := sqlx.Open(dbCfg.Driver, dbCfg.Url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// setupRedis sets up the Redis connection
func setupRedis(ctx context.Context, redisCfg *config.RedisConfig) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Url,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return redisClient, nil
}
