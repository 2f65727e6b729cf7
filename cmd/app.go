package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// app holds everything a command needs once config and connections are up.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	db    *db.Handle
	redis *redis.Client // nil without REDIS_URL/REDIS_ADDR
	repos *repository.Repositories
	svc   *service.SchedulingService
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func bootstrap(ctx context.Context) (*app, error) {
	// 1. Конфиг из .env и окружения.
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg)}

	// 2. База данных.
	a.db, err = db.Open(ctx, &cfg.DB)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("driver", cfg.DB.Driver).Msg("connected to database")

	// 3. Блокировки слотов: Redis, если настроен, иначе in-process.
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled() {
		a.redis, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			a.db.Close()
			return nil, err
		}
		locker = lock.NewRedisLocker(a.redis, cfg.LockTTL)
		a.log.Info().Str("addr", a.redis.Options().Addr).Msg("connected to redis")
	} else {
		a.log.Warn().Msg("REDIS_ADDR is not set, slot locks are process-local")
	}

	// 4. Репозитории и сервис.
	a.repos = repository.New(a.db.Gorm)
	a.svc = service.NewSchedulingService(a.repos, locker, a.log,
		service.WithBatching(cfg.SlotBatchSize, cfg.SlotBatchRetries),
	)
	return a, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("close redis")
		}
	}
	a.db.Close()
}
