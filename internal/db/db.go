package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Leganyst/clinic-scheduling/internal/config"
)

// Handle owns the gorm session and the pools underneath it.
type Handle struct {
	Gorm *gorm.DB

	pool  *pgxpool.Pool // nil for sqlite
	sqlDB *sql.DB
}

func Open(ctx context.Context, cfg *config.DBConfig) (*Handle, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.DBConfig) (*Handle, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = 1
	poolCfg.HealthCheckPeriod = 30 * time.Second
	if cfg.ConnMaxLifeTime > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeTime) * time.Minute
	}
	poolCfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	return &Handle{Gorm: gdb, pool: pool, sqlDB: sqlDB}, nil
}

// OpenSQLite opens a sqlite database. A single connection serializes writers,
// which also keeps ":memory:" databases shared across goroutines.
func OpenSQLite(dsn string) (*Handle, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Handle{Gorm: gdb, sqlDB: sqlDB}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			// always UTC; clinic zones are applied by the application
			return time.Now().UTC()
		},
		TranslateError: true,
	}
}

func (h *Handle) Ping(ctx context.Context) error {
	if h.pool != nil {
		return h.pool.Ping(ctx)
	}
	return h.sqlDB.PingContext(ctx)
}

func (h *Handle) Close() {
	_ = h.sqlDB.Close()
	if h.pool != nil {
		h.pool.Close()
	}
}
