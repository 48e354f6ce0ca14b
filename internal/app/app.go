package app

import (
	"context" // Redis ping deadline
	"fmt"     // Error wrapping
	"time"    // Ping timeout

	"invest_platform/internal/config"     // Application settings
	"invest_platform/internal/db"         // Database connection
	"invest_platform/internal/investment" // Investment engine
	"invest_platform/internal/ledger"     // Transactional store
	"invest_platform/internal/lock"       // Keyed locks
	"invest_platform/internal/metrics"    // Prometheus collectors
	"invest_platform/internal/project"    // Project lifecycle
	"invest_platform/internal/returns"    // Return calculator
	"invest_platform/internal/utils"      // Redis read cache

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Withdrawal fraction
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// App holds the components shared by the server and scheduler processes
type App struct {
	DB       *gorm.DB
	Redis    *redis.Client // nil when REDIS_ADDR is empty
	Store    *ledger.Store
	Locker   lock.Locker
	Projects *project.Lifecycle
	Engine   *investment.Engine
	Cache    *utils.Cache
	Metrics  *metrics.Collector
}

// Open connects to the database and, when configured, Redis, then wires the engine
func Open(cfg *config.Config) (*App, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	}
	a, err := New(cfg, gdb, rdb)
	if err != nil {
		(&App{DB: gdb, Redis: rdb}).Close()
		return nil, err
	}
	return a, nil
}

// New wires the components on top of already opened connections
func New(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client) (*App, error) {
	var locker lock.Locker
	switch cfg.LockBackend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis needs REDIS_ADDR")
		}
		locker = lock.NewRedis(rdb, cfg.LockTTL)
	default:
		locker = lock.NewMemory()
	}

	store := ledger.New(gdb)
	collector := metrics.New()
	cache := utils.NewCache(rdb, cfg.CacheTTL)
	projects := project.NewLifecycle(store, locker, cfg.LockTimeout)
	calc := returns.NewCalculator(returns.UniformRate{Min: cfg.VariableReturnMin, Max: cfg.VariableReturnMax})

	engine := investment.NewEngine(investment.Deps{
		Store:    store,
		Projects: projects,
		Returns:  calc,
		Locker:   locker,
		Cache:    cache,
		Metrics:  collector,
	}, investment.Options{
		LockTimeout:         cfg.LockTimeout,
		MaxRetries:          cfg.TxRetries,
		WithdrawMaxFraction: decimal.NewFromFloat(cfg.WithdrawMaxFraction),
	})

	logrus.WithFields(logrus.Fields{
		"lock_backend": cfg.LockBackend,
		"cache":        rdb != nil,
	}).Info("Application wired")

	return &App{
		DB:       gdb,
		Redis:    rdb,
		Store:    store,
		Locker:   locker,
		Projects: projects,
		Engine:   engine,
		Cache:    cache,
		Metrics:  collector,
	}, nil
}

// Close releases the database pool and the Redis client
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("Closing redis")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("Closing database")
		}
	}
}
