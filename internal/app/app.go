package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/ministry-shop/internal/cache"
	"github.com/linemk/ministry-shop/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Redis   *redis.Client
	Catalog cache.CatalogCache
}

// NewApp создаёт новый экземпляр App: подключение к БД и, если настроен, к redis
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", buildDSN(cfg.Database))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	client, catalog := newCatalogCache(ctx, log, cfg.Redis)

	app := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Redis:   client,
		Catalog: catalog,
	}

	return app, nil
}

// Close закрывает соединения с БД и redis
func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", slog.Any("error", err))
		}
	}
	return a.DB.Close()
}

// реализуем подключение к БД через DSN
func buildDSN(db config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)
}

// newCatalogCache без адреса redis работает без кэша.
// Недоступный при старте redis не мешает запуску: каталог читается из БД.
func newCatalogCache(ctx context.Context, log *slog.Logger, cfg config.RedisConfig) (*redis.Client, cache.CatalogCache) {
	if cfg.Address == "" {
		log.Info("redis address is not set, catalog cache disabled")
		return nil, cache.NopCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis is not reachable, catalog will be read from database",
			slog.String("address", cfg.Address),
			slog.Any("error", err),
		)
	}

	return client, cache.NewRedisCache(client, cfg.CatalogTTL)
}
