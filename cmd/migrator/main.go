package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/linemk/ministry-shop/internal/config"
	"github.com/linemk/ministry-shop/internal/lib/logger"
	"github.com/pkg/errors"
)

const migrationTableName = "migrations"

// storefrontTables таблицы, без которых сервер не запустится
var storefrontTables = []string{
	"users",
	"products",
	"ministry_posts",
	"cart_items",
	"orders",
	"order_items",
}

// buildMigrateDSN собирает строку подключения (DSN) из отдельных параметров
func buildMigrateDSN(dbCfg config.DatabaseConfig, migrationTable string) string {
	return buildQueryDSN(dbCfg) + "&x-migrations-table=" + migrationTable
}

// buildQueryDSN собирает DSN для обычных SQL запросов
func buildQueryDSN(dbCfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name,
	)
}

func main() {
	var migrationsPathFlag string
	var down bool
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back all migrations")

	// флаг -config разбирается внутри config.MustLoad
	cfg := config.MustLoad()
	log := logger.SetupLogger(cfg.Env).With(slog.String("component", "migrator"))

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	if err := runMigrations(migrationsPath, cfg.Database, down, log); err != nil {
		log.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	if down {
		return
	}

	db, err := sql.Open("postgres", buildQueryDSN(cfg.Database))
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := checkSchema(ctx, db)
	if err != nil {
		log.Error("schema check failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, table := range storefrontTables {
		log.Info("table ready", slog.String("table", table), slog.Int64("rows", counts[table]))
	}
}

func runMigrations(path string, dbCfg config.DatabaseConfig, down bool, log *slog.Logger) error {
	log.Info("applying migrations",
		slog.String("path", path),
		slog.String("database", fmt.Sprintf("%s:%d/%s", dbCfg.Host, dbCfg.Port, dbCfg.Name)),
		slog.Bool("down", down),
	)

	// Создаем объект мигратора
	m, err := migrate.New("file://"+path, buildMigrateDSN(dbCfg, migrationTableName))
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	log.Info("migrations applied successfully")
	return nil
}

// checkSchema убеждается, что все таблицы витрины на месте, и считает в них строки
func checkSchema(ctx context.Context, db *sql.DB) (map[string]int64, error) {
	counts := make(map[string]int64, len(storefrontTables))
	for _, table := range storefrontTables {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check table %s", table)
		}
		if !exists {
			return nil, errors.Errorf("table %s is missing", table)
		}

		var n int64
		// имя таблицы из фиксированного списка, не из ввода
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "failed to count rows in %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}
