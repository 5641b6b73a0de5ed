package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/angularhub/hub/internal/config"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour a *sql.DB speaks.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// Open opens the database configured in cfg and returns it with its dialect.
func Open(cfg config.Database) (*sql.DB, Dialect, error) {
	switch Dialect(cfg.Driver) {
	case Postgres:
		db, err := openPostgres(cfg)
		return db, Postgres, err
	case MySQL:
		db, err := openMySQL(cfg)
		return db, MySQL, err
	case SQLite:
		db, err := OpenSQLite(cfg.Name)
		return db, SQLite, err
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(cfg config.Database) (*sql.DB, error) {
	// Escape single quotes in password for PostgreSQL connection string
	escapedPassword := strings.ReplaceAll(cfg.Pass, "'", "\\'")

	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password='%s' dbname=%s sslmode=disable options='-c search_path=%s'", cfg.Host,
		cfg.Port, cfg.User, escapedPassword, cfg.Name, cfg.Schema)
	connConfig, err := pgx.ParseConfig(psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func openMySQL(cfg config.Database) (*sql.DB, error) {
	mysqlCfg := mysqldriver.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Pass
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Name
	mysqlCfg.ParseTime = true

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database file, or an in-memory one for ":memory:".
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every new connection would see an empty database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate applies all pending migrations from the migrations directory.
// The migrate instance is not closed because closing it would close db.
func Migrate(db *sql.DB, dialect Dialect) error {
	migrationsPath, err := findMigrationsPath()
	if err != nil {
		return fmt.Errorf("failed to locate migrations directory: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	log.Debugf("migrations applied from %s", migrationsPath)

	return nil
}

// findMigrationsPath searches upward from the current working directory for a "migrations" directory
// and returns its absolute path, so tests running inside package directories resolve it too.
func findMigrationsPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, "migrations")
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", err
			}
			return abs, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("migrations directory not found")
}
