//go:build integration

package test_utils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/angularhub/hub/internal/config"
	"github.com/angularhub/hub/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	testDBName     = "hub"
	testDBUser     = "test_hub"
	testDBPassword = "test_hub"
)

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	pgContainer, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return nil, err
	}
	return pgContainer, nil
}

// TestWithDB starts a Postgres container, applies all migrations and snapshots it.
// The returned function opens a new connection to the database.
func TestWithDB() (*postgres.PostgresContainer, func() *sql.DB) {
	ctx := context.Background()

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		log.Printf("Failed to start postgres container: %v", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Driver: string(database.Postgres),
		Host:   host,
		Port:   port.Int(),
		User:   testDBUser,
		Pass:   testDBPassword,
		Name:   testDBName,
		Schema: testDBName,
	}

	db, _, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	if err := database.Migrate(db, database.Postgres); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	db.Close()

	if err := container.Snapshot(ctx, postgres.WithSnapshotName("postgres-test-snapshot")); err != nil {
		log.Fatalf("Failed to snapshot postgres container: %v", err)
	}

	return container, func() *sql.DB {
		db, _, err := database.Open(cfg)
		if err != nil {
			log.Fatalf("Failed to open database connection: %v", err)
		}
		return db
	}
}
