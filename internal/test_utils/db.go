package test_utils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/angularhub/hub/internal/database"
)

// SetupTestDB creates a new in-memory SQLite database with all migrations applied.
// Each database is completely isolated from others.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := database.Migrate(db, database.SQLite); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return db
}

// WriteFile writes content to name inside a per-test temporary directory and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// findProjectRoot attempts to locate the project root directory
// It looks for .git directory or go.mod file
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, ".git")) || fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
