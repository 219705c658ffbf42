package postgres

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/asakaida/entitystore/internal/infrastructure/config"
	"github.com/asakaida/entitystore/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB connects to the test database and runs migrations. The test
// is skipped when no database is configured or reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if err := config.InitConfig("test"); err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}

	if err := pg.RunMigrations(migrationsPath()); err != nil {
		pg.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB drops the given tables, clears entity_types and closes the
// connection
func CleanupTestDB(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	for _, table := range tables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + Quote(table) + " CASCADE"); err != nil {
			t.Logf("Warning: Failed to drop table %s: %v", table, err)
		}
	}
	if _, err := db.Exec("DELETE FROM entity_types"); err != nil {
		t.Logf("Warning: Failed to clean up entity_types: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "database", "migrations", "postgres")
}
