// Package dbtest provides throwaway databases for tests.
package dbtest

import (
	"testing"

	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/pkg/config"
)

// New opens a migrated in-memory sqlite database that is closed when the
// test finishes.
func New(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(&config.DatabaseConfig{URL: "sqlite://:memory:"}, "ERROR")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database
}
