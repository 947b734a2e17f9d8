package db

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
)

// NewTestDB opens an isolated in-memory database with the full schema
// migrated. Each call gets its own database; it is closed on test cleanup.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:          "sqlite",
		Database:        fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 300,
	}

	database, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}
