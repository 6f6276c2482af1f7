package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flowdesk/flowdesk/internal/api"
	"github.com/flowdesk/flowdesk/internal/db"
)

// openStore picks the persistence backend: sqlite when FLOWDESK_SQLITE_PATH
// is set (migrations run on boot), otherwise a process-local memory store for
// development.
func openStore() (api.Store, error) {
	sqlitePath := os.Getenv("FLOWDESK_SQLITE_PATH")
	if sqlitePath == "" {
		log.Printf("FLOWDESK_SQLITE_PATH not set, using in-memory store")
		return api.NewMemoryStore(), nil
	}

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.RunMigrations(sqliteDB, os.Getenv("FLOWDESK_MIGRATIONS_DIR")); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := db.NewSQLiteStore(sqliteDB)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	log.Printf("sqlite store ready at %s", sqlitePath)
	return store, nil
}
